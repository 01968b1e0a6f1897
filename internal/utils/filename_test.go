package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "report-v2.pdf", Sanitize("report-v2.pdf"))
	assert.Equal(t, "my_file_name.txt", Sanitize("my file/name.txt"))
	assert.Equal(t, "r__sum__.doc", Sanitize("résumé.doc"))
}

func TestASCIIFallback(t *testing.T) {
	assert.Equal(t, "plain.txt", ASCIIFallback("plain.txt"))
	assert.Equal(t, "r_sum_.doc", ASCIIFallback("résumé.doc"))
	assert.Equal(t, "a_b.txt", ASCIIFallback(`a"b.txt`))
	assert.Equal(t, "___", ASCIIFallback("日本語"))
	assert.Equal(t, "file", ASCIIFallback(""))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t,
		`attachment; filename="plain.txt"; filename*=UTF-8''plain.txt`,
		ContentDisposition("plain.txt"))
	assert.Equal(t,
		`attachment; filename="r_sum_.doc"; filename*=UTF-8''r%C3%A9sum%C3%A9.doc`,
		ContentDisposition("résumé.doc"))
}
