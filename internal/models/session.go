package models

import "time"

// SessionPhase is the lifecycle stage of an in-flight upload.
type SessionPhase string

const (
	PhaseInit           SessionPhase = "init"
	PhaseUploading      SessionPhase = "uploading"
	PhaseRemoteTransfer SessionPhase = "remote-transfer"
	PhaseDone           SessionPhase = "done"
	PhaseError          SessionPhase = "error"
)

// PhaseRank orders the non-error phases so transitions can be kept monotonic.
// PhaseError is reachable from any non-terminal phase and has no rank.
func PhaseRank(p SessionPhase) int {
	switch p {
	case PhaseInit:
		return 0
	case PhaseUploading:
		return 1
	case PhaseRemoteTransfer:
		return 2
	case PhaseDone:
		return 3
	}
	return -1
}

// UploadSession tracks the progress of one upload for polling clients.
type UploadSession struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"-"`
	ExpiresAt     time.Time    `json:"-"`
	Phase         SessionPhase `json:"phase"`
	ReceivedBytes int64        `json:"receivedBytes"`
	TotalBytes    int64        `json:"totalBytes"`
	RemoteBytes   int64        `json:"remoteBytes"`
	RemoteTotal   int64        `json:"remoteTotal"`
	FileName      string       `json:"name"`
	FileSize      int64        `json:"size"`
	DownloadURL   string       `json:"downloadUrl,omitempty"`
	LinkExpiresAt string       `json:"expiresAt,omitempty"`
	Error         string       `json:"error,omitempty"`
	Done          bool         `json:"done"`
}
