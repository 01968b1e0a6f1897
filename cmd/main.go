package main

import (
	"context"
	"log"

	"github.com/antoinedamay/transferttt/internal/config"
	"github.com/antoinedamay/transferttt/internal/handlers"
	"github.com/antoinedamay/transferttt/internal/kv"
	"github.com/antoinedamay/transferttt/internal/middleware"
	"github.com/antoinedamay/transferttt/internal/ratelimit"
	"github.com/antoinedamay/transferttt/internal/scheduler"
	"github.com/antoinedamay/transferttt/internal/services"
	"github.com/antoinedamay/transferttt/internal/session"
	"github.com/antoinedamay/transferttt/internal/shortlink"
	"github.com/antoinedamay/transferttt/internal/storage"
	"github.com/antoinedamay/transferttt/internal/token"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Streamed bodies let the upload handler track receive progress; the
	// body limit gets headroom for multipart framing around the file part.
	app := fiber.New(fiber.Config{
		StreamRequestBody: true,
		BodyLimit:         int(cfg.MaxUploadBytes) + 64*1024,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Remote storage is optional at boot: without credentials the service
	// still resolves already-minted tokens, and uploads answer with a
	// structured error instead.
	var remote storage.Remote
	minioRemote, err := storage.NewMinioRemote(ctx, storage.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Printf("remote storage unavailable: %v (uploads disabled)", err)
	} else {
		remote = minioRemote
		log.Printf("Connected to MinIO at %s", cfg.MinioEndpoint)
	}

	// Short links are equally optional; without Redis every link is a
	// self-contained signed token.
	var short *shortlink.Store
	if cfg.ShortLinksEnabled() {
		store, err := kv.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("key-value store unavailable: %v (short links disabled)", err)
		} else {
			short = shortlink.NewStore(store, cfg.ShortCodeLen)
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		}
	}

	codec := token.NewCodec(cfg.SigningSecret, cfg.LegacyUnsignedTokens)
	if cfg.LegacyUnsignedTokens {
		log.Println("Warning: legacy unsigned tokens are accepted; disable LEGACY_UNSIGNED_TOKENS once old links have aged out")
	}

	sched := scheduler.New(remote)
	sessions := session.NewTracker(cfg.SessionTTL)
	links := services.NewLinkService(codec, short, sched, cfg.PublicBaseURL)

	var uploads *services.UploadService
	if remote != nil {
		uploads = services.NewUploadService(remote, links, sessions)
	}

	h := handlers.New(cfg, sessions, uploads, links, remote)
	limiter := ratelimit.NewLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	// API routes
	api := app.Group("/api")
	api.Get("/health", h.Health)
	api.Post("/session", h.InitSession)
	api.Get("/session/:id", h.SessionStatus)
	api.Post("/upload", middleware.RateLimit(limiter), h.Upload)
	api.Get("/info/:token", h.Info)

	// Download routes; the bare identifier route comes last so it only
	// catches what nothing else claimed.
	app.Get("/dl/:token", h.Download)
	app.Get("/:token", h.Download)

	log.Fatal(app.Listen(":" + cfg.Port))
}
