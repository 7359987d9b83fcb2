package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/embelhq/embel/auth"
	"github.com/embelhq/embel/dbopen"
	"github.com/embelhq/embel/drive"
	"github.com/embelhq/embel/enhance"
	"github.com/embelhq/embel/enhance/gemini"
	"github.com/embelhq/embel/enhance/openai"
	"github.com/embelhq/embel/export"
	"github.com/embelhq/embel/kit"
	"github.com/embelhq/embel/notes"
	"github.com/embelhq/embel/pipeline"
	"github.com/embelhq/embel/shield"
)

func main() {
	configPath := flag.String("config", env("CONFIG", "embel.yaml"), "path to YAML config")
	flag.Parse()

	cfg := DefaultConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Derive the 32-byte JWT signing key from the configured secret.
	secretHash := sha256.Sum256([]byte(cfg.JWTSecret))
	jwtSecret := secretHash[:]

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// One SQLite database carries notes, the job queue and drive tokens.
	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(notes.Schema),
		dbopen.WithSchema(pipeline.Schema),
		dbopen.WithSchema(drive.Schema),
	)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Engines. Every configured engine is registered; the pipeline runs on
	// the default one.
	registry := enhance.NewRegistry()
	if cfg.Engine.OpenAI.APIKey != "" {
		var opts []openai.Option
		if cfg.Engine.OpenAI.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Engine.OpenAI.Model))
		}
		if cfg.Engine.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Engine.OpenAI.BaseURL))
		}
		registry.Register("openai", openai.New(cfg.Engine.OpenAI.APIKey, opts...))
	}
	if cfg.Engine.Gemini.APIKey != "" {
		registry.Register("gemini", gemini.New(cfg.Engine.Gemini.APIKey, cfg.Engine.Gemini.Model))
	}
	engine, err := registry.Pick(cfg.Engine.Default)
	if err != nil {
		slog.Error("engine selection", "error", err)
		os.Exit(1)
	}
	slog.Info("engine selected", "name", cfg.Engine.Default)

	// Notes service + processing pipeline.
	svc := notes.NewService(db, engine, logger)
	queue := pipeline.NewQueue(db)
	svc.SetEnqueue(func(ctx context.Context, noteID string) error {
		_, err := queue.Enqueue(ctx, pipeline.JobEnhance, noteID)
		return err
	})

	processor := pipeline.NewProcessor(svc, engine, logger)
	worker := pipeline.NewWorker(queue, logger, pipeline.OnExhausted(processor.FailExhausted))
	worker.RegisterHandler(pipeline.JobEnhance, processor.Process)
	worker.SetConcurrency(pipeline.JobEnhance, cfg.Worker.Concurrency)
	go func() {
		if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("worker stopped", "error", err)
		}
	}()

	// Export generator: local pdflatex first, remote service as fallback.
	compiler := export.NewChain(
		&export.LocalCompiler{Binary: cfg.Export.PdflatexBinary},
		&export.RemoteCompiler{URL: cfg.Export.RemoteCompileURL},
	)
	gen := export.NewGenerator(svc, engine, compiler, cfg.ArtifactsDir, logger)

	// Cloud drive bridge, only when a provider is configured.
	var driveSvc *drive.Service
	if cfg.DriveEnabled() {
		driveSvc = drive.NewService(db, drive.Config{
			ClientID:     cfg.Drive.ClientID,
			ClientSecret: cfg.Drive.ClientSecret,
			RedirectURL:  cfg.Drive.RedirectURL,
			AuthURL:      cfg.Drive.AuthURL,
			TokenURL:     cfg.Drive.TokenURL,
			ContentURL:   cfg.Drive.ContentURL,
			Folder:       cfg.Drive.Folder,
		}, gen, logger)
	}

	// Rate limits on the AI-backed endpoints; everything else is unlimited.
	rl := shield.NewRateLimiter(map[string]shield.RateLimitRule{
		"POST /api/notes":          {MaxRequests: 20, Window: time.Minute},
		"POST /api/topics/preview": {MaxRequests: 30, Window: time.Minute},
		"POST /api/drive/upload":   {MaxRequests: 10, Window: time.Minute},
	})
	rl.StartGC(ctx.Done())

	// Router.
	r := chi.NewRouter()
	r.Use(shield.MaxBody(64 << 20))
	r.Use(rl.Middleware)
	r.Use(auth.Middleware(jwtSecret))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		kit.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The OAuth callback arrives from the provider's redirect without our
	// bearer token; it authenticates via the state token instead.
	if driveSvc != nil {
		driveSvc.RegisterCallback(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Require)
		svc.RegisterHTTP(r)
		gen.RegisterHTTP(r)
		if driveSvc != nil {
			driveSvc.RegisterHTTP(r)
		}
	})

	// Optional MCP surface over stdio, alongside HTTP.
	if cfg.MCP.Transport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "embel",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv, cfg.MCP.UserID)
		go func() {
			slog.Info("MCP stdio starting", "user_id", cfg.MCP.UserID)
			ss, err := mcpSrv.Connect(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: os.Stdout}, nil)
			if err != nil {
				slog.Error("MCP connect", "error", err)
				return
			}
			if err := ss.Wait(); err != nil && ctx.Err() == nil {
				slog.Error("MCP session", "error", err)
			}
		}()
	}

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
