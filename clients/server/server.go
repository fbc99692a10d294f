// Package server provides the Pardal web UI and its HTTP API.
package server

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gitlab.com/tozd/go/errors"

	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/config"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/gallery"
	"github.com/PardalJao/Nano-Banana-Pro-3-Pardal/pkg/generator"
)

//go:embed web/*
var webContent embed.FS

// maxRequestBody bounds JSON bodies; a full set of reference images in
// base64 fits comfortably.
const maxRequestBody = 256 << 20

// Options configures a Server.
type Options struct {
	MetadataKey      string // tEXt keyword holding the prompt in downloads
	MaxReferenceEdge int
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store gallery.Store
	gen   generator.Generator
	opts  Options
}

// New creates a server over a gallery store and an image backend.
func New(store gallery.Store, gen generator.Generator, opts Options) *Server {
	if opts.MetadataKey == "" {
		opts.MetadataKey = config.DefaultMetadataKey
	}
	if opts.MaxReferenceEdge <= 0 {
		opts.MaxReferenceEdge = config.DefaultMaxEdge
	}
	return &Server{store: store, gen: gen, opts: opts}
}

// Routes returns the HTTP handler with API routes and the static UI.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Post("/download", s.handleDownload)
		r.Post("/references", s.handleReference)
		r.Post("/metadata", s.handleInspect)

		r.Get("/images", s.handleListImages)
		r.Get("/images/{id}", s.handleGetImage)
		r.Delete("/images/{id}", s.handleDeleteImage)
		r.Get("/images/{id}/thumbnail", s.handleThumbnail)
		r.Get("/images/{id}/download", s.handleDownloadImage)
		r.Get("/images/{id}/metadata", s.handleImageMetadata)
	})

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(webFS)))
	return r
}

// RunServe starts the web UI server and blocks until SIGINT/SIGTERM.
func RunServe(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	var offline, noBrowser bool
	flags.StringVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	flags.StringVar(&cfg.Port, "p", cfg.Port, "Port to listen on")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite gallery database (empty keeps images in memory)")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "Image model")
	flags.BoolVar(&offline, "offline", false, "Use the placeholder backend instead of the API")
	flags.BoolVar(&noBrowser, "no-browser", false, "Do not open a browser")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if cfg.APIKey == "" && !offline {
		if cfg.APIKey, err = config.PromptAPIKey(os.Stderr); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	gen, err := generator.New(ctx, generator.Options{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Offline:  offline,
		FontPath: cfg.FontPath,
	})
	if err != nil {
		return err
	}

	s := New(store, gen, Options{MetadataKey: cfg.MetadataKey, MaxReferenceEdge: cfg.MaxReferenceEdge})
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.Routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation can take a while
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Pardal UI → http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	if !noBrowser {
		go openBrowser("http://localhost:" + cfg.Port)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, dbPath string) (gallery.Store, error) {
	if dbPath == "" {
		return gallery.NewMemory(), nil
	}
	log.Printf("Gallery database: %s", dbPath)
	return gallery.OpenSQLite(ctx, dbPath)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Warning: could not open browser: %v", err)
	}
}
