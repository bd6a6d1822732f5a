package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
	"github.com/wolfman30/pathlab-ai-platform/internal/chat"
	httpmiddleware "github.com/wolfman30/pathlab-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pathlab-ai-platform/internal/webchat"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	WebChat            *webchat.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	// RateLimiter guards the chat routes when set.
	RateLimiter *httpmiddleware.RateLimiter
	Catalog     *catalog.Catalog
	Models      []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/chat", func(cr chi.Router) {
		if cfg.RateLimiter != nil {
			cr.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.WebChat != nil {
			cr.Get("/ws", cfg.WebChat.HandleWebSocket)
		}
		if cfg.ChatHandler != nil {
			cfg.ChatHandler.Routes(cr)
		}
	})

	return r
}

type healthResponse struct {
	Status  string   `json:"status"`
	Catalog string   `json:"catalog"`
	Models  []string `json:"models"`
}

// healthHandler reports ok even with an unavailable catalog; booking still
// works with prices shown as not available.
func healthHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status:  "ok",
			Catalog: cfg.Catalog.Status().String(),
			Models:  cfg.Models,
		}
		if resp.Models == nil {
			resp.Models = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
