package bootstrap

import (
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/pathlab-ai-platform/internal/agent"
	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
	"github.com/wolfman30/pathlab-ai-platform/internal/chat"
	appconfig "github.com/wolfman30/pathlab-ai-platform/internal/config"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/internal/webchat"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// Generator is the language-model surface the agents need.
type Generator interface {
	agent.TextGenerator
	agent.JSONGenerator
}

// ChatDeps are the collaborators built outside this package.
type ChatDeps struct {
	Generator Generator
	Redis     *redis.Client        // optional transcript archive
	Metrics   *metrics.ChatMetrics // optional
	Clock     func() time.Time     // optional, defaults to time.Now
}

// ChatRuntime is the wired chat stack.
type ChatRuntime struct {
	Catalog     *catalog.Catalog
	Store       *session.Store
	Sweeper     *session.Sweeper
	Lab         *labapi.Client
	Router      *agent.Router
	ChatHandler *chat.Handler
	WebChat     *webchat.Handler
}

// BuildChat wires catalog, session store, lab client, agents and router.
// A missing catalog file is not fatal; prices are reported as not available.
func BuildChat(cfg *appconfig.Config, deps ChatDeps, logger *logging.Logger) *ChatRuntime {
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	cat := catalog.Load(cfg.TestCatalogPath)
	if err := cat.Err(); err != nil {
		logger.Warn("test catalog unavailable; prices will show as not available", "path", cfg.TestCatalogPath, "error", err)
	} else {
		logger.Info("test catalog loaded", "path", cfg.TestCatalogPath, "tests", cat.Len())
	}

	storeOpts := []session.StoreOption{session.WithLogger(logger), session.WithClock(deps.Clock)}
	if archive := BuildTranscriptArchive(deps.Redis, cfg); archive != nil {
		storeOpts = append(storeOpts, session.WithArchive(archive))
		logger.Info("transcript archive enabled", "ttl", cfg.TranscriptTTL.String())
	}
	store := session.NewStore(cfg.SessionTTL, storeOpts...)
	sweeper := session.NewSweeper(store, logger).
		WithInterval(cfg.SessionSweepInterval).
		WithRecorder(deps.Metrics)

	lab := labapi.NewClient(cfg.LabAPIBaseURL, logger,
		labapi.WithServiceToken(cfg.LabAPIToken),
		labapi.WithTimeout(cfg.LabAPITimeout),
		labapi.WithObserver(deps.Metrics),
	)

	renderer := agent.NewResponder(deps.Generator)
	agents := map[session.Intent]agent.Agent{
		session.IntentBooking: agent.NewBookingAgent(lab, renderer, cat, store,
			agent.WithBookingClock(deps.Clock), agent.WithBookingLogger(logger)),
		session.IntentViewReport:        agent.NewViewReportAgent(lab, renderer, logger, reportOptions(cfg)...),
		session.IntentAppointmentStatus: agent.NewAppointmentStatusAgent(lab, renderer, logger),
	}
	var classifier agent.JSONGenerator
	if deps.Generator != nil {
		classifier = deps.Generator
	}
	router := agent.NewRouter(store, classifier, agents, logger, agent.WithTurnObserver(deps.Metrics))

	return &ChatRuntime{
		Catalog:     cat,
		Store:       store,
		Sweeper:     sweeper,
		Lab:         lab,
		Router:      router,
		ChatHandler: chat.NewHandler(router, store, logger),
		WebChat:     webchat.NewHandler(router, store, logger),
	}
}

func reportOptions(cfg *appconfig.Config) []agent.ViewReportOption {
	switch text := strings.TrimSpace(cfg.ReportDisclaimer); {
	case text == "":
		return nil
	case strings.EqualFold(text, "off"):
		return []agent.ViewReportOption{agent.WithReportDisclaimer("")}
	default:
		return []agent.ViewReportOption{agent.WithReportDisclaimer(text)}
	}
}
