package fx

import (
	"athlete-tracker/internal/config"
	"athlete-tracker/internal/database"
	"athlete-tracker/internal/logger"
	"athlete-tracker/internal/notify"
	"athlete-tracker/internal/repository"
	"athlete-tracker/internal/server"
	"athlete-tracker/internal/service"
	"athlete-tracker/internal/session"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideSessionCache(cfg *config.Config, log zerolog.Logger) *session.Cache {
	return session.NewCache(cfg.SessionTTL, log)
}

func ProvideSnapshotStore(cfg *config.Config, log zerolog.Logger) *session.SnapshotStore {
	return session.NewSnapshotStore(cfg.SessionDir, cfg.SessionTTL, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// session state
	fx.Provide(ProvideSessionCache),
	fx.Provide(ProvideSnapshotStore),
	// repos
	fx.Provide(repository.NewRequestRepository),
	fx.Provide(repository.NewAthleteRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewMetricsRepository),
	fx.Provide(repository.NewInjuryRepository),
	// notifier client
	fx.Provide(notify.NewClient),
	// svc
	fx.Provide(service.NewRequestService),
	fx.Provide(service.NewVerifyService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewCleanupService),
	// server
	fx.Provide(server.New),
)
