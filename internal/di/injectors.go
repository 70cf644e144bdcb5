//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"viewguard/internal"
	"viewguard/internal/antifraud"
	"viewguard/internal/controllers"
	"viewguard/internal/providers"
	"viewguard/internal/services"
	"viewguard/internal/statistic"
	"viewguard/internal/structures"
	"viewguard/internal/token"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		providers.NewKeyStoreProvider,
		providers.NewDatabaseProvider,
		providers.NewAuthProvider,
		providers.NewCodecProvider,

		antifraud.NewEngine,
		wire.Bind(new(antifraud.Counter), new(providers.KeyStoreInterface)),
		wire.Bind(new(antifraud.Hasher), new(*token.Codec)),

		services.NewViewTokenService,
		wire.Bind(new(services.ViewTokenServiceInterface), new(*services.ViewTokenService)),
		services.NewPromptViewService,
		wire.Bind(new(services.PromptViewServiceInterface), new(*services.PromptViewService)),
		services.NewTrackViewService,
		wire.Bind(new(services.TrackViewServiceInterface), new(*services.TrackViewService)),
		services.NewCounterSyncService,
		wire.Bind(new(services.CounterSyncServiceInterface), new(*services.CounterSyncService)),
		services.NewAlertService,
		wire.Bind(new(services.AlertServiceInterface), new(*services.AlertService)),

		statistic.NewScheduler,
		controllers.NewViewController,
		controllers.NewPromptController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil, nil
}
