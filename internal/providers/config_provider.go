package providers

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	"viewguard/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	setDefaults(v)

	v.BindEnv("views.salt", "VIEW_SALT")
	v.BindEnv("logger.level", "VG_LOG_LEVEL")
	v.BindEnv("redis.addr", "VG_REDIS_ADDR")
	v.BindEnv("redis.password", "VG_REDIS_PASSWORD")
	v.BindEnv("database.driver", "VG_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "VG_DATABASE_DSN")
	v.BindEnv("auth.jwtSecret", "VG_JWT_SECRET")
	v.BindEnv("metrics.enabled", "VG_METRICS_ENABLED")
	v.BindEnv("cache.enabled", "VG_CACHE_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "ViewGuard"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	views := structures.DefaultViewsConfig()
	v.SetDefault("views.tokenTTL", views.TokenTTL)
	v.SetDefault("views.dedupTTL", views.DedupTTL)
	v.SetDefault("views.authPromptWindow", views.AuthPromptWindow)
	v.SetDefault("views.authGlobalWindow", views.AuthGlobalWindow)
	v.SetDefault("views.authGlobalLimit", views.AuthGlobalLimit)
	v.SetDefault("views.guestPromptWindow", views.GuestPromptWindow)
	v.SetDefault("views.guestGlobalWindow", views.GuestGlobalWindow)
	v.SetDefault("views.guestGlobalLimit", views.GuestGlobalLimit)
	v.SetDefault("views.issueWindow", views.IssueWindow)
	v.SetDefault("views.issueAuthLimit", views.IssueAuthLimit)
	v.SetDefault("views.issueGuestLimit", views.IssueGuestLimit)

	af := structures.DefaultAntifraudConfig()
	v.SetDefault("antifraud.ipPerMinute", af.IPPerMinute)
	v.SetDefault("antifraud.ipPerHour", af.IPPerHour)
	v.SetDefault("antifraud.userPerHour", af.UserPerHour)
	v.SetDefault("antifraud.patternLimit", af.PatternLimit)
	v.SetDefault("antifraud.patternWindow", af.PatternWindow)

	alerts := structures.DefaultAlertsConfig()
	v.SetDefault("alerts.enabled", alerts.Enabled)
	v.SetDefault("alerts.interval", alerts.Interval)
	v.SetDefault("alerts.window", alerts.Window)
	v.SetDefault("alerts.minEvents", alerts.MinEvents)
	v.SetDefault("alerts.rejectionRatio", alerts.RejectionRatio)

	v.SetDefault("redis.dialTimeout", 5*time.Second)
	v.SetDefault("redis.readTimeout", 3*time.Second)
	v.SetDefault("redis.writeTimeout", 3*time.Second)
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("cache.ttl", time.Minute)
}
