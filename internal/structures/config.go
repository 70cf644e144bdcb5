package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"uint"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver" validate:"required|in:postgres,sqlite"`
	DSN          string `yaml:"dsn" validate:"required"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

// ViewsConfig holds the view token lifetimes and the redemption/issuance windows.
type ViewsConfig struct {
	Salt     string        `yaml:"salt"`
	TokenTTL time.Duration `yaml:"tokenTTL" validate:"required|min:1"`
	DedupTTL time.Duration `yaml:"dedupTTL" validate:"required|min:1"`

	AuthPromptWindow  time.Duration `yaml:"authPromptWindow" validate:"required|min:1"`
	AuthGlobalWindow  time.Duration `yaml:"authGlobalWindow" validate:"required|min:1"`
	AuthGlobalLimit   int64         `yaml:"authGlobalLimit" validate:"required|min:1"`
	GuestPromptWindow time.Duration `yaml:"guestPromptWindow" validate:"required|min:1"`
	GuestGlobalWindow time.Duration `yaml:"guestGlobalWindow" validate:"required|min:1"`
	GuestGlobalLimit  int64         `yaml:"guestGlobalLimit" validate:"required|min:1"`

	IssueWindow     time.Duration `yaml:"issueWindow" validate:"required|min:1"`
	IssueAuthLimit  int64         `yaml:"issueAuthLimit" validate:"required|min:1"`
	IssueGuestLimit int64         `yaml:"issueGuestLimit" validate:"required|min:1"`
}

type AntifraudConfig struct {
	IPPerMinute   int64         `yaml:"ipPerMinute" validate:"required|min:1"`
	IPPerHour     int64         `yaml:"ipPerHour" validate:"required|min:1"`
	UserPerHour   int64         `yaml:"userPerHour" validate:"required|min:1"`
	PatternLimit  int64         `yaml:"patternLimit" validate:"required|min:1"`
	PatternWindow time.Duration `yaml:"patternWindow" validate:"required|min:1"`
}

type AlertsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Interval       time.Duration `yaml:"interval"`
	Window         time.Duration `yaml:"window"`
	MinEvents      int64         `yaml:"minEvents"`
	RejectionRatio float64       `yaml:"rejectionRatio"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server          `yaml:"webServer"`
	Logger    LoggerConfig    `yaml:"logger"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Views     ViewsConfig     `yaml:"views"`
	Antifraud AntifraudConfig `yaml:"antifraud"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Cache     CacheConfig     `yaml:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Auth      AuthConfig      `yaml:"auth"`
}

// DefaultViewsConfig returns the reference lifetimes and limits.
func DefaultViewsConfig() ViewsConfig {
	return ViewsConfig{
		TokenTTL:          10 * time.Minute,
		DedupTTL:          15 * time.Minute,
		AuthPromptWindow:  8 * time.Hour,
		AuthGlobalWindow:  time.Minute,
		AuthGlobalLimit:   60,
		GuestPromptWindow: 24 * time.Hour,
		GuestGlobalWindow: time.Minute,
		GuestGlobalLimit:  12,
		IssueWindow:       30 * time.Second,
		IssueAuthLimit:    80,
		IssueGuestLimit:   20,
	}
}

func DefaultAntifraudConfig() AntifraudConfig {
	return AntifraudConfig{
		IPPerMinute:   30,
		IPPerHour:     200,
		UserPerHour:   100,
		PatternLimit:  10,
		PatternWindow: 5 * time.Minute,
	}
}

func DefaultAlertsConfig() AlertsConfig {
	return AlertsConfig{
		Enabled:        true,
		Interval:       time.Minute,
		Window:         10 * time.Minute,
		MinEvents:      50,
		RejectionRatio: 0.5,
	}
}
