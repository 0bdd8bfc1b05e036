package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar optionally points at a YAML file layered between defaults and env.
const PathEnvVar = "CONFIG_PATH"

// Config captures all runtime configuration. Keys match the environment
// variable names, lowercased.
type Config struct {
	Port              string `koanf:"port"`
	ReadTimeoutSecs   int    `koanf:"server_read_timeout"`
	WriteTimeoutSecs  int    `koanf:"server_write_timeout"`
	IdleTimeoutSecs   int    `koanf:"server_idle_timeout"`
	LogLevel          string `koanf:"log_level"`
	LogFormat         string `koanf:"log_format"`
	JWTSecret         string `koanf:"jwt_secret"`
	TokenTTLHours     int    `koanf:"token_ttl_hours"`
	AuthRatePerMinute int    `koanf:"auth_rate_limit_per_min"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	// AdminUserIDs may call operator routes such as rating reconciliation.
	AdminUserIDs []string `koanf:"admin_user_ids"`

	DBURL             string `koanf:"db_url"`
	MigrationsDir     string `koanf:"migrations_dir"`
	DBMaxConns        int    `koanf:"db_max_conns"`
	DBMinConns        int    `koanf:"db_min_conns"`
	DBMaxIdleSecs     int    `koanf:"db_max_conn_idle_secs"`
	DBMaxLifeSecs     int    `koanf:"db_max_conn_lifetime_secs"`
	DBConnTimeoutSecs int    `koanf:"db_conn_timeout_secs"`
	DBStatementCache  int    `koanf:"db_statement_cache_capacity"`

	TMDBAPIKey       string `koanf:"tmdb_api_key"`
	TMDBBaseURL      string `koanf:"tmdb_base_url"`
	TMDBImageBaseURL string `koanf:"tmdb_image_base_url"`
	TMDBTimeoutSecs  int    `koanf:"tmdb_timeout_secs"`
}

func defaults() Config {
	return Config{
		Port:               "8080",
		ReadTimeoutSecs:    15,
		WriteTimeoutSecs:   15,
		IdleTimeoutSecs:    60,
		LogLevel:           "info",
		LogFormat:          "json",
		TokenTTLHours:      24 * 7,
		AuthRatePerMinute:  20,
		CORSAllowedOrigins: []string{"*"},
		MigrationsDir:      "db/migrations",
		DBMaxConns:         20,
		DBMinConns:         2,
		DBMaxIdleSecs:      300,
		DBMaxLifeSecs:      3600,
		DBConnTimeoutSecs:  10,
		DBStatementCache:   256,
		TMDBBaseURL:        "https://api.themoviedb.org/3",
		TMDBImageBaseURL:   "https://image.tmdb.org/t/p/w500",
		TMDBTimeoutSecs:    5,
	}
}

// Load layers struct defaults, an optional YAML file and environment
// variables, then validates the result.
func Load() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase is Load for tools that only talk to the database; it skips
// the API and TMDb checks.
func LoadDatabase() (Config, error) {
	cfg, err := load()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables are treated as unset.
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		key = strings.ToLower(key)
		if key == "cors_allowed_origins" || key == "admin_user_ids" {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks required keys and numeric ranges.
func (cfg Config) Validate() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TMDBAPIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if cfg.TMDBBaseURL == "" {
		return fmt.Errorf("TMDB_BASE_URL is required")
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if cfg.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive")
	}
	if cfg.AuthRatePerMinute < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MIN must be non-negative")
	}
	return cfg.ValidateDatabase()
}

// ValidateDatabase checks the connection-pool keys.
func (cfg Config) ValidateDatabase() error {
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
