package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	LLM      LLMConfig
	Google   GoogleConfig
	Sessions SessionConfig
	CORS     CORSConfig
	Log      LogConfig
	SQLite   SQLiteConfig
}

// LLMConfig configures the OpenAI-compatible completion endpoint used for
// intent extraction.
type LLMConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// GoogleConfig configures the calendar provider integration.
type GoogleConfig struct {
	ClientSecretFile string
	RedirectURL      string
	CalendarID       string
	Timezone         string
	Timeout          time.Duration
	ConflictFailOpen bool
}

// SessionConfig governs the in-memory conversation store and the signed
// session cookie.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	MaxEntries int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SQLiteConfig locates the local credential database.
type SQLiteConfig struct {
	Path string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.LLM = LLMConfig{
		APIKey:     v.GetString("OPENAI_API_KEY"),
		BaseURL:    v.GetString("OPENAI_BASE_URL"),
		Model:      v.GetString("OPENAI_MODEL"),
		Timeout:    parseDuration(v.GetString("LLM_TIMEOUT"), 30*time.Second),
		MaxRetries: v.GetInt("LLM_MAX_RETRIES"),
	}

	cfg.Google = GoogleConfig{
		ClientSecretFile: v.GetString("GOOGLE_CLIENT_SECRET_FILE"),
		RedirectURL:      v.GetString("GOOGLE_REDIRECT_URL"),
		CalendarID:       v.GetString("GOOGLE_CALENDAR_ID"),
		Timezone:         v.GetString("CALENDAR_TIMEZONE"),
		Timeout:          parseDuration(v.GetString("GOOGLE_TIMEOUT"), 15*time.Second),
		ConflictFailOpen: v.GetBool("CONFLICT_FAIL_OPEN"),
	}

	cfg.Sessions = SessionConfig{
		Secret:     v.GetString("SESSION_SECRET"),
		TTL:        parseDuration(v.GetString("SESSION_TTL"), 30*time.Minute),
		MaxEntries: v.GetInt("SESSION_MAX"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("LLM_MAX_RETRIES", 2)

	v.SetDefault("GOOGLE_CLIENT_SECRET_FILE", "credentials.json")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/oauth2callback")
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIMEZONE", "America/Los_Angeles")
	v.SetDefault("GOOGLE_TIMEOUT", "15s")
	v.SetDefault("CONFLICT_FAIL_OPEN", true)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("SESSION_MAX", 1024)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SQLITE_PATH", "schedbot.db")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
