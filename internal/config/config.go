package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	AuthSecret string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	TrashRetention time.Duration
	OutboxInterval time.Duration
	CORSOrigins    []string
	LogLevel       string
}

// Load reads configuration from PROVAFACIL_* environment variables and an
// optional config file (provafacil.yaml in the working directory).
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("provafacil")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("public.url", "")
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("auth.secret", "dev-only-secret")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("trash.retention", "720h")
	v.SetDefault("outbox.interval", "5s")
	v.SetDefault("cors.origins", "http://localhost:3000")
	v.SetDefault("log.level", "info")

	v.SetConfigName("provafacil")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	cfg := Config{
		HTTPAddr:       v.GetString("http.addr"),
		PublicURL:      v.GetString("public.url"),
		DBDriver:       v.GetString("db.driver"),
		DBDSN:          v.GetString("db.dsn"),
		AuthSecret:     v.GetString("auth.secret"),
		LLMBaseURL:     v.GetString("llm.base_url"),
		LLMAPIKey:      v.GetString("llm.api_key"),
		LLMModel:       v.GetString("llm.model"),
		TrashRetention: v.GetDuration("trash.retention"),
		OutboxInterval: v.GetDuration("outbox.interval"),
		CORSOrigins:    splitCSV(v.GetString("cors.origins")),
		LogLevel:       v.GetString("log.level"),
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
