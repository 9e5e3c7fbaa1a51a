package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by Validate when no provider key is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

type Config struct {
	Port           string
	AllowedOrigins []string
	// Gemini
	GeminiAPIKey        string
	Model               string
	OpenAICompatBaseURL string
	RESTBaseURL         string
	RequestTimeout      time.Duration
	// Prompt override; empty uses the embedded W2W prompt
	PromptFile string
	// Canned reply when no live provider answers
	FallbackEnabled    bool
	ExposeErrorDetails bool
	// Response cache
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	// Logging
	LogLevel  string
	LogFormat string

	// parse failures collected by Load, reported by Validate
	loadErr error
}

const minDuration = time.Second

// Load reads .env (if present) and the process environment through v. Flags
// bound to v by the caller take precedence over the environment.
func Load(v *viper.Viper) Config {
	_ = godotenv.Load()
	if v == nil {
		v = viper.New()
	}
	v.AutomaticEnv()
	setDefaults(v)

	var errs []error
	duration := func(key string) time.Duration {
		d, err := parseDuration(key, v.GetString(key))
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	cfg := Config{
		Port:                strings.TrimSpace(v.GetString("port")),
		AllowedOrigins:      getListDefault(v.GetString("allowed_origin"), []string{"*"}),
		GeminiAPIKey:        strings.TrimSpace(v.GetString("gemini_api_key")),
		Model:               normalizeModel(v.GetString("gemini_model")),
		OpenAICompatBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("gemini_openai_base_url")), "/"),
		RESTBaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("gemini_rest_base_url")), "/"),
		RequestTimeout:      duration("request_timeout"),
		PromptFile:          strings.TrimSpace(v.GetString("prompt_file")),
		FallbackEnabled:     getBoolDefault(v.GetString("fallback_enabled"), true),
		ExposeErrorDetails:  getBoolDefault(v.GetString("expose_error_details"), false),
		CacheTTL:            duration("cache_ttl"),
		CacheMaxEntries:     v.GetInt("cache_max_entries"),
		RedisAddr:           strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword:       v.GetString("redis_password"),
		RedisDB:             v.GetInt("redis_db"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		LogFormat:           strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
	}
	cfg.loadErr = errors.Join(errs...)
	return cfg
}

// parseDuration requires a unit ("30s", "10m"); a bare number other than 0 is
// rejected instead of being read as nanoseconds.
func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q, use a unit such as 30s or 10m", strings.ToUpper(key), raw)
	}
	return d, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "5000")
	v.SetDefault("allowed_origin", "*")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("gemini_openai_base_url", "https://generativelanguage.googleapis.com/v1beta/openai")
	v.SetDefault("gemini_rest_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("fallback_enabled", "true")
	v.SetDefault("expose_error_details", "false")
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("cache_max_entries", 512)
	v.SetDefault("redis_db", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Validate fails fast on settings the server cannot start without.
func (c Config) Validate() error {
	if c.loadErr != nil {
		return c.loadErr
	}
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.Model == "" {
		return errors.New("GEMINI_MODEL must not be empty")
	}
	if c.RequestTimeout < minDuration {
		return fmt.Errorf("invalid request timeout %s, must be at least %s", c.RequestTimeout, minDuration)
	}
	if c.CacheTTL < 0 || c.CacheMaxEntries < 0 {
		return errors.New("cache settings must not be negative")
	}
	if c.CacheTTL > 0 && c.CacheTTL < minDuration {
		return fmt.Errorf("invalid cache ttl %s, must be 0 or at least %s", c.CacheTTL, minDuration)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be console or json", c.LogFormat)
	}
	return nil
}

// normalizeModel accepts both "gemini-2.5-flash" and "models/gemini-2.5-flash".
func normalizeModel(m string) string {
	return strings.TrimPrefix(strings.TrimSpace(m), "models/")
}

func getListDefault(v string, def []string) []string {
	if v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			s := strings.TrimSpace(p)
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

func getBoolDefault(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}
