package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Gemini groups the provider settings shared by both binaries.
type Gemini struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string
	VideoModel string
}

type Bot struct {
	TelegramToken string
	Gemini        Gemini

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	DBPath   string
	MediaDir string

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	VideoPollInterval  time.Duration
	ProviderRateEvery  time.Duration
}

type Web struct {
	Addr   string
	Gemini Gemini

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	DBPath   string
	MediaDir string

	SessionTTL        time.Duration
	HTTPTimeout       time.Duration
	VideoPollInterval time.Duration
	ProviderRateEvery time.Duration
}

func LoadBot() (Bot, error) {
	cfg := Bot{
		Gemini:             loadGemini(),
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		DBPath:             getEnv("DB_PATH", "studio.db"),
		MediaDir:           getEnv("MEDIA_DIR", "media"),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 600)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 300)) * time.Second,
		VideoPollInterval:  time.Duration(getEnvInt("VIDEO_POLL_SECONDS", 5)) * time.Second,
		ProviderRateEvery:  time.Duration(getEnvInt("PROVIDER_RATE_SECONDS", 2)) * time.Second,
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	switch {
	case cfg.TelegramToken == "":
		return Bot{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	case cfg.Gemini.APIKey == "":
		return Bot{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 600 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 300 * time.Second
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 5 * time.Second
	}

	return cfg, nil
}

// LoadWeb does not require GEMINI_API_KEY: when the env key is absent every
// browser session supplies its own key through the key dialog.
func LoadWeb() (Web, error) {
	cfg := Web{
		Addr:              getEnv("WEB_ADDR", ":8080"),
		Gemini:            loadGemini(),
		LogLevel:          strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:             getEnvBool("DEBUG", false),
		PreferIPv4:        getEnvBool("PREFER_IPV4", true),
		DBPath:            getEnv("DB_PATH", "studio.db"),
		MediaDir:          getEnv("MEDIA_DIR", "media"),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 300)) * time.Second,
		VideoPollInterval: time.Duration(getEnvInt("VIDEO_POLL_SECONDS", 5)) * time.Second,
		ProviderRateEvery: time.Duration(getEnvInt("PROVIDER_RATE_SECONDS", 2)) * time.Second,
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 300 * time.Second
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 5 * time.Second
	}

	return cfg, nil
}

func loadGemini() Gemini {
	return Gemini{
		APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		BaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		APIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TextModel:  strings.TrimSpace(getEnv("GEMINI_TEXT_MODEL", "")),
		ImageModel: strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "")),
		VideoModel: strings.TrimSpace(getEnv("GEMINI_VIDEO_MODEL", "")),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
