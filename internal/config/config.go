package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	KeyServerAddr           = "server.addr"
	KeyTrustedProxies       = "server.trusted_proxies"
	KeyDatabaseDSN          = "database.dsn"
	KeyDraftCode            = "draft.code"
	KeySessionKey           = "session.key"
	KeyPageTypes            = "api.page_types"
	KeyRateLimitPerMinute   = "ratelimit.draft_per_minute"
	KeyRateLimitBurst       = "ratelimit.draft_burst"
	KeyLogDebug             = "log.debug"
	envPrefix               = "HEADLESS"
	legacyDraftCodeVariable = "PREVIEW_DRAFT_CODE"
)

// DefaultPageTypes are the page models registered when none are configured.
var DefaultPageTypes = []string{"wagtailcore.Page", "home.HomePage", "sandbox.FooPage", "sandbox.BarPage"}

// Config is the resolved runtime configuration.
type Config struct {
	ServerAddr string
	// TrustedProxies are the IPs or CIDRs whose forwarding headers name
	// the client. Requests from anywhere else are keyed by their peer address.
	TrustedProxies []string
	DatabaseDSN    string
	// DraftCode is the shared draft secret. Empty disables draft mode.
	DraftCode  string
	SessionKey string
	PageTypes  []string

	DraftPerMinute int
	DraftBurst     int

	Debug bool
}

// SessionsEnabled reports whether editor endpoints can be served.
func (c Config) SessionsEnabled() bool {
	return len(c.SessionKey) >= 32
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault(KeyServerAddr, ":8080")
	vp.SetDefault(KeyTrustedProxies, []string{})
	vp.SetDefault(KeyDatabaseDSN, "headless.db")
	vp.SetDefault(KeyDraftCode, "")
	vp.SetDefault(KeySessionKey, "")
	vp.SetDefault(KeyPageTypes, DefaultPageTypes)
	vp.SetDefault(KeyRateLimitPerMinute, 60)
	vp.SetDefault(KeyRateLimitBurst, 20)
	vp.SetDefault(KeyLogDebug, false)
}

// New builds a viper instance with defaults and environment overrides.
// A non-empty path is read as a config file; its format follows the extension.
func New(path string) (*viper.Viper, error) {
	vp := viper.New()
	setDefaults(vp)

	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	if err := vp.BindEnv(KeyDraftCode, envPrefix+"_DRAFT_CODE", legacyDraftCodeVariable); err != nil {
		return nil, err
	}

	if path != "" {
		vp.SetConfigFile(path)
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return vp, nil
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (Config, error) {
	vp, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return FromViper(vp)
}

// FromViper extracts and validates a Config.
func FromViper(vp *viper.Viper) (Config, error) {
	cfg := Config{
		ServerAddr:     vp.GetString(KeyServerAddr),
		TrustedProxies: splitList(vp.GetStringSlice(KeyTrustedProxies)),
		DatabaseDSN:    vp.GetString(KeyDatabaseDSN),
		DraftCode:      strings.TrimSpace(vp.GetString(KeyDraftCode)),
		SessionKey:     vp.GetString(KeySessionKey),
		PageTypes:      splitList(vp.GetStringSlice(KeyPageTypes)),
		DraftPerMinute: vp.GetInt(KeyRateLimitPerMinute),
		DraftBurst:     vp.GetInt(KeyRateLimitBurst),
		Debug:          vp.GetBool(KeyLogDebug),
	}

	if cfg.DatabaseDSN == "" {
		return Config{}, errors.New("database.dsn must not be empty")
	}
	if cfg.SessionKey != "" && !cfg.SessionsEnabled() {
		return Config{}, errors.New("session.key must be at least 32 characters long")
	}
	if cfg.DraftPerMinute < 0 || cfg.DraftBurst < 0 {
		return Config{}, errors.New("ratelimit values must not be negative")
	}
	if len(cfg.PageTypes) == 0 {
		cfg.PageTypes = DefaultPageTypes
	}
	return cfg, nil
}

// splitList accepts both list values and comma separated strings from the environment.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
