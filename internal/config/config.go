package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configDir  = ".chatctl"
	configName = "config"
	configType = "toml"
	envPrefix  = "CHATCTL"

	KeyAPIURL           = "api.url"
	KeyWebsocketURL     = "ws.url"
	KeyAccountsPath     = "accounts.path"
	KeySecretsDir       = "secrets.dir"
	KeySecretsBackend   = "secrets.backend"
	KeyPassPrefix       = "secrets.pass_prefix"
	KeyReconnectDelay   = "session.reconnect_delay"
	KeyProbeAddr        = "network.probe_addr"
	KeyProbeInterval    = "network.probe_interval"
	KeyMFAInterval      = "login.mfa_interval"
	KeyMinServerVersion = "server.min_version"
	KeyLogLevel         = "log.level"
)

const (
	BackendAuto = "auto"
	BackendPass = "pass"
	BackendFile = "file"
)

// Config is the resolved runtime configuration.
type Config struct {
	APIURL       string
	WebsocketURL string
	AccountsPath string
	SecretsDir   string
	PassPrefix   string
	// SecretsBackend is auto (pass with file fallback), pass or file.
	SecretsBackend string

	ReconnectDelay time.Duration
	// ProbeAddr is dialed to detect connectivity. Empty disables probing.
	ProbeAddr     string
	ProbeInterval time.Duration
	// MFAInterval is the minimum spacing between MFA answers.
	MFAInterval      time.Duration
	MinServerVersion string
	LogLevel         slog.Level

	// File is the config file that was read, empty when none exists.
	File string
}

// Load reads ~/.chatctl/config.toml when present and applies CHATCTL_*
// environment overrides, e.g. CHATCTL_API_URL for api.url. v is left
// populated so adapters configured through viper see the same values.
func Load(v *viper.Viper) (Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	base := filepath.Join(homeDir, configDir)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(base)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAPIURL, "http://localhost:8000")
	v.SetDefault(KeyWebsocketURL, "")
	v.SetDefault(KeyAccountsPath, filepath.Join(base, "accounts.toml"))
	v.SetDefault(KeySecretsDir, filepath.Join(base, "secrets"))
	v.SetDefault(KeyPassPrefix, "")
	v.SetDefault(KeySecretsBackend, BackendAuto)
	v.SetDefault(KeyReconnectDelay, "1500ms")
	v.SetDefault(KeyProbeAddr, "")
	v.SetDefault(KeyProbeInterval, "10s")
	v.SetDefault(KeyMFAInterval, "1s")
	v.SetDefault(KeyMinServerVersion, "")
	v.SetDefault(KeyLogLevel, "warn")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		APIURL:           strings.TrimRight(strings.TrimSpace(v.GetString(KeyAPIURL)), "/"),
		WebsocketURL:     strings.TrimSpace(v.GetString(KeyWebsocketURL)),
		AccountsPath:     v.GetString(KeyAccountsPath),
		SecretsDir:       v.GetString(KeySecretsDir),
		PassPrefix:       v.GetString(KeyPassPrefix),
		SecretsBackend:   strings.ToLower(strings.TrimSpace(v.GetString(KeySecretsBackend))),
		ReconnectDelay:   v.GetDuration(KeyReconnectDelay),
		ProbeAddr:        strings.TrimSpace(v.GetString(KeyProbeAddr)),
		ProbeInterval:    v.GetDuration(KeyProbeInterval),
		MFAInterval:      v.GetDuration(KeyMFAInterval),
		MinServerVersion: strings.TrimSpace(v.GetString(KeyMinServerVersion)),
		File:             v.ConfigFileUsed(),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", KeyLogLevel, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	apiURL, err := url.Parse(c.APIURL)
	if err != nil || (apiURL.Scheme != "http" && apiURL.Scheme != "https") || apiURL.Host == "" {
		return fmt.Errorf("invalid %s %q: expected an http(s) url", KeyAPIURL, c.APIURL)
	}
	if c.WebsocketURL != "" {
		wsURL, err := url.Parse(c.WebsocketURL)
		if err != nil || (wsURL.Scheme != "ws" && wsURL.Scheme != "wss") || wsURL.Host == "" {
			return fmt.Errorf("invalid %s %q: expected a ws(s) url", KeyWebsocketURL, c.WebsocketURL)
		}
	}
	if c.ProbeAddr != "" {
		if _, _, err := net.SplitHostPort(c.ProbeAddr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", KeyProbeAddr, c.ProbeAddr, err)
		}
	}
	switch c.SecretsBackend {
	case BackendAuto, BackendPass, BackendFile:
	default:
		return fmt.Errorf("invalid %s %q: expected auto, pass or file", KeySecretsBackend, c.SecretsBackend)
	}
	if c.ReconnectDelay < 0 || c.ProbeInterval < 0 || c.MFAInterval < 0 {
		return errors.New("durations must not be negative")
	}

	return nil
}

// FallbackWebsocketURL derives the events endpoint from the API url for
// servers that have not published their configuration yet.
func (c Config) FallbackWebsocketURL() string {
	if c.WebsocketURL != "" {
		return c.WebsocketURL
	}

	u, err := url.Parse(c.APIURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

// NewLogger builds the text logger on w. Pass a *slog.LevelVar to change the
// level after construction.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
