package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	authadapter "github.com/bnema/chatctl/internal/adapters/auth"
	"github.com/bnema/chatctl/internal/adapters/cache"
	"github.com/bnema/chatctl/internal/adapters/network"
	"github.com/bnema/chatctl/internal/adapters/realtime/ws"
	statusadapter "github.com/bnema/chatctl/internal/adapters/render/status"
	tomlrepo "github.com/bnema/chatctl/internal/adapters/repo/toml"
	chainstore "github.com/bnema/chatctl/internal/adapters/secrets/chain"
	filestore "github.com/bnema/chatctl/internal/adapters/secrets/file"
	passstore "github.com/bnema/chatctl/internal/adapters/secrets/pass"
	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/config"
	"github.com/bnema/chatctl/internal/ports"
	"github.com/bnema/chatctl/internal/session"
	"github.com/bnema/chatctl/internal/version"
)

const settlePollInterval = 50 * time.Millisecond

type app struct {
	cfg            config.Config
	level          *slog.LevelVar
	logger         *slog.Logger
	credentials    *application.CredentialService
	accountsPath   string
	api            ports.API
	factory        ports.ClientFactory
	statusRenderer func(application.Status, statusadapter.RenderOptions) (string, error)
	newLineReader  func() lineReader
}

func wireApp(stderr io.Writer) (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := &slog.LevelVar{}
	level.Set(cfg.LogLevel)
	logger := config.NewLogger(stderr, level)

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretStore, err := newSecretStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire secret store: %w", err)
	}

	return &app{
		cfg:          cfg,
		level:        level,
		logger:       logger,
		credentials:  application.NewCredentialService(repo, secretStore, ports.SystemClock{}, logger),
		accountsPath: repo.Path(),
		api: authadapter.Client{
			API:        authadapter.DefaultEndpoints(cfg.APIURL),
			HTTPClient: http.DefaultClient,
			UserAgent:  version.UserAgent(),
		},
		factory:        ws.Factory{Logger: logger},
		statusRenderer: statusadapter.Render,
		newLineReader:  newLinerReader,
	}, nil
}

func newSecretStore(cfg config.Config) (ports.SecretStore, error) {
	switch cfg.SecretsBackend {
	case config.BackendPass:
		return passstore.NewStore(cfg.PassPrefix), nil
	case config.BackendFile:
		return filestore.NewStore(cfg.SecretsDir), nil
	default:
		return chainstore.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.SecretsDir)
	}
}

// liveController is a controller plus the background helpers it was built
// with. Close releases all of them.
type liveController struct {
	ctrl    *application.Controller
	probe   *network.ProbeMonitor
	profile *cache.Memory[string]
}

func (l *liveController) Close() {
	l.ctrl.Close()
	if l.probe != nil {
		l.probe.Stop()
	}
}

// startController builds a controller for one command run and starts its
// configuration fetch.
func (a *app) startController(ctx context.Context, prompter ports.MFAPrompter, notifier ports.Notifier) (*liveController, error) {
	live := &liveController{profile: cache.NewMemory[string]()}

	var monitor ports.NetworkMonitor = network.AlwaysOnline{}
	if a.cfg.ProbeAddr != "" {
		live.probe = network.NewProbeMonitor(network.ProbeOptions{
			Address:  a.cfg.ProbeAddr,
			Interval: a.cfg.ProbeInterval,
			Logger:   a.logger,
		})
		live.probe.Start(ctx)
		monitor = live.probe
	}

	var limiter *rate.Limiter
	if a.cfg.MFAInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(a.cfg.MFAInterval), 1)
	}

	ctrl, err := application.NewController(application.ControllerDeps{
		API:              a.api,
		Credentials:      a.credentials,
		Factory:          a.factory,
		Network:          monitor,
		Prompter:         prompter,
		Notifier:         notifier,
		Logger:           a.logger,
		Caches:           []ports.AccountScopedCache{live.profile},
		WebsocketURL:     a.cfg.FallbackWebsocketURL(),
		ReconnectDelay:   a.cfg.ReconnectDelay,
		MFALimiter:       limiter,
		MinServerVersion: a.cfg.MinServerVersion,
	})
	if err != nil {
		if live.probe != nil {
			live.probe.Stop()
		}
		return nil, fmt.Errorf("wire controller: %w", err)
	}
	live.ctrl = ctrl
	ctrl.Start(ctx)

	return live, nil
}

// waitForConfig gives the server configuration a moment to arrive so new
// sessions use the advertised websocket url. It returns false on timeout;
// sessions then fall back to the configured url.
func waitForConfig(ctx context.Context, ctrl *application.Controller, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctrl.ConfigLoaded():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// waitSettled waits for pending logins, then for connecting sessions to come
// online or fail, giving up after timeout.
func waitSettled(ctx context.Context, ctrl *application.Controller, timeout time.Duration) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()

	expired := func() error {
		if err := parent.Err(); err != nil {
			return err
		}
		return fmt.Errorf("sessions still connecting after %s", timeout)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return expired()
	}

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for anyConnecting(ctrl) {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return expired()
		}
	}
	return nil
}

func anyConnecting(ctrl *application.Controller) bool {
	for _, s := range ctrl.Sessions() {
		if s.State == session.StateConnecting {
			return true
		}
	}
	return false
}
