package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aussiebroadwan/tenantconsole/internal/console/domain"
	"github.com/aussiebroadwan/tenantconsole/internal/console/routes"
	"github.com/aussiebroadwan/tenantconsole/internal/console/service"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/memory"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/redis"
	"github.com/aussiebroadwan/tenantconsole/internal/console/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantconsole/internal/console/tui"
	"github.com/aussiebroadwan/tenantconsole/pkg/httpx"
	"github.com/aussiebroadwan/tenantconsole/pkg/slogx"
	"github.com/aussiebroadwan/tenantconsole/pkg/tenantsdk"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires one console context: its storage handles, the session
// services and the TUI.
type Application struct {
	cfg     Config
	logger  *slog.Logger
	logFile io.Closer

	// Storage
	persistent store.SharedScope
	closers    []func() error
	watcher    *sqlite.Watcher // sqlite driver only
	running    bool

	// Services
	policy    *domain.RoutePolicy
	sessions  *service.SessionStore
	access    *service.AccessPolicy
	gateway   *service.AuthGateway
	guard     *service.NavigationGuard
	sync      *service.CrossContextSync
	history   *service.NavigationHistory
	navigator *tui.Navigator
}

// New creates an Application with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{cfg: cfg}

	if err := app.initLogger(); err != nil {
		return nil, err
	}

	policy, err := routes.Load(cfg.RoutesFile)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("failed to load route table: %w", err)
	}
	app.policy = policy

	if err := app.initStore(ctx); err != nil {
		app.close()
		return nil, err
	}

	app.initServices()
	return app, nil
}

// Run starts the background workers and the TUI, blocking until the user
// quits or ctx is cancelled.
func (app *Application) Run(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)

	if app.watcher != nil {
		app.watcher.Start()
	}
	app.sync.Start()
	app.running = true

	app.logger.Info("console starting", "version", BuildVersion, "store", app.cfg.Store, "api", app.cfg.APIURL)

	program := tea.NewProgram(
		tui.NewApp(ctx, tui.Deps{
			Policy:    app.policy,
			Gateway:   app.gateway,
			Access:    app.access,
			Guard:     app.guard,
			Sync:      app.sync,
			History:   app.history,
			Navigator: app.navigator,
		}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	app.navigator.Attach(program)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	return errors.Join(err, app.Shutdown())
}

// Shutdown stops the workers and closes storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down console...")

	app.sync.Stop()
	if app.watcher != nil && app.running {
		app.watcher.Stop()
	}
	app.running = false

	err := app.close()
	if err != nil {
		app.logger.Error("error closing storage", "error", err)
	}
	return err
}

// Status describes the stored session as seen from a fresh context.
type Status struct {
	LoggedIn  bool
	Valid     bool
	Bound     bool // this context holds the current session token
	Reason    error
	Profile   domain.UserProfile
	LoginTime time.Time
}

// Status reads the shared session. Valid reports whether the persistent
// record is intact, whether or not this context is bound to it.
func (app *Application) Status(ctx context.Context) Status {
	ctx = slogx.WithContext(ctx, app.logger)

	st := Status{Reason: app.sessions.Validate(ctx)}
	st.Valid = st.Reason == nil || errors.Is(st.Reason, service.ErrTabNotBound)
	st.Bound = st.Reason == nil

	// Snapshot never writes, so a damaged record is reported, not cleared.
	if sess, err := app.sessions.Snapshot(ctx); err == nil {
		st.LoggedIn = sess.LoggedIn
		st.Profile = sess.Profile
		st.LoginTime = sess.LoginTime
	}
	return st
}

// Logout clears the shared session, which signs out every running console.
func (app *Application) Logout(ctx context.Context) error {
	ctx = slogx.WithContext(ctx, app.logger)
	if err := app.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	app.logger.Info("session cleared from the command line")
	return nil
}

func (app *Application) initLogger() error {
	var out io.Writer = io.Discard
	if app.cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(app.cfg.LogFile), 0o700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(app.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		app.logFile = f
		out = f
	}

	app.logger = slogx.New(slogx.Config{
		Service: "tenantconsole",
		Version: BuildVersion,
		Env:     app.cfg.Env,
		Level:   app.cfg.LogLevel,
		Format:  app.cfg.LogFormat,
		Output:  out,
	})
	return nil
}

// initStore opens the persistent scope for the configured driver.
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.Store {
	case StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(app.cfg.DatabaseFile), 0o700); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sqlite.NewStore(fmt.Sprintf("file:%s", app.cfg.DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.closers = append(app.closers, db.Close)

		if err := db.ApplyMigrations(); err != nil {
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully")

		scope, err := db.Open(ctx)
		if err != nil {
			return fmt.Errorf("failed to open session scope: %w", err)
		}
		app.persistent = scope
		app.watcher = sqlite.NewWatcher(scope, app.logger, app.cfg.SyncInterval, app.cfg.HousekeepingInterval, app.cfg.ChangeRetention)

	case StoreRedis:
		rdb, err := redis.NewStore(redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
			Prefix:   app.cfg.RedisPrefix,
			Logger:   app.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)

		if err := rdb.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", app.cfg.RedisAddr, err)
		}
		scope, err := rdb.Open(ctx)
		if err != nil {
			return fmt.Errorf("failed to open session scope: %w", err)
		}
		app.persistent = scope

	case StoreMemory:
		app.persistent = memory.NewScope()

	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.Store)
	}

	// Handles close before the stores they belong to.
	app.closers = append([]func() error{app.persistent.Close}, app.closers...)
	return nil
}

func (app *Application) initServices() {
	app.sessions = service.NewSessionStore(app.persistent, memory.NewScope())
	app.access = service.NewAccessPolicy(app.sessions)
	app.navigator = tui.NewNavigator()
	app.guard = service.NewNavigationGuard(app.policy, app.access, app.navigator)
	app.history = service.NewNavigationHistory("")
	app.sync = service.NewCrossContextSync(app.persistent, app.sessions, app.guard, app.history, app.logger)

	client := tenantsdk.NewClient(app.cfg.APIURL)
	client.HTTPClient.Timeout = app.cfg.HTTPTimeout
	client.HTTPClient.Transport = httpx.Chain(http.DefaultTransport,
		func(next http.RoundTripper) http.RoundTripper {
			return &slogx.Transport{Base: next, Logger: app.logger}
		},
		app.guard.Transport,
	)

	app.gateway = service.NewAuthGateway(client, app.sessions)
	app.gateway.SuccessCode = app.cfg.LoginSuccessCode
}

// close releases storage and the log file. It is safe to call on a
// partially built Application.
func (app *Application) close() error {
	var errs []error
	for _, c := range app.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	if app.logFile != nil {
		errs = append(errs, app.logFile.Close())
		app.logFile = nil
	}
	return errors.Join(errs...)
}
