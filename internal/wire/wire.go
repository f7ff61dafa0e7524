// Package wire provides dependency injection for the dispo application.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"

	cliadapter "github.com/example/dispo/internal/adapters/cli"
	"github.com/example/dispo/internal/adapters/persistence"
	"github.com/example/dispo/internal/adapters/sqlite"
	"github.com/example/dispo/internal/app"
	"github.com/example/dispo/internal/config"
	"github.com/example/dispo/internal/db"
	"github.com/example/dispo/internal/logging"
	"github.com/example/dispo/internal/metrics"
	"github.com/example/dispo/internal/ports/primary"
)

var (
	workDir string
	cfg     *config.Config

	database           *sql.DB
	logger             *slog.Logger
	logCloser          io.Closer
	appMetrics         *metrics.Metrics
	letterService      primary.LetterService
	dispositionService primary.DispositionService
	userService        primary.UserService

	once    sync.Once
	initErr error
)

// Configure sets the workspace directory and configuration used by the
// singletons. It must be called before any accessor to take effect.
func Configure(dir string, c *config.Config) {
	workDir, cfg = dir, c
}

// Init initializes all services, returning the first failure.
func Init() error {
	once.Do(func() { initErr = initServices() })
	return initErr
}

func mustInit() {
	if err := Init(); err != nil {
		log.Fatalf("failed to initialize dispo: %v", err)
	}
}

// Config returns the active configuration.
func Config() *config.Config {
	mustInit()
	return cfg
}

// DB returns the shared database handle.
func DB() *sql.DB {
	mustInit()
	return database
}

// Metrics returns the process metrics.
func Metrics() *metrics.Metrics {
	mustInit()
	return appMetrics
}

// LetterService returns the singleton LetterService instance.
func LetterService() primary.LetterService {
	mustInit()
	return letterService
}

// DispositionService returns the singleton DispositionService instance.
func DispositionService() primary.DispositionService {
	mustInit()
	return dispositionService
}

// UserService returns the singleton UserService instance.
func UserService() primary.UserService {
	mustInit()
	return userService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() error {
	if cfg == nil {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		c, err := config.Load(dir)
		if err != nil {
			return err
		}
		Configure(dir, c)
	}

	var err error
	logger, logCloser, err = logging.New(config.LogPath(workDir), cfg.LogLevel)
	if err != nil {
		return err
	}

	database, err = db.Open(cfg.DatabasePath(workDir))
	if err != nil {
		logCloser.Close()
		return err
	}

	// Secondary ports
	letterRepo := sqlite.NewLetterRepository(database)
	userRepo := sqlite.NewUserRepository(database)
	tagRepo := sqlite.NewContentTagRepository(database)
	identityProvider := persistence.NewIdentityProvider(userRepo, cfg.User)

	appMetrics = metrics.New()
	opts := app.Options{
		SnapshotRetries: cfg.SnapshotRetries,
		RetryDelay:      cfg.RetryDelay,
		Logger:          logger,
		Metrics:         appMetrics,
	}

	executor := app.NewEffectExecutor(letterRepo, logger, appMetrics)

	// Primary ports
	letterService = app.NewLetterService(letterRepo, userRepo, identityProvider, executor, opts)
	dispositionService = app.NewDispositionService(letterRepo, userRepo, tagRepo, identityProvider, executor, opts)
	userService = app.NewUserService(userRepo, identityProvider, opts)
	return nil
}

// Shutdown writes the metrics textfile (if configured) and releases the
// database and log file. It is safe to call when Init never ran or failed.
func Shutdown(metricsFile string) error {
	if database == nil {
		return nil
	}
	if metricsFile == "" {
		metricsFile = cfg.MetricsFile
	}
	errs := []error{appMetrics.WriteTextfile(metricsFile), database.Close()}
	if logCloser != nil {
		errs = append(errs, logCloser.Close())
	}
	return errors.Join(errs...)
}

// adapterOptions prepends the configured locale so callers can still override it.
func adapterOptions(opts []cliadapter.Option) []cliadapter.Option {
	return append([]cliadapter.Option{cliadapter.WithLocale(cfg.Locale)}, opts...)
}

// LetterAdapter returns a new LetterAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func LetterAdapter(opts ...cliadapter.Option) *cliadapter.LetterAdapter {
	return LetterAdapterWithOutput(os.Stdout, opts...)
}

// LetterAdapterWithOutput returns a new LetterAdapter writing to the given output.
func LetterAdapterWithOutput(out io.Writer, opts ...cliadapter.Option) *cliadapter.LetterAdapter {
	mustInit()
	return cliadapter.NewLetterAdapter(letterService, dispositionService, out, adapterOptions(opts)...)
}

// UserAdapter returns a new UserAdapter writing to stdout.
func UserAdapter(opts ...cliadapter.Option) *cliadapter.UserAdapter {
	return UserAdapterWithOutput(os.Stdout, opts...)
}

// UserAdapterWithOutput returns a new UserAdapter writing to the given output.
func UserAdapterWithOutput(out io.Writer, opts ...cliadapter.Option) *cliadapter.UserAdapter {
	mustInit()
	return cliadapter.NewUserAdapter(userService, out, adapterOptions(opts)...)
}
