package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/metrics"
	"github.com/desertthunder/mediactl/internal/repositories"
	"github.com/desertthunder/mediactl/internal/server"
	"github.com/desertthunder/mediactl/internal/services"
	"github.com/desertthunder/mediactl/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	client     *services.Client
	api        *services.APIService
	logger     *log.Logger
	output     io.Writer
	metrics    *metrics.Metrics
	server     *server.Server

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Client     *services.Client
	API        *services.APIService
	Logger     *log.Logger
	Output     io.Writer
	Metrics    *metrics.Metrics
	// DB skips opening the configured database file.
	DB *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		client:     opts.Client,
		api:        opts.API,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    opts.Metrics,
		db:         opts.DB,
	}
	if r.client == nil {
		r.client = r.newClient()
	}
	if r.api == nil {
		r.api = services.NewAPIService(r.client.BaseURL(), r.client.HTTPClient())
	}
	return r
}

func (r *Runner) newClient() *services.Client {
	return services.NewClient(services.ClientOpts{
		BaseURL: r.config.API.BaseURL,
		Token:   r.config.API.Token,
		Timeout: r.config.API.Timeout(),
		Logger:  r.logger,
		Metrics: r.metrics,
	})
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, mediaCommand, playlistCommand, channelCommand, uploadCommand, uploadsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger and rebuilds the API client so request logs follow it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.client = r.newClient()
}

// Before loads configuration, applies environment and flag overrides, and
// starts the metrics server when requested.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}

	r.configPath = cmd.String("config")
	config, err := loadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	shared.ApplyEnv(config)

	if cmd.IsSet("base-url") {
		config.API.BaseURL = cmd.String("base-url")
	}
	if cmd.IsSet("token") {
		config.API.Token = cmd.String("token")
	}
	if err := config.Validate(); err != nil {
		return ctx, err
	}

	r.config = config
	r.client = r.newClient()
	r.api = services.NewAPIService(r.client.BaseURL(), r.client.HTTPClient())

	if cmd.Bool("metrics") || cmd.IsSet("metrics-addr") {
		addr := cmd.String("metrics-addr")
		if addr == "" {
			addr = config.Server.Addr()
		}
		if err := r.startServer(addr); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// After stops the metrics server and closes the database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	var err error
	if r.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		err = r.server.Shutdown(shutdownCtx)
		r.server = nil
	}
	if r.db != nil {
		if closeErr := r.db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close database: %w", closeErr)
		}
	}
	return err
}

func (r *Runner) startServer(addr string) error {
	health := server.NewHealthHandler(map[string]server.Check{
		"api": func(ctx context.Context) error {
			_, err := r.client.GetProfile(ctx)
			return err
		},
	})
	srv := server.New(addr, server.NewRouter(r.logger, r.metrics, health), r.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	r.server = srv
	return nil
}

// loadConfig reads path, falling back to defaults when it does not exist.
func loadConfig(path string) (*shared.Config, error) {
	if path == "" {
		return shared.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// database opens the configured sqlite file once and migrates it.
func (r *Runner) database() (*sql.DB, error) {
	r.dbOnce.Do(func() {
		if r.db != nil {
			return
		}

		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			r.dbErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			r.dbErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
		r.db = db
	})
	return r.db, r.dbErr
}

func (r *Runner) uploadRepository() (*repositories.UploadRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewUploadRepository(db), nil
}

func (r *Runner) orderRepository() (*repositories.PlaylistOrderRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewPlaylistOrderRepository(db), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return r.writePlain("%s\n", output)
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
