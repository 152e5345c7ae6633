package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/pkg/config"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

var (
	cfgFile     string
	verbose     bool
	logger      *slog.Logger
	initializer Initializer
	closeApp    func()
)

// StandaloneAnnotation marks commands that build their own dependencies
// instead of using the shared App.
const StandaloneAnnotation = "taskcore/standalone"

// Initializer builds the App from the loaded configuration. The returned
// func releases it when the command ends.
type Initializer func(ctx context.Context, cfg *config.Config) (*App, func(), error)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taskcore",
	Short: "taskcore - task backend with a cache-consistent event pipeline",
	Long: `taskcore manages tasks on boards, keeps the Redis read cache consistent
with every write, and publishes task events, notifications and analytics
to RabbitMQ (or an in-process bus in local mode).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		info := commandContext{
			correlationID: uuid.New(),
			startedAt:     time.Now(),
		}
		ctx = observability.WithCorrelationID(ctx, info.correlationID.String())
		cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
		logger.Info("command start",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
		)
		return initApp(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		if closeApp != nil {
			closeApp()
			closeApp = nil
		}
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.Info("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is canceled on shutdown.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// SetInitializer registers the function that builds the App before a
// command runs.
func SetInitializer(fn Initializer) {
	initializer = fn
}

func initApp(cmd *cobra.Command) error {
	if logger == nil {
		logger = slog.Default()
	}
	if app != nil || initializer == nil || cmd.Annotations[StandaloneAnnotation] == "true" {
		return nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	a, closer, err := initializer(cmd.Context(), cfg)
	if err != nil {
		if cfg.IsDevelopment() {
			// Commands report "application not initialized" themselves.
			logger.Warn("failed to initialize application, running in limited mode", "error", err)
			return nil
		}
		return fmt.Errorf("initialize application: %w", err)
	}
	SetApp(a)
	closeApp = closer
	return nil
}

// Verbose reports whether --verbose was given.
func Verbose() bool {
	return verbose
}

// LoadConfig loads configuration from the --config file when given, or from
// the environment otherwise.
func LoadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

// CorrelationID returns the id assigned to the running command, if any.
func CorrelationID(ctx context.Context) string {
	info, ok := ctx.Value(commandContextKey{}).(commandContext)
	if !ok {
		return ""
	}
	return info.correlationID.String()
}
