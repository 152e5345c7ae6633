package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/fouadkhalied/task-mangment-system/pkg/config"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

// NewServerLogger builds the logger long-running commands use. Production
// gets JSON records; development and --verbose lower the level to debug.
func NewServerLogger(out io.Writer, cfg *config.Config) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	if strings.EqualFold(cfg.AppEnv, "production") {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Output = out
	logCfg.ServiceVersion = Version
	if cfg.LogLevel != "" {
		logCfg.Level = observability.LogLevel(strings.ToLower(cfg.LogLevel))
	}
	if cfg.IsDevelopment() || verbose {
		logCfg.Level = observability.LogLevelDebug
	}
	return observability.NewLogger(logCfg)
}
