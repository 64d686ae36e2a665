package utils

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
)

// LoggerConfig configures InitLogger.
type LoggerConfig struct {
	// "text" or "json"
	Format       string
	Output       io.Writer
	EnableColors bool
}

// InitLogger builds the process-wide standard logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	prefix := "[Academy] "
	if cfg.Format == "json" {
		return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
	}
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC|log.Lmsgprefix)
}

// Logger prints through a *log.Logger and, once a Rollbar token is
// configured, reports warnings and errors there as well.
type Logger struct {
	std     *log.Logger
	rollbar bool
}

func NewLogger(std *log.Logger, rollbarToken, env string) *Logger {
	l := &Logger{std: std}
	if rollbarToken != "" {
		rollbar.SetToken(rollbarToken)
		rollbar.SetEnvironment(env)
		rollbar.SetEnabled(true)
		l.rollbar = true
	}
	return l
}

// Std exposes the wrapped logger for middleware that wants Printf.
func (l *Logger) Std() *log.Logger {
	return l.std
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.std.Printf("INFO "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.std.Print("WARN " + msg)
	if l.rollbar {
		rollbar.Warning(msg)
	}
}

func (l *Logger) Error(err error, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.std.Printf("ERROR %s: %v", msg, err)
	if l.rollbar {
		rollbar.Error(err, map[string]interface{}{"message": msg})
	}
}

// Close flushes pending Rollbar items.
func (l *Logger) Close() {
	if l.rollbar {
		rollbar.Wait()
	}
}

// Nop returns a Logger that discards everything; used by tests.
func Nop() *Logger {
	return &Logger{std: log.New(io.Discard, "", 0)}
}
