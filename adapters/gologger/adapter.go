package gologger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// Options configures the logrus backend.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// NewLogrus builds a logrus instance from opts. Unknown levels fall back to info.
func NewLogrus(opts Options) *logrus.Logger {
	base := logrus.New()
	if opts.Output != nil {
		base.SetOutput(opts.Output)
	} else {
		base.SetOutput(os.Stdout)
	}
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case FormatJSON:
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)
	return base
}

// Logger adapts a logrus entry to glog.Logger and glog.FieldsLogger.
type Logger struct {
	entry *logrus.Entry
}

func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = NewLogrus(Options{})
	}
	return &Logger{entry: logrus.NewEntry(base)}
}

func (l *Logger) Trace(msg string, args ...any) { l.with(args).Trace(msg) }
func (l *Logger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l *Logger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l *Logger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l *Logger) Error(msg string, args ...any) { l.with(args).Error(msg) }
func (l *Logger) Fatal(msg string, args ...any) { l.with(args).Fatal(msg) }

func (l *Logger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx)}
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// Entry exposes the underlying logrus entry.
func (l *Logger) Entry() *logrus.Entry {
	return l.entry
}

// with folds key/value args into fields; a trailing odd arg lands under "arg".
func (l *Logger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields["arg"] = args[i]
			break
		}
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	return l.entry.WithFields(fields)
}

// Provider hands out component-scoped loggers over one logrus instance.
type Provider struct {
	base *logrus.Logger
}

func NewProvider(base *logrus.Logger) *Provider {
	if base == nil {
		base = NewLogrus(Options{})
	}
	return &Provider{base: base}
}

func (p *Provider) GetLogger(name string) glog.Logger {
	logger := NewLogger(p.base)
	if name = strings.TrimSpace(name); name != "" {
		return logger.WithFields(map[string]any{"component": name})
	}
	return logger
}

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Provider)(nil)
)
