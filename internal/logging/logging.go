// Package logging builds the process loggers from config.
package logging

import (
	"fmt"
	"io"
	stdslog "log/slog"

	charmlog "github.com/charmbracelet/log"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/internal/config"
	"github.com/unkn0wn-root/kvstore/log/charm"
	klogrus "github.com/unkn0wn-root/kvstore/log/logrus"
	kslog "github.com/unkn0wn-root/kvstore/log/slog"
	kzap "github.com/unkn0wn-root/kvstore/log/zap"
)

// Loggers is the configured logger plus a slog view of the same sink for
// components that take a *slog.Logger (sloghooks).
type Loggers struct {
	Logger kvstore.Logger
	Slog   *stdslog.Logger
	// Sync flushes buffered entries. Never nil.
	Sync func() error
}

func New(cfg config.Log, w io.Writer) (*Loggers, error) {
	switch cfg.Driver {
	case "", "charm":
		l := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(cfg.Level),
			ReportTimestamp: true,
		})
		if cfg.JSON {
			l.SetFormatter(charmlog.JSONFormatter)
		}
		return &Loggers{Logger: charm.Logger{L: l}, Slog: stdslog.New(l), Sync: noSync}, nil

	case "slog":
		s := stdslog.New(slogHandler(cfg, w))
		return &Loggers{Logger: kslog.Logger{L: s}, Slog: s, Sync: noSync}, nil

	case "zap":
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		enc := zapcore.NewConsoleEncoder(encCfg)
		if cfg.JSON {
			enc = zapcore.NewJSONEncoder(encCfg)
		}
		z := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
		return &Loggers{Logger: kzap.ZapLogger{L: z}, Slog: stdslog.New(slogHandler(cfg, w)), Sync: z.Sync}, nil

	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		if cfg.JSON {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
		return &Loggers{Logger: klogrus.New(l), Slog: stdslog.New(slogHandler(cfg, w)), Sync: noSync}, nil

	default:
		return nil, fmt.Errorf("unknown log driver %q", cfg.Driver)
	}
}

func noSync() error { return nil }

func charmLevel(s string) charmlog.Level {
	lvl, err := charmlog.ParseLevel(s)
	if err != nil {
		return charmlog.InfoLevel
	}
	return lvl
}

func slogHandler(cfg config.Log, w io.Writer) stdslog.Handler {
	var lvl stdslog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		lvl = stdslog.LevelInfo
	}
	opts := &stdslog.HandlerOptions{Level: lvl}
	if cfg.JSON {
		return stdslog.NewJSONHandler(w, opts)
	}
	return stdslog.NewTextHandler(w, opts)
}
