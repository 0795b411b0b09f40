// Package logging builds the application's *logrus.Entry from
// config.Config's logging section, following the teacher's level/format/
// output layering but consolidated onto logrus directly (every other
// component in this module already takes a *logrus.Entry) instead of the
// teacher's parallel multi-adapter Logger interface.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"jobradar/internal/config"
)

// New builds the root logger entry for the process: level and formatter
// from cfg.Logging, output to stdout/stderr/file, plus a Betterstack hook
// when a "betterstack" adapter is present and enabled in cfg.Logging.Adapters.
func New(cfg *config.Config) *logrus.Entry {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch cfg.Logging.Format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	log.SetOutput(outputWriter(cfg.Logging.Output))

	for _, adapter := range cfg.Logging.Adapters {
		if adapter.Type != "betterstack" || !adapter.Enabled {
			continue
		}
		hook, herr := newBetterstackHook(adapter.Options)
		if herr != nil {
			log.WithError(herr).Warn("logging: skipping betterstack adapter")
			continue
		}
		log.AddHook(hook)
	}

	return logrus.NewEntry(log)
}

func outputWriter(output string) io.Writer {
	switch output {
	case "stderr":
		return os.Stderr
	case "", "stdout":
		return os.Stdout
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return file
	}
}
