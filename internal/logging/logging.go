// Package logging builds the logrus logger every component receives.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/qlemen7/cineexplorer/internal/config"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// New returns a logger writing to stderr and, when cfg.File is set, to a
// rotating file as well. The returned closer flushes and closes the file.
func New(cfg config.Log, job string) (*logrus.Entry, io.Closer, error) {
	return build(cfg, job, os.Stderr)
}

func build(cfg config.Log, job string, console io.Writer) (*logrus.Entry, io.Closer, error) {
	log := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		level = l
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}
	log.SetOutput(out)

	entry := log.WithField("job", job)
	return entry, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
