// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the zerolog logger used by the scout commands:
// a console writer plus an optional rotating log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultFileName is the log file written inside Config.Dir
const DefaultFileName = "scout.log"

// Config configures the logger
type Config struct {
	// Level is one of trace, debug, info, warn, error. Unknown levels mean info.
	Level string `mapstructure:"level"`
	// Dir enables file logging when non-empty
	Dir string `mapstructure:"dir"`
	// MaxSize is the size in MB at which the log file is rotated
	MaxSize int `mapstructure:"max_size"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAge is the number of days rotated files are kept
	MaxAge int `mapstructure:"max_age"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress"`
	// JSON writes raw JSON lines to the console instead of the pretty format
	JSON bool `mapstructure:"json"`
	// NoColor disables colors in the pretty console format
	NoColor bool `mapstructure:"no_color"`
}

// DefaultConfig returns console-only logging at info level
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger writing to console and, when cfg.Dir is set, to a
// rotating file. The returned Closer releases the file.
func New(cfg Config, console io.Writer) (zerolog.Logger, io.Closer, error) {
	if console == nil {
		console = os.Stderr
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := console
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, DefaultFileName),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}
