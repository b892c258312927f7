// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

type Logger struct {
	prefix string
}

var (
	baseLogger   = log.New(os.Stdout, "", log.LstdFlags)
	baseMu       sync.RWMutex
	logFile      *os.File
	once         sync.Once
	debugEnabled bool
	debugMu      sync.RWMutex
)

// Init sends log lines to stdout and, when logPath is not empty, appends
// them to that file as well. Debug is enabled if the DEBUG env var is set.
func Init(logPath string) error {
	var err error
	once.Do(func() {
		var w io.Writer = os.Stdout
		if logPath != "" {
			if err = os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
				return
			}
			logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return
			}
			w = io.MultiWriter(os.Stdout, logFile)
		}
		SetOutput(w)

		if os.Getenv("DEBUG") != "" {
			EnableDebug(true)
		}
	})
	return err
}

// SetOutput redirects every logger to w.
func SetOutput(w io.Writer) {
	baseMu.Lock()
	baseLogger = log.New(w, "", log.LstdFlags)
	baseMu.Unlock()
}

// Close cleans up the log file (call on shutdown)
func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

// EnableDebug dynamically turns debug logging on/off
func EnableDebug(on bool) {
	debugMu.Lock()
	debugEnabled = on
	debugMu.Unlock()
}

// IsDebug returns current debug state
func IsDebug() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled
}

func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

func (l *Logger) printf(format string, v ...any) {
	baseMu.RLock()
	out := baseLogger
	baseMu.RUnlock()
	out.Printf(format, v...)
}

func (l *Logger) Info(fmtstr string, v ...any) {
	l.printf("[%s] INFO: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Warn(fmtstr string, v ...any) {
	l.printf("[%s] WARN: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}

func (l *Logger) Error(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	_, file, line, ok := runtime.Caller(1)
	if ok {
		l.printf("[%s] ERROR: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
	} else {
		l.printf("[%s] ERROR: %s", l.prefix, formatted)
	}
}

// Fatal logs and panics; service.Start recovers the panic and exits non-zero.
func (l *Logger) Fatal(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	_, file, line, ok := runtime.Caller(1)
	if ok {
		l.printf("[%s] FATAL: (%s:%d) %s", l.prefix, filepath.Base(file), line, formatted)
	} else {
		l.printf("[%s] FATAL: %s", l.prefix, formatted)
	}
	panic(formatted)
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	if !IsDebug() {
		return
	}
	l.printf("[%s] DEBUG: %s", l.prefix, fmt.Sprintf(fmtstr, v...))
}
