// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package debuglog configures logrus the way the wbemql commands want it.
package debuglog

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options control Configure.
type Options struct {
	// If nil, the logrus standard logger is configured.
	Logger *logrus.Logger
	// Forces colored output even when the output isn't a terminal.
	ForceColors bool
	// The minimum level to log. Defaults to Info.
	Level logrus.Level
}

// Configure sets up the logger with full UTC timestamps and with the caller's
// file and line, relative to the repository root.
func Configure(options Options) {
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if options.Level == 0 {
		options.Level = logrus.InfoLevel
	}
	logger.SetLevel(options.Level)
	logger.SetReportCaller(true)
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:      options.ForceColors,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02 15:04:05.000000 MST",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", f.File + ":" + strconv.Itoa(f.Line)
		},
	})
	logger.AddHook(newFilenameHook())
	logger.WithFields(logrus.Fields{
		"forceColors": options.ForceColors,
		"minLevel":    options.Level.String(),
	}).Info("Initialized Logrus")
}

// filenameHook rewrites the caller's file name to be relative to the
// repository root.
type filenameHook struct {
	root string
}

func newFilenameHook() *filenameHook {
	_, thisFile, _, _ := runtime.Caller(0)
	// thisFile is <root>/util/debuglog/setup.go
	root := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	return &filenameHook{root: root + string(filepath.Separator)}
}

func (h *filenameHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *filenameHook) Fire(entry *logrus.Entry) error {
	if !entry.HasCaller() {
		return nil
	}
	entry.Caller.File = strings.TrimPrefix(entry.Caller.File, h.root)
	return nil
}
