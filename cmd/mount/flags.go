// Copyright 2026 The Amifs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mount

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/amifs/amifs/pkg/log"
)

// flag.Value implementations for the logger flags: -log-mode takes a
// '|'-separated level set, -log-filter a comma-separated list of
// fname.go:mode overrides.

type logMode struct {
	m   log.Mode
	set bool
}

func (l logMode) String() string {
	return modeToString(l.m)
}

func (l *logMode) Set(value string) error {
	m, err := modeFromString(value)
	if err != nil {
		return err
	}
	l.m = m
	l.set = true
	return nil
}

type fileLogMode struct {
	fname string
	fmode log.Mode
}

type logFilter []fileLogMode

func (l logFilter) String() string {
	parts := make([]string, 0, len(l))
	for _, flm := range l {
		parts = append(parts, fmt.Sprintf("%s:%s", flm.fname, modeToString(flm.fmode)))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

var fileNameRegex = regexp.MustCompile(`^[\w\-]+\.go$`)

func (l *logFilter) Set(value string) error {
	for _, f := range strings.Split(value, ",") {
		parts := strings.Split(f, ":")
		if len(parts) != 2 {
			return fmt.Errorf("improperly formatted filter: %s, expected fname.go:mode", f)
		}
		fname, mode := parts[0], parts[1]
		if !fileNameRegex.MatchString(fname) {
			return fmt.Errorf("expected filename, got '%s'", fname)
		}
		fmode, err := modeFromString(mode)
		if err != nil {
			return err
		}
		*l = append(*l, fileLogMode{fname: fname, fmode: fmode})
	}
	return nil
}

func modeFromString(value string) (log.Mode, error) {
	var m log.Mode
	for _, mode := range strings.Split(value, "|") {
		switch mode {
		case "info":
			m |= log.InfoMode
		case "debug":
			m |= log.DebugMode
		case "warn":
			m |= log.WarnMode
		case "error":
			m |= log.ErrorMode
		case "disabled":
			m = log.DisabledMode
		default:
			return m, fmt.Errorf("unrecognized mode: %s", mode)
		}
	}
	return m, nil
}

func modeToString(m log.Mode) string {
	if m == log.DisabledMode {
		return "disabled"
	}

	var buf bytes.Buffer
	if (m & log.InfoMode) != log.DisabledMode {
		buf.WriteString("info|")
	}
	if (m & log.WarnMode) != log.DisabledMode {
		buf.WriteString("warn|")
	}
	if (m & log.ErrorMode) != log.DisabledMode {
		buf.WriteString("error|")
	}
	if (m & log.DebugMode) != log.DisabledMode {
		buf.WriteString("debug|")
	}
	return strings.TrimSuffix(buf.String(), "|")
}
