// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file of the Go project.

// Portions of this file are additionally subject to the following
// license and copyright.
//
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

// Portions of this code originated in the standard library 'log' package.

// Package log implements modal leveled logging. A Logger writes to an
// io.Writer with a header determined by its flag set; emission is filtered
// through a global mode with optional per-file overrides, reconfigurable at
// runtime.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Flag bits controlling the log header.
type Flag int

const (
	Ldate Flag = 1 << iota // yymmdd
	Ltime                  // hh:mm:ss
	Lmicroseconds          // hh:mm:ss.micros; implies Ltime
	Llongfile              // full file path and line number
	Lshortfile             // base file name and line number; wins over Llongfile
	LUTC                   // timestamps in UTC
	Lmode                  // leading mode letter (I/W/E/F/D)

	LstdFlags = Lmode | Ldate | Ltime | Lshortfile
)

// Logger writes log lines to w with headers per flag. The optional basePath
// is trimmed off Llongfile paths.
type Logger struct {
	w        io.Writer
	flag     Flag
	basePath string
}

type option func(*Logger)

// Writer directs the logger's output to w. Use SynchronizedWriter when the
// logger is shared across goroutines.
func Writer(w io.Writer) option {
	return func(l *Logger) { l.w = w }
}

// Flags sets the header flag set.
func Flags(f Flag) option {
	return func(l *Logger) { l.flag = f }
}

// SkipBasePath trims the repository root from Llongfile paths. The root is
// inferred from the option's call site (two levels above the calling file's
// directory, matching the cmd/<name> and pkg/<name> layout); files outside it
// are printed in full.
func SkipBasePath() option {
	base := ""
	if _, file, _, ok := runtime.Caller(1); ok {
		base = filepath.Dir(filepath.Dir(filepath.Dir(file)))
	}
	return func(l *Logger) { l.basePath = base }
}

// New returns a Logger writing to stderr with LstdFlags, overridden by the
// provided options.
func New(options ...option) *Logger {
	l := &Logger{
		w:    DefaultWriter(),
		flag: LstdFlags,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Discarder returns a Logger that drops all writes.
func Discarder() *Logger {
	return New(Writer(io.Discard))
}

// Info logs to the INFO log in the manner of fmt.Println.
func (l *Logger) Info(v ...interface{}) {
	l.log(InfoMode, fmt.Sprintln(v...))
}

// Infof logs to the INFO log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(InfoMode, fmt.Sprintf(format+"\n", v...))
}

// Warn logs to the WARN log in the manner of fmt.Println.
func (l *Logger) Warn(v ...interface{}) {
	l.log(WarnMode, fmt.Sprintln(v...))
}

// Warnf logs to the WARN log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(WarnMode, fmt.Sprintf(format+"\n", v...))
}

// Error logs to the ERROR log in the manner of fmt.Println.
func (l *Logger) Error(v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintln(v...))
}

// Errorf logs to the ERROR log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintf(format+"\n", v...))
}

// Fatal logs to the FATAL log and exits with status 255. Fatal statements
// are never filtered.
func (l *Logger) Fatal(v ...interface{}) {
	l.log(FatalMode, fmt.Sprintln(v...))
	os.Exit(255)
}

// Fatalf logs to the FATAL log and exits with status 255.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.log(FatalMode, fmt.Sprintf(format+"\n", v...))
	os.Exit(255)
}

// Debug logs to the DEBUG log in the manner of fmt.Println.
func (l *Logger) Debug(v ...interface{}) {
	l.log(DebugMode, fmt.Sprintln(v...))
}

// Debugf logs to the DEBUG log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.log(DebugMode, fmt.Sprintf(format+"\n", v...))
}

// log is only called from the public two-deep wrappers above; the caller is
// resolved at that fixed depth.
func (l *Logger) log(lmode Mode, data string) {
	file, line := caller(2)

	var shouldLog bool
	if fmode, ok := GetFileLogMode(filepath.Base(file)); ok {
		// A file override, when present, replaces the global mode entirely.
		shouldLog = (fmode & lmode) != DisabledMode
	} else {
		shouldLog = (GetGlobalLogMode() & lmode) != DisabledMode
	}
	if (lmode & FatalMode) != DisabledMode {
		shouldLog = true
	}
	if !shouldLog {
		return
	}

	var buf bytes.Buffer
	buf.Write(l.header(lmode, time.Now(), file, line))
	buf.WriteString(data)
	l.w.Write(buf.Bytes())
}

// header formats the log line prefix:
//
//	Myymmdd hh:mm:ss.micros file.go:42] message
//	I260805 06:33:04.606396 image.go:58] opened image
func (l *Logger) header(lmode Mode, t time.Time, file string, line int) []byte {
	var b []byte
	buf := &b
	if l.flag&Lmode != 0 {
		*buf = append(*buf, lmode.byte())
	}
	if l.flag&LUTC != 0 {
		t = t.UTC()
	}
	if l.flag&(Ldate|Ltime|Lmicroseconds) != 0 {
		if l.flag&Ldate != 0 {
			year, month, day := t.Date()
			if year < 2000 {
				year = 2000
			}
			itoa(buf, year-2000, 2)
			itoa(buf, int(month), 2)
			itoa(buf, day, 2)
		}
		if l.flag&Ldate != 0 && l.flag&(Ltime|Lmicroseconds) != 0 {
			*buf = append(*buf, ' ')
		}
		if l.flag&(Ltime|Lmicroseconds) != 0 {
			hour, min, sec := t.Clock()
			itoa(buf, hour, 2)
			*buf = append(*buf, ':')
			itoa(buf, min, 2)
			*buf = append(*buf, ':')
			itoa(buf, sec, 2)
			if l.flag&Lmicroseconds != 0 {
				*buf = append(*buf, '.')
				itoa(buf, t.Nanosecond()/1e3, 6)
			}
		}
	}
	*buf = append(*buf, ' ')

	if l.flag&(Lshortfile|Llongfile) != 0 {
		if l.flag&Lshortfile != 0 {
			file = filepath.Base(file)
		} else if l.basePath != "" && len(file) > len(l.basePath) &&
			file[:len(l.basePath)] == l.basePath {
			file = file[len(l.basePath)+1:]
		}
		*buf = append(*buf, file...)
		*buf = append(*buf, ':')
		itoa(buf, line, -1)
		*buf = append(*buf, "] "...)
	}
	return b
}

// Cheap integer to fixed-width decimal ASCII. A negative width avoids
// zero-padding.
func itoa(buf *[]byte, i int, wid int) {
	var b [20]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	b[bp] = byte('0' + i)
	*buf = append(*buf, b[bp:]...)
}

// caller returns the file and line of the call site depth frames above the
// caller of caller itself.
func caller(depth int) (file string, line int) {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file = "[???]"
		line = -1
	}
	return file, line
}
