// Copyright 2013 Google Inc. All Rights Reserved.
// Copyright 2026 The Amifs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Portions of this code originated in the github.com/golang/glog package.

package log

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"
)

var (
	program  = "?"
	hostname = "?"
	username = "?"
	pid      = -1
)

func init() {
	program = filepath.Base(os.Args[0])
	if host, err := os.Hostname(); err == nil {
		hostname = host
	}
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	pid = os.Getpid()
}

// DefaultWriter returns an os.Stderr writer safe for concurrent use.
func DefaultWriter() io.Writer {
	return SynchronizedWriter(os.Stderr)
}

// SynchronizedWriter serializes writes to w with a mutex.
func SynchronizedWriter(w io.Writer) io.Writer {
	return &synchronizedWriter{w: w}
}

// MultiWriter multiplexes writes to all the given writers.
func MultiWriter(w io.Writer, ws ...io.Writer) io.Writer {
	mw := &multiWriter{}
	mw.ws = append(mw.ws, w)
	mw.ws = append(mw.ws, ws...)
	return mw
}

// LogRotationWriter writes into rotating files under dirname, starting a
// new file once the current one exceeds sizeThreshold bytes, and keeps a
// <program>.log symlink pointing at the newest file. A single write larger
// than the threshold still lands in one file.
func LogRotationWriter(dirname string, sizeThreshold int) io.Writer {
	os.MkdirAll(dirname, os.ModePerm)
	return &logRotationWriter{
		dirname:       dirname,
		symlink:       fmt.Sprintf("%s.log", program),
		sizeThreshold: sizeThreshold,
	}
}

type synchronizedWriter struct {
	sync.Mutex
	w io.Writer
}

func (s *synchronizedWriter) Write(b []byte) (int, error) {
	s.Lock()
	defer s.Unlock()
	return s.w.Write(b)
}

type multiWriter struct {
	ws []io.Writer
}

// Best-effort write to every writer; returns the smallest count and the
// last non-nil error.
func (m *multiWriter) Write(b []byte) (n int, err error) {
	n = len(b)
	for _, w := range m.ws {
		nbytes, er := w.Write(b)
		if nbytes < n {
			n = nbytes
		}
		if er != nil {
			err = er
		}
	}
	return n, err
}

type logRotationWriter struct {
	dirname, symlink               string
	currentFileSize, sizeThreshold int

	currentFile *os.File
}

// generateLogFilename names a log file
// <program>.<host>.<user>.<timestamp>.<pid>.log.
func generateLogFilename(t time.Time) string {
	return fmt.Sprintf("%s.%s.%s.%s.%d.log",
		program, hostname, username,
		t.Format("2006-01-02.15:04:05.999"), pid,
	)
}

func (r *logRotationWriter) Write(b []byte) (n int, err error) {
	if r.currentFile == nil || r.currentFileSize+len(b) > r.sizeThreshold {
		fname := generateLogFilename(time.Now())
		f, err := os.Create(filepath.Join(r.dirname, fname))
		if err != nil {
			return 0, err
		}
		r.currentFile = f
		r.currentFileSize = 0
		os.Remove(filepath.Join(r.dirname, r.symlink))         // Old symlink, if any.
		os.Symlink(fname, filepath.Join(r.dirname, r.symlink)) // Best effort.
	}

	n, err = r.currentFile.Write(b)
	r.currentFileSize += n
	return n, err
}
