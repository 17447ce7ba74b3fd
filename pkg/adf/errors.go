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

package adf

import "errors"

// Error kinds surfaced by the engine. Callers match with errors.Is; the
// mount boundary maps each kind onto the corresponding errno.
var (
	ErrNoEntry      = errors.New("no such entry")
	ErrExists       = errors.New("entry exists")
	ErrNotDirectory = errors.New("not a directory")
	ErrIsDirectory  = errors.New("is a directory")
	ErrNotEmpty     = errors.New("directory not empty")
	ErrNameTooLong  = errors.New("name too long")
	ErrNoSpace      = errors.New("no space on volume")
	ErrReadOnly     = errors.New("read-only image")
	ErrIO           = errors.New("image access failure")
	ErrInvalid      = errors.New("invalid operation")
)
