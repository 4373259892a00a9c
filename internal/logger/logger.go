// Copyright 2024 The raftrecovery Authors
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

// Package logger is a small logger registry in the style of
// dragonboat's internal/logger: every package obtains its own
// package-scoped logger by name, and the backend implementation can be
// swapped globally (e.g. for tests) via SetLoggerFactory.
package logger

import (
	"sync"
)

// ILogger is the logging interface used throughout raftrecovery.
type ILogger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// Factory creates a new ILogger for the named package.
type Factory func(pkgName string) ILogger

var (
	mu        sync.Mutex
	factory   Factory = newZapLogger
	instances         = make(map[string]ILogger)
)

// SetLoggerFactory installs f as the factory used for loggers created
// from this point forward. Existing cached loggers are dropped so the
// next GetLogger call for a package picks up the new factory. A logger
// already returned by GetLogger, such as a package-level plog
// variable, keeps the implementation it was created with.
func SetLoggerFactory(f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factory = f
	instances = make(map[string]ILogger)
}

// GetLogger returns the logger registered for pkgName, creating it via
// the current factory on first use.
func GetLogger(pkgName string) ILogger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := instances[pkgName]; ok {
		return l
	}
	l := factory(pkgName)
	instances[pkgName] = l
	return l
}
