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

package logger

import "go.uber.org/zap"

// zapLogger adapts a *zap.SugaredLogger, named after its owning
// package, to ILogger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func newZapLogger(pkgName string) ILogger {
	base, err := zap.NewProduction()
	if err != nil {
		// zap construction failing means the process environment is
		// broken beyond what logging can report; fall back to a
		// no-op core rather than taking down the caller.
		base = zap.NewNop()
	}
	return &zapLogger{s: base.Sugar().Named(pkgName)}
}

func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

func (l *zapLogger) Warningf(format string, args ...interface{}) {
	l.s.Warnf(format, args...)
}

func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(format, args...)
}

func (l *zapLogger) Panicf(format string, args ...interface{}) {
	// zap's own Panicf logs then panics with the message; kept
	// consistent with dragonboat's plog.Panicf call sites, which
	// expect Panicf to never return.
	l.s.Panicf(format, args...)
}
