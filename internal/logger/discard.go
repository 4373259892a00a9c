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

// discardLogger drops Infof/Warningf/Errorf and still panics on
// Panicf, so invariant-violation tests behave the same as production.
type discardLogger struct{}

// NewDiscardFactory returns a Factory that silences Infof/Warningf/
// Errorf output, useful for tests that assert on call sequences rather
// than log output and would otherwise be noisy under `go test -v`.
func NewDiscardFactory() Factory {
	return func(string) ILogger { return discardLogger{} }
}

func (discardLogger) Infof(string, ...interface{})    {}
func (discardLogger) Warningf(string, ...interface{}) {}
func (discardLogger) Errorf(string, ...interface{})   {}
func (discardLogger) Panicf(format string, args ...interface{}) {
	panic(sprintf(format, args...))
}
