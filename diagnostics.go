// Copyright 2024 the ABOM authors
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

package abom

// Diagnostics receives advisory warnings emitted by a Filter or ABOM.
// Warnings never alter results; they exist so that a surrounding
// driver can surface them through its own logging stack. The core
// holds no global logger, so a nil Diagnostics is always safe and
// simply discards warnings.
type Diagnostics interface {
	Warnf(format string, args ...any)
}

// discardDiagnostics is a Diagnostics sink that drops every warning.
type discardDiagnostics struct{}

func (discardDiagnostics) Warnf(string, ...any) {}

// StderrDiagnostics is a convenience Diagnostics sink that writes
// warnings to the given printf-style function, e.g. log.Printf.
type StderrDiagnostics struct {
	Printf func(format string, args ...any)
}

// Warnf implements Diagnostics.
func (d StderrDiagnostics) Warnf(format string, args ...any) {
	if d.Printf == nil {
		return
	}
	d.Printf("abom: "+format, args...)
}

var _ Diagnostics = StderrDiagnostics{}
var _ Diagnostics = discardDiagnostics{}

func warnf(d Diagnostics, format string, args ...any) {
	if d == nil {
		return
	}
	d.Warnf(format, args...)
}
