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

// Package abom implements the Automated Bill of Materials: a compact,
// mergeable cryptographic manifest of content hashes that contributed
// to a compiled artifact.
//
// An ABOM is a small ordered sequence of compressed Bloom filters
// (Filter). Producers insert fixed-length content digests during
// compilation, linking, and archiving; consumers query whether a
// digest is represented in an artifact's ABOM. Filters are capped at
// a false positive rate and a fresh one is appended only when every
// existing filter has reached that rate, bounding memory use while
// keeping membership tests and union fast enough to run on every
// compiler/linker/archiver invocation.
//
// The package exposes only the manifest data structure and its
// self-describing binary codec. Intercepting compiler invocations,
// discovering build-time dependencies, and embedding the serialized
// bytes into an object file section are the responsibility of the
// surrounding driver and are out of scope here.
package abom
