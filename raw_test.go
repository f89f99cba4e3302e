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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_DumpLoadRawRoundTrip(t *testing.T) {
	t.Parallel()

	f, err := NewFilter(1<<12, 5, Prehashed(true))
	require.NoError(t, err)
	for _, x := range []string{"deadbeef", "cafebabe", "0badf00d"} {
		_, err := f.Insert(x)
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, f.DumpRaw(&buf))

	got, err := LoadFilterRaw(&buf, Prehashed(true))
	require.NoError(t, err)
	assert.True(t, f.Equal(got))
}

func TestLoadFilterRaw_RejectsLengthMismatch(t *testing.T) {
	t.Parallel()

	f, err := NewFilter(1<<8, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.DumpRaw(&buf))

	corrupt := buf.Bytes()
	corrupt[9] = 0xFF // corrupt the declared payload length

	_, err = LoadFilterRaw(bytes.NewReader(corrupt))
	assert.ErrorIs(t, err, ErrCodecMismatch)
}
