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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFilter_ConcurrentInsert(t *testing.T) {
	const (
		nkeys    = 2000
		nworkers = 8
	)

	keys := make([]string, nkeys)
	for i := range keys {
		keys[i] = fmt.Sprintf("%08x", i)
	}

	tests := []struct {
		name string
		run  func(f *SyncFilter)
	}{
		{
			name: "each worker inserts every key",
			run: func(f *SyncFilter) {
				var wg sync.WaitGroup
				wg.Add(nworkers)
				for i := 0; i < nworkers; i++ {
					go func() {
						defer wg.Done()
						for _, k := range keys {
							require.NoError(t, f.Insert(k))
						}
					}()
				}
				wg.Wait()
			},
		},
		{
			name: "keys split across workers",
			run: func(f *SyncFilter) {
				ch := make(chan string, nworkers)
				var wg sync.WaitGroup
				wg.Add(nworkers)
				for i := 0; i < nworkers; i++ {
					go func() {
						defer wg.Done()
						for k := range ch {
							require.NoError(t, f.Insert(k))
						}
					}()
				}
				for _, k := range keys {
					ch <- k
				}
				close(ch)
				wg.Wait()
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := NewSyncFilter(1<<16, 6, Prehashed(true))
			require.NoError(t, err)

			tt.run(f)

			for _, k := range keys {
				assert.True(t, f.Contains(k))
			}
		})
	}
}

func TestSyncFilter_ToFilterMatchesDirectInsert(t *testing.T) {
	t.Parallel()

	sf, err := NewSyncFilter(1<<12, 4, Prehashed(true))
	require.NoError(t, err)

	direct, err := NewFilter(1<<12, 4, Prehashed(true))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("%08x", i)
		require.NoError(t, sf.Insert(k))
		_, err := direct.Insert(k)
		require.NoError(t, err)
	}

	snap, err := sf.ToFilter()
	require.NoError(t, err)
	assert.True(t, snap.Equal(direct))
}

func TestABOM_InsertSync(t *testing.T) {
	t.Parallel()

	a, err := New(TunedConfig)
	require.NoError(t, err)

	sf, err := NewSyncFilter(a.M(), a.K(), Prehashed(true))
	require.NoError(t, err)
	require.NoError(t, sf.Insert("deadbeef"))
	require.NoError(t, sf.Insert("cafebabe"))

	_, err = a.InsertSync(sf)
	require.NoError(t, err)

	assert.True(t, a.Contains("deadbeef"))
	assert.True(t, a.Contains("cafebabe"))
}

func TestABOM_InsertSyncRejectsMismatch(t *testing.T) {
	t.Parallel()

	a, err := New(LegacyConfig)
	require.NoError(t, err)

	sf, err := NewSyncFilter(TunedConfig.M, TunedConfig.K)
	require.NoError(t, err)

	_, err = a.InsertSync(sf)
	assert.ErrorIs(t, err, ErrIncompatibleParameters)
}
