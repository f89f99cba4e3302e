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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []Config{
		{M: 0, K: 4, FPRate: 0.1},
		{M: 100, K: 4, FPRate: 0.1},
		{M: 1 << 8, K: 0, FPRate: 0.1},
		{M: 1 << 8, K: 4, FPRate: 0},
		{M: 1 << 8, K: 4, FPRate: 1.5},
	}
	for i, cfg := range tests {
		cfg := cfg
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			t.Parallel()
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestABOM_StartsEmpty(t *testing.T) {
	t.Parallel()

	a, err := New(TunedConfig)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Len())
}

func TestABOM_InsertGrowsLazily(t *testing.T) {
	t.Parallel()

	a, err := New(TunedConfig)
	require.NoError(t, err)

	_, err = a.Insert("feedface")
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
	assert.True(t, a.Contains("feedface"))
	assert.False(t, a.Contains("00000000"))
}

func TestABOM_InsertSpawnsNewFilterAtCeiling(t *testing.T) {
	t.Parallel()

	cfg := Config{M: 1 << 6, K: 2, FPRate: 0.02}
	a, err := New(cfg)
	require.NoError(t, err)

	for _, d := range randomDigests(40, 3) {
		_, err := a.Insert(d)
		require.NoError(t, err)
	}

	// Admission checks a Filter's rate before inserting, so a Filter is
	// only left behind once its rate has reached the ceiling.
	for _, bf := range a.bfs[:a.Len()-1] {
		assert.GreaterOrEqual(t, bf.FalsePositiveRate(), cfg.FPRate,
			"every Filter except the final, still-filling one must have reached the ceiling")
	}
	assert.Greater(t, a.Len(), 1)
}

func TestABOM_UnionRejectsParameterMismatch(t *testing.T) {
	t.Parallel()

	a, err := New(LegacyConfig)
	require.NoError(t, err)
	_, err = a.Insert("aaaaaaaa")
	require.NoError(t, err)

	b, err := New(TunedConfig)
	require.NoError(t, err)

	before := append([]*Filter(nil), a.bfs...)
	_, err = a.Union(b)
	assert.ErrorIs(t, err, ErrIncompatibleParameters)
	assert.Equal(t, before, a.bfs, "a failed Union must not mutate its receiver")
}

func TestABOM_UnionPreservesMembership(t *testing.T) {
	t.Parallel()

	a, err := New(TunedConfig)
	require.NoError(t, err)
	_, err = a.Insert("11111111")
	require.NoError(t, err)

	b, err := New(TunedConfig)
	require.NoError(t, err)
	_, err = b.Insert("22222222")
	require.NoError(t, err)
	_, err = b.Insert("33333333")
	require.NoError(t, err)

	_, err = a.Union(b)
	require.NoError(t, err)

	for _, x := range []string{"11111111", "22222222", "33333333"} {
		assert.True(t, a.Contains(x))
	}
}

func TestABOM_ContainsIsPure(t *testing.T) {
	t.Parallel()

	a, err := New(TunedConfig)
	require.NoError(t, err)
	_, err = a.Insert("abadcafe")
	require.NoError(t, err)

	before := a.Len()
	_ = a.Contains("abadcafe")
	_ = a.Contains("not-present")
	assert.Equal(t, before, a.Len())
}
