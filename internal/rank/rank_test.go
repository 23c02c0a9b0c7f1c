package rank

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetween_SeedsMidpoint(t *testing.T) {
	key, err := Between("", "")
	require.NoError(t, err)
	assert.Equal(t, "i", key)
}

func TestBetween_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
	}{
		{"open both ends", "", ""},
		{"append after", "i", ""},
		{"prepend before", "", "i"},
		{"simple gap", "a", "c"},
		{"adjacent digits", "a", "b"},
		{"longer before", "ab", "b"},
		{"shared prefix", "abc", "abq"},
		{"tail of alphabet", "z", ""},
		{"head of alphabet", "", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := Between(tt.before, tt.after)
			require.NoError(t, err)
			if tt.before != "" {
				assert.Greater(t, key, tt.before)
			}
			if tt.after != "" {
				assert.Less(t, key, tt.after)
			}
			assert.NotEmpty(t, key)
			assert.False(t, strings.HasSuffix(key, "0"), "generated keys must not end in the minimal digit: %q", key)
		})
	}
}

func TestBetween_InvalidRange(t *testing.T) {
	_, err := Between("b", "a")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Between("a", "a")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestBetween_EmptyGap(t *testing.T) {
	// "a0" is the immediate lexicographic successor of "a"; nothing fits.
	_, err := Between("a", "a0")
	assert.ErrorIs(t, err, ErrExhausted)

	_, err = Between("a", "a00")
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestBetween_RepeatedInsertionExhaustsGap(t *testing.T) {
	// Keep inserting into the same shrinking gap. Keys grow; the engine
	// must signal exhaustion before unbounded growth rather than loop.
	lo, hi := "a", "b"
	var err error
	for i := 0; i < 10*MaxKeyLen; i++ {
		var mid string
		mid, err = Between(lo, hi)
		if err != nil {
			break
		}
		require.Greater(t, mid, lo)
		require.Less(t, mid, hi)
		hi = mid
	}
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestBetween_SequentialAppendsStaySorted(t *testing.T) {
	keys := make([]string, 0, 200)
	last := ""
	for i := 0; i < 200; i++ {
		key, err := Between(last, "")
		require.NoError(t, err)
		keys = append(keys, key)
		last = key
	}

	assert.True(t, sort.StringsAreSorted(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		_, dup := seen[k]
		assert.False(t, dup, "duplicate key %q", k)
		seen[k] = struct{}{}
	}
}

func TestBetween_InterleavedInsertsStayDistinct(t *testing.T) {
	// Build a list then repeatedly insert between random-ish neighbors.
	keys := Spread(8)
	for i := 0; i < 100; i++ {
		at := i % (len(keys) - 1)
		key, err := Between(keys[at], keys[at+1])
		require.NoError(t, err)
		keys = append(keys[:at+1], append([]string{key}, keys[at+1:]...)...)
		require.True(t, sort.StringsAreSorted(keys), "insert %d broke ordering", i)
	}
}

func TestSpread(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 100, 5000} {
		keys := Spread(n)
		require.Len(t, keys, n)
		assert.True(t, sort.StringsAreSorted(keys), "n=%d", n)
		for i, k := range keys {
			assert.False(t, strings.HasSuffix(k, "0"), "n=%d key %q ends in minimal digit", n, k)
			if i > 0 {
				assert.Greater(t, k, keys[i-1], "n=%d", n)
				// A midpoint must exist between every pair after a rebalance.
				_, err := Between(keys[i-1], k)
				assert.NoError(t, err, "n=%d no room between %q and %q", n, keys[i-1], k)
			}
		}
	}
}

func TestSpread_Empty(t *testing.T) {
	assert.Nil(t, Spread(0))
	assert.Nil(t, Spread(-1))
}
