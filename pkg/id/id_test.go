package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableAndUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	prev := ""
	for i := 0; i < 1000; i++ {
		v := New()
		assert.False(t, seen[v])
		seen[v] = true
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestNewAtCarriesTimestamp(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	v, err := ulid.Parse(NewAt(at))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), v.Time())
}
