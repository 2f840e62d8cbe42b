package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Acquire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	remaining, ok, err := st.Acquire(ctx, "buyer@edelweiss.ph", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, remaining)

	now = now.Add(15 * time.Second)
	remaining, ok, err = st.Acquire(ctx, "buyer@edelweiss.ph", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, remaining)

	other, ok, err := st.Acquire(ctx, "other@edelweiss.ph", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, other)

	now = now.Add(45 * time.Second)
	_, ok, err = st.Acquire(ctx, "buyer@edelweiss.ph", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_RemainingAndReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	r, err := st.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, r)

	_, _, _ = st.Acquire(ctx, "k", 10*time.Second)
	now = now.Add(3 * time.Second)
	r, err = st.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, r)

	require.NoError(t, st.Reset(ctx, "k"))
	r, _ = st.Remaining(ctx, "k")
	assert.Zero(t, r)
}

func TestMemoryStore_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	_, _, _ = st.Acquire(ctx, "a", time.Second)
	_, _, _ = st.Acquire(ctx, "b", time.Minute)
	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, st.Sweep())
	r, _ := st.Remaining(ctx, "b")
	assert.Equal(t, 58*time.Second, r)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 0, Seconds(0))
	assert.Equal(t, 0, Seconds(-time.Second))
	assert.Equal(t, 1, Seconds(200*time.Millisecond))
	assert.Equal(t, 60, Seconds(time.Minute))
	assert.Equal(t, 45, Seconds(44*time.Second+time.Millisecond))
}
