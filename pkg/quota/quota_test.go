package quota

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticUsage map[string]int64

func (s staticUsage) Usage(_ context.Context, ownerID string) (int64, error) {
	return s[ownerID], nil
}

func TestWouldExceed_Boundary(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant(staticUsage{"alice": 8}, 10)

	// Landing exactly on the ceiling is admitted.
	exceed, err := accountant.WouldExceed(ctx, "alice", 2)
	require.NoError(t, err)
	assert.False(t, exceed)

	// One byte over is rejected.
	exceed, err = accountant.WouldExceed(ctx, "alice", 3)
	require.NoError(t, err)
	assert.True(t, exceed)

	// Unknown users start from zero.
	exceed, err = accountant.WouldExceed(ctx, "bob", 10)
	require.NoError(t, err)
	assert.False(t, exceed)
}

func TestWouldExceed_Unlimited(t *testing.T) {
	ctx := context.Background()
	accountant := NewAccountant(staticUsage{"alice": 1 << 40}, 0)

	exceed, err := accountant.WouldExceed(ctx, "alice", 1<<40)
	require.NoError(t, err)
	assert.False(t, exceed)
}

func TestReport(t *testing.T) {
	ctx := context.Background()

	report, err := NewAccountant(staticUsage{"alice": 4}, 10).Report(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Report{UsedBytes: 4, CeilingBytes: 10, RemainingBytes: 6}, report)

	// Over-ceiling usage clamps remaining to zero instead of going
	// negative (can happen after the ceiling is lowered).
	report, err = NewAccountant(staticUsage{"alice": 12}, 10).Report(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Report{UsedBytes: 12, CeilingBytes: 10, RemainingBytes: 0}, report)

	report, err = NewAccountant(staticUsage{"alice": 4}, 0).Report(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, Report{UsedBytes: 4, CeilingBytes: 0, RemainingBytes: -1}, report)
}
