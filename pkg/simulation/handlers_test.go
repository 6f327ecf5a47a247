package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/ledger"
)

func TestMergeHandlers(t *testing.T) {
	var order []string
	first := SnapshotHandler(func(context.Context, common.Snapshot) { order = append(order, "first") })
	second := SnapshotHandler(func(context.Context, common.Snapshot) { order = append(order, "second") })

	merged := SnapshotHandler(MergeHandlers[common.Snapshot](first, nil, second))
	merged(context.Background(), common.Snapshot{})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHandlers_NilAreIgnored(t *testing.T) {
	var h Handlers
	assert.NotPanics(t, func() {
		h.snapshot(context.Background(), common.Snapshot{})
		h.skip(context.Background(), Skip{})
		h.trade(context.Background(), common.Trade{})
	})
}

func TestIsSkipReason(t *testing.T) {
	assert.True(t, IsSkipReason(ErrNoCandidates))
	assert.True(t, IsSkipReason(ledger.ErrMissingPrice))
	assert.False(t, IsSkipReason(ErrConfiguration))
	assert.False(t, IsSkipReason(errors.New("other")))
}

func TestOutcome_Recorded(t *testing.T) {
	assert.True(t, Outcome{Snapshot: &common.Snapshot{}}.Recorded())
	assert.False(t, Outcome{Skip: &Skip{}}.Recorded())
}
