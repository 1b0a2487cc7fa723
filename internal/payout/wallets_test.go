package payout

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/prize-pool-ledger/internal/models"
)

func TestWalletsSendAccumulates(t *testing.T) {
	w := NewWallets()
	ctx := context.Background()

	require.NoError(t, w.Send(ctx, "house", 10))
	require.NoError(t, w.Send(ctx, "house", 5))
	assert.Equal(t, uint64(15), w.BalanceOf("house"))
	assert.Zero(t, w.BalanceOf("someone"))
}

func TestWalletsReject(t *testing.T) {
	w := NewWallets()
	ctx := context.Background()
	w.Reject("house")

	err := w.Send(ctx, "house", 10)
	assert.ErrorIs(t, err, ErrRecipientRejected)
	assert.Zero(t, w.BalanceOf("house"))

	w.Accept("house")
	require.NoError(t, w.Send(ctx, "house", 10))
	assert.Equal(t, uint64(10), w.BalanceOf("house"))
}

func TestWalletsOverflowRejected(t *testing.T) {
	w := NewWallets()
	ctx := context.Background()
	require.NoError(t, w.Send(ctx, "house", math.MaxUint64))

	assert.ErrorIs(t, w.Send(ctx, "house", 1), ErrRecipientRejected)
	assert.Equal(t, uint64(math.MaxUint64), w.BalanceOf("house"))
}

func TestWalletsCancelledContext(t *testing.T) {
	w := NewWallets()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Send(ctx, "house", 1), context.Canceled)
	assert.Zero(t, w.BalanceOf("house"))
}

func TestFunc(t *testing.T) {
	var got models.Identity
	f := Func(func(_ context.Context, to models.Identity, amount uint64) error {
		got = to
		return nil
	})
	require.NoError(t, f.Send(context.Background(), "house", 1))
	assert.Equal(t, models.Identity("house"), got)
}
