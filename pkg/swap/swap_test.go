package swap

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lederstrumpf/farcaster-core/pkg/blockchain"
	"github.com/Lederstrumpf/farcaster-core/pkg/encoding"
)

func testDeal() *Deal {
	return &Deal{
		Network:           blockchain.Testnet,
		ArbitratingAsset:  0,
		AccordantAsset:    128,
		ArbitratingAmount: 1_000_000,
		AccordantAmount:   100_000_000_000,
		CancelTimelock:    10,
		PunishTimelock:    20,
		Fee:               blockchain.FeeStrategy{Fixed: 1000, Tolerance: 10},
		Direction:         SellArbitrating,
	}
}

func TestRoleOthers(t *testing.T) {
	assert.Equal(t, Taker, Maker.Other())
	assert.Equal(t, Maker, Taker.Other())
	assert.Equal(t, Bob, Alice.Other())
	assert.Equal(t, Alice, Bob.Other())
}

func TestRoleValidate(t *testing.T) {
	assert.NoError(t, Alice.Validate())
	assert.NoError(t, Maker.Validate())
	assert.Error(t, SwapRole(0).Validate())
	assert.Error(t, TradeRole(9).Validate())
}

func TestMakerRoleDerivation(t *testing.T) {
	deal := testDeal()

	// selling the arbitrating asset means locking it: Bob's side
	deal.Direction = SellArbitrating
	assert.Equal(t, Bob, deal.MakerRole())
	assert.Equal(t, Bob, deal.SwapRole(Maker))
	assert.Equal(t, Alice, deal.SwapRole(Taker))

	deal.Direction = SellAccordant
	assert.Equal(t, Alice, deal.MakerRole())
	assert.Equal(t, Alice, deal.SwapRole(Maker))
	assert.Equal(t, Bob, deal.SwapRole(Taker))
}

func TestSwapID(t *testing.T) {
	id, err := NewSwapID(rand.Reader)
	require.NoError(t, err)
	assert.NoError(t, id.Validate())
	assert.Len(t, id.String(), 64)

	assert.Error(t, SwapID{}.Validate())
}

func TestDealValidate(t *testing.T) {
	assert.NoError(t, testDeal().Validate())

	tests := []struct {
		name   string
		mutate func(*Deal)
	}{
		{"zero arbitrating amount", func(d *Deal) { d.ArbitratingAmount = 0 }},
		{"zero accordant amount", func(d *Deal) { d.AccordantAmount = 0 }},
		{"zero cancel timelock", func(d *Deal) { d.CancelTimelock = 0 }},
		{"punish not above cancel", func(d *Deal) { d.PunishTimelock = d.CancelTimelock }},
		{"unknown network", func(d *Deal) { d.Network = 0 }},
		{"unknown direction", func(d *Deal) { d.Direction = 7 }},
		{"zero fee", func(d *Deal) { d.Fee.Fixed = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deal := testDeal()
			tc.mutate(deal)
			assert.Error(t, deal.Validate())
		})
	}
}

func TestDealRoundTrip(t *testing.T) {
	deal := testDeal()
	data, err := deal.Encode()
	require.NoError(t, err)

	out, err := DecodeDeal(data)
	require.NoError(t, err)
	assert.Equal(t, deal, out)

	id1, err := deal.ID()
	require.NoError(t, err)
	id2, err := out.ID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Len(t, id1.String(), 64)
}

func TestDealIDBindsTerms(t *testing.T) {
	deal := testDeal()
	id1, err := deal.ID()
	require.NoError(t, err)

	deal.AccordantAmount += 1
	id2, err := deal.ID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestDecodeDealRejectsCorruption(t *testing.T) {
	deal := testDeal()
	data, err := deal.Encode()
	require.NoError(t, err)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[0] ^= 0xFF
		_, err := DecodeDeal(bad)
		assert.Error(t, err)
	})
	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[len(dealMagic)+1] = 99
		_, err := DecodeDeal(bad)
		assert.ErrorIs(t, err, encoding.ErrUnsupportedVersion)
	})
	t.Run("flipped body bit", func(t *testing.T) {
		bad := append([]byte{}, data...)
		bad[len(dealMagic)+5] ^= 0x01
		_, err := DecodeDeal(bad)
		assert.Error(t, err)
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeDeal(data[:8])
		assert.ErrorIs(t, err, encoding.ErrTruncated)
	})
	t.Run("trailing bytes", func(t *testing.T) {
		_, err := DecodeDeal(append(append([]byte{}, data...), 0))
		assert.Error(t, err)
	})
}
