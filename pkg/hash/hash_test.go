package hash

import (
	"crypto/rand"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lederstrumpf/farcaster-core/pkg/math/curve"
)

func TestHashDomainSeparation(t *testing.T) {
	h1 := New(BytesWithDomain{TheDomain: "A", Bytes: []byte("payload")})
	h2 := New(BytesWithDomain{TheDomain: "B", Bytes: []byte("payload")})
	assert.NotEqual(t, h1.Sum(), h2.Sum())
}

func TestHashWriteAnyDeterministic(t *testing.T) {
	group := curve.Secp256k1{}
	point := group.NewBasePoint()
	nat := new(saferith.Nat).SetUint64(1234)

	sum := func() []byte {
		h := New()
		require.NoError(t, h.WriteAny([]byte("data"), nat, point))
		return h.Sum()
	}
	assert.Equal(t, sum(), sum())
	assert.Len(t, sum(), DigestLengthBytes)
}

func TestHashCloneDiverges(t *testing.T) {
	h := New([]byte("seed"))
	clone := h.Clone()
	require.NoError(t, clone.WriteAny([]byte("more")))
	assert.NotEqual(t, h.Sum(), clone.Sum())
}

func TestCommitDecommit(t *testing.T) {
	value := []byte("revealed later")
	h := New([]byte("session"))
	c, d, err := h.Commit(value)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.NoError(t, d.Validate())

	assert.True(t, h.Decommit(c, d, value))
}

func TestDecommitRejectsWrongValue(t *testing.T) {
	h := New([]byte("session"))
	c, d, err := h.Commit([]byte("value"))
	require.NoError(t, err)

	assert.False(t, h.Decommit(c, d, []byte("other value")))
}

func TestDecommitRejectsWrongDecommitment(t *testing.T) {
	h := New([]byte("session"))
	c, _, err := h.Commit([]byte("value"))
	require.NoError(t, err)

	wrong := make(Decommitment, len(c)/2)
	_, err = rand.Read(wrong)
	require.NoError(t, err)
	assert.False(t, h.Decommit(c, wrong, []byte("value")))

	assert.False(t, h.Decommit(c[:DigestLengthBytes-1], wrong, []byte("value")))
}

func TestCommitIsHiding(t *testing.T) {
	h := New([]byte("session"))
	c1, _, err := h.Commit([]byte("value"))
	require.NoError(t, err)
	c2, _, err := h.Commit([]byte("value"))
	require.NoError(t, err)
	// fresh randomizer every time
	assert.NotEqual(t, c1, c2)
}
