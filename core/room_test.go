package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressRoom(t *testing.T) {
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	for _, in := range []string{checksummed, strings.ToLower(checksummed), " " + checksummed + " "} {
		room, err := ProgressRoom(in)
		require.NoError(t, err)
		assert.Equal(t, "progress:"+checksummed, room)
	}

	_, err := ProgressRoom("0xnope")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestNormalizeRoom(t *testing.T) {
	room, err := NormalizeRoom("progress:0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "progress:0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", room)

	_, err = NormalizeRoom("orders:0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	assert.ErrorIs(t, err, ErrInvalidRoom)
	assert.Equal(t, KindInvalidRequest, KindOf(err))
}
