package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	n, err := ParseChannel(" 12 ")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = ParseChannel("50")
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	_, err = ParseChannel("0")
	assert.ErrorIs(t, err, ErrChannelOutOfRange)

	_, err = ParseChannel("51")
	assert.ErrorIs(t, err, ErrChannelOutOfRange)

	_, err = ParseChannel("abc")
	assert.ErrorIs(t, err, ErrChannelNotNumber)

	_, err = ParseChannel("")
	assert.ErrorIs(t, err, ErrChannelNotNumber)
}
