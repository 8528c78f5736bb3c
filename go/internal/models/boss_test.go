package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurations(t *testing.T) {
	for _, r := range Resources() {
		d, ok := r.Duration(KindBossDead)
		require.True(t, ok, r)
		assert.Equal(t, 300*time.Second, d)

		d, ok = r.Duration(KindVariantSpawning)
		require.True(t, ok, r)
		assert.Equal(t, 120*time.Second, d)

		d, ok = r.Duration(KindVariantDead)
		require.True(t, ok, r)
		assert.Equal(t, 480*time.Second, d)
	}

	_, ok := ResourceJiangshi.Duration(Kind("Boss Alive"))
	assert.False(t, ok)
}

func TestKindsOrdered(t *testing.T) {
	assert.Equal(t, []Kind{KindBossDead, KindVariantSpawning, KindVariantDead}, ResourcePinchy.Kinds())
}

func TestParseResource(t *testing.T) {
	r, err := ParseResource("GoldenDeva")
	require.NoError(t, err)
	assert.Equal(t, ResourceGoldenDeva, r)

	_, err = ParseResource("goldendeva")
	assert.Error(t, err)
	assert.Equal(t, ResourceJiangshi, DefaultResource)
	assert.Len(t, Resources(), 6)
}
