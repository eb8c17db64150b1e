package storeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOntologyIsInternallyConsistent(t *testing.T) {
	cfg := Default()
	for _, lt := range cfg.LinkTypes {
		inv, ok := cfg.Inverses[lt]
		require.True(t, ok, "link type %q has no inverse entry", lt)
		assert.True(t, cfg.IsKnownLinkType(inv), "inverse %q of %q is not itself a known link type", inv, lt)
	}
}

func TestInverseIsInvolution(t *testing.T) {
	cfg := Default()
	for _, lt := range cfg.LinkTypes {
		inv := cfg.Inverse(lt)
		assert.Equal(t, lt, cfg.Inverse(inv), "inverse of inverse of %q should be %q", lt, lt)
	}
}

func TestHopCostDefaultsToOne(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1.0, cfg.HopCost("related"))

	cfg.HopCosts["supports"] = 0.5
	assert.Equal(t, 0.5, cfg.HopCost("supports"))
}

func TestInverseOfUnknownTypeIsSelf(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "made-up", cfg.Inverse("made-up"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.IDPrefix = "zz"
	cfg.DuplicateThreshold = 0.9

	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "zz", loaded.IDPrefix)
	assert.Equal(t, 0.9, loaded.DuplicateThreshold)
	assert.Equal(t, cfg.LinkTypes, loaded.LinkTypes)
}

func TestLoadMissingConfigIsInvalidStore(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)
}
