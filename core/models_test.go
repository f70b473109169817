package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTextDeterministic(t *testing.T) {
	a := HashText("hello world")
	b := HashText("hello world")
	c := HashText("hello world!")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // 32 bytes hex encoded
}

func TestHashPairsOrderIndependent(t *testing.T) {
	a := HashPairs(map[string]string{"locale": "en_US", "model": "hero"})
	b := HashPairs(map[string]string{"model": "hero", "locale": "en_US"})
	assert.Equal(t, a, b)

	c := HashPairs(map[string]string{"locale": "de_DE", "model": "hero"})
	assert.NotEqual(t, a, c)
}

func TestHashPairsNoKeyValueAmbiguity(t *testing.T) {
	// "ab"="c" must not collide with "a"="bc".
	a := HashPairs(map[string]string{"ab": "c"})
	b := HashPairs(map[string]string{"a": "bc"})
	assert.NotEqual(t, a, b)
}

func TestContextFingerprint(t *testing.T) {
	ctx := FragmentContext{
		Locale:   "en_US",
		Language: "en",
		Country:  "US",
		Model:    "hero",
		Facets:   map[string]string{"variant": "dark"},
	}
	fp := ContextFingerprint(&ctx)
	require.NotEmpty(t, fp)

	changed := ctx
	changed.Facets = map[string]string{"variant": "light"}
	assert.NotEqual(t, fp, ContextFingerprint(&changed))
}

func TestJoinUsagePath(t *testing.T) {
	assert.Equal(t, "/en_US/page", JoinUsagePath("", "/en_US/page"))
	assert.Equal(t, "/en_US/page", JoinUsagePath("/en_US/page", "/en_US/page"))
	assert.Equal(t, "/en_US/page||/shared/frag", JoinUsagePath("/en_US/page", "/shared/frag"))
}

func TestSplitUsagePath(t *testing.T) {
	path, uri := SplitUsagePath("/en_US/page||/shared/frag", "/shared/frag")
	assert.Equal(t, "/en_US/page", path)
	assert.Equal(t, "/shared/frag", uri)

	// No container recorded: section path falls back to the fragment's own path.
	path, uri = SplitUsagePath("/shared/frag", "/shared/frag")
	assert.Equal(t, "/shared/frag", path)
	assert.Equal(t, "/shared/frag", uri)
}

func TestBatchStatusCanFinalize(t *testing.T) {
	assert.True(t, BatchQueued.CanFinalize())
	assert.True(t, BatchInProgress.CanFinalize())
	assert.True(t, BatchSkipped.CanFinalize())

	assert.False(t, BatchCleansed.CanFinalize())
	assert.False(t, BatchFinalizing.CanFinalize())
	assert.False(t, BatchComplete.CanFinalize())
	assert.False(t, BatchFailed.CanFinalize())
}

func TestValidateBatch(t *testing.T) {
	require.Error(t, ValidateBatch(nil))

	batch := &Batch{SourceID: "page-1", Version: 1}
	require.NoError(t, ValidateBatch(batch))

	batch.Version = 0
	assert.ErrorIs(t, ValidateBatch(batch), ErrInvalidVersion)

	batch = &Batch{SourceID: "page-1", Version: 2, Items: []Fragment{{SourcePath: "/p", FieldKey: ""}}}
	assert.ErrorIs(t, ValidateBatch(batch), ErrEmptyFieldKey)
}

func TestFragmentIdentity(t *testing.T) {
	a := Fragment{SourcePath: "/p", FieldKey: "copy", UsagePath: "/u1||/p"}
	b := Fragment{SourcePath: "/p", FieldKey: "copy", UsagePath: "/u2||/p"}
	assert.Equal(t, a.Identity(), b.Identity())
}
