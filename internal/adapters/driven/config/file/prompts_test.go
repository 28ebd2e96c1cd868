package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_NoIOUntilLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptGroundedSystem)
	require.NoError(t, err)

	for _, name := range []string{
		driven.PromptGroundedSystem, driven.PromptNoContext, driven.PromptFallback,
	} {
		assert.FileExists(t, filepath.Join(dir, name+".txt"))
	}
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	grounded, err := store.Load(driven.PromptGroundedSystem)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(grounded, "You are a helpful financial assistant."))

	noContext, err := store.Load(driven.PromptNoContext)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(noContext, "%s"))
	assert.Contains(t, fmt.Sprintf(noContext, "What is EBITDA?"), "Question: What is EBITDA?")

	fallback, err := store.Load(driven.PromptFallback)
	require.NoError(t, err)
	assert.Contains(t, fallback, "specialized in finance-related topics")
}

func TestDefaultPrompt_SharedWithDomain(t *testing.T) {
	tests := map[string]string{
		driven.PromptGroundedSystem: domain.GroundedSystemPrompt,
		driven.PromptNoContext:      domain.NoContextPrompt,
		driven.PromptFallback:       domain.FallbackResponse,
	}

	for name, want := range tests {
		got, ok := DefaultPrompt(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := DefaultPrompt("missing")
	assert.False(t, ok)
}

func TestPromptStore_Load_UserOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fallback.txt"), []byte("  custom reply \n"), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptFallback)

	require.NoError(t, err)
	assert.Equal(t, "custom reply", got)
}

func TestPromptStore_Load_EmptyFileUsesDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fallback.txt"), []byte("\n"), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptFallback)

	require.NoError(t, err)
	want, _ := DefaultPrompt(driven.PromptFallback)
	assert.Equal(t, want, got)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does_not_exist")

	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptFallback)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fallback.txt"), []byte("edited"), 0600))

	cached, err := store.Load(driven.PromptFallback)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptFallback)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh)
}

func TestPromptStore_Load_InitFailureFallsBack(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	got, err := store.Load(driven.PromptFallback)
	require.NoError(t, err)
	want, _ := DefaultPrompt(driven.PromptFallback)
	assert.Equal(t, want, got)

	_, err = store.Load("unknown")
	assert.Error(t, err)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Load(driven.PromptGroundedSystem)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
