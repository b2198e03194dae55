package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStoreMissingFile(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "chat.json"))

	entries, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, store.Clear())
}

func TestHistoryStoreKeepsMostRecent(t *testing.T) {
	store := NewHistoryStore(filepath.Join(t.TempDir(), "chat.json"))

	var entries []Entry
	for i := 0; i < MaxHistoryEntries+7; i++ {
		entries = append(entries, Entry{Role: RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}
	require.NoError(t, store.Save(entries))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, MaxHistoryEntries)
	assert.Equal(t, "msg 7", loaded[0].Content)
	assert.Equal(t, fmt.Sprintf("msg %d", MaxHistoryEntries+6), loaded[len(loaded)-1].Content)
}

func TestHistoryStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	store := NewHistoryStore(path)
	require.NoError(t, store.Save([]Entry{{Role: RoleUser, Content: "hi"}}))

	require.NoError(t, store.Clear())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestHistoryStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewHistoryStore(path).Load()
	assert.Error(t, err)
}

func TestDefaultHistoryPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	store := NewHistoryStore("")
	assert.Equal(t, "polyvibe_demo_chat.json", filepath.Base(store.Path()))
	assert.Equal(t, ".polyvibe", filepath.Base(filepath.Dir(store.Path())))
}
