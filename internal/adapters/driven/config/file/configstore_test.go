package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	assert.Empty(t, store.All())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("api.base_url", "https://brain.example.com/api/v1"))

	val, ok := store.Get("api.base_url")
	assert.True(t, ok)
	assert.Equal(t, "https://brain.example.com/api/v1", val)
	assert.Equal(t, "https://brain.example.com/api/v1", store.GetString("api.base_url"))

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Set_EmptyKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("", "value"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("api.burst", int64(5)))

	assert.Empty(t, store.GetString("api.burst"))
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("api.base_url", "https://brain.example.com/api/v1"))
	require.NoError(t, store.Set("poll.floor", "3s"))
	require.NoError(t, store.Set("data_dir", "/tmp/brain"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[api]")
	assert.Contains(t, content, "[poll]")
	assert.Contains(t, content, "base_url = 'https://brain.example.com/api/v1'")
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("api.base_url", "https://brain.example.com/api/v1"))
	require.NoError(t, store.Set("api.burst", int64(4)))
	require.NoError(t, store.Set("poll.growth", 1.5))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "https://brain.example.com/api/v1", reloaded.GetString("api.base_url"))
	burst, ok := reloaded.Get("api.burst")
	require.True(t, ok)
	assert.Equal(t, int64(4), burst)
	growth, ok := reloaded.Get("poll.growth")
	require.True(t, ok)
	assert.InDelta(t, 1.5, growth, 0.0001)
}

func TestConfigStore_Unset(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("poll.floor", "3s"))
	require.NoError(t, store.Set("poll.ceiling", "20s"))

	require.NoError(t, store.Unset("poll.floor"))
	require.NoError(t, store.Unset("poll.floor"))

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := reloaded.Get("poll.floor")
	assert.False(t, ok)
	assert.Equal(t, "20s", reloaded.GetString("poll.ceiling"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	// Channels cannot be marshaled to TOML
	err = store.Set("channel", make(chan int))
	assert.Error(t, err)

	_, ok := store.Get("channel")
	assert.False(t, ok)
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("valid", "data"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml syntax ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("api.base_url", "http://localhost:8000/api/v1")
			_ = store.GetString("api.base_url")
		}()
	}
	wg.Wait()

	assert.Equal(t, "http://localhost:8000/api/v1", store.GetString("api.base_url"))
}

func TestFlattenUnflatten(t *testing.T) {
	nested := map[string]any{
		"api":      map[string]any{"base_url": "x", "burst": int64(2)},
		"data_dir": "/tmp",
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"api.base_url": "x", "api.burst": int64(2), "data_dir": "/tmp"}, flat)
	assert.Equal(t, nested, unflattenMap(flat))
}

func TestUnflatten_TableWinsOverScalar(t *testing.T) {
	out := unflattenMap(map[string]any{"api": "scalar", "api.base_url": "x"})

	assert.Equal(t, map[string]any{"api": map[string]any{"base_url": "x"}}, out)
}
