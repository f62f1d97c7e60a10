package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*BoltStore, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "communityhub-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	store, err := NewBoltStore(filepath.Join(tmpDir, "cache.bolt"))
	if err != nil {
		_ = os.RemoveAll(tmpDir)

		t.Fatalf("failed to create test store: %v", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}

		_ = os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

func testStore(t *testing.T, s Store) {
	_, err := s.Get("post:1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("post:1", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Set("post:10", []byte(`{"id":"10"}`)))
	require.NoError(t, s.Set("posts", []byte(`[]`)))
	require.NoError(t, s.Set("feed", []byte(`{}`)))
	require.NoError(t, s.Set("feed:hashtag:go", []byte(`{}`)))

	val, err := s.Get("post:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(val))

	keys, err := s.Keys("post")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"post:1", "post:10"}, keys)

	keys, err = s.Keys("feed")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"feed", "feed:hashtag:go"}, keys)

	keys, err = s.Keys("")
	require.NoError(t, err)
	assert.Len(t, keys, 5)

	require.NoError(t, s.Delete("post:1"))
	_, err = s.Get("post:1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	testStore(t, store)
}

func TestBoltStore_Persists(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cache.bolt")

	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("profile:7", []byte(`{"id":"7"}`)))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	val, err := reopened.Get("profile:7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7"}`, string(val))
}

func TestOpenStore(t *testing.T) {
	s, err := OpenStore(Config{}, RedisConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = OpenStore(Config{Backend: BackendBolt}, RedisConfig{})
	assert.Error(t, err)

	_, err = OpenStore(Config{Backend: "etcd"}, RedisConfig{})
	assert.Error(t, err)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `feed:hashtag:a\*b\?`, globEscape("feed:hashtag:a*b?"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "feed:hashtag:go", FeedKey("hashtag", "go").String())
	assert.True(t, FeedKey("hashtag", "go").HasPrefix(FeedKey()))
	assert.True(t, PostKey("1").HasPrefix(Key{}))
	assert.False(t, PostKey("1").HasPrefix(Key{"posts"}))
	assert.False(t, FeedKey().HasPrefix(FeedKey("hashtag")))
}
