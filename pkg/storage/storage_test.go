package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]DocumentStore {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	bs, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]DocumentStore{"file": fs, "badger": bs}
}

func TestDocumentStoreContract(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("load missing key", func(t *testing.T) {
				_, err := store.Load("absent")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("save and load", func(t *testing.T) {
				require.NoError(t, store.Save("doc", []byte(`{"a":1}`)))
				data, err := store.Load("doc")
				require.NoError(t, err)
				assert.JSONEq(t, `{"a":1}`, string(data))
			})

			t.Run("save replaces", func(t *testing.T) {
				require.NoError(t, store.Save("doc", []byte(`{"a":2}`)))
				data, err := store.Load("doc")
				require.NoError(t, err)
				assert.JSONEq(t, `{"a":2}`, string(data))
			})

			t.Run("keys", func(t *testing.T) {
				require.NoError(t, store.Save("other", []byte(`{}`)))
				keys, err := store.Keys()
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"doc", "other"}, keys)
			})

			t.Run("delete", func(t *testing.T) {
				require.NoError(t, store.Delete("other"))
				_, err := store.Load("other")
				assert.ErrorIs(t, err, ErrNotFound)

				assert.NoError(t, store.Delete("other"), "deleting a missing key is not an error")
			})

			t.Run("invalid keys rejected", func(t *testing.T) {
				for _, key := range []string{"", "a/b", `a\b`, "a..b"} {
					assert.ErrorIs(t, store.Save(key, []byte("{}")), ErrInvalidKey, key)
					_, err := store.Load(key)
					assert.ErrorIs(t, err, ErrInvalidKey, key)
				}
			})
		})
	}
}

func TestFileStoreAtomicity(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, fs.Save(KeyGraph, []byte(`{"version":2}`)))

	t.Run("no temp files remain", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp", "temp files must be renamed or removed")
		}
	})

	t.Run("document lands as key.json", func(t *testing.T) {
		_, err := os.Stat(filepath.Join(dir, KeyGraph+".json"))
		assert.NoError(t, err)
	})
}

func TestBadgerStoreClosed(t *testing.T) {
	bs, err := NewBadgerStoreInMemory()
	require.NoError(t, err)
	require.NoError(t, bs.Close())
	assert.NoError(t, bs.Close(), "double close is safe")

	assert.ErrorIs(t, bs.Save("k", []byte("{}")), ErrStoreClosed)
	_, err = bs.Load("k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, bs.Delete("k"), ErrStoreClosed)
	_, err = bs.Keys()
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestBadgerStorePersistence(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, bs.Save(KeyVerifications, []byte(`{"records":[]}`)))
	require.NoError(t, bs.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load(KeyVerifications)
	require.NoError(t, err)
	assert.JSONEq(t, `{"records":[]}`, string(data))
}
