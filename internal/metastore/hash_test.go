package metastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytesStable(t *testing.T) {
	content := []byte("Dear diary, nothing happened today.")

	h1 := HashBytes(content)
	h2 := HashBytes(content)
	assert.Equal(t, h1, h2, "hashing must be deterministic")
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, HashBytes([]byte("Dear diary, everything happened today.")))
}

func TestHashBytesKnownValue(t *testing.T) {
	// sha256 of the empty input.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashBytes(nil))
}

func TestHashFileMatchesHashBytes(t *testing.T) {
	content := []byte("same bytes either way")

	path := filepath.Join(t.TempDir(), "entry.txt")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fileHash, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes(content), fileHash)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}
