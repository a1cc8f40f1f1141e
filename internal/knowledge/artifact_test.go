package knowledge

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

func writeTestIndex(t *testing.T) (string, *Corpus) {
	t.Helper()
	corpus, err := NewCorpusFromRows("text-embedding-3-small", testChunks("https://a", "https://b"), [][]float32{
		{1, 0, 0.5},
		{0, 1, -0.5},
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "index")
	m, err := WriteIndex(dir, corpus)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Dim)
	return dir, corpus
}

func TestLoadIndex_HappyPath(t *testing.T) {
	dir, want := writeTestIndex(t)

	got, err := LoadIndex(dir)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", got.ModelID())
	assert.Equal(t, want.Len(), got.Len())
	assert.Equal(t, want.Dim(), got.Dim())
	assert.Equal(t, want.Chunks(), got.Chunks())
	assert.Equal(t, want.Vectors(), got.Vectors())
}

func TestLoadIndex_MissingManifest(t *testing.T) {
	_, err := LoadIndex(t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestLoadIndex_ExtraChunkRow(t *testing.T) {
	dir, corpus := writeTestIndex(t)

	chunks := append(corpus.Chunks(), Chunk{Text: "orphan", SourceURL: "https://c"})
	require.NoError(t, WriteChunks(filepath.Join(dir, defaultChunksFile), chunks))

	_, err := LoadIndex(dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestLoadIndex_TruncatedVectors(t *testing.T) {
	dir, _ := writeTestIndex(t)

	f, err := os.Create(filepath.Join(dir, defaultVectorFile))
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, []float32{1, 0, 0.5}))
	require.NoError(t, f.Close())

	_, err = LoadIndex(dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "vector file size mismatch")
}

func TestLoadIndex_UnsupportedVersion(t *testing.T) {
	dir, _ := writeTestIndex(t)

	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(b, &m))
	m.IndexVersion = 99
	b, err = json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), b, 0o644))

	_, err = LoadIndex(dir)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestWriteIndex_EmptyCorpus(t *testing.T) {
	corpus, err := NewCorpus("m", 0, nil, nil)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "index")

	_, err = WriteIndex(dir, corpus)
	require.NoError(t, err)

	loaded, err := LoadIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestAtomicSwap(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "index")
	staging := filepath.Join(root, "staging")

	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "old"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(staging, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staging, "new"), []byte("new"), 0o644))

	require.NoError(t, AtomicSwap(staging, dest))

	_, err := os.Stat(filepath.Join(dest, "new"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(staging)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dest + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestLockIndex_Exclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")

	unlock, err := LockIndex(dir, time.Second)
	require.NoError(t, err)

	_, err = LockIndex(dir, 300*time.Millisecond)
	assert.Error(t, err)

	unlock()
	unlock2, err := LockIndex(dir, time.Second)
	require.NoError(t, err)
	unlock2()
}
