package knowledge

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

const (
	// ManifestFile 索引清单文件名
	ManifestFile = "index_manifest.json"
	// IndexVersion 当前索引格式版本
	IndexVersion = 1

	defaultChunksFile = "chunks.jsonl"
	defaultVectorFile = "vectors.f32"
	lockFileName      = ".index.lock"
)

// Manifest 描述索引产物及其解释方式
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	ModelID      string `json:"model_id"`
	Dim          int    `json:"dim"`
	Rows         int    `json:"rows"`
	ChunksFile   string `json:"chunks_file"`
	VectorFile   string `json:"vector_file"`
}

// LoadIndex 从目录读取清单、分块与向量，基数或大小不一致时快速失败
func LoadIndex(dir string) (*Corpus, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, apperrors.NewConfigurationError("cannot read index manifest").WithCause(err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, apperrors.NewConfigurationError("invalid index manifest").WithCause(err)
	}
	if m.IndexVersion != IndexVersion {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unsupported index version %d", m.IndexVersion))
	}
	if m.Rows > 0 && m.Dim <= 0 {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid dim in manifest: %d", m.Dim))
	}
	if m.ChunksFile == "" {
		m.ChunksFile = defaultChunksFile
	}
	if m.VectorFile == "" {
		m.VectorFile = defaultVectorFile
	}

	chunks, err := ReadChunks(filepath.Join(dir, m.ChunksFile))
	if err != nil {
		return nil, apperrors.NewConfigurationError("cannot read chunk store").WithCause(err)
	}
	if len(chunks) != m.Rows {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf(
			"chunk store has %d rows but manifest declares %d", len(chunks), m.Rows))
	}

	vectors, err := readVectors(filepath.Join(dir, m.VectorFile), len(chunks), m.Dim)
	if err != nil {
		return nil, err
	}
	return NewCorpus(m.ModelID, m.Dim, chunks, vectors)
}

// ReadChunks 读取JSONL分块文件
func ReadChunks(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open chunks file %s: %w", path, err)
	}
	defer f.Close()

	var out []Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("invalid chunks JSONL %s: %w", path, err)
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read chunks file %s: %w", path, err)
	}
	return out, nil
}

// WriteChunks 写出JSONL分块文件
func WriteChunks(path string, chunks []Chunk) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create chunks file: %w", err)
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readVectors(path string, rows, dim int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("cannot open vector file").WithCause(err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, apperrors.NewConfigurationError("cannot stat vector file").WithCause(err)
	}
	expected := int64(rows) * int64(dim) * 4
	if st.Size() != expected {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf(
			"vector file size mismatch: got %d want %d (rows=%d dim=%d)", st.Size(), expected, rows, dim))
	}

	out := make([]float32, rows*dim)
	if err := binary.Read(io.LimitReader(f, expected), binary.LittleEndian, out); err != nil {
		return nil, apperrors.NewConfigurationError("cannot read vectors").WithCause(err)
	}
	return out, nil
}

// WriteIndex 将语料写入目录
func WriteIndex(dir string, corpus *Corpus) (Manifest, error) {
	m := Manifest{
		IndexVersion: IndexVersion,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		ModelID:      corpus.ModelID(),
		Dim:          corpus.Dim(),
		Rows:         corpus.Len(),
		ChunksFile:   defaultChunksFile,
		VectorFile:   defaultVectorFile,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m, fmt.Errorf("cannot create index dir %s: %w", dir, err)
	}
	if err := WriteChunks(filepath.Join(dir, m.ChunksFile), corpus.chunks); err != nil {
		return m, err
	}

	vf, err := os.Create(filepath.Join(dir, m.VectorFile))
	if err != nil {
		return m, fmt.Errorf("cannot create vectors file: %w", err)
	}
	bw := bufio.NewWriter(vf)
	if err := binary.Write(bw, binary.LittleEndian, corpus.vectors); err != nil {
		_ = vf.Close()
		return m, fmt.Errorf("cannot write vectors: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = vf.Close()
		return m, err
	}
	if err := vf.Close(); err != nil {
		return m, err
	}

	// 清单最后写入，存在即代表产物完整
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), mb, 0o644); err != nil {
		return m, fmt.Errorf("cannot write manifest: %w", err)
	}
	return m, nil
}

// AtomicSwap 用srcDir替换destDir
func AtomicSwap(srcDir, destDir string) error {
	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return err
	}
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

// LockIndex 获取索引目录的独占锁，防止并发重建
func LockIndex(indexDir string, timeout time.Duration) (func(), error) {
	parent := filepath.Dir(filepath.Clean(indexDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, err
	}
	lockPath := filepath.Join(parent, filepath.Base(indexDir)+lockFileName)
	l := flock.New(lockPath)

	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("another index build is in progress (lock: %s)", lockPath)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
