package store

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

// Bundle artifact names inside the index directory.
const (
	ManifestFile   = "manifest.json"
	PassagesFile   = "passages.json"
	VectorsFile    = "vectors.hnsw"
	EmbeddingsFile = "embeddings.f32"
	LexicalDir     = "lexical.bleve"
)

// ManifestVersion is the current bundle format version.
const ManifestVersion = 1

// Manifest records the configuration an index bundle was built with.
// Queries against a bundle built with a different model or chunking are
// meaningless, so the manifest is checked before any artifact is trusted.
type Manifest struct {
	Version      int       `json:"version"`
	BuildID      string    `json:"build_id"`
	BuiltAt      time.Time `json:"built_at"`
	Model        string    `json:"model"`
	Dimensions   int       `json:"dimensions"`
	ChunkSize    int       `json:"chunk_size"`
	ChunkOverlap int       `json:"chunk_overlap"`
	Documents    int       `json:"documents"`
	Passages     int       `json:"passages"`
}

// Bundle is a loaded index bundle: the passage list plus the two live
// indexes. The embedding matrix stays on disk; it is an input for
// rebuilds and diagnostics, not for query serving.
type Bundle struct {
	Manifest Manifest
	Passages []Passage
	Vectors  *HNSWIndex
	Lexical  *BleveIndex
}

// Close releases both indexes.
func (b *Bundle) Close() error {
	var firstErr error
	if b.Vectors != nil {
		if err := b.Vectors.Close(); err != nil {
			firstErr = err
		}
	}
	if b.Lexical != nil {
		if err := b.Lexical.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewBuildID returns a random hex identifier for one build pass.
func NewBuildID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf[:])
}

// StagingBundle accumulates artifacts in a staging directory so a failed
// build never touches the live bundle. Commit swaps the staging directory
// into place; anything short of Commit leaves the previous bundle intact.
type StagingBundle struct {
	finalDir   string
	stagingDir string
	manifest   Manifest

	Vectors *HNSWIndex
	Lexical *BleveIndex
}

// NewStagingBundle creates a fresh staging directory next to finalDir
// with empty vector and lexical indexes inside it.
func NewStagingBundle(finalDir string, dims int, manifest Manifest) (*StagingBundle, error) {
	stagingDir := finalDir + ".staging"

	// A leftover staging dir means a previous build died mid-way.
	if err := os.RemoveAll(stagingDir); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBundleSave, "failed to clear staging directory", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBundleSave, "failed to create staging directory", err)
	}

	vectors, err := NewHNSWIndex(dims)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeBundleSave, "failed to create vector index", err)
	}

	lexical, err := NewBleveIndex(filepath.Join(stagingDir, LexicalDir))
	if err != nil {
		_ = vectors.Close()
		return nil, apperrors.New(apperrors.ErrCodeBundleSave, "failed to create lexical index", err)
	}

	return &StagingBundle{
		finalDir:   finalDir,
		stagingDir: stagingDir,
		manifest:   manifest,
		Vectors:    vectors,
		Lexical:    lexical,
	}, nil
}

// WriteMatrix writes the embedding matrix artifact (row-major float32,
// little endian, with a rows/dims header).
func (s *StagingBundle) WriteMatrix(matrix [][]float32) error {
	if err := WriteMatrix(filepath.Join(s.stagingDir, EmbeddingsFile), matrix); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to write embedding matrix", err)
	}
	return nil
}

// WritePassages writes the passage list artifact.
func (s *StagingBundle) WritePassages(passages []Passage) error {
	data, err := json.MarshalIndent(passages, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to marshal passages", err)
	}
	if err := os.WriteFile(filepath.Join(s.stagingDir, PassagesFile), data, 0o644); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to write passages", err)
	}
	return nil
}

// Commit finalizes the staging directory and swaps it into place. The
// manifest is written last, atomically: a directory without a manifest is
// never treated as a valid bundle.
func (s *StagingBundle) Commit() error {
	if err := s.Vectors.Save(filepath.Join(s.stagingDir, VectorsFile)); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to save vector index", err)
	}
	if err := s.Vectors.Close(); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to close vector index", err)
	}
	if err := s.Lexical.Close(); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to close lexical index", err)
	}

	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to marshal manifest", err)
	}
	if err := renameio.WriteFile(filepath.Join(s.stagingDir, ManifestFile), data, 0o644); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to write manifest", err)
	}

	// Swap: retire the old bundle, promote staging, then drop the old.
	oldDir := s.finalDir + ".old"
	if err := os.RemoveAll(oldDir); err != nil {
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to clear previous bundle backup", err)
	}

	hadPrevious := false
	if _, err := os.Stat(s.finalDir); err == nil {
		hadPrevious = true
		if err := os.Rename(s.finalDir, oldDir); err != nil {
			return apperrors.New(apperrors.ErrCodeBundleSave, "failed to retire previous bundle", err)
		}
	}

	if err := os.Rename(s.stagingDir, s.finalDir); err != nil {
		if hadPrevious {
			if restoreErr := os.Rename(oldDir, s.finalDir); restoreErr != nil {
				slog.Error("bundle_restore_failed",
					slog.String("dir", s.finalDir),
					slog.String("error", restoreErr.Error()))
			}
		}
		return apperrors.New(apperrors.ErrCodeBundleSave, "failed to promote staging bundle", err)
	}

	if hadPrevious {
		if err := os.RemoveAll(oldDir); err != nil {
			slog.Warn("bundle_old_cleanup_failed",
				slog.String("dir", oldDir),
				slog.String("error", err.Error()))
		}
	}

	return nil
}

// Abort discards the staging directory.
func (s *StagingBundle) Abort() {
	_ = s.Vectors.Close()
	_ = s.Lexical.Close()
	if err := os.RemoveAll(s.stagingDir); err != nil {
		slog.Warn("staging_cleanup_failed",
			slog.String("dir", s.stagingDir),
			slog.String("error", err.Error()))
	}
}

// OpenBundle loads the bundle at dir and verifies artifact consistency.
// Any missing artifact or count mismatch across artifacts fails the load;
// a partially written or hand-edited bundle must never serve queries.
func OpenBundle(dir string) (*Bundle, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	passages, err := readPassages(filepath.Join(dir, PassagesFile))
	if err != nil {
		return nil, err
	}
	if len(passages) != manifest.Passages {
		return nil, apperrors.BundleLoadError(
			fmt.Sprintf("passage count mismatch: manifest says %d, artifact has %d",
				manifest.Passages, len(passages)), nil)
	}
	for i, p := range passages {
		if p.ID != i {
			return nil, apperrors.BundleLoadError(
				fmt.Sprintf("passage list out of order: entry %d has ID %d", i, p.ID), nil)
		}
	}

	rows, dims, err := MatrixShape(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return nil, apperrors.BundleLoadError("failed to read embedding matrix", err)
	}
	if rows != len(passages) {
		return nil, apperrors.BundleLoadError(
			fmt.Sprintf("embedding matrix has %d rows for %d passages", rows, len(passages)), nil)
	}
	if dims != manifest.Dimensions {
		return nil, apperrors.BundleLoadError(
			fmt.Sprintf("embedding matrix dimension %d does not match manifest dimension %d",
				dims, manifest.Dimensions), nil)
	}

	vectors, err := NewHNSWIndex(manifest.Dimensions)
	if err != nil {
		return nil, apperrors.BundleLoadError("failed to create vector index", err)
	}
	if err := vectors.Load(filepath.Join(dir, VectorsFile)); err != nil {
		_ = vectors.Close()
		return nil, apperrors.BundleLoadError("failed to load vector index", err)
	}
	if vectors.Count() != len(passages) {
		_ = vectors.Close()
		return nil, apperrors.BundleLoadError(
			fmt.Sprintf("vector index has %d entries for %d passages", vectors.Count(), len(passages)), nil)
	}

	lexical, err := OpenBleveIndex(filepath.Join(dir, LexicalDir))
	if err != nil {
		_ = vectors.Close()
		return nil, apperrors.BundleLoadError("failed to open lexical index", err)
	}
	lexCount, err := lexical.Count()
	if err != nil {
		_ = vectors.Close()
		_ = lexical.Close()
		return nil, apperrors.BundleLoadError("failed to count lexical index", err)
	}
	if lexCount != len(passages) {
		_ = vectors.Close()
		_ = lexical.Close()
		return nil, apperrors.BundleLoadError(
			fmt.Sprintf("lexical index has %d documents for %d passages", lexCount, len(passages)), nil)
	}

	return &Bundle{
		Manifest: manifest,
		Passages: passages,
		Vectors:  vectors,
		Lexical:  lexical,
	}, nil
}

// ReadManifest reads and validates the bundle manifest at dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, apperrors.BundleLoadError(
				fmt.Sprintf("no index bundle at %s", dir), err)
		}
		return Manifest{}, apperrors.BundleLoadError("failed to read manifest", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, apperrors.BundleLoadError("manifest is not valid JSON", err)
	}
	if manifest.Version != ManifestVersion {
		return Manifest{}, apperrors.BundleLoadError(
			fmt.Sprintf("unsupported bundle version %d (want %d)", manifest.Version, ManifestVersion), nil)
	}

	return manifest, nil
}

func readPassages(path string) ([]Passage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.BundleLoadError("failed to read passages", err)
	}
	var passages []Passage
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, apperrors.BundleLoadError("passages artifact is not valid JSON", err)
	}
	return passages, nil
}

// WriteMatrix writes a row-major float32 matrix: a header of rows and
// dims as uint32 little endian, then the values.
func WriteMatrix(path string, matrix [][]float32) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	dims := 0
	if len(matrix) > 0 {
		dims = len(matrix[0])
	}

	header := [2]uint32{uint32(len(matrix)), uint32(dims)}
	if err := binary.Write(file, binary.LittleEndian, header[:]); err != nil {
		_ = file.Close()
		return err
	}

	for i, row := range matrix {
		if len(row) != dims {
			_ = file.Close()
			return fmt.Errorf("ragged matrix: row %d has %d values, want %d", i, len(row), dims)
		}
		if err := binary.Write(file, binary.LittleEndian, row); err != nil {
			_ = file.Close()
			return err
		}
	}

	return file.Close()
}

// ReadMatrix reads a matrix written by WriteMatrix.
func ReadMatrix(path string) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var header [2]uint32
	if err := binary.Read(file, binary.LittleEndian, header[:]); err != nil {
		return nil, fmt.Errorf("read matrix header: %w", err)
	}

	rows, dims := int(header[0]), int(header[1])
	matrix := make([][]float32, rows)
	for i := range matrix {
		row := make([]float32, dims)
		if err := binary.Read(file, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("read matrix row %d: %w", i, err)
		}
		matrix[i] = row
	}

	// Trailing bytes mean the header lied.
	if _, err := file.Read(make([]byte, 1)); err != io.EOF {
		return nil, fmt.Errorf("matrix file longer than header declares")
	}

	return matrix, nil
}

// MatrixShape reads only the matrix header and verifies the file size
// matches it.
func MatrixShape(path string) (rows, dims int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = file.Close() }()

	var header [2]uint32
	if err := binary.Read(file, binary.LittleEndian, header[:]); err != nil {
		return 0, 0, fmt.Errorf("read matrix header: %w", err)
	}
	rows, dims = int(header[0]), int(header[1])

	info, err := file.Stat()
	if err != nil {
		return 0, 0, err
	}
	want := int64(8) + int64(rows)*int64(dims)*4
	if info.Size() != want {
		return 0, 0, fmt.Errorf("matrix file size %d does not match declared shape %dx%d", info.Size(), rows, dims)
	}

	return rows, dims, nil
}
