package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-scripts/dfscrawl/internal/types"
)

// MetadataFile is the file name written inside every node directory.
const MetadataFile = "metadata.json"

// FileWriter persists article records as one JSON file per directory.
type FileWriter struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// New creates a new FileWriter instance
func New() *FileWriter {
	return &FileWriter{dirPerm: 0o755, filePerm: 0o644}
}

// Save writes record to dir/metadata.json, creating dir and its parents.
// An existing file is replaced as a whole; readers never observe a partial
// write. Errors are returned, not logged.
func (w *FileWriter) Save(dir string, record types.ArticleRecord) (string, error) {
	if err := os.MkdirAll(dir, w.dirPerm); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := Encode(record)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, MetadataFile)
	if err := w.replace(dir, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads back the record stored in dir.
func (w *FileWriter) Load(dir string) (types.ArticleRecord, error) {
	var record types.ArticleRecord

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return record, fmt.Errorf("failed to read record: %w", err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to decode record: %w", err)
	}
	return record, nil
}

// Encode renders record as two-space indented JSON without HTML escaping.
func Encode(record types.ArticleRecord) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// replace writes data to a temp file in dir and renames it over path.
func (w *FileWriter) replace(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, w.filePerm); err != nil {
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	committed = true
	return nil
}
