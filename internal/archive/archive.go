// Package archive exports the state blob into a zip with a manifest and
// reads it back.
package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"today-todo/internal/todo"
	"today-todo/internal/version"
)

const (
	ManifestName = "today-todo-manifest.json"
	StateName    = "state.json"
	// ManifestVersion is bumped when the archive layout changes.
	ManifestVersion = 1
)

type Manifest struct {
	Version    int       `json:"version"`
	ExportID   string    `json:"exportId"`
	ExportedAt time.Time `json:"exportedAt"`
	Generator  string    `json:"generator"`
	Todos      int       `json:"todos"`
	Completed  int       `json:"completed"`
	Tags       int       `json:"tags"`
}

// Export writes payload (a serialized todo.Payload) to zipPath.
func Export(payload, zipPath string) (Manifest, error) {
	p := todo.Decode(payload)
	m := Manifest{
		Version:    ManifestVersion,
		ExportID:   uuid.NewString(),
		ExportedAt: time.Now().UTC(),
		Generator:  version.Full(),
		Todos:      len(p.Todos),
		Completed:  len(p.CompletedTodos),
		Tags:       len(p.Tags),
	}
	dir := filepath.Dir(zipPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m, err
	}
	// written beside the target, renamed into place once complete
	f, err := os.CreateTemp(dir, "."+filepath.Base(zipPath)+".tmp-*")
	if err != nil {
		return m, err
	}
	tmp := f.Name()
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(tmp)
		return m, err
	}
	if err := writeArchive(f, m, payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return m, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return m, err
	}
	if err := os.Rename(tmp, zipPath); err != nil {
		os.Remove(tmp)
		return m, fmt.Errorf("move export into place: %w", err)
	}
	return m, nil
}

func writeArchive(w io.Writer, m Manifest, payload string) error {
	zw := zip.NewWriter(w)
	if err := writeJSON(zw, ManifestName, m); err != nil {
		zw.Close()
		return err
	}
	sw, err := zw.Create(StateName)
	if err != nil {
		zw.Close()
		return err
	}
	if _, err := io.WriteString(sw, payload); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Import reads the manifest and the raw state payload from zipPath.
func Import(zipPath string) (Manifest, string, error) {
	var m Manifest
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return m, "", err
	}
	defer r.Close()

	var (
		hasManifest bool
		payload     string
		hasState    bool
	)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch {
		case strings.EqualFold(filepath.Base(f.Name), ManifestName):
			b, err := readAll(f)
			if err != nil {
				return m, "", err
			}
			if err := json.Unmarshal(b, &m); err != nil {
				return m, "", fmt.Errorf("invalid manifest in %s: %w", zipPath, err)
			}
			hasManifest = true
		case strings.EqualFold(filepath.Base(f.Name), StateName):
			b, err := readAll(f)
			if err != nil {
				return m, "", err
			}
			payload, hasState = string(b), true
		}
	}
	if !hasManifest {
		return m, "", fmt.Errorf("manifest missing in %s", zipPath)
	}
	if !hasState {
		return m, "", fmt.Errorf("%s missing in %s", StateName, zipPath)
	}
	if m.Version > ManifestVersion {
		return m, "", fmt.Errorf("archive version %d is newer than supported %d", m.Version, ManifestVersion)
	}
	return m, payload, nil
}

// DefaultName builds a timestamped archive file name.
func DefaultName(t time.Time) string {
	return fmt.Sprintf("%s-%s.zip", version.Name, t.Format("20060102-150405"))
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
