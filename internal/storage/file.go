package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// File persists each key as <dir>/<slug>.json. Writes go to a temp file and
// are renamed into place under an advisory lock on <file>.lock.
type File struct {
	dir string
	log *zap.Logger
}

func NewFile(dir string, log *zap.Logger) (*File, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &File{dir: dir, log: log.Named("file")}, nil
}

// PathFor returns the file a key is stored in.
func (f *File) PathFor(key string) string {
	return filepath.Join(f.dir, fileSlug(key)+".json")
}

func (f *File) Load(ctx context.Context, key string) (string, bool, error) {
	p := f.PathFor(key)
	lk := flock.New(p + ".lock")
	locked, err := lk.TryRLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return "", false, fmt.Errorf("lock %s: %w", p, err)
	}
	if locked {
		defer lk.Unlock()
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (f *File) Save(ctx context.Context, key, payload string) error {
	p := f.PathFor(key)
	lk := flock.New(p + ".lock")
	if _, err := lk.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("lock %s: %w", p, err)
	}
	defer lk.Unlock()

	tmp, err := os.CreateTemp(f.dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	f.log.Debug("saved", zap.String("path", p), zap.Int("bytes", len(payload)))
	return nil
}

func (f *File) Close() error { return nil }

// fileSlug keeps [a-z0-9-_.] and maps everything else to '-'.
func fileSlug(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	r := make([]rune, 0, len(key))
	for _, ch := range key {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' {
			r = append(r, ch)
		} else {
			r = append(r, '-')
		}
	}
	out := strings.Trim(string(r), "-.")
	if out == "" {
		out = "state"
	}
	return out
}
