package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite keeps each payload as one row of ItemTable(key, value).
type SQLite struct {
	path string
	db   *sql.DB
	log  *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS ItemTable (key TEXT PRIMARY KEY, value BLOB)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLite{path: path, db: db, log: log.Named("sqlite")}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Load(ctx context.Context, key string) (string, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM ItemTable WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.log.Debug("loaded", zap.String("key", key), zap.Int("bytes", len(raw)))
	return string(raw), true, nil
}

func (s *SQLite) Save(ctx context.Context, key, payload string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "INSERT INTO ItemTable(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value", key, []byte(payload)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("saved", zap.String("key", key), zap.Int("bytes", len(payload)))
	return nil
}

func (s *SQLite) Close() error {
	// Ensure WAL is checkpointed so changes persist to main db file
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// BackupInfo describes a found backup file for the database.
type BackupInfo struct {
	Path    string
	Suffix  string
	ModTime time.Time
	Size    int64
}

// BackupSuffix formats t the way backup file names carry it.
func BackupSuffix(t time.Time) string { return t.Format("20060102-150405") }

// Backup checkpoints the WAL and copies the database to <db>.bak-<suffix>.
func (s *SQLite) Backup(suffix string) (string, error) {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	bak := s.path + ".bak-" + suffix
	if err := copyFile(s.path, bak); err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	s.log.Info("backup written", zap.String("path", bak))
	return bak, nil
}

// ListBackups returns all <db>.bak-* backups sorted by ModTime desc.
func (s *SQLite) ListBackups() ([]BackupInfo, string, error) {
	dir := filepath.Dir(s.path)
	prefix := filepath.Base(s.path) + ".bak-"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", err
	}
	var out []BackupInfo
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Path:    filepath.Join(dir, name),
			Suffix:  strings.TrimPrefix(name, prefix),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, dir, nil
}

// ReadBackup loads key from the backup carrying suffix. The backup is read
// through a scratch copy so it is never modified.
func (s *SQLite) ReadBackup(ctx context.Context, suffix, key string) (string, bool, error) {
	tmpDir, err := os.MkdirTemp("", "today-todo-backup-*")
	if err != nil {
		return "", false, err
	}
	defer os.RemoveAll(tmpDir)
	scratch := filepath.Join(tmpDir, filepath.Base(s.path))
	if err := copyFile(s.path+".bak-"+suffix, scratch); err != nil {
		return "", false, fmt.Errorf("read backup %s: %w", suffix, err)
	}
	db, err := openDB(scratch)
	if err != nil {
		return "", false, err
	}
	b := &SQLite{path: scratch, db: db, log: s.log}
	defer b.Close()
	return b.Load(ctx, key)
}

// Restore replaces the database with the backup carrying suffix. The
// connection is reopened on the restored file.
func (s *SQLite) Restore(suffix string) error {
	src := s.path + ".bak-" + suffix
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("backup not found: %s", src)
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := s.db.Close(); err != nil {
		return err
	}
	copyErr := copyFile(src, s.path)
	if copyErr == nil {
		// stale WAL/SHM would be replayed over the restored file
		_ = os.Remove(s.path + "-wal")
		_ = os.Remove(s.path + "-shm")
	}
	// reopen either way so the store keeps working on the old file
	db, err := openDB(s.path)
	if err != nil {
		return errors.Join(copyErr, err)
	}
	s.db = db
	if copyErr != nil {
		s.log.Warn("restore failed, kept current database", zap.String("suffix", suffix), zap.Error(copyErr))
		return fmt.Errorf("restore: %w", copyErr)
	}
	s.log.Info("restored", zap.String("suffix", suffix))
	return nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one connection: pragmas are per-connection and writes are serialized anyway
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA busy_timeout=5000")
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	return db, nil
}

func copyFile(src, dst string) error {
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp-" + BackupSuffix(time.Now())
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
