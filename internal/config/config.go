package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store kinds understood by the storage layer.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// DefaultKey is the single key the whole state blob is saved under.
const DefaultKey = "today-todo@todos"

type Config struct {
	Store      string `json:"store" yaml:"store"`           // sqlite | file | memory
	DataDir    string `json:"dataDir" yaml:"dataDir"`       // where the db / json files live
	Key        string `json:"key" yaml:"key"`               // storage key for the state blob
	HooksDir   string `json:"hooksDir" yaml:"hooksDir"`     // directory of *.js hook files
	ExportDir  string `json:"exportDir" yaml:"exportDir"`   // default destination for exports and dumps
	LogFile    string `json:"logFile" yaml:"logFile"`       // empty disables logging
	TimeFormat string `json:"timeFormat" yaml:"timeFormat"` // Go layout for completion timestamps
	Debug      bool   `json:"debug" yaml:"debug"`
}

func Default() Config {
	base := filepath.Join(UserHome(), ".config", "today-todo")
	return Config{
		Store:    StoreSQLite,
		DataDir:  base,
		Key:      DefaultKey,
		HooksDir: filepath.Join(base, "hooks"),
		// CWD by default; app will fallback to "." when empty
		ExportDir:  "",
		LogFile:    filepath.Join(base, "today-todo.log"),
		TimeFormat: "2006/1/2 15:04:05",
		Debug:      false,
	}
}

// DefaultPath is the config file consulted when --config is not given.
func DefaultPath() string {
	return filepath.Join(UserHome(), ".config", "today-todo.json")
}

// Load reads path into out. Files ending in .yaml/.yml are decoded as YAML,
// everything else as JSON. Empty fields keep the values already in out.
func Load(path string, out *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c Config
	if isYAML(path) {
		err = yaml.Unmarshal(b, &c)
	} else {
		err = json.Unmarshal(b, &c)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Store == "" {
		c.Store = out.Store
	}
	if c.DataDir == "" {
		c.DataDir = out.DataDir
	}
	if c.Key == "" {
		c.Key = out.Key
	}
	if c.HooksDir == "" {
		c.HooksDir = out.HooksDir
	}
	if c.LogFile == "" {
		c.LogFile = out.LogFile
	}
	if c.ExportDir == "" {
		c.ExportDir = out.ExportDir
	}
	if c.TimeFormat == "" {
		c.TimeFormat = out.TimeFormat
	}
	c.Debug = c.Debug || out.Debug
	*out = c
	return nil
}

func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(c)
	} else {
		b, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate rejects store kinds the storage layer cannot open.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile:
		if c.DataDir == "" {
			return fmt.Errorf("store %q requires dataDir", c.Store)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want sqlite, file or memory)", c.Store)
	}
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("empty storage key")
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func UserHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	if runtime.GOOS == "windows" {
		if h := os.Getenv("USERPROFILE"); h != "" {
			return h
		}
	}
	return "."
}

func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}
