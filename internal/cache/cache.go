// Package cache persists whole analysis results keyed by a hash of the run
// inputs, so an unchanged input set skips every phase on repeat invocation.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/agusespa/upgradescope/internal/types"
)

const driverName = "sqlite"

// ErrMiss is returned by Get when no entry exists for a key.
var ErrMiss = errors.New("cache miss")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  key        TEXT PRIMARY KEY,
  run_id     TEXT NOT NULL,
  value      BLOB NOT NULL,
  created_at TEXT NOT NULL
)`

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex

	enc *zstd.Encoder
	dec *zstd.Decoder
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("cache path %q is a directory, expected file", cleanPath)
	}
	if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite cache %q: %w", cleanPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema %q: %w", cleanPath, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Store{path: cleanPath, db: db, enc: enc, dec: dec}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Get returns the cached result for key or ErrMiss.
func (s *Store) Get(key string) (*types.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blob []byte
	err := s.db.QueryRow(`SELECT value FROM runs WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress cache entry: %w", err)
	}
	var result types.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	result.FromCache = true
	return &result, nil
}

// Put stores result under key, replacing any previous entry.
func (s *Store) Put(key string, result *types.Result) error {
	if result == nil {
		return fmt.Errorf("cannot cache a nil result")
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := s.enc.EncodeAll(raw, nil)
	_, err = s.db.Exec(`
INSERT INTO runs (key, run_id, value, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  run_id=excluded.run_id,
  value=excluded.value,
  created_at=excluded.created_at`,
		key, result.RunID, blob, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Key hashes the run inputs. Order within each group does not matter.
func Key(inputs, excludes, flags []string) string {
	h := sha256.New()
	for _, group := range [][]string{inputs, excludes, flags} {
		sorted := append([]string(nil), group...)
		sort.Strings(sorted)
		for _, s := range sorted {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
