// Package cache stores decoded source on disk so a file whose bytes have
// not changed is not rewritten again.
//
// Entries are keyed by the codec name and the raw bytes only. The
// rewriter's own code is not part of the key: after changing a rewriter,
// stale output keeps being served until the cache is cleaned.
package cache

import (
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultMaxBytes caps the total size of the cache directory.
const DefaultMaxBytes = 256 * 1024 * 1024

// Store is a directory of gzip-compressed entries.
type Store struct {
	Dir      string
	MaxBytes int64
}

// DefaultDir returns $IMPORTTHAT_CACHE_DIR, or ~/.cache/importthat/decoded.
func DefaultDir() (string, error) {
	if dir := os.Getenv("IMPORTTHAT_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "importthat", "decoded"), nil
}

// Open returns a Store in DefaultDir with the default size cap.
func Open() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return &Store{Dir: dir, MaxBytes: DefaultMaxBytes}, nil
}

// Key returns a hex hash key for raw source decoded by the named codec.
func Key(codecName string, raw []byte) string {
	h := sha256.New()
	h.Write([]byte(codecName))
	h.Write([]byte{0}) // separator
	h.Write(raw)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func (s *Store) path(key string) string {
	return filepath.Join(s.Dir, key+".gz")
}

// Lookup returns the cached text for key. A hit touches the entry to
// update its LRU timestamp.
func (s *Store) Lookup(key string) (string, bool) {
	cached := s.path(key)
	f, err := os.Open(cached)
	if err != nil {
		return "", false
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return "", false
	}
	defer gr.Close()
	data, err := io.ReadAll(gr)
	if err != nil {
		return "", false
	}
	now := time.Now()
	os.Chtimes(cached, now, now)
	return string(data), true
}

// Put compresses and stores text under key, then runs LRU eviction if
// the cache exceeds its size cap.
func (s *Store) Put(key, text string) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	gw, err := gzip.NewWriterLevel(tmp, gzip.BestSpeed)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := io.WriteString(gw, text); err != nil {
		gw.Close()
		tmp.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return err
	}
	s.evict()
	return nil
}

// Clean removes every entry and reports how many there were.
func (s *Store) Clean() (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gz") {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// evict removes the oldest entries until the cache is under the size cap.
func (s *Store) evict() {
	if s.MaxBytes <= 0 {
		return
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return
	}

	type entry struct {
		path    string
		size    int64
		modTime time.Time
	}

	var files []entry
	var totalSize int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".gz") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, entry{path: filepath.Join(s.Dir, e.Name()), size: info.Size(), modTime: info.ModTime()})
		totalSize += info.Size()
	}

	if totalSize <= s.MaxBytes {
		return
	}

	// Sort oldest first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if totalSize <= s.MaxBytes {
			break
		}
		os.Remove(f.path)
		totalSize -= f.size
	}
}
