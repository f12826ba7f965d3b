// Package cache stores computed type metadata identifiers on disk, keyed by
// a digest of everything the identifier depends on.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// SchemaVersion is bumped whenever Entry or the encoder output changes.
const SchemaVersion uint16 = 2

// Digest is a SHA-256 cache key.
type Digest [32]byte

// String returns the hex form of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports an unset digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Sum hashes raw content.
func Sum(content []byte) Digest {
	return sha256.Sum256(content)
}

// Combine returns H(base || parts...); parts must come in a deterministic order.
func Combine(base Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(base[:])
	for _, p := range parts {
		_, _ = h.Write(p[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Key derives the cache key of one call from the manifest digest and the
// strings that select its identifier.
func Key(manifest Digest, parts ...string) Digest {
	ds := make([]Digest, 0, len(parts)+1)
	ds = append(ds, Digest{0: byte(SchemaVersion >> 8), 1: byte(SchemaVersion)})
	for _, p := range parts {
		ds = append(ds, Sum([]byte(p)))
	}
	return Combine(manifest, ds...)
}

// Entry is one cached identifier together with the diagnostics its
// computation reported, so that a hit can report them again.
type Entry struct {
	Schema      uint16
	Call        string
	Kind        string
	Target      string
	Options     uint32
	ID          string
	Diagnostics []Diagnostic
	Created     int64 // unix seconds
}

// Diagnostic is a reported diagnostic in cache form.
type Diagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	Primary  Span
	Notes    []Note
}

// Note is a diagnostic note in cache form.
type Note struct {
	Span Span
	Msg  string
}

// Span locates a diagnostic in the manifest file the entry was computed from.
type Span struct {
	File  uint32
	Start uint32
	End   uint32
}

// ErrCorrupt reports an entry that cannot be decoded.
var ErrCorrupt = errors.New("corrupt cache entry")

// Cache is a directory of zstd-compressed msgpack entries. It is safe for
// concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open uses dir, creating it when missing.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Cache{dir: dir, enc: enc, dec: dec}, nil
}

// OpenDefault opens the cache of app under $XDG_CACHE_HOME or ~/.cache.
func OpenDefault(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Close releases the codec resources.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.dec.Close()
	return c.enc.Close()
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "ids", hexKey[:2], hexKey+".mpz")
}

// Put writes e under key, replacing any previous entry atomically.
func (c *Cache) Put(key Digest, e *Entry) (err error) {
	if c == nil {
		return nil
	}
	e.Schema = SchemaVersion
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	payload := c.enc.EncodeAll(raw, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the entry under key into out. Missing entries and entries of an
// older schema are misses.
func (c *Cache) Get(key Digest, out *Entry) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	payload, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrCorrupt, key, err)
	}
	var e Entry
	if err := msgpack.NewDecoder(bytes.NewReader(raw)).Decode(&e); err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrCorrupt, key, err)
	}
	if e.Schema != SchemaVersion {
		return false, nil
	}
	*out = e
	return true, nil
}

// DropAll removes every entry.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
