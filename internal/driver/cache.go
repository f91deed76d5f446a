package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"keel/internal/project"
	"keel/internal/sema"
	"keel/internal/source"
	"keel/internal/version"
)

// cacheSchema changes whenever the encoding of a cached body changes.
const cacheSchema uint16 = 1

// DiskCache stores inferred bodies by content key. Entries are written to
// a temporary file and renamed into place, so readers never see a partial
// entry. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

type cacheEntry struct {
	Schema  uint16           `msgpack:"schema"`
	Version string           `msgpack:"version"`
	Body    *sema.BodyResult `msgpack:"body"`
}

// OpenDiskCache opens the cache under $XDG_CACHE_HOME/app (or
// ~/.cache/app), creating it if needed.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache directory: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache opens the cache rooted at dir.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	hex := key.String()
	return filepath.Join(c.dir, "bodies", hex[:2], hex+".mp")
}

// Put writes body under key.
func (c *DiskCache) Put(key project.Digest, body *sema.BodyResult) (err error) {
	if c == nil {
		return nil
	}
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
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	entry := cacheEntry{Schema: cacheSchema, Version: version.Version, Body: body}
	if err := msgpack.NewEncoder(f).Encode(&entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the body stored under key. Entries written by another schema
// or version count as misses.
func (c *DiskCache) Get(key project.Digest) (*sema.BodyResult, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry cacheEntry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Schema != cacheSchema || entry.Version != version.Version || entry.Body == nil {
		return nil, false, nil
	}
	return entry.Body, true, nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "bodies"))
}

// bodyKeys derives one cache key per body. Expression ids and spans are
// assigned over the whole unit, so the key covers the full source, the
// frozen registry and the options that change inference output.
func bodyKeys(res *Result, opts Options) []project.Digest {
	unitHash := project.NewHasher()
	for id := 0; id < res.FileSet.Len(); id++ {
		if f := res.FileSet.Get(source.FileID(id)); f != nil {
			unitHash.String(f.Path).Bytes(f.Content)
		}
	}
	for _, name := range opts.Local {
		unitHash.String(name)
	}
	reg := res.Registry.Hash()
	base := project.NewHasher().
		Uint64(uint64(cacheSchema)).
		String(version.Version).
		Digest(unitHash.Sum()).
		Digest(project.Digest(reg)).
		Uint64(uint64(opts.MaxDepth)).
		Uint64(uint64(opts.Mode)).
		Uint64(uint64(opts.MaxDiagnostics)).
		Sum()

	bodies := res.Globals.Bodies()
	keys := make([]project.Digest, len(bodies))
	for i := range bodies {
		keys[i] = project.NewHasher().
			Digest(base).
			Uint64(uint64(bodies[i].Decl)).
			String(bodies[i].Name).
			Sum()
	}
	return keys
}
