// Package store implements the catalog on top of Pebble. The catalog maps
// a normalized message key to exactly one entry and enforces key
// uniqueness on insert. A Catalog is an explicit handle with its own
// lifecycle; callers inject it wherever catalog access is needed.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"parrotdb/pkg/cerr"
	"parrotdb/pkg/logger"
	"parrotdb/pkg/models"
	"parrotdb/pkg/telemetry"
)

const (
	entryPrefix = "entry:"
	seqPrefix   = "seq:"
)

// Catalog is an opened catalog database.
type Catalog struct {
	db   *pebble.DB
	path string
	seq  uint64
	// keyLocks serialize read-modify-write cycles per message key so
	// concurrent teach calls on the same message do not lose updates.
	keyLocks [64]sync.Mutex
}

// Open opens (or creates) the catalog at path with the engine's default
// block cache.
func Open(path string) (*Catalog, error) { return OpenWithCache(path, 0) }

// OpenWithCache opens the catalog with a block cache of cacheBytes (zero
// keeps the engine default) and restores the insertion sequence counter
// from the highest existing index key.
func OpenWithCache(path string, cacheBytes int64) (*Catalog, error) {
	logger.Info("opening_catalog", zap.String("path", path))
	opts := &pebble.Options{}
	if cacheBytes > 0 {
		cache := pebble.NewCache(cacheBytes)
		defer cache.Unref()
		opts.Cache = cache
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		logger.Error("catalog_open_failed", zap.String("path", path), zap.Error(err))
		telemetry.StoreErrorsTotal.WithLabelValues(string(cerr.ConnFailed)).Inc()
		return nil, cerr.Wrap(cerr.ConnFailed, err, "open catalog")
	}
	c := &Catalog{db: db, path: path}
	if err := c.restoreSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("catalog_opened", zap.String("path", path), zap.Uint64("seq", c.seq))
	return c, nil
}

// OpenWithRetry retries Open with doubling backoff. Retrying applies only
// to connection establishment; individual operations are never retried.
func OpenWithRetry(path string, retries int, backoff time.Duration, cacheBytes int64) (*Catalog, error) {
	if retries < 1 {
		retries = 1
	}
	var last error
	for i := 0; i < retries; i++ {
		c, err := OpenWithCache(path, cacheBytes)
		if err == nil {
			return c, nil
		}
		last = err
		if i < retries-1 {
			logger.Warn("catalog_open_retry",
				zap.Int("attempt", i+1), zap.Duration("backoff", backoff), zap.Error(err))
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return nil, last
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	logger.Info("catalog_closed", zap.String("path", c.path))
	return err
}

// Ready reports whether the catalog is open.
func (c *Catalog) Ready() bool { return c != nil && c.db != nil }

// LockKey acquires the stripe lock for a message key and returns the
// unlock function. Hold it across any read-modify-write on that key.
func (c *Catalog) LockKey(key string) func() {
	mu := &c.keyLocks[c.stripeFor(key)]
	mu.Lock()
	return mu.Unlock
}

// LockPair acquires the stripe locks covering two keys and returns the
// unlock function. Distinct keys can land on the same stripe, so the
// decision to take one lock or two must compare stripes, never keys;
// stripes are locked in index order to keep pair acquisitions
// deadlock-free against each other.
func (c *Catalog) LockPair(k1, k2 string) func() {
	s1, s2 := c.stripeFor(k1), c.stripeFor(k2)
	if s1 == s2 {
		mu := &c.keyLocks[s1]
		mu.Lock()
		return mu.Unlock
	}
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	lo, hi := &c.keyLocks[s1], &c.keyLocks[s2]
	lo.Lock()
	hi.Lock()
	return func() {
		hi.Unlock()
		lo.Unlock()
	}
}

func (c *Catalog) stripeFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numKeyLocks
}

const numKeyLocks = uint32(64)

func entryKey(msg string) []byte { return []byte(entryPrefix + msg) }

func seqKey(n uint64) []byte { return []byte(fmt.Sprintf("%s%020d", seqPrefix, n)) }

func (c *Catalog) restoreSeq() error {
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return cerr.Wrap(cerr.ConnFailed, err, "restore sequence")
	}
	defer iter.Close()
	var max uint64
	pfx := []byte(seqPrefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		var n uint64
		if _, err := fmt.Sscanf(string(iter.Key()[len(seqPrefix):]), "%d", &n); err == nil && n > max {
			max = n
		}
	}
	c.seq = max
	return iter.Error()
}

// Get returns the entry stored under key or a NotFound error.
func (c *Catalog) Get(ctx context.Context, key string) (*models.Entry, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	v, closer, err := c.db.Get(entryKey(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, cerr.New(cerr.NotFound, "no entry for %q", key)
		}
		return nil, cerr.Wrap(cerr.QueryFailed, err, "get entry")
	}
	defer closer.Close()
	var e models.Entry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, cerr.Wrap(cerr.QueryFailed, err, "decode entry")
	}
	return &e, nil
}

// Scan returns all entries in insertion order. Scans run concurrently
// with writes; a scan may miss an entry written after it started.
func (c *Catalog) Scan(ctx context.Context) ([]models.Entry, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, cerr.Wrap(cerr.QueryFailed, err, "scan")
	}
	defer iter.Close()
	var out []models.Entry
	pfx := []byte(seqPrefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, cerr.Wrap(cerr.Timeout, err, "scan canceled")
		}
		msg := string(iter.Value())
		v, closer, gerr := c.db.Get(entryKey(msg))
		if gerr != nil {
			// dangling index entry; a delete raced the scan
			continue
		}
		var e models.Entry
		uerr := json.Unmarshal(v, &e)
		_ = closer.Close()
		if uerr != nil {
			continue
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// Insert writes a new entry and fails with DuplicateEntry when the key
// already exists. The entry's Seq is assigned here.
func (c *Catalog) Insert(ctx context.Context, e *models.Entry) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if _, closer, err := c.db.Get(entryKey(e.Message)); err == nil {
		_ = closer.Close()
		return cerr.New(cerr.Duplicate, "entry %q already exists", e.Message)
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return cerr.Wrap(cerr.QueryFailed, err, "insert precheck")
	}
	e.Seq = atomic.AddUint64(&c.seq, 1)
	b, err := json.Marshal(e)
	if err != nil {
		return cerr.Wrap(cerr.QueryFailed, err, "encode entry")
	}
	batch := c.db.NewBatch()
	defer batch.Close()
	_ = batch.Set(entryKey(e.Message), b, nil)
	_ = batch.Set(seqKey(e.Seq), []byte(e.Message), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("insert_failed", zap.String("message", e.Message), zap.Error(err))
		telemetry.StoreErrorsTotal.WithLabelValues(string(cerr.QueryFailed)).Inc()
		return cerr.Wrap(cerr.QueryFailed, err, "insert entry")
	}
	logger.Debug("entry_inserted", zap.String("message", e.Message), zap.Uint64("seq", e.Seq))
	return nil
}

// Update overwrites the entry under key, failing with NotFound when the
// key is absent. The entry's Message and Seq must already be consistent.
func (c *Catalog) Update(ctx context.Context, key string, e *models.Entry) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if _, closer, err := c.db.Get(entryKey(key)); err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return cerr.New(cerr.NotFound, "no entry for %q", key)
		}
		return cerr.Wrap(cerr.QueryFailed, err, "update precheck")
	} else {
		_ = closer.Close()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return cerr.Wrap(cerr.QueryFailed, err, "encode entry")
	}
	if err := c.db.Set(entryKey(key), b, pebble.Sync); err != nil {
		logger.Error("update_failed", zap.String("message", key), zap.Error(err))
		telemetry.StoreErrorsTotal.WithLabelValues(string(cerr.QueryFailed)).Inc()
		return cerr.Wrap(cerr.QueryFailed, err, "update entry")
	}
	return nil
}

// Delete removes the entry under key and its index record, returning the
// number of entries removed (0 or 1).
func (c *Catalog) Delete(ctx context.Context, key string) (int, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	e, err := c.Get(ctx, key)
	if err != nil {
		if cerr.Is(err, cerr.NotFound) {
			return 0, nil
		}
		return 0, err
	}
	batch := c.db.NewBatch()
	defer batch.Close()
	_ = batch.Delete(entryKey(key), nil)
	_ = batch.Delete(seqKey(e.Seq), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("delete_failed", zap.String("message", key), zap.Error(err))
		telemetry.StoreErrorsTotal.WithLabelValues(string(cerr.QueryFailed)).Inc()
		return 0, cerr.Wrap(cerr.QueryFailed, err, "delete entry")
	}
	logger.Debug("entry_deleted", zap.String("message", key))
	return 1, nil
}

// Rename moves the entry under old to the key new, preserving Seq so the
// entry keeps its scan position. Fails with NotFound when old is absent
// and DuplicateEntry when new already exists; on failure nothing changes.
func (c *Catalog) Rename(ctx context.Context, old, new string, now time.Time) (*models.Entry, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	if _, closer, err := c.db.Get(entryKey(new)); err == nil {
		_ = closer.Close()
		return nil, cerr.New(cerr.Duplicate, "entry %q already exists", new)
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return nil, cerr.Wrap(cerr.QueryFailed, err, "rename precheck")
	}
	e, err := c.Get(ctx, old)
	if err != nil {
		return nil, err
	}
	e.Message = new
	e.UpdatedAt = now
	b, err := json.Marshal(e)
	if err != nil {
		return nil, cerr.Wrap(cerr.QueryFailed, err, "encode entry")
	}
	batch := c.db.NewBatch()
	defer batch.Close()
	_ = batch.Delete(entryKey(old), nil)
	_ = batch.Set(entryKey(new), b, nil)
	_ = batch.Set(seqKey(e.Seq), []byte(new), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("rename_failed", zap.String("from", old), zap.String("to", new), zap.Error(err))
		telemetry.StoreErrorsTotal.WithLabelValues(string(cerr.QueryFailed)).Inc()
		return nil, cerr.Wrap(cerr.QueryFailed, err, "rename entry")
	}
	logger.Info("entry_renamed", zap.String("from", old), zap.String("to", new))
	return e, nil
}

// Count returns the number of entries in the catalog.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	if err := c.check(ctx); err != nil {
		return 0, err
	}
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, cerr.Wrap(cerr.QueryFailed, err, "count")
	}
	defer iter.Close()
	n := 0
	pfx := []byte(entryPrefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		n++
	}
	return n, iter.Error()
}

// ClearAll removes every entry and index record, returning how many
// entries were removed. Admin use only.
func (c *Catalog) ClearAll(ctx context.Context) (int, error) {
	entries, err := c.Scan(ctx)
	if err != nil {
		return 0, err
	}
	batch := c.db.NewBatch()
	defer batch.Close()
	for _, e := range entries {
		_ = batch.Delete(entryKey(e.Message), nil)
		_ = batch.Delete(seqKey(e.Seq), nil)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, cerr.Wrap(cerr.QueryFailed, err, "clear catalog")
	}
	logger.Warn("catalog_cleared", zap.Int("removed", len(entries)))
	return len(entries), nil
}

func (c *Catalog) check(ctx context.Context) error {
	if c == nil || c.db == nil {
		return cerr.New(cerr.ConnFailed, "catalog not opened; call store.Open first")
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return cerr.Wrap(cerr.Timeout, err, "operation deadline exceeded")
		}
		return cerr.Wrap(cerr.QueryFailed, err, "operation canceled")
	}
	return nil
}
