// Package dedupe remembers recent import submissions so that a byte-identical
// upload by the same user is not processed twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"

	"github.com/google/uuid"
)

const defaultMaxSize = 50_000

var fingerprintNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/scoreimport/submission"))

// Fingerprint identifies a submission by who sent which bytes for which
// import type.
func Fingerprint(userID, importType string, data []byte) string {
	name := make([]byte, 0, len(userID)+len(importType)+len(data)+2)
	name = append(name, userID...)
	name = append(name, 0)
	name = append(name, importType...)
	name = append(name, 0)
	name = append(name, data...)
	return uuid.NewSHA1(fingerprintNamespace, name).String()
}

// Deduper records seen fingerprints.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so the submission can be retried, e.g. after the
	// queue refused it or the import failed.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps at most maxSize fingerprints and evicts the oldest
// first. A maxSize of zero or less means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		oldest := d.order.Front()
		delete(d.seen, oldest.Value.(string))
		d.order.Remove(oldest)
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
