package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hupe1980/scenecore/blobstore"
)

// ErrInjected is the default injected error.
var ErrInjected = errors.New("testutil: injected fault")

// Fault defines specific failure behavior.
type Fault struct {
	FailAfterBytes int64 // Fail writes once this many bytes were written to the blob. -1 to disable.
	FailOnCreate   bool
	FailOnSync     bool
	FailOnClose    bool
	FailOnOpen     bool
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyStore is a blobstore.Store wrapper that can inject errors.
// A blob whose Close fails is aborted, so nothing becomes visible.
type FaultyStore struct {
	blobstore.Store

	mu      sync.Mutex
	rules   map[string]Fault // name substring -> fault
	aborted []string
}

// NewFaultyStore wraps s with no rules.
func NewFaultyStore(s blobstore.Store) *FaultyStore {
	return &FaultyStore{Store: s, rules: make(map[string]Fault)}
}

// AddRule injects fault into every blob whose name contains pattern.
func (f *FaultyStore) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// Aborted returns the names of blobs that were aborted.
func (f *FaultyStore) Aborted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.aborted...)
}

func (f *FaultyStore) faultFor(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			return rule, true
		}
	}
	return Fault{FailAfterBytes: -1}, false
}

// Open implements blobstore.Store.
func (f *FaultyStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if fault, ok := f.faultFor(name); ok && fault.FailOnOpen {
		return nil, fault.err()
	}
	return f.Store.Open(ctx, name)
}

// Create implements blobstore.Store.
func (f *FaultyStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	fault, _ := f.faultFor(name)
	if fault.FailOnCreate {
		return nil, fault.err()
	}
	w, err := f.Store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultyBlob{WritableBlob: w, store: f, name: name, fault: fault}, nil
}

// Put implements blobstore.Store through Create so rules apply.
func (f *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := f.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = blobstore.Abort(w)
		return err
	}
	return w.Close()
}

type faultyBlob struct {
	blobstore.WritableBlob
	store   *FaultyStore
	name    string
	fault   Fault
	written int64
}

func (b *faultyBlob) Write(p []byte) (int, error) {
	if b.fault.FailAfterBytes >= 0 && b.written+int64(len(p)) > b.fault.FailAfterBytes {
		return 0, b.fault.err()
	}
	n, err := b.WritableBlob.Write(p)
	b.written += int64(n)
	return n, err
}

func (b *faultyBlob) Sync() error {
	if b.fault.FailOnSync {
		return b.fault.err()
	}
	return b.WritableBlob.Sync()
}

func (b *faultyBlob) Close() error {
	if b.fault.FailOnClose {
		_ = b.Abort()
		return b.fault.err()
	}
	return b.WritableBlob.Close()
}

func (b *faultyBlob) Abort() error {
	b.store.mu.Lock()
	b.store.aborted = append(b.store.aborted, b.name)
	b.store.mu.Unlock()
	return blobstore.Abort(b.WritableBlob)
}
