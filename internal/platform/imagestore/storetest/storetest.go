// Package storetest provides in-memory and fault-injecting image stores for tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
)

var ErrInjected = errors.New("injected store failure")

// Memory is a map-backed Store. Refs look like "/uploads/<uuid><ext>".
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
	mod   map[string]time.Time
}

var _ imagestore.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}, mod: map[string]time.Time{}}
}

func (m *Memory) Store(ctx context.Context, content io.Reader, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if content == nil {
		return "", imagestore.ErrEmptyContent
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", imagestore.ErrEmptyContent
	}
	ref := "/uploads/" + uuid.New().String() + filepath.Ext(originalName)
	m.mu.Lock()
	m.blobs[ref] = data
	m.mod[ref] = time.Now()
	m.mu.Unlock()
	return ref, nil
}

func (m *Memory) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	delete(m.blobs, ref)
	delete(m.mod, ref)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(ctx context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[ref]
	return ok, nil
}

func (m *Memory) Stat(ctx context.Context, ref string) (imagestore.BlobInfo, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[ref]
	if !ok {
		return imagestore.BlobInfo{}, false, nil
	}
	return imagestore.BlobInfo{Ref: ref, Size: int64(len(data)), ModTime: m.mod[ref]}, true, nil
}

func (m *Memory) List(ctx context.Context) ([]imagestore.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]imagestore.BlobInfo, 0, len(m.blobs))
	for ref, data := range m.blobs {
		out = append(out, imagestore.BlobInfo{Ref: ref, Size: int64(len(data)), ModTime: m.mod[ref]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}

// Put seeds a blob under an explicit ref.
func (m *Memory) Put(ref string, data []byte, modTime time.Time) {
	m.mu.Lock()
	m.blobs[ref] = bytes.Clone(data)
	m.mod[ref] = modTime
	m.mu.Unlock()
}

// Refs returns the sorted set of stored refs.
func (m *Memory) Refs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.blobs))
	for ref := range m.blobs {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// Faulty wraps a Store and fails selected calls.
type Faulty struct {
	Inner imagestore.Store

	// FailStoreOn fails the n-th Store call (1-based). Zero disables.
	FailStoreOn int
	// FailDeletes makes every Delete return ErrInjected without touching Inner.
	FailDeletes bool
	// BeforeStore runs ahead of every Store call with its 1-based index.
	BeforeStore func(ctx context.Context, n int)

	mu         sync.Mutex
	storeCalls int
	deleted    []string
}

var _ imagestore.Store = (*Faulty)(nil)

func (f *Faulty) Store(ctx context.Context, content io.Reader, originalName string) (string, error) {
	f.mu.Lock()
	f.storeCalls++
	n := f.storeCalls
	hook := f.BeforeStore
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, n)
	}
	if f.FailStoreOn > 0 && n == f.FailStoreOn {
		return "", fmt.Errorf("store %q: %w", originalName, ErrInjected)
	}
	return f.Inner.Store(ctx, content, originalName)
}

func (f *Faulty) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, ref)
	f.mu.Unlock()
	if f.FailDeletes {
		return fmt.Errorf("delete %q: %w", ref, ErrInjected)
	}
	return f.Inner.Delete(ctx, ref)
}

func (f *Faulty) Exists(ctx context.Context, ref string) (bool, error) {
	return f.Inner.Exists(ctx, ref)
}

func (f *Faulty) Stat(ctx context.Context, ref string) (imagestore.BlobInfo, bool, error) {
	return f.Inner.Stat(ctx, ref)
}

func (f *Faulty) List(ctx context.Context) ([]imagestore.BlobInfo, error) {
	return f.Inner.List(ctx)
}

func (f *Faulty) StoreCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeCalls
}

// Deleted returns the refs passed to Delete, in call order.
func (f *Faulty) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
