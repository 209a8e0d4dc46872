package storage

import "sync"

// Batch owns the files of one upload until they are committed to a row.
// Release deletes them; after Commit it does nothing. Both are idempotent,
// so `defer batch.Release()` is always safe.
type Batch struct {
	mu       sync.Mutex
	store    *Store
	files    []StagedFile
	done     bool
	released bool
}

// Files returns the staged files in upload order.
func (b *Batch) Files() []StagedFile {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StagedFile(nil), b.files...)
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// Commit hands ownership of the files to the database rows referencing them.
func (b *Batch) Commit() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
}

// Release removes every staged file unless the batch was committed.
func (b *Batch) Release() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	b.released = true
	for _, f := range b.files {
		b.store.Remove(f.Path)
	}
}

// Released reports whether the files were deleted.
func (b *Batch) Released() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
