// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

// Cursor is a forward iterator over a Store's key space. Implementations are
// not safe for concurrent use; each InternalDocIterator owns one exclusively.
type Cursor interface {
	// Valid reports whether the cursor is positioned on a key.
	Valid() bool
	// Key returns the current key. Only valid while Valid().
	Key() []byte
	// Value returns the current value. Only valid while Valid().
	Value() []byte
	// Next advances the cursor and reports whether it landed on a key.
	Next() bool
	// Close releases the cursor's resources.
	Close() error
}

// Batch accumulates key/value writes for atomic application to a Store.
type Batch interface {
	// Put stages a key/value write.
	Put(key, value []byte) error
	// Len reports the number of staged writes.
	Len() int
}

// Store is the embedded LSM key/value store the core is layered over. Keys
// and values are opaque byte sequences; ordering is bytewise.
type Store interface {
	// Seek returns a Cursor positioned at the first stored key >= key. The
	// caller owns the returned Cursor and must Close it.
	Seek(key []byte) (Cursor, error)
	// NewBatch returns an empty Batch ready to accumulate writes.
	NewBatch() Batch
	// Write atomically applies batch to the store.
	Write(batch Batch) error
	// Close releases the store's resources.
	Close() error
}

// Options configures the embedded store. The zero value is a reasonable
// default for tests; production callers should tune BlockSize and
// BloomFilterBitsPerKey for the expected key/value sizes.
type Options struct {
	// BlockSize is the target uncompressed size of an SST data block.
	BlockSize int
	// CompactionStyle names a compaction strategy, e.g. "level" or
	// "universal". Open does not read it: the store always runs its default
	// compaction, whatever this field holds.
	CompactionStyle string
	// BloomFilterBitsPerKey controls the false-positive rate of the point
	// lookup bloom filter. Zero disables the bloom filter.
	BloomFilterBitsPerKey int
	// Comparator is the byte comparison function keys are ordered by.
	// DocDBKeyComparator (the default when nil) is plain bytewise
	// comparison, since the key encoding in this package is designed so
	// that bytewise order already matches the intended primitive order;
	// it exists as an explicit named hook rather than relying on the
	// store's own default so the contract survives a future store swap.
	Comparator func(a, b []byte) int
}

// DocDBKeyComparator is the bytewise comparator the key encoding in this
// package is designed against. It is equivalent to bytes.Compare.
func DocDBKeyComparator(a, b []byte) int { return bytes.Compare(a, b) }

// pebbleStore is a Store backed by a pebble.DB.
type pebbleStore struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble-backed Store rooted at dir.
func Open(dir string, opts Options) (Store, error) {
	cmp := opts.Comparator
	if cmp == nil {
		cmp = DocDBKeyComparator
	}
	pebbleOpts := &pebble.Options{
		Comparer: &pebble.Comparer{
			Compare:        cmp,
			Equal:          func(a, b []byte) bool { return cmp(a, b) == 0 },
			AbbreviatedKey: pebble.DefaultComparer.AbbreviatedKey,
			Separator:      pebble.DefaultComparer.Separator,
			Successor:      pebble.DefaultComparer.Successor,
			Split:          pebble.DefaultComparer.Split,
			FormatKey:      pebble.DefaultComparer.FormatKey,
			Name:           "DocDBKeyComparator",
		},
	}
	if opts.BlockSize > 0 || opts.BloomFilterBitsPerKey > 0 {
		lvl := pebble.LevelOptions{BlockSize: opts.BlockSize}
		if opts.BloomFilterBitsPerKey > 0 {
			lvl.FilterPolicy = bloom.FilterPolicy(opts.BloomFilterBitsPerKey)
		}
		pebbleOpts.Levels = []pebble.LevelOptions{lvl}
	}
	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, StoreError(err)
	}
	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) Seek(key []byte) (Cursor, error) {
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, StoreError(err)
	}
	iter.SeekGE(key)
	return &pebbleCursor{iter: iter}, nil
}

func (s *pebbleStore) NewBatch() Batch {
	return &pebbleBatch{batch: s.db.NewBatch()}
}

func (s *pebbleStore) Write(batch Batch) error {
	pb, ok := batch.(*pebbleBatch)
	if !ok {
		return errors.New("docdb: batch not produced by this store")
	}
	if err := s.db.Apply(pb.batch, pebble.Sync); err != nil {
		return StoreError(err)
	}
	return nil
}

func (s *pebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return StoreError(err)
	}
	return nil
}

type pebbleCursor struct {
	iter *pebble.Iterator
}

func (c *pebbleCursor) Valid() bool     { return c.iter.Valid() }
func (c *pebbleCursor) Key() []byte     { return c.iter.Key() }
func (c *pebbleCursor) Value() []byte   { return c.iter.Value() }
func (c *pebbleCursor) Next() bool      { return c.iter.Next() }
func (c *pebbleCursor) Close() error    { return c.iter.Close() }

type pebbleBatch struct {
	batch *pebble.Batch
	n     int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	if err := b.batch.Set(key, value, nil); err != nil {
		return StoreError(err)
	}
	b.n++
	return nil
}

func (b *pebbleBatch) Len() int { return b.n }
