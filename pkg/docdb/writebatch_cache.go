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

// CacheEntry records what a probe of the store found (or didn't find) at a
// DocPath, as of some observed HybridTime boundary.
type CacheEntry struct {
	// Exists reports whether a live (non-tombstoned) node was found.
	Exists bool
	// ValueType is the node's type. Meaningless when !Exists.
	ValueType ValueType
	// GenerationTime is the HybridTime of the node's own entry.
	GenerationTime HybridTime
	// ObservedAt is the snapshot boundary the probe used, so entries from
	// different read times within the same batch (rare, but legal for a
	// read-modify-write op) are not confused with one another.
	ObservedAt HybridTime
}

// WriteBatchCache memoizes InternalDocIterator probes by DocPath for the
// lifetime of one batch, so ancestors already seeked while processing one
// path-level mutator are not re-seeked while processing the next. It is
// owned exclusively by one WriteBatchBuilder and destroyed with it.
type WriteBatchCache struct {
	entries map[string]CacheEntry
}

// NewWriteBatchCache returns an empty cache.
func NewWriteBatchCache() *WriteBatchCache {
	return &WriteBatchCache{entries: make(map[string]CacheEntry)}
}

// Get returns the cached probe result for path, if any.
func (c *WriteBatchCache) Get(path DocPath) (CacheEntry, bool) {
	e, ok := c.entries[string(path.Encode())]
	return e, ok
}

// Put records a probe result for path.
func (c *WriteBatchCache) Put(path DocPath, entry CacheEntry) {
	c.entries[string(path.Encode())] = entry
}

// Invalidate drops any cached probe result for path without supplying a
// replacement. WriteBatchBuilder itself never needs this: every mutator
// that changes what a probe of path would see immediately Puts a fresh
// CacheEntry reflecting the change, so the cache is never left stale by the
// builder's own writes. Invalidate exists for a caller that wants to force
// the next Get to miss and re-probe the store instead.
func (c *WriteBatchCache) Invalidate(path DocPath) {
	delete(c.entries, string(path.Encode()))
}
