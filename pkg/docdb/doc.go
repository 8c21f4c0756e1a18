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

// Package docdb implements the document-over-KV mapping layer: it projects
// hierarchical, MVCC-versioned documents onto the flat ordered key/value
// interface of an embedded LSM store.
//
// Documents are mapped onto the key space as follows:
//
//	<doc_key> <group_end> <hybrid_time> -> <doc_type>
//	<doc_key> <key_a> <group_end> <gen_ts_a> -> <subdoc_a_type_or_value>
//
// Assuming the subdocument at key_a is an object, its contents are stored
// the same way one level down:
//
//	<doc_key> <key_a> <key_aa> <group_end> <gen_ts_aa> -> <subdoc_aa_type_or_value>
//	<doc_key> <key_a> <key_ab> <group_end> <gen_ts_ab> -> <subdoc_ab_type_or_value>
//
// Each key carries one hybrid time, after the full subkey path and a
// group-end byte.
//
// key_a, key_aa, ... are subkeys describing a path inside a document; see
// key_encoding.go for their byte encoding. gen_ts_a, gen_ts_aa, ... are
// "generation hybrid times": the hybrid time at which that subdocument was
// last fully overwritten or deleted.
//
// subdoc_a_type_or_value, ... are values of the form described in
// value_encoding.go: a one-byte value type followed by a type-specific
// payload for primitives, or nothing further for object/tombstone markers.
package docdb
