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
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

// DocDBDebugDump writes one line per stored KV pair to w: the key decoded
// to (DocKey, [subkeys], HybridTime) and the value decoded to its marker
// kind (tombstone, object, array) or primitive, followed by ttl=<N>ms when
// the value carries a TTL. An entry that cannot be decoded is printed as raw
// hex instead of aborting the dump; DocDBDebugDump still returns a non-nil
// error in that case, once the full store has been walked.
func DocDBDebugDump(store Store, w io.Writer) error {
	cursor, err := store.Seek(nil)
	if err != nil {
		return err
	}
	defer cursor.Close()

	ok := true
	for cursor.Valid() {
		key, val := cursor.Key(), cursor.Value()
		line, decodeErr := formatDebugLine(key, val)
		if decodeErr != nil {
			ok = false
			fmt.Fprintf(w, "%x -> %x  [undecodable: %s]\n", key, val, decodeErr)
		} else {
			fmt.Fprintln(w, line)
		}
		cursor.Next()
	}
	if !ok {
		return errors.New("docdb: dump encountered undecodable entries")
	}
	return nil
}

func formatDebugLine(key, val []byte) (string, error) {
	_, sk, err := DecodeSubDocKey(key)
	if err != nil {
		return "", errors.Wrap(err, "key")
	}
	v, err := DecodeValue(val)
	if err != nil {
		return "", errors.Wrap(err, "value")
	}
	if v.TTL() != TTLNever {
		return fmt.Sprintf("%s -> %s ttl=%dms", sk.String(), formatDebugValue(v), v.TTL()), nil
	}
	return fmt.Sprintf("%s -> %s", sk.String(), formatDebugValue(v)), nil
}

func formatDebugValue(v Value) string {
	switch {
	case v.IsTombstone():
		return "tombstone"
	case v.IsObject():
		return "object"
	case v.IsArray():
		return "array"
	default:
		return v.Primitive().String()
	}
}

// CheckBelongsToSameRocksDB reports an error if any of keys was not written
// to store, used by callers that assemble a batch from keys sourced from
// more than one logical store handle and want to catch the mistake before
// issuing a cross-store write.
func CheckBelongsToSameRocksDB(store Store, keys [][]byte) error {
	for _, k := range keys {
		cursor, err := store.Seek(k)
		if err != nil {
			return err
		}
		found := cursor.Valid() && string(cursor.Key()) == string(k)
		cursor.Close()
		if !found {
			return BadArgumentError("key %x does not belong to this store", k)
		}
	}
	return nil
}
