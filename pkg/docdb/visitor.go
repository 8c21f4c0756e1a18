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

// DocVisitor receives callbacks as SubtreeReader walks a subtree. Any
// callback may return an error, which aborts the scan with that error.
type DocVisitor interface {
	StartSubDocument(key SubDocKey) error
	EndSubDocument() error
	StartObject() error
	EndObject() error
	StartArray() error
	EndArray() error
	VisitKey(key Primitive) error
	VisitValue(value Primitive) error
}

// docBuilder is the DocVisitor GetSubDocument binds ScanSubDocument to: it
// materializes the scanned subtree as a SubDocument tree.
type docBuilder struct {
	stack      []*SubDocument
	keys       []*Primitive // pendingKey saved by each push, restored by the matching pop
	pendingKey *Primitive
	result     SubDocument
	found      bool
}

func newDocBuilder() *docBuilder { return &docBuilder{} }

func (d *docBuilder) current() *SubDocument {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

func (d *docBuilder) StartSubDocument(SubDocKey) error { return nil }

func (d *docBuilder) EndSubDocument() error { return nil }

func (d *docBuilder) StartObject() error {
	obj := NewObjectSubDocument()
	d.push(obj)
	return nil
}

func (d *docBuilder) StartArray() error {
	arr := NewArraySubDocument()
	d.push(arr)
	return nil
}

func (d *docBuilder) push(node SubDocument) {
	d.stack = append(d.stack, &node)
	d.keys = append(d.keys, d.pendingKey)
	d.pendingKey = nil
}

func (d *docBuilder) EndObject() error { return d.pop() }

func (d *docBuilder) EndArray() error { return d.pop() }

func (d *docBuilder) pop() error {
	node := *d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	d.pendingKey = d.keys[len(d.keys)-1]
	d.keys = d.keys[:len(d.keys)-1]
	d.attach(node)
	return nil
}

func (d *docBuilder) VisitKey(key Primitive) error {
	d.pendingKey = &key
	return nil
}

func (d *docBuilder) VisitValue(value Primitive) error {
	d.attach(NewPrimitiveSubDocument(value))
	return nil
}

// Result returns the materialized SubDocument, and false if nothing was
// visited (the scanned path does not exist as of the snapshot time).
func (d *docBuilder) Result() (SubDocument, bool) { return d.result, d.found }

func (d *docBuilder) attach(node SubDocument) {
	parent := d.current()
	switch {
	case parent == nil:
		d.result = node
		d.found = true
	case parent.IsArray():
		parent.AppendElement(node)
	default: // object
		parent.Set(*d.pendingKey, node)
		d.pendingKey = nil
	}
}
