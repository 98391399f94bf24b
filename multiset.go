// Copyright 2025 The Ordset Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ordset

import (
	"fmt"
	"iter"
)

// MultiSet is the variant of Set that admits several elements comparing
// equal. Equal elements occupy distinct slots along the same probe run and
// iterate in insertion order, both globally and within each equality group.
// The zero value is not usable; construct with NewMulti.
type MultiSet[E Element] struct {
	core
}

// NewMulti constructs an empty MultiSet sized for expectedNumElements. The
// sizing rule matches New.
func NewMulti[E Element](expectedNumElements int, options ...option) *MultiSet[E] {
	m := &MultiSet[E]{core: core{allocator: defaultAllocator{}, multi: true}}
	for _, op := range options {
		op.apply(&m.core)
	}
	m.init(expectedNumElements)
	return m
}

// Add inserts e and returns true, even if equal elements are already
// present. It returns false only if e is nil or e is already stored in some
// Set or MultiSet.
func (m *MultiSet[E]) Add(e E) bool { return m.add(e) }

// MustAdd inserts e, treating every failure Add reports as a programmer
// error.
func (m *MultiSet[E]) MustAdd(e E) {
	if !m.add(e) {
		panic(fmt.Sprintf("ordset: unable to add %v", e))
	}
}

// Contains reports whether an element equal to key is present.
func (m *MultiSet[E]) Contains(key E) bool { return m.findSlot(key) >= 0 }

// Find returns the first stored element in key's probe run that compares
// equal to key. Use FindAll to retrieve every equal element.
func (m *MultiSet[E]) Find(key E) (E, bool) {
	slot := m.findSlot(key)
	if slot < 0 {
		var zero E
		return zero, false
	}
	return m.slots[slot].(E), true
}

// FindAll returns a lazy sequence of every stored element equal to key, in
// insertion order. The sequence walks key's probe run and is invalidated by
// any mutation of the multi-set; resuming an invalidated sequence panics.
func (m *MultiSet[E]) FindAll(key E) iter.Seq[E] {
	return func(yield func(E) bool) {
		if nilElement(key) || m.size == 0 {
			return
		}
		gen := m.gen
		slot := home(m.slots, key)
		for seen := 0; seen < len(m.slots); seen++ {
			el := m.slots[slot]
			if el == nil {
				return
			}
			if key.Equal(el) {
				if !yield(el.(E)) {
					return
				}
				if gen != m.gen {
					panic("ordset: container mutated during iteration")
				}
			}
			slot++
			if slot == len(m.slots) {
				slot = 0
			}
		}
	}
}

// Remove takes out a single element and returns true, or returns false if
// nothing matches. When key itself is stored, that exact instance is the one
// removed; otherwise the probe run's last element equal to key is removed.
// Identity wins over equality so distinct equal elements can be removed
// individually.
func (m *MultiSet[E]) Remove(key E) bool { return m.remove(key) }

// Len returns the number of stored elements, counting duplicates.
func (m *MultiSet[E]) Len() int { return m.size }

// NumSlots returns the current size of the slot table.
func (m *MultiSet[E]) NumSlots() int { return len(m.slots) }

// Iter returns an iterator positioned before the first element in insertion
// order.
func (m *MultiSet[E]) Iter() *Iterator[E] { return &Iterator[E]{c: &m.core, gen: m.gen} }

// All calls yield for every element in insertion order until yield returns
// false. See Set.All.
func (m *MultiSet[E]) All(yield func(E) bool) {
	m.all(func(e Element) bool { return yield(e.(E)) })
}

// Clear removes all elements, leaving each of them unlinked. The slot table
// keeps its current size.
func (m *MultiSet[E]) Clear() { m.clearAll() }

// Close releases the slot array to the allocator configured with
// WithAllocator. The multi-set is unusable afterwards.
func (m *MultiSet[E]) Close() { m.close() }
