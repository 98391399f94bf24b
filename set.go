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

// Package ordset provides an insertion-ordered hash set and multi-set whose
// linked-list bookkeeping lives inside the elements themselves.
//
// # Design
//
// A Set is an open-addressed hash table over an array of slots. Probing is
// linear: the home slot of an element is hash(e) mod numSlots and collisions
// advance one slot at a time, wrapping at the end of the array. Deletion uses
// backward-shift rehoming rather than tombstones: after clearing a slot,
// every element in the remainder of the probe run is moved to the earliest
// slot it can still be found at, so the invariant "every stored element is
// reachable from its home slot without crossing an empty slot" holds at all
// times.
//
// Iteration order is insertion order. Rather than allocating list nodes, the
// container threads a circular doubly-linked list through two small integer
// fields embedded in each element (see Link). The integers are slot indices,
// playing the role pointers would play in a conventional intrusive list; the
// list head is a pair of indices held in the container itself. Consequently
// the container performs no per-element allocation at all: Add writes one
// slot and four link fields, Remove clears them.
//
// The price of the intrusive design is that an element can be a member of at
// most one container at a time. While an element is stored, its link fields
// belong to the container; Add refuses elements whose link fields are in
// use. After Remove the fields return to their zero value and the element
// may be inserted again, into the same container or another one.
//
// A MultiSet stores several elements comparing equal while keeping them in
// insertion order. It shares the slot table and order list of Set and
// differs only in policy: Add probes past equal entries instead of rejecting
// them, FindAll walks the probe run collecting equal entries lazily, and
// Remove prefers the exact instance it was given.
//
// Neither container is goroutine-safe.
package ordset

import (
	"fmt"
	"math"
	"unsafe"
)

const (
	// minSlots is the smallest slot array ever allocated. A table with
	// fewer than 5 slots would leave probe runs no slack at all.
	minSlots = 5

	// maxSlots bounds enlargement; link fields are 32-bit.
	maxSlots = math.MaxInt32 / 2

	// Link fields hold slot i as i+1 so that the zero value of Link means
	// "unlinked". headLink refers to the list head owned by the container.
	unlinked int32 = 0
	headLink int32 = -1
)

// Link holds the two intrusive list indices threaded through every stored
// element. Embed it in the element type:
//
//	type session struct {
//	        ordset.Link
//	        id uint64
//	}
//
// The zero value is ready to use and marks the element as unlinked. The
// fields belong to the container while the element is stored; callers must
// not modify them.
type Link struct {
	prev, next int32
}

// ListLink returns l. It makes an embedded Link satisfy Element.
func (l *Link) ListLink() *Link { return l }

// Linked reports whether the element holding l is currently stored in a Set
// or MultiSet.
func (l *Link) Linked() bool { return l.prev != unlinked || l.next != unlinked }

// clear restores the unlinked sentinel.
func (l *Link) clear() { l.prev, l.next = unlinked, unlinked }

// Element is the contract stored values must satisfy. Hash must be stable
// while the element is stored and Equal must be consistent with it: equal
// elements hash alike. Hash values may be negative, including math.MinInt.
//
// ListLink exposes the element's intrusive link fields; embedding a Link
// provides it.
type Element interface {
	Hash() int
	Equal(other Element) bool
	ListLink() *Link
}

// nilElement reports whether e is nil or wraps a nil pointer. Elements are
// handed in as pointers, so the check has to look through the interface
// header.
func nilElement(e Element) bool {
	type iface struct {
		typ, data unsafe.Pointer
	}
	return e == nil || (*iface)(unsafe.Pointer(&e)).data == nil
}

// calculateCapacity returns the slot count used to hold expectedNumElements:
// twice the expected size plus one, never less than minSlots. The factor-two
// slack keeps probe runs short.
func calculateCapacity(expectedNumElements int) int {
	if expectedNumElements < 0 || expectedNumElements > maxSlots {
		panic(fmt.Sprintf("ordset: invalid capacity %d", expectedNumElements))
	}
	newCapacity := 2*expectedNumElements + 1
	if newCapacity < minSlots {
		newCapacity = minSlots
	}
	return newCapacity
}

// home returns the slot the element would occupy with no collisions. Masking
// the hash keeps it non-negative even for math.MinInt, which has no absolute
// value.
func home(slots []Element, e Element) int {
	return (e.Hash() & math.MaxInt) % len(slots)
}

// core is the storage shared by Set and MultiSet: the slot table, the order
// list head, and the probing machinery. The multi flag selects the duplicate
// policy during insertion and removal.
type core struct {
	// slots is the open-addressed table; nil entries are empty slots. Slot
	// indices double as the tokens threaded through the order list.
	slots []Element
	// head is the sentinel of the circular order list. head.next is the
	// first element in insertion order, head.prev the last; an empty list
	// has both set to headLink.
	head Link
	size int
	// gen counts mutations. Iterators capture it and fail loudly when the
	// container changed underneath them.
	gen       uint32
	allocator Allocator
	multi     bool
}

func (c *core) init(expectedNumElements int) {
	c.head.prev, c.head.next = headLink, headLink
	c.slots = c.allocator.AllocSlots(calculateCapacity(expectedNumElements))
}

// linkAt resolves an encoded link index to the Link it refers to, which is
// the container-owned head for headLink.
func (c *core) linkAt(idx int32) *Link {
	if idx == headLink {
		return &c.head
	}
	return c.slots[idx-1].ListLink()
}

// spliceTail links the element at slot onto the tail of the order list.
func (c *core) spliceTail(slot int) {
	idx := int32(slot) + 1
	l := c.slots[slot].ListLink()
	l.prev = c.head.prev
	l.next = headLink
	c.linkAt(c.head.prev).next = idx
	c.head.prev = idx
}

// unlinkSlot removes the element at slot from the order list and restores
// the unlinked sentinel in its link fields.
func (c *core) unlinkSlot(slot int) {
	l := c.slots[slot].ListLink()
	c.linkAt(l.prev).next = l.next
	c.linkAt(l.next).prev = l.prev
	l.clear()
}

// insert places e into slots, probing linearly from its home slot, and
// returns the chosen slot, or -1 if e may not be inserted or the table is
// full. The set policy rejects on the first equal element; the multi-set
// policy probes past equal elements and rejects only the identical instance.
func (c *core) insert(e Element, slots []Element) int {
	slot := home(slots, e)
	for seen := 0; seen < len(slots); seen++ {
		el := slots[slot]
		if el == nil {
			slots[slot] = e
			return slot
		}
		if c.multi {
			if el == e {
				return -1
			}
		} else if el.Equal(e) {
			return -1
		}
		slot++
		if slot == len(slots) {
			slot = 0
		}
	}
	return -1
}

// add implements Add for both variants. Benign failures (nil element,
// element already linked somewhere, duplicate under the set policy) return
// false.
func (c *core) add(e Element) bool {
	if nilElement(e) {
		return false
	}
	if e.ListLink().Linked() {
		return false
	}
	if c.size+1 >= len(c.slots)/2 {
		c.grow(calculateCapacity(len(c.slots)))
	}
	slot := c.insert(e, c.slots)
	if slot < 0 {
		return false
	}
	c.spliceTail(slot)
	c.size++
	c.gen++
	c.checkInvariants()
	return true
}

// grow rehashes every element into a fresh slot array. The order list is
// rebuilt by walking it front to back, so iteration order survives
// enlargement.
func (c *core) grow(newNumSlots int) {
	oldSlots := c.slots
	c.slots = c.allocator.AllocSlots(newNumSlots)
	c.gen++

	idx := c.head.next
	c.head.prev, c.head.next = headLink, headLink
	for idx != headLink {
		e := oldSlots[idx-1]
		l := e.ListLink()
		idx = l.next
		l.clear()
		// Cannot fail: the new table has over twice as many slots as
		// elements and duplicates were filtered on first insertion.
		c.spliceTail(c.insert(e, c.slots))
	}
	c.allocator.FreeSlots(oldSlots)
}

// findSlot returns the slot of the first element in key's probe run that
// compares equal to key, or -1. Identity is checked before Equal as a fast
// path.
func (c *core) findSlot(key Element) int {
	if nilElement(key) || c.size == 0 {
		return -1
	}
	slot := home(c.slots, key)
	for seen := 0; seen < len(c.slots); seen++ {
		el := c.slots[slot]
		if el == nil {
			return -1
		}
		if el == key || key.Equal(el) {
			return slot
		}
		slot++
		if slot == len(c.slots) {
			slot = 0
		}
	}
	return -1
}

// removeTarget picks the slot Remove should clear. The set variant takes
// the first equal element. The multi-set variant scans the whole probe run
// for the identical instance so that distinct equal elements can be removed
// individually, falling back to the last equal element seen.
func (c *core) removeTarget(key Element) int {
	if !c.multi {
		return c.findSlot(key)
	}
	if nilElement(key) || c.size == 0 {
		return -1
	}
	slot := home(c.slots, key)
	best := -1
	for seen := 0; seen < len(c.slots); seen++ {
		el := c.slots[slot]
		if el == nil {
			break
		}
		if el == key {
			return slot
		}
		if key.Equal(el) {
			best = slot
		}
		slot++
		if slot == len(c.slots) {
			slot = 0
		}
	}
	return best
}

func (c *core) remove(key Element) bool {
	slot := c.removeTarget(key)
	if slot < 0 {
		return false
	}
	c.removeAt(slot)
	return true
}

// removeAt unlinks and clears the element at slot, then re-homes the rest of
// the probe run so that no stored element ends up unreachable behind the new
// hole.
func (c *core) removeAt(slot int) {
	c.unlinkSlot(slot)
	c.slots[slot] = nil
	c.size--
	c.gen++

	// Locate the end of the probe run before reseating anything, because
	// reseating opens new holes along the way.
	end := (slot + 1) % len(c.slots)
	for c.slots[end] != nil {
		end = (end + 1) % len(c.slots)
	}
	for s := (slot + 1) % len(c.slots); s != end; s = (s + 1) % len(c.slots) {
		c.reseat(s)
	}
	c.checkInvariants()
}

// reseat moves the element at slot to the earliest slot in its probe run it
// can still be found at, patching the order-list indices of its neighbours.
// No-op if the element is already as close to home as it can get.
func (c *core) reseat(slot int) {
	e := c.slots[slot]
	newSlot := home(c.slots, e)
	for seen := 0; seen < len(c.slots); seen++ {
		if c.slots[newSlot] == nil || c.slots[newSlot] == e {
			break
		}
		newSlot++
		if newSlot == len(c.slots) {
			newSlot = 0
		}
	}
	if newSlot == slot {
		return
	}
	idx := int32(newSlot) + 1
	l := e.ListLink()
	c.linkAt(l.prev).next = idx
	c.linkAt(l.next).prev = idx
	c.slots[slot] = nil
	c.slots[newSlot] = e
}

// clearAll unlinks every element and empties the table without shrinking
// it. Unlinking matters: it returns the elements to the caller in a state
// where they can be inserted again.
func (c *core) clearAll() {
	for idx := c.head.next; idx != headLink; {
		l := c.slots[idx-1].ListLink()
		idx = l.next
		l.clear()
	}
	clear(c.slots)
	c.head.prev, c.head.next = headLink, headLink
	c.size = 0
	c.gen++
}

// close releases the slot array back to the allocator. Stored elements are
// left linked; callers that intend to reuse elements should Clear first.
func (c *core) close() {
	if c.slots != nil {
		c.allocator.FreeSlots(c.slots)
		c.slots = nil
	}
	c.allocator = nil
}

// all yields elements in insertion order, panicking if the container is
// mutated mid-iteration.
func (c *core) all(yield func(Element) bool) {
	gen := c.gen
	for idx := c.head.next; idx != headLink; {
		e := c.slots[idx-1]
		idx = e.ListLink().next
		if !yield(e) {
			return
		}
		if gen != c.gen {
			panic("ordset: container mutated during iteration")
		}
	}
}

// Set is a hash set that iterates in insertion order. Elements carry the
// set's linked-list fields within themselves (see Element and Link), so the
// set allocates nothing beyond its slot array. The zero value is not usable;
// construct with New.
type Set[E Element] struct {
	core
}

// New constructs an empty Set sized for expectedNumElements. The slot count
// is 2*expectedNumElements+1, at least 5; the set enlarges itself as needed
// regardless of the initial size.
func New[E Element](expectedNumElements int, options ...option) *Set[E] {
	s := &Set[E]{core: core{allocator: defaultAllocator{}}}
	for _, op := range options {
		op.apply(&s.core)
	}
	s.init(expectedNumElements)
	return s
}

// Add inserts e and returns true. It returns false, storing nothing, if e is
// nil, if e is already stored in any Set or MultiSet, or if an equal element
// is already present. A rejected duplicate can still enlarge the slot table,
// since the load check runs before the table is probed for an equal element.
func (s *Set[E]) Add(e E) bool { return s.add(e) }

// MustAdd inserts e, treating every failure Add reports as a programmer
// error.
func (s *Set[E]) MustAdd(e E) {
	if !s.add(e) {
		panic(fmt.Sprintf("ordset: unable to add %v", e))
	}
}

// Contains reports whether an element equal to key is present.
func (s *Set[E]) Contains(key E) bool { return s.findSlot(key) >= 0 }

// Find returns the stored element equal to key.
func (s *Set[E]) Find(key E) (E, bool) {
	slot := s.findSlot(key)
	if slot < 0 {
		var zero E
		return zero, false
	}
	return s.slots[slot].(E), true
}

// Remove takes out the element equal to key and returns true, or returns
// false if no such element is present. The removed element leaves in the
// unlinked state and may be inserted again.
func (s *Set[E]) Remove(key E) bool { return s.remove(key) }

// Len returns the number of stored elements.
func (s *Set[E]) Len() int { return s.size }

// NumSlots returns the current size of the slot table.
func (s *Set[E]) NumSlots() int { return len(s.slots) }

// Iter returns an iterator positioned before the first element in insertion
// order.
func (s *Set[E]) Iter() *Iterator[E] { return &Iterator[E]{c: &s.core, gen: s.gen} }

// All calls yield for every element in insertion order until yield returns
// false. It is usable with range:
//
//	for e := range s.All { ... }
//
// The set must not be mutated during iteration; use Iter to remove while
// iterating.
func (s *Set[E]) All(yield func(E) bool) {
	s.all(func(e Element) bool { return yield(e.(E)) })
}

// Clear removes all elements, leaving each of them unlinked. The slot table
// keeps its current size.
func (s *Set[E]) Clear() { s.clearAll() }

// Close releases the slot array to the allocator configured with
// WithAllocator. The set is unusable afterwards. Close is unnecessary under
// the default allocator.
func (s *Set[E]) Close() { s.close() }

// Iterator walks a Set or MultiSet in insertion order. Any mutation of the
// container other than the iterator's own Remove invalidates it; using an
// invalidated iterator panics.
type Iterator[E Element] struct {
	c   *core
	gen uint32
	// cur is the element last returned by Next, or the element preceding
	// the cursor after Remove; nil when the cursor is at the head.
	cur     Element
	curSlot int
	valid   bool
}

func (it *Iterator[E]) checkGen() {
	if it.gen != it.c.gen {
		panic("ordset: iterator used after container mutation")
	}
}

// Next advances to the next element, returning false when the iteration is
// exhausted.
func (it *Iterator[E]) Next() bool {
	it.checkGen()
	next := it.c.head.next
	if it.cur != nil {
		next = it.cur.ListLink().next
	}
	if next == headLink {
		it.valid = false
		return false
	}
	it.cur = it.c.slots[next-1]
	it.curSlot = int(next - 1)
	it.valid = true
	return true
}

// Element returns the element last returned by Next.
func (it *Iterator[E]) Element() E {
	if !it.valid {
		panic("ordset: Element without a preceding Next")
	}
	return it.cur.(E)
}

// Remove takes the element last returned by Next out of the container,
// releasing both its slot and its list position. The iterator remains valid
// and continues with the element that followed the removed one.
func (it *Iterator[E]) Remove() {
	it.checkGen()
	if !it.valid {
		panic("ordset: Remove without a current element")
	}
	// Step back to the predecessor before the table shuffles slots: an
	// element reference stays valid across reseating, a slot index does
	// not.
	var prev Element
	if prevIdx := it.cur.ListLink().prev; prevIdx != headLink {
		prev = it.c.slots[prevIdx-1]
	}
	it.c.removeAt(it.curSlot)
	it.cur = prev
	it.gen = it.c.gen
	it.valid = false
}
