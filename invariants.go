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

import "fmt"

// checkInvariants verifies the structural invariants of the container after
// a mutation. It compiles to a no-op unless the invariants (or race) build
// tag is set.
func (c *core) checkInvariants() {
	if !invariants {
		return
	}

	// Every stored element must be reachable by probing from its home slot
	// without crossing an empty slot.
	used := 0
	for i, e := range c.slots {
		if e == nil {
			continue
		}
		used++
		slot := home(c.slots, e)
		for c.slots[slot] != e {
			if c.slots[slot] == nil {
				panic(fmt.Sprintf("invariant failed: slot %d unreachable from home %d",
					i, home(c.slots, e)))
			}
			slot++
			if slot == len(c.slots) {
				slot = 0
			}
		}
	}
	if used != c.size {
		panic(fmt.Sprintf("invariant failed: found %d filled slots, but size is %d",
			used, c.size))
	}

	// The order list must be circular through the head, consistent in both
	// directions, and cover exactly the stored elements.
	n := 0
	prev := headLink
	for idx := c.head.next; idx != headLink; {
		if idx < 1 || int(idx) > len(c.slots) || c.slots[idx-1] == nil {
			panic(fmt.Sprintf("invariant failed: order list references bad slot %d", idx-1))
		}
		l := c.slots[idx-1].ListLink()
		if l.prev != prev {
			panic(fmt.Sprintf("invariant failed: slot %d has prev %d, expected %d",
				idx-1, l.prev, prev))
		}
		prev = idx
		idx = l.next
		n++
		if n > c.size {
			panic("invariant failed: order list longer than size")
		}
	}
	if c.head.prev != prev {
		panic(fmt.Sprintf("invariant failed: head.prev is %d, expected %d", c.head.prev, prev))
	}
	if n != c.size {
		panic(fmt.Sprintf("invariant failed: order list has %d elements, but size is %d",
			n, c.size))
	}
}
