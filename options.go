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

// option does work on a Set or MultiSet while it is being created.
type option interface {
	apply(c *core)
}

// Allocator specifies an interface for allocating and releasing the slot
// array used by a Set or MultiSet. The default allocator uses Go's builtin
// make() and lets the GC reclaim memory.
//
// If the allocator manually manages memory then Set.Close (or
// MultiSet.Close) must be called to ensure FreeSlots is invoked for the
// final slot array; arrays discarded by enlargement are freed as they are
// replaced.
type Allocator interface {
	// AllocSlots should return a slice equivalent to make([]Element, n).
	// Every entry must be nil.
	AllocSlots(n int) []Element

	// FreeSlots can optionally release the memory associated with the
	// supplied slice, which is guaranteed to have been allocated by
	// AllocSlots.
	FreeSlots(v []Element)
}

type defaultAllocator struct{}

func (defaultAllocator) AllocSlots(n int) []Element {
	return make([]Element, n)
}

func (defaultAllocator) FreeSlots(v []Element) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(c *core) {
	c.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator used for the slot
// array.
func WithAllocator(allocator Allocator) option {
	return allocatorOption{allocator}
}
