// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package index keeps the three label-keyed in-memory indices the
// Deployment Controller fans in over: provision and init objects keyed by
// (virtual-instance-id, service-id), and dxp objects keyed by
// virtual-instance-id alone.
package index

import "sync"

// Key identifies one (virtual-instance, service) pair.
type Key struct {
	VirtualInstanceID string
	ServiceID         string
}

// VS is a two-level index from Key to the set of cluster object names
// currently registered for it. It backs both the provision and init
// indices, which share the same keying.
type VS struct {
	mu   sync.RWMutex
	objs map[Key]map[string]struct{}
}

// NewVS returns an empty VS index.
func NewVS() *VS {
	return &VS{objs: make(map[Key]map[string]struct{})}
}

// Put registers name under key, returning whether the key transitioned from
// absent to present (i.e. this is the first object registered for it).
func (x *VS) Put(key Key, name string) (becamePresent bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok := x.objs[key]
	if !ok {
		set = make(map[string]struct{})
		x.objs[key] = set
	}
	_, had := set[name]
	set[name] = struct{}{}
	return !ok && !had
}

// Delete removes name from key's set, returning whether the key transitioned
// from present to absent.
func (x *VS) Delete(key Key, name string) (becameAbsent bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok := x.objs[key]
	if !ok {
		return false
	}
	delete(set, name)
	if len(set) == 0 {
		delete(x.objs, key)
		return true
	}
	return false
}

// Has reports whether key has at least one object registered.
func (x *VS) Has(key Key) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.objs[key]
	return ok
}

// Names returns the object names currently registered for key.
func (x *VS) Names(key Key) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	set := x.objs[key]
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	return names
}

// Keys returns every key currently present in the index, optionally
// restricted to a single virtual-instance-id (empty string means all).
func (x *VS) Keys(virtualInstanceID string) []Key {
	x.mu.RLock()
	defer x.mu.RUnlock()

	keys := make([]Key, 0, len(x.objs))
	for k := range x.objs {
		if virtualInstanceID == "" || k.VirtualInstanceID == virtualInstanceID {
			keys = append(keys, k)
		}
	}
	return keys
}

// V is a single-level index from virtual-instance-id to the set of cluster
// object names registered for it. It backs the dxp index, which carries no
// per-service dimension.
type V struct {
	mu   sync.RWMutex
	objs map[string]map[string]struct{}
}

// NewV returns an empty V index.
func NewV() *V {
	return &V{objs: make(map[string]map[string]struct{})}
}

// Put registers name under virtualInstanceID.
func (x *V) Put(virtualInstanceID, name string) (becamePresent bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok := x.objs[virtualInstanceID]
	if !ok {
		set = make(map[string]struct{})
		x.objs[virtualInstanceID] = set
	}
	_, had := set[name]
	set[name] = struct{}{}
	return !ok && !had
}

// Delete removes name from virtualInstanceID's set.
func (x *V) Delete(virtualInstanceID, name string) (becameAbsent bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	set, ok := x.objs[virtualInstanceID]
	if !ok {
		return false
	}
	delete(set, name)
	if len(set) == 0 {
		delete(x.objs, virtualInstanceID)
		return true
	}
	return false
}

// Has reports whether virtualInstanceID has at least one object registered.
func (x *V) Has(virtualInstanceID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.objs[virtualInstanceID]
	return ok
}

// Names returns the object names currently registered for virtualInstanceID.
func (x *V) Names(virtualInstanceID string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	set := x.objs[virtualInstanceID]
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	return names
}
