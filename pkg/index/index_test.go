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

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVSPutReportsFirstPresence(t *testing.T) {
	x := NewVS()
	key := Key{VirtualInstanceID: "v1", ServiceID: "s1"}

	require.True(t, x.Put(key, "obj-a"))
	require.False(t, x.Put(key, "obj-b"))
	require.True(t, x.Has(key))
	require.ElementsMatch(t, []string{"obj-a", "obj-b"}, x.Names(key))
}

func TestVSDeleteReportsBecameAbsent(t *testing.T) {
	x := NewVS()
	key := Key{VirtualInstanceID: "v1", ServiceID: "s1"}
	x.Put(key, "obj-a")
	x.Put(key, "obj-b")

	require.False(t, x.Delete(key, "obj-a"))
	require.True(t, x.Has(key))
	require.True(t, x.Delete(key, "obj-b"))
	require.False(t, x.Has(key))
}

func TestVSKeysFiltersByVirtualInstance(t *testing.T) {
	x := NewVS()
	x.Put(Key{VirtualInstanceID: "v1", ServiceID: "a"}, "obj-a")
	x.Put(Key{VirtualInstanceID: "v1", ServiceID: "b"}, "obj-b")
	x.Put(Key{VirtualInstanceID: "v2", ServiceID: "a"}, "obj-c")

	keys := x.Keys("v1")
	require.Len(t, keys, 2)

	all := x.Keys("")
	require.Len(t, all, 3)
}

func TestVPutAndDelete(t *testing.T) {
	x := NewV()
	require.True(t, x.Put("v1", "dxp-obj"))
	require.False(t, x.Has("v2"))
	require.True(t, x.Has("v1"))

	require.True(t, x.Delete("v1", "dxp-obj"))
	require.False(t, x.Has("v1"))
}
