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

package fingerprint

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestHashIsStableAndSensitiveToContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.zip", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/b.zip", []byte("hello"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/c.zip", []byte("world"), 0o644))

	ha, err := Hash(fs, "/a.zip")
	require.NoError(t, err)
	hb, err := Hash(fs, "/b.zip")
	require.NoError(t, err)
	hc, err := Hash(fs, "/c.zip")
	require.NoError(t, err)

	require.Equal(t, ha, hb)
	require.NotEqual(t, ha, hc)
}

func TestStoreChangedIsTrueUntilRecorded(t *testing.T) {
	s := New()
	require.True(t, s.Changed("/a.zip", "deadbeef"), "unseen path should count as changed")

	s.Record("/a.zip", "deadbeef")
	require.False(t, s.Changed("/a.zip", "deadbeef"))
	require.True(t, s.Changed("/a.zip", "newhash"))
}

func TestStoreForget(t *testing.T) {
	s := New()
	s.Record("/a.zip", "deadbeef")
	_, ok := s.Get("/a.zip")
	require.True(t, ok)

	s.Forget("/a.zip")
	_, ok = s.Get("/a.zip")
	require.False(t, ok)
	require.True(t, s.Changed("/a.zip", "deadbeef"))
}
