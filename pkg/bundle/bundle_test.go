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

package bundle

import (
	"archive/zip"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestExtractorExtractsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/bundles/app.zip", map[string]string{
		"Dockerfile":     "FROM scratch\n",
		"META-INF/LCP.json": `{"id":"app"}`,
	})

	ext := NewExtractor(fs, "/scratch")
	x, err := ext.Extract("/bundles/app.zip", "abc123")
	require.NoError(t, err)
	require.Equal(t, "/scratch/abc123", x.Dir)

	got, err := afero.ReadFile(fs, "/scratch/abc123/Dockerfile")
	require.NoError(t, err)
	require.Equal(t, "FROM scratch\n", string(got))

	got, err = afero.ReadFile(fs, "/scratch/abc123/META-INF/LCP.json")
	require.NoError(t, err)
	require.Equal(t, `{"id":"app"}`, string(got))
}

func TestExtractorCleansStaleDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/scratch/abc123", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/scratch/abc123/stale.txt", []byte("old"), 0o644))

	writeZip(t, fs, "/bundles/app.zip", map[string]string{"new.txt": "new"})

	ext := NewExtractor(fs, "/scratch")
	_, err := ext.Extract("/bundles/app.zip", "abc123")
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/scratch/abc123/stale.txt")
	require.NoError(t, err)
	require.False(t, exists, "stale file from a prior extraction should be removed")
}

func TestExtractorRejectsPathTraversal(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/bundles/evil.zip", map[string]string{"../../etc/passwd": "pwned"})

	ext := NewExtractor(fs, "/scratch")
	_, err := ext.Extract("/bundles/evil.zip", "evil")
	require.Error(t, err)
}

func TestCleanupRemovesScratchDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeZip(t, fs, "/bundles/app.zip", map[string]string{"f.txt": "x"})

	ext := NewExtractor(fs, "/scratch")
	x, err := ext.Extract("/bundles/app.zip", "id1")
	require.NoError(t, err)

	require.NoError(t, ext.Cleanup(x))
	exists, err := afero.DirExists(fs, "/scratch/id1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCleanupNilExtractionIsNoop(t *testing.T) {
	ext := NewExtractor(afero.NewMemMapFs(), "/scratch")
	require.NoError(t, ext.Cleanup(nil))
}
