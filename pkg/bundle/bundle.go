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

// Package bundle extracts client-extension zip archives into scratch build
// directories and cleans them up once a build attempt is done with them.
package bundle

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Extraction is a scratch directory holding the unpacked contents of one
// bundle, plus the id (the caller-supplied resource name) used to namespace
// it under the scratch root.
type Extraction struct {
	ID  string
	Dir string
}

// Extractor unpacks zip bundles onto an afero filesystem rooted at a scratch
// directory. Each extraction gets its own subdirectory named after the
// bundle's id so concurrent builds for distinct resources never collide.
type Extractor struct {
	fs    afero.Fs
	root  string
}

// NewExtractor returns an Extractor that scratches extractions under root.
func NewExtractor(fs afero.Fs, root string) *Extractor {
	return &Extractor{fs: fs, root: root}
}

// Extract unpacks the zip archive at zipPath into a fresh subdirectory of
// the scratch root named id, removing any stale directory left behind by a
// prior attempt for the same id first.
func (e *Extractor) Extract(zipPath, id string) (*Extraction, error) {
	dir := filepath.Join(e.root, id)
	if err := e.fs.RemoveAll(dir); err != nil {
		return nil, errors.Wrapf(err, "clean stale scratch dir %q", dir)
	}
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create scratch dir %q", dir)
	}

	f, err := e.fs.Open(zipPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open bundle %q", zipPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat bundle %q", zipPath)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "open zip reader for %q", zipPath)
	}

	for _, zf := range zr.File {
		if err := e.extractFile(dir, zf); err != nil {
			return nil, errors.Wrapf(err, "extract %q from %q", zf.Name, zipPath)
		}
	}

	return &Extraction{ID: id, Dir: dir}, nil
}

func (e *Extractor) extractFile(dir string, zf *zip.File) error {
	target := filepath.Join(dir, filepath.Clean(zf.Name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) && target != filepath.Clean(dir) {
		return errors.Errorf("zip entry %q escapes extraction root", zf.Name)
	}

	if zf.FileInfo().IsDir() {
		return e.fs.MkdirAll(target, 0o755)
	}
	if err := e.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := e.fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, zf.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// Cleanup removes an extraction's scratch directory once a build attempt
// has finished with it, successfully or not.
func (e *Extractor) Cleanup(x *Extraction) error {
	if x == nil {
		return nil
	}
	return e.fs.RemoveAll(x.Dir)
}
