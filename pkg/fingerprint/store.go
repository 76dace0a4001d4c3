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

// Package fingerprint tracks the content hash last recorded for every
// bundle (written by the CR Mirror, read by the Directory Watcher), so that
// re-observing an unchanged file never triggers a redundant upsert.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"github.com/spf13/afero"
)

// Store is a concurrency-safe map from a bundle's source path to the last
// SHA-256 hash observed for it. Zero value is unusable; use New.
type Store struct {
	mu   sync.RWMutex
	seen map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{seen: make(map[string]string)}
}

// Hash computes the hex-encoded SHA-256 digest of the file at path.
func Hash(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Changed reports whether hash differs from the last hash recorded for
// path, which is true the first time path is seen.
func (s *Store) Changed(path, hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seen[path] != hash
}

// Record stores hash as the last-observed fingerprint for path.
func (s *Store) Record(path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[path] = hash
}

// Forget removes path from the store, used when the ExtensionResource that
// recorded it has been deleted.
func (s *Store) Forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, path)
}

// Get returns the last-recorded hash for path and whether one exists.
func (s *Store) Get(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.seen[path]
	return h, ok
}
