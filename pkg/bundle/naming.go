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
	"path/filepath"
	"strings"
)

// Identity is a bundle's derived identity: the virtual-instance-id taken
// from its immediate parent directory, and the service-id taken from its
// own sanitized base name.
type Identity struct {
	VirtualInstanceID string
	ServiceID         string
	Path              string
}

// Sanitize lowercases name and replaces '_' and '.' with '-', matching the
// bundle-name-to-service-id derivation.
func Sanitize(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

// IdentityFor derives the Identity of the zip bundle at path. The parent
// directory's base name becomes the virtual-instance-id; the file's base
// name without extension, sanitized, becomes the service-id.
func IdentityFor(path string) Identity {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return Identity{
		VirtualInstanceID: filepath.Base(filepath.Dir(path)),
		ServiceID:         Sanitize(base),
		Path:              path,
	}
}
