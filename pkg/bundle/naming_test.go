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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeLowercasesAndReplacesSeparators(t *testing.T) {
	require.Equal(t, "hello-world-app", Sanitize("Hello_World.app"))
}

func TestIdentityForDerivesVirtualInstanceAndService(t *testing.T) {
	id := IdentityFor("/input/acme/Hello_World.zip")
	require.Equal(t, "acme", id.VirtualInstanceID)
	require.Equal(t, "hello-world", id.ServiceID)
	require.Equal(t, "/input/acme/Hello_World.zip", id.Path)
}
