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

package engine

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestCLIBuildSucceedsOnZeroExit(t *testing.T) {
	c := NewCLI("/bin/echo", log.NewNopLogger())
	err := c.Build(context.Background(), "acme/hello:latest", "/tmp")
	require.NoError(t, err)
}

func TestCLIRunFailsOnNonZeroExit(t *testing.T) {
	c := NewCLI("/bin/false", log.NewNopLogger())
	err := c.KubePlay(context.Background(), "/tmp/workload-hello.yaml")
	require.Error(t, err)
}
