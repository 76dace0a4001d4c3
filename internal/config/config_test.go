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

package config

import (
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestDefaultAndValidateFillsDefaults(t *testing.T) {
	o := Options{InputRoot: "/in", ScratchRoot: "/scratch", ManifestRoot: "/manifests", Namespace: "lxc"}
	require.NoError(t, o.DefaultAndValidate(log.NewNopLogger()))

	require.Equal(t, DefaultOperatorID, o.OperatorID)
	require.Equal(t, DefaultContainerEngineBin, o.ContainerEngineBin)
	require.Equal(t, DefaultScanInterval, o.ScanInterval)
}

func TestDefaultAndValidateRejectsMissingRoots(t *testing.T) {
	o := Options{}
	require.Error(t, o.DefaultAndValidate(log.NewNopLogger()))

	o = Options{InputRoot: "/in"}
	require.Error(t, o.DefaultAndValidate(log.NewNopLogger()))
}

func TestDefaultAndValidatePreservesExplicitValues(t *testing.T) {
	o := Options{
		InputRoot: "/in", ScratchRoot: "/scratch", ManifestRoot: "/manifests", Namespace: "lxc",
		OperatorID: "custom-operator", ContainerEngineBin: "docker",
	}
	require.NoError(t, o.DefaultAndValidate(log.NewNopLogger()))
	require.Equal(t, "custom-operator", o.OperatorID)
	require.Equal(t, "docker", o.ContainerEngineBin)
}
