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

package lcp

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestFindLocatesFirstDescriptor(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/META-INF/LCP.json",
		[]byte(`{"id":"app-1","kind":"Job","loadBalancer":{"targetPort":8080},"env":{"FOO":"bar"}}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/app/Dockerfile", []byte("FROM scratch\n"), 0o644))

	d, path, err := Find(fs, "/app")
	require.NoError(t, err)
	require.Equal(t, "/app/META-INF/LCP.json", path)
	require.Equal(t, "app-1", d.ID)
	require.True(t, d.IsJob())
	require.NotNil(t, d.TargetPort())
	require.EqualValues(t, 8080, *d.TargetPort())
	require.Equal(t, "bar", d.StringEnv()["FOO"])
}

func TestIsJobDefaultsToService(t *testing.T) {
	var d Descriptor
	require.False(t, d.IsJob())
	d.Kind = "Service"
	require.False(t, d.IsJob())
	d.Kind = "JOB"
	require.True(t, d.IsJob())
}

func TestStringEnvStringifiesScalars(t *testing.T) {
	d := Descriptor{Env: map[string]interface{}{
		"str":  "a",
		"num":  float64(3),
		"bool": true,
	}}
	env := d.StringEnv()
	require.Equal(t, "a", env["str"])
	require.Equal(t, "3", env["num"])
	require.Equal(t, "true", env["bool"])
}

func TestFindReturnsErrorWhenMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/app", 0o755))

	_, _, err := Find(fs, "/app")
	require.Error(t, err)
}

func TestDockerfilePathSiblingsDescriptor(t *testing.T) {
	require.Equal(t, "/app/META-INF/Dockerfile", DockerfilePath("/app/META-INF/LCP.json"))
}

func TestInjectBuildArgsAppendsEnvAndLabel(t *testing.T) {
	port := int32(9000)
	out := InjectBuildArgs([]byte("FROM scratch"), map[string]string{"B": "2", "A": "1"}, "svc-1", &port)

	want := "FROM scratch\nENV A=1\nENV B=2\nLABEL traefik.enable=true\nLABEL traefik.http.services.svc-1.loadbalancer.server.port=9000\n"
	require.Equal(t, want, string(out))
}

func TestInjectBuildArgsNoPortNoLabel(t *testing.T) {
	out := InjectBuildArgs([]byte("FROM scratch\n"), nil, "svc-1", nil)
	require.Equal(t, "FROM scratch\n", string(out))
}
