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

// Package lcp parses the LCP.json descriptor that accompanies a client
// extension bundle and locates the Dockerfile it builds from.
package lcp

import (
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Descriptor is the subset of an LCP.json file the operator acts on. An
// absent file is represented as the empty Descriptor (Kind defaults to
// "Service" via IsJob rather than at parse time, so a zero-value Descriptor
// is still meaningful).
type Descriptor struct {
	ID           string        `json:"id,omitempty"`
	Kind         string        `json:"kind,omitempty"`
	LoadBalancer *LoadBalancer `json:"loadBalancer,omitempty"`
	Memory       string        `json:"memory,omitempty"`
	CPU          string        `json:"cpu,omitempty"`
	Env          map[string]interface{} `json:"env,omitempty"`
}

// LoadBalancer carries the optional target port that makes a service
// routable.
type LoadBalancer struct {
	TargetPort *int32 `json:"targetPort,omitempty"`
}

// IsJob reports whether this descriptor describes a run-to-completion job,
// matching "kind" case-insensitively against "job"; any other value,
// including absence, means a long-running Service.
func (d *Descriptor) IsJob() bool {
	return d != nil && strings.EqualFold(d.Kind, "job")
}

// TargetPort returns the load balancer's target port, or nil when the
// descriptor declares none.
func (d *Descriptor) TargetPort() *int32 {
	if d == nil || d.LoadBalancer == nil {
		return nil
	}
	return d.LoadBalancer.TargetPort
}

// StringEnv stringifies every env value, matching the source's acceptance
// of scalar JSON values (strings, numbers, booleans) as environment values.
func (d *Descriptor) StringEnv() map[string]string {
	out := make(map[string]string, len(d.Env))
	for k, v := range d.Env {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// Find walks dir looking for the first file named LCP.json, matching the
// original implementation's recursive-glob-then-take-first-hit behavior,
// and parses it.
func Find(afs afero.Fs, dir string) (*Descriptor, string, error) {
	var (
		path string
		desc Descriptor
	)

	err := afero.Walk(afs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != "" || info.IsDir() {
			return nil
		}
		if info.Name() == "LCP.json" {
			path = p
		}
		return nil
	})
	if err != nil {
		return nil, "", errors.Wrapf(err, "walk %q for LCP.json", dir)
	}
	if path == "" {
		return nil, "", errors.Errorf("no LCP.json found under %q", dir)
	}

	raw, err := afero.ReadFile(afs, path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %q", path)
	}
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, "", errors.Wrapf(err, "parse %q", path)
	}

	return &desc, path, nil
}

// DockerfilePath returns the Dockerfile expected alongside the descriptor's
// directory.
func DockerfilePath(lcpPath string) string {
	return filepath.Join(filepath.Dir(lcpPath), "Dockerfile")
}

// InjectBuildArgs appends ENV directives for each entry of env to the
// Dockerfile's contents, and a Traefik router label when targetPort is set,
// mirroring the env-and-label injection the original build step performs
// before invoking the container engine.
func InjectBuildArgs(dockerfile []byte, env map[string]string, serviceID string, targetPort *int32) []byte {
	var b strings.Builder
	b.Write(dockerfile)
	if len(dockerfile) > 0 && dockerfile[len(dockerfile)-1] != '\n' {
		b.WriteByte('\n')
	}

	for _, k := range sortedKeys(env) {
		b.WriteString("ENV ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(env[k])
		b.WriteByte('\n')
	}

	if targetPort != nil {
		b.WriteString("LABEL traefik.enable=true\n")
		b.WriteString("LABEL traefik.http.services." + serviceID + ".loadbalancer.server.port=" + strconv.Itoa(int(*targetPort)) + "\n")
	}

	return []byte(b.String())
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
