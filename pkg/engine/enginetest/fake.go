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

// Package enginetest provides a recording fake implementation of
// engine.Engine for tests that drive the Build and Deployment Controllers
// without a real container daemon.
package enginetest

import (
	"context"
	"sync"
)

// Call records one invocation against the fake.
type Call struct {
	Op           string // "build", "kube-down", "kube-play"
	Tag          string
	Dir          string
	ManifestFile string
}

// Fake is a recording, scriptable stand-in for engine.Engine.
type Fake struct {
	mu    sync.Mutex
	Calls []Call

	// BuildErr, KubeDownErr, KubePlayErr let a test script a failure for
	// the next call of the corresponding kind.
	BuildErr    error
	KubeDownErr error
	KubePlayErr error
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{}
}

func (f *Fake) Build(_ context.Context, tag, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "build", Tag: tag, Dir: dir})
	return f.BuildErr
}

func (f *Fake) KubeDown(_ context.Context, manifestFile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "kube-down", ManifestFile: manifestFile})
	return f.KubeDownErr
}

func (f *Fake) KubePlay(_ context.Context, manifestFile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: "kube-play", ManifestFile: manifestFile})
	return f.KubePlayErr
}

// CallsOf returns the recorded calls whose Op matches op, in order.
func (f *Fake) CallsOf(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
