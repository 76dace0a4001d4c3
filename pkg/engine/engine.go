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

// Package engine wraps the local container engine CLI (build / kube down /
// play kube) as an injected capability, so the controllers that drive it
// can be exercised against a recording fake instead of a real daemon.
package engine

import "context"

// Engine is the capability the Build and Deployment Controllers use to
// drive container images and workloads into the local engine.
type Engine interface {
	// Build builds an image tagged tag using dir as the build context.
	Build(ctx context.Context, tag, dir string) error
	// KubeDown tears down any workload previously materialized from
	// manifestFile. Failures are expected when nothing was running yet
	// and must be tolerated by the caller.
	KubeDown(ctx context.Context, manifestFile string) error
	// KubePlay materializes the workload(s) described by manifestFile,
	// replacing any existing instance.
	KubePlay(ctx context.Context, manifestFile string) error
}
