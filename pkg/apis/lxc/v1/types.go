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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Phase is a position in the ExtensionResource status lattice. Transitions
// are monotonic within one reconciliation attempt; a new spec hash resets
// the phase back to PhaseBuilding.
type Phase string

const (
	PhaseBuilding   Phase = "Building"
	PhaseBuildReady Phase = "BuildReady"
	PhaseDeploying  Phase = "Deploying"
	PhaseRunning    Phase = "Running"
	PhaseCompleted  Phase = "Completed"
	PhaseFailed     Phase = "Failed"
)

// ExtensionResource is the desired-state record for one bundle: where its
// zip archive lives and the content hash last observed for it. The status
// subresource tracks the build-and-deploy phase lattice.
// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type ExtensionResource struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ExtensionResourceSpec   `json:"spec,omitempty"`
	Status ExtensionResourceStatus `json:"status,omitempty"`
}

// ExtensionResourceList is a list of ExtensionResources.
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
type ExtensionResourceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ExtensionResource `json:"items"`
}

// ExtensionResourceSpec is the desired state of one bundle.
type ExtensionResourceSpec struct {
	// SourcePath is the absolute path to the zip archive on the shared
	// filesystem the operator's host mounts.
	SourcePath string `json:"sourcePath,omitempty"`
	// ZipHash is the hex-encoded SHA-256 of the bundle's contents as last
	// observed by the Directory Watcher.
	ZipHash string `json:"zipHash,omitempty"`
}

// ExtensionResourceStatus is the last-observed build/deploy outcome.
type ExtensionResourceStatus struct {
	Phase   Phase      `json:"phase,omitempty"`
	Image   string     `json:"image,omitempty"`
	URL     string     `json:"url,omitempty"`
	Message string     `json:"message,omitempty"`
	LCP     *LCPStatus `json:"lcp,omitempty"`
}

// LCPStatus is the subset of a parsed LCP descriptor surfaced on status.
type LCPStatus struct {
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type,omitempty"`
	TargetPort *int32            `json:"targetPort,omitempty"`
	Memory     string            `json:"memory,omitempty"`
	CPU        string            `json:"cpu,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}
