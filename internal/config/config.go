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

// Package config holds the operator's compile-time/environment
// configuration and its validation.
package config

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// DefaultScanInterval is how often the Directory Watcher re-scans the
	// input tree for new or changed bundles.
	DefaultScanInterval = 5 * time.Second
	// DefaultOperatorID labels every workload this operator deploys.
	DefaultOperatorID = "lxc-workload-operator"
	// DefaultContainerEngineBin is the CLI binary driven for build/deploy.
	DefaultContainerEngineBin = "podman"
)

// Options is the full set of runtime knobs the operator accepts:
// input/scratch/manifest roots, forwarder target, cluster DNS suffix,
// namespace, operator id, container engine binary, and scan interval. The
// CR group/version/plural are not options; they are compile-time constants
// in pkg/apis/lxc/v1 and pkg/operator.
type Options struct {
	// InputRoot is the directory tree scanned for *.zip bundles.
	InputRoot string
	// ScratchRoot is where bundles are extracted for a build attempt.
	ScratchRoot string
	// ManifestRoot is where per-workload manifest YAML files are written.
	ManifestRoot string

	// ClusterDomain suffixes every computed host rule.
	ClusterDomain string
	// ForwarderHost and ForwarderPort address the Liferay instance the
	// OAuth sidecar forwards traffic to.
	ForwarderHost string
	ForwarderPort int32

	// Namespace scopes every cluster object the operator manages.
	Namespace string
	// OperatorID is stamped onto every workload's managed-by label.
	OperatorID string

	// ContainerEngineBin is the CLI binary used to build images and
	// materialize workloads (build / kube down / play kube).
	ContainerEngineBin string

	// ScanInterval is how often the Directory Watcher re-scans InputRoot.
	ScanInterval time.Duration
}

// DefaultAndValidate fills in defaults for unset fields and rejects options
// that have no sane default, logging a warning for optional fields left
// empty that a production deployment would normally set explicitly.
func (o *Options) DefaultAndValidate(logger log.Logger) error {
	if o.OperatorID == "" {
		o.OperatorID = DefaultOperatorID
	}
	if o.ContainerEngineBin == "" {
		o.ContainerEngineBin = DefaultContainerEngineBin
	}
	if o.ScanInterval == 0 {
		o.ScanInterval = DefaultScanInterval
	}

	if o.InputRoot == "" {
		return errors.New("InputRoot must be set")
	}
	if o.ScratchRoot == "" {
		return errors.New("ScratchRoot must be set")
	}
	if o.ManifestRoot == "" {
		return errors.New("ManifestRoot must be set")
	}
	if o.Namespace == "" {
		return errors.New("Namespace must be set")
	}
	if o.ClusterDomain == "" {
		level.Warn(logger).Log("msg", "no ClusterDomain set, host rules will have an empty suffix")
	}
	if o.ForwarderHost == "" {
		level.Warn(logger).Log("msg", "no ForwarderHost set, OAuth sidecars will fail to forward traffic")
	}
	return nil
}
