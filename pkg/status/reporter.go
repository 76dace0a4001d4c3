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

// Package status patches an ExtensionResource's status subresource through
// the build/deploy phase lattice. It is the only component allowed to
// write status; failures to do so are logged and swallowed rather than
// surfaced, since a missed status patch never endangers correctness — a
// subsequent event re-patches it.
package status

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
)

// Reporter patches ExtensionResource status subresources.
type Reporter struct {
	client client.Client
	logger log.Logger
}

// New returns a Reporter backed by c.
func New(c client.Client, logger log.Logger) *Reporter {
	return &Reporter{client: c, logger: logger}
}

// Update is the single operation the rest of the operator uses to report
// progress: phase is mandatory and Message is always written (an empty
// Message clears a previous one); Image, URL, and LCP are applied only when
// non-zero so that a caller can narrow a patch to just the phase transition.
type Update struct {
	Phase   lxcv1.Phase
	Image   string
	URL     string
	Message string
	LCP     *lxcv1.LCPStatus
}

// Patch reads the current ExtensionResource, keeps a deep copy of it as the
// patch base, applies u to its status, and issues a merge patch. Errors are
// logged and swallowed.
func (r *Reporter) Patch(ctx context.Context, name types.NamespacedName, u Update) {
	var res lxcv1.ExtensionResource
	if err := r.client.Get(ctx, name, &res); err != nil {
		if !apierrors.IsNotFound(err) {
			level.Warn(r.logger).Log("msg", "status patch: get failed", "resource", name, "err", err)
		}
		return
	}

	before := res.DeepCopy()
	res.Status.Phase = u.Phase
	if u.Image != "" {
		res.Status.Image = u.Image
	}
	if u.URL != "" {
		res.Status.URL = u.URL
	}
	res.Status.Message = u.Message
	if u.LCP != nil {
		res.Status.LCP = u.LCP
	}

	if err := r.client.Status().Patch(ctx, &res, client.MergeFrom(before)); err != nil {
		level.Warn(r.logger).Log("msg", "status patch: patch failed", "resource", name, "err", err)
	}
}
