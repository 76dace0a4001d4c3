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

// Package mirror keeps an event-driven, in-memory mirror of the
// ExtensionResource collection's spec.zipHash into the Fingerprint Store,
// closing the write loop the Directory Watcher depends on without putting
// the cluster API on the watcher's hot path.
package mirror

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
	"github.com/liferay/lxc-workload-operator/pkg/fingerprint"
)

// Reconciler mirrors ExtensionResource spec.zipHash values into a
// fingerprint.Store as resources are added, changed, or removed.
type Reconciler struct {
	Client client.Client
	Store  *fingerprint.Store
	Logger log.Logger

	mu         sync.Mutex
	pathByName map[string]string
}

// SetupWithManager registers the reconciler with mgr, watching only
// ExtensionResources; this mirror has no dependency on any other object
// kind.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named("cr-mirror").
		For(&lxcv1.ExtensionResource{}).
		Complete(r)
}

// Reconcile implements reconcile.Reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	key := req.NamespacedName.String()

	var res lxcv1.ExtensionResource
	if err := r.Client.Get(ctx, req.NamespacedName, &res); err != nil {
		if apierrors.IsNotFound(err) {
			r.mu.Lock()
			path, ok := r.pathByName[key]
			delete(r.pathByName, key)
			r.mu.Unlock()
			if ok {
				r.Store.Forget(path)
				level.Debug(r.Logger).Log("msg", "forgot zip hash", "resource", req.NamespacedName, "path", path)
			}
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	if res.Spec.ZipHash != "" && res.Spec.SourcePath != "" {
		r.Store.Record(res.Spec.SourcePath, res.Spec.ZipHash)

		r.mu.Lock()
		if r.pathByName == nil {
			r.pathByName = make(map[string]string)
		}
		r.pathByName[key] = res.Spec.SourcePath
		r.mu.Unlock()

		level.Debug(r.Logger).Log("msg", "mirrored zip hash", "resource", req.NamespacedName, "path", res.Spec.SourcePath)
	}

	return reconcile.Result{}, nil
}
