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

package build

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// provisionConfigMap is the reduced description of a provision object
// before it is turned into a corev1.ConfigMap for the upsert.
type provisionConfigMap struct {
	name        string
	namespace   string
	labels      map[string]string
	annotations map[string]string
	data        map[string]string
}

// upsertConfigMap creates obj, or replaces it on a conflict, mirroring the
// original's create-then-replace-on-409 pattern.
func upsertConfigMap(ctx context.Context, c client.Client, obj *provisionConfigMap) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:        obj.name,
			Namespace:   obj.namespace,
			Labels:      obj.labels,
			Annotations: obj.annotations,
		},
		Data: obj.data,
	}

	err := c.Create(ctx, cm)
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return errors.Wrapf(err, "create config object %q", obj.name)
	}

	var existing corev1.ConfigMap
	if err := c.Get(ctx, types.NamespacedName{Name: obj.name, Namespace: obj.namespace}, &existing); err != nil {
		return errors.Wrapf(err, "get existing config object %q for replace", obj.name)
	}
	existing.Labels = obj.labels
	existing.Annotations = obj.annotations
	existing.Data = obj.data

	return errors.Wrapf(c.Update(ctx, &existing), "replace config object %q", obj.name)
}
