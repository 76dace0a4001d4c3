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

package mirror

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
	"github.com/liferay/lxc-workload-operator/pkg/fingerprint"
)

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	sc := runtime.NewScheme()
	require.NoError(t, lxcv1.AddToScheme(sc))
	return sc
}

func TestReconcileRecordsHash(t *testing.T) {
	res := &lxcv1.ExtensionResource{
		ObjectMeta: metav1.ObjectMeta{Name: "hello", Namespace: "lxc"},
		Spec:       lxcv1.ExtensionResourceSpec{SourcePath: "/input/acme/hello.zip", ZipHash: "abc123"},
	}
	c := fake.NewClientBuilder().WithScheme(newScheme(t)).WithObjects(res).Build()
	store := fingerprint.New()
	r := &Reconciler{Client: c, Store: store, Logger: log.NewNopLogger()}

	_, err := r.Reconcile(context.Background(), reconcile.Request{NamespacedName: types.NamespacedName{Name: "hello", Namespace: "lxc"}})
	require.NoError(t, err)

	got, ok := store.Get("/input/acme/hello.zip")
	require.True(t, ok)
	require.Equal(t, "abc123", got)
}

func TestReconcileForgetsOnDelete(t *testing.T) {
	res := &lxcv1.ExtensionResource{
		ObjectMeta: metav1.ObjectMeta{Name: "hello", Namespace: "lxc"},
		Spec:       lxcv1.ExtensionResourceSpec{SourcePath: "/input/acme/hello.zip", ZipHash: "abc123"},
	}
	c := fake.NewClientBuilder().WithScheme(newScheme(t)).WithObjects(res).Build()
	store := fingerprint.New()
	r := &Reconciler{Client: c, Store: store, Logger: log.NewNopLogger()}

	req := reconcile.Request{NamespacedName: types.NamespacedName{Name: "hello", Namespace: "lxc"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, c.Delete(context.Background(), res))
	_, err = r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	_, ok := store.Get("/input/acme/hello.zip")
	require.False(t, ok)
}
