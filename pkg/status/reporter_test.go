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

package status

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
)

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	sc := runtime.NewScheme()
	require.NoError(t, lxcv1.AddToScheme(sc))
	return sc
}

func TestPatchUpdatesPhaseAndImage(t *testing.T) {
	res := &lxcv1.ExtensionResource{
		ObjectMeta: metav1.ObjectMeta{Name: "hello", Namespace: "lxc"},
		Status:     lxcv1.ExtensionResourceStatus{Phase: lxcv1.PhaseBuilding},
	}
	c := fake.NewClientBuilder().WithScheme(newScheme(t)).WithObjects(res).WithStatusSubresource(res).Build()

	r := New(c, log.NewNopLogger())
	r.Patch(context.Background(), types.NamespacedName{Name: "hello", Namespace: "lxc"}, Update{
		Phase: lxcv1.PhaseBuildReady,
		Image: "acme/hello:latest",
		URL:   "http://hello.acme.example.com",
	})

	var got lxcv1.ExtensionResource
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "hello", Namespace: "lxc"}, &got))
	require.Equal(t, lxcv1.PhaseBuildReady, got.Status.Phase)
	require.Equal(t, "acme/hello:latest", got.Status.Image)
	require.Equal(t, "http://hello.acme.example.com", got.Status.URL)
}

func TestPatchOnMissingResourceIsNoop(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(newScheme(t)).Build()
	r := New(c, log.NewNopLogger())

	require.NotPanics(t, func() {
		r.Patch(context.Background(), types.NamespacedName{Name: "missing", Namespace: "lxc"}, Update{Phase: lxcv1.PhaseFailed})
	})
}
