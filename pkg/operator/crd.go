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

package operator

import (
	"context"

	"github.com/pkg/errors"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/rest"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
)

const extensionResourcePlural = "liferayextensions"

// extensionResourceCRD is the ExtensionResource type's on-the-wire shape,
// expressed as the same apiextensions-apiserver types the apiserver itself
// validates against, rather than as a YAML file the operator has no way to
// keep in sync with pkg/apis/lxc/v1.
func extensionResourceCRD() *apiextensionsv1.CustomResourceDefinition {
	preserveUnknownFields := true
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{
			Name: extensionResourcePlural + "." + lxcv1.GroupName,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: lxcv1.GroupName,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   extensionResourcePlural,
				Singular: "extensionresource",
				Kind:     "ExtensionResource",
				ListKind: "ExtensionResourceList",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    lxcv1.Version,
					Served:  true,
					Storage: true,
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type:                   "object",
							XPreserveUnknownFields: &preserveUnknownFields,
						},
					},
				},
			},
		},
	}
}

// ensureCRD installs the ExtensionResource CustomResourceDefinition if it is
// not already present, so a freshly deployed operator does not depend on an
// out-of-band "kubectl apply -f crd.yaml" step. An existing CRD, including
// one with a differently shaped schema, is left untouched.
func ensureCRD(ctx context.Context, cfg *rest.Config) error {
	cs, err := apiextensionsclientset.NewForConfig(cfg)
	if err != nil {
		return errors.Wrap(err, "build apiextensions client")
	}

	_, err = cs.ApiextensionsV1().CustomResourceDefinitions().Create(ctx, extensionResourceCRD(), metav1.CreateOptions{})
	if err == nil || apierrors.IsAlreadyExists(err) {
		return nil
	}
	return errors.Wrap(err, "create ExtensionResource CRD")
}
