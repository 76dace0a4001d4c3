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

import "k8s.io/apimachinery/pkg/runtime"

// DeepCopyInto copies all properties of this object into another object of
// the same type that is provided as a pointer.
func (in *ExtensionResource) DeepCopyInto(out *ExtensionResource) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = in.Spec
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new ExtensionResource.
func (in *ExtensionResource) DeepCopy() *ExtensionResource {
	if in == nil {
		return nil
	}
	out := new(ExtensionResource)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ExtensionResource) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies all properties of this object into another object of
// the same type that is provided as a pointer.
func (in *ExtensionResourceList) DeepCopyInto(out *ExtensionResourceList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		l := make([]ExtensionResource, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&l[i])
		}
		out.Items = l
	}
}

// DeepCopy copies the receiver, creating a new ExtensionResourceList.
func (in *ExtensionResourceList) DeepCopy() *ExtensionResourceList {
	if in == nil {
		return nil
	}
	out := new(ExtensionResourceList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ExtensionResourceList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies all properties of this object into another object of
// the same type that is provided as a pointer.
func (in *ExtensionResourceStatus) DeepCopyInto(out *ExtensionResourceStatus) {
	*out = *in
	if in.LCP != nil {
		out.LCP = in.LCP.DeepCopy()
	}
}

// DeepCopy copies the receiver, creating a new ExtensionResourceStatus.
func (in *ExtensionResourceStatus) DeepCopy() *ExtensionResourceStatus {
	if in == nil {
		return nil
	}
	out := new(ExtensionResourceStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies all properties of this object into another object of
// the same type that is provided as a pointer.
func (in *LCPStatus) DeepCopyInto(out *LCPStatus) {
	*out = *in
	if in.TargetPort != nil {
		p := *in.TargetPort
		out.TargetPort = &p
	}
	if in.Env != nil {
		m := make(map[string]string, len(in.Env))
		for k, v := range in.Env {
			m[k] = v
		}
		out.Env = m
	}
}

// DeepCopy copies the receiver, creating a new LCPStatus.
func (in *LCPStatus) DeepCopy() *LCPStatus {
	if in == nil {
		return nil
	}
	out := new(LCPStatus)
	in.DeepCopyInto(out)
	return out
}
