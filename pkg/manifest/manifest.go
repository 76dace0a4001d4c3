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

// Package manifest assembles the multi-document container-engine manifest
// that backs one workload: copies of the provision/dxp/init config objects
// followed by a Pod or Job document, joined the way a "kubectl get -o yaml"
// dump of several objects is joined.
package manifest

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// restartedAtAnnotation is stamped with a fresh value on every assembled
// template so "kube play --replace" always observes a changed pod template,
// even on a redeploy where the image tag and env are unchanged.
const restartedAtAnnotation = "lxc.liferay.com/restartedAt"

// WorkloadKind is the tagged variant distinguishing a long-running Pod from
// a run-to-completion Job; the assembler dispatches on it rather than
// modeling the two as a class hierarchy.
type WorkloadKind int

const (
	KindPod WorkloadKind = iota
	KindJob
)

// ConfigRef is a reduced copy of a cluster config object: just enough to
// mount it into the workload as a volume.
type ConfigRef struct {
	// MountName is the fixed volume name the spec assigns to this kind of
	// reference: ext-provision-metadata, dxp-metadata, or
	// ext-init-metadata.
	MountName string
	Name      string
	Data      map[string]string
}

// Spec describes everything needed to render one workload's manifest.
type Spec struct {
	ServiceID         string
	VirtualInstanceID string
	OperatorID        string

	Kind       WorkloadKind
	Image      string
	Env        map[string]string
	TargetPort *int32
	HostRule   string

	Provision ConfigRef
	DXP       ConfigRef
	Init      *ConfigRef // nil when OAuth is not in play

	ForwarderHost string
	ForwarderPort int32
}

const mountRoot = "/etc/liferay/lxc/"

// Assemble renders the manifest documents for s, joined with YAML document
// separators, matching the "N config copies + 1 workload" contract.
func Assemble(s Spec) ([]byte, error) {
	var docs [][]byte

	refs := []ConfigRef{s.Provision, s.DXP}
	if s.Init != nil {
		refs = append(refs, *s.Init)
	}

	for _, ref := range refs {
		cm := configMapDoc(ref)
		b, err := yaml.Marshal(cm)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal config object %q", ref.Name)
		}
		docs = append(docs, b)
	}

	workloadDoc, err := workloadDoc(s, refs)
	if err != nil {
		return nil, errors.Wrap(err, "assemble workload document")
	}
	docs = append(docs, workloadDoc)

	return bytes.Join(docs, []byte("---\n")), nil
}

// configMapDoc reduces a ConfigRef to {name, data}, mirroring the metadata
// reduction the Deployment Controller applies before embedding referenced
// objects in a manifest.
func configMapDoc(ref ConfigRef) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name: ref.Name,
		},
		Data: ref.Data,
	}
}

func labels(s Spec) map[string]string {
	l := map[string]string{
		"app":        s.ServiceID,
		"domain":     s.VirtualInstanceID,
		"managed-by": s.OperatorID,
	}
	if s.TargetPort != nil {
		l["traefik.frontend.entrypoints"] = "web"
		l["traefik.frontend.rule"] = "Host:" + s.HostRule
		l["traefik.port"] = strconv.Itoa(int(*s.TargetPort))
	}
	return l
}

func volumesAndMounts(refs []ConfigRef) ([]corev1.Volume, []corev1.VolumeMount) {
	volumes := make([]corev1.Volume, 0, len(refs))
	mounts := make([]corev1.VolumeMount, 0, len(refs))
	for _, ref := range refs {
		volumes = append(volumes, corev1.Volume{
			Name: ref.MountName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ref.Name},
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      ref.MountName,
			MountPath: mountRoot + ref.MountName,
		})
	}
	return volumes, mounts
}

func mainContainer(s Spec, mounts []corev1.VolumeMount) corev1.Container {
	env := make([]corev1.EnvVar, 0, len(s.Env))
	for _, k := range sortedKeys(s.Env) {
		env = append(env, corev1.EnvVar{Name: k, Value: s.Env[k]})
	}
	return corev1.Container{
		Name:            "main",
		Image:           s.Image,
		ImagePullPolicy: corev1.PullIfNotPresent,
		Env:             env,
		VolumeMounts:    mounts,
	}
}

func sidecarContainer(s Spec) corev1.Container {
	return corev1.Container{
		Name:  "sidecar",
		Image: "liferay/lxc-traffic-forwarder:latest",
		Ports: []corev1.ContainerPort{{ContainerPort: 80}},
		Env: []corev1.EnvVar{
			{Name: "FORWARD_HOST", Value: s.ForwarderHost},
			{Name: "FORWARD_PORT", Value: strconv.Itoa(int(s.ForwarderPort))},
		},
	}
}

func workloadDoc(s Spec, refs []ConfigRef) ([]byte, error) {
	volumes, mounts := volumesAndMounts(refs)
	containers := []corev1.Container{mainContainer(s, mounts)}
	if s.Init != nil {
		containers = append(containers, sidecarContainer(s))
	}

	name := "workload-" + s.ServiceID
	meta := metav1.ObjectMeta{Name: name, Labels: labels(s)}
	templateMeta := metav1.ObjectMeta{
		Labels:      meta.Labels,
		Annotations: map[string]string{restartedAtAnnotation: uuid.NewString()},
	}
	podSpec := corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
		Containers:    containers,
		Volumes:       volumes,
	}

	switch s.Kind {
	case KindJob:
		ttl := int32(60)
		backoff := int32(0)
		job := &batchv1.Job{
			TypeMeta:   metav1.TypeMeta{APIVersion: "batch/v1", Kind: "Job"},
			ObjectMeta: meta,
			Spec: batchv1.JobSpec{
				TTLSecondsAfterFinished: &ttl,
				BackoffLimit:            &backoff,
				Template: corev1.PodTemplateSpec{
					ObjectMeta: templateMeta,
					Spec:       podSpec,
				},
			},
		}
		return yaml.Marshal(job)
	default:
		meta.Annotations = templateMeta.Annotations
		pod := &corev1.Pod{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"},
			ObjectMeta: meta,
			Spec:       podSpec,
		}
		return yaml.Marshal(pod)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
