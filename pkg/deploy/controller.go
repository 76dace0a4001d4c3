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

// Package deploy implements the Deployment Controller: it fans in the
// provision, init, and dxp config-object streams per (virtual-instance-id,
// service-id) and deploys a workload through the container engine once the
// right combination of objects exists.
package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/afero"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/liferay/lxc-workload-operator/pkg/engine"
	"github.com/liferay/lxc-workload-operator/pkg/index"
	"github.com/liferay/lxc-workload-operator/pkg/labels"
	"github.com/liferay/lxc-workload-operator/pkg/lcp"
	"github.com/liferay/lxc-workload-operator/pkg/manifest"
	"github.com/liferay/lxc-workload-operator/pkg/status"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
)

// oauthMarkers are the substrings whose presence anywhere in a provision
// object's data triggers the traffic-forwarding sidecar; this is a
// deliberate approximation of inspecting each value's declared type.
var oauthMarkers = []string{"oAuthApplicationHeadlessServer", "oAuthApplicationUserAgent"}

type objRef struct {
	kind string
	key  index.Key
}

// Reconciler is the Deployment Controller.
type Reconciler struct {
	Client client.Client
	Engine engine.Engine
	Status *status.Reporter
	Logger log.Logger

	ManifestFS    afero.Fs
	ManifestRoot  string
	Namespace     string
	OperatorID    string
	ForwarderHost string
	ForwarderPort int32

	provisionIdx *index.VS
	initIdx      *index.VS
	dxpIdx       *index.V

	mu   sync.Mutex
	seen map[string]objRef
}

// NewReconciler returns a Reconciler with its indices initialized.
func NewReconciler() *Reconciler {
	return &Reconciler{
		provisionIdx: index.NewVS(),
		initIdx:      index.NewVS(),
		dxpIdx:       index.NewV(),
		seen:         make(map[string]objRef),
	}
}

var metadataTypePredicate = predicate.NewPredicateFuncs(func(obj client.Object) bool {
	switch obj.GetLabels()[labels.MetadataType] {
	case labels.MetadataTypeProvision, labels.MetadataTypeInit, labels.MetadataTypeDXP:
		return true
	default:
		return false
	}
})

// SetupWithManager registers the Deployment Controller, watching every
// ConfigMap but filtering to the three recognized metadata types.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named("deployment-controller").
		For(&corev1.ConfigMap{}, builder.WithPredicates(metadataTypePredicate)).
		Complete(r)
}

// Reconcile implements reconcile.Reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	var cm corev1.ConfigMap
	err := r.Client.Get(ctx, req.NamespacedName, &cm)
	if apierrors.IsNotFound(err) {
		r.forget(req.Name)
		return reconcile.Result{}, nil
	}
	if err != nil {
		return reconcile.Result{}, err
	}

	kind := cm.Labels[labels.MetadataType]
	v := cm.Labels[labels.VirtualInstanceID]
	s := cm.Labels[labels.ServiceID]
	key := index.Key{VirtualInstanceID: v, ServiceID: s}

	switch kind {
	case labels.MetadataTypeProvision:
		r.provisionIdx.Put(key, cm.Name)
		r.remember(cm.Name, objRef{kind: kind, key: key})
		r.attemptDeployment(ctx, v, s)
	case labels.MetadataTypeInit:
		r.initIdx.Put(key, cm.Name)
		r.remember(cm.Name, objRef{kind: kind, key: key})
		r.attemptDeployment(ctx, v, s)
	case labels.MetadataTypeDXP:
		r.dxpIdx.Put(v, cm.Name)
		r.remember(cm.Name, objRef{kind: kind, key: index.Key{VirtualInstanceID: v}})
		r.fanOutDXP(ctx, v)
	}

	return reconcile.Result{}, nil
}

func (r *Reconciler) remember(name string, ref objRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[name] = ref
}

func (r *Reconciler) forget(name string) {
	r.mu.Lock()
	ref, ok := r.seen[name]
	delete(r.seen, name)
	r.mu.Unlock()
	if !ok {
		return
	}
	switch ref.kind {
	case labels.MetadataTypeProvision:
		r.provisionIdx.Delete(ref.key, name)
	case labels.MetadataTypeInit:
		r.initIdx.Delete(ref.key, name)
	case labels.MetadataTypeDXP:
		r.dxpIdx.Delete(ref.key.VirtualInstanceID, name)
	}
}

// fanOutDXP re-attempts deployment for every service currently BuildReady
// under virtual-instance v, isolating each service's failure from the rest.
func (r *Reconciler) fanOutDXP(ctx context.Context, v string) {
	for _, key := range r.provisionIdx.Keys(v) {
		func() {
			defer func() {
				if p := recover(); p != nil {
					level.Warn(r.Logger).Log("msg", "deploy: panic during DXP fan-out, isolated", "virtualInstanceId", v, "serviceId", key.ServiceID, "panic", p)
				}
			}()
			r.attemptDeployment(ctx, key.VirtualInstanceID, key.ServiceID)
		}()
	}
}

// attemptDeployment is the single idempotent entry point every trigger
// funnels into. Missing dependencies return silently; only true failures
// during the deploy step transition the resource to Failed.
func (r *Reconciler) attemptDeployment(ctx context.Context, v, s string) {
	key := index.Key{VirtualInstanceID: v, ServiceID: s}
	name := types.NamespacedName{Name: s, Namespace: r.Namespace}

	if !r.provisionIdx.Has(key) {
		return
	}
	provisionNames := r.provisionIdx.Names(key)
	var provision corev1.ConfigMap
	if err := r.Client.Get(ctx, types.NamespacedName{Name: provisionNames[0], Namespace: r.Namespace}, &provision); err != nil {
		level.Debug(r.Logger).Log("msg", "deploy: provision object read failed, will retry on next event", "virtualInstanceId", v, "serviceId", s, "err", err)
		return
	}

	if !r.dxpIdx.Has(v) {
		return
	}
	dxpNames := r.dxpIdx.Names(v)
	var dxp corev1.ConfigMap
	if err := r.Client.Get(ctx, types.NamespacedName{Name: dxpNames[0], Namespace: r.Namespace}, &dxp); err != nil {
		level.Debug(r.Logger).Log("msg", "deploy: dxp object read failed, will retry on next event", "virtualInstanceId", v, "err", err)
		return
	}

	oauth := detectOAuth(provision.Data)

	var initRef *manifest.ConfigRef
	if oauth {
		if !r.initIdx.Has(key) {
			return
		}
		initNames := r.initIdx.Names(key)
		var initCM corev1.ConfigMap
		if err := r.Client.Get(ctx, types.NamespacedName{Name: initNames[0], Namespace: r.Namespace}, &initCM); err != nil {
			level.Debug(r.Logger).Log("msg", "deploy: init object read failed, will retry on next event", "virtualInstanceId", v, "serviceId", s, "err", err)
			return
		}
		initRef = &manifest.ConfigRef{MountName: "ext-init-metadata", Name: initCM.Name, Data: initCM.Data}
	}

	r.Status.Patch(ctx, name, status.Update{Phase: lxcv1.PhaseDeploying})

	desc := parseLCPAnnotation(provision.Annotations[labels.LCPJSON], r.Logger)
	hostRule := provision.Annotations[labels.Domains]
	var url string
	if hostRule != "" {
		url = "http://" + hostRule
	}

	imageTag := strings.ToLower(fmt.Sprintf("%s/%s:latest", v, s))
	workloadKind := manifest.KindPod
	if desc.IsJob() {
		workloadKind = manifest.KindJob
	}

	forwarderHost := r.resolveForwarderHost(ctx, v, s)

	spec := manifest.Spec{
		ServiceID:         s,
		VirtualInstanceID: v,
		OperatorID:        r.OperatorID,
		Kind:              workloadKind,
		Image:             imageTag,
		Env:               desc.StringEnv(),
		TargetPort:        desc.TargetPort(),
		HostRule:          hostRule,
		Provision:         manifest.ConfigRef{MountName: "ext-provision-metadata", Name: provision.Name, Data: provision.Data},
		DXP:               manifest.ConfigRef{MountName: "dxp-metadata", Name: dxp.Name, Data: dxp.Data},
		Init:              initRef,
		ForwarderHost:     forwarderHost,
		ForwarderPort:     r.ForwarderPort,
	}

	doc, err := manifest.Assemble(spec)
	if err != nil {
		r.Status.Patch(ctx, name, status.Update{Phase: lxcv1.PhaseFailed, Message: err.Error()})
		return
	}

	manifestFile := filepath.Join(r.ManifestRoot, "workload-"+s+".yaml")
	if err := afero.WriteFile(r.ManifestFS, manifestFile, doc, 0o644); err != nil {
		r.Status.Patch(ctx, name, status.Update{Phase: lxcv1.PhaseFailed, Message: err.Error()})
		return
	}

	if err := r.Engine.KubeDown(ctx, manifestFile); err != nil {
		level.Debug(r.Logger).Log("msg", "deploy: kube down of prior instance failed, ignoring", "manifest", manifestFile, "err", err)
	}

	if err := r.Engine.KubePlay(ctx, manifestFile); err != nil {
		r.Status.Patch(ctx, name, status.Update{Phase: lxcv1.PhaseFailed, Message: err.Error()})
		return
	}

	finalPhase := lxcv1.PhaseRunning
	if desc.IsJob() {
		finalPhase = lxcv1.PhaseCompleted
	}
	r.Status.Patch(ctx, name, status.Update{Phase: finalPhase, Image: imageTag, URL: url})
}

// resolveForwarderHost resolves r.ForwarderHost to an address before it is
// baked into the sidecar's FORWARD_HOST env var, mirroring the original's
// get_liferay_ip() call to socket.gethostbyname(LIFERAY_SERVICE_HOST). A
// literal IP resolves to itself; an unresolvable name falls back to the
// configured value rather than failing the deployment.
func (r *Reconciler) resolveForwarderHost(ctx context.Context, v, s string) string {
	if r.ForwarderHost == "" {
		return r.ForwarderHost
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, r.ForwarderHost)
	if err != nil || len(addrs) == 0 {
		level.Debug(r.Logger).Log("msg", "deploy: forwarder host lookup failed, using configured value as-is", "virtualInstanceId", v, "serviceId", s, "host", r.ForwarderHost, "err", err)
		return r.ForwarderHost
	}
	return addrs[0]
}

func detectOAuth(data map[string]string) bool {
	for _, v := range data {
		for _, marker := range oauthMarkers {
			if strings.Contains(v, marker) {
				return true
			}
		}
	}
	return false
}

func parseLCPAnnotation(raw string, logger log.Logger) *lcp.Descriptor {
	if raw == "" {
		return &lcp.Descriptor{}
	}
	var desc lcp.Descriptor
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		level.Warn(logger).Log("msg", "deploy: malformed lcp-json annotation, using empty descriptor", "err", err)
		return &lcp.Descriptor{}
	}
	return &desc
}
