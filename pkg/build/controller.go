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

// Package build implements the Build Controller: on ExtensionResource
// create/update it extracts the bundle, builds its image, and synthesizes
// the provision config object the Deployment Controller later joins on.
package build

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
	"github.com/liferay/lxc-workload-operator/pkg/bundle"
	"github.com/liferay/lxc-workload-operator/pkg/engine"
	"github.com/liferay/lxc-workload-operator/pkg/labels"
	"github.com/liferay/lxc-workload-operator/pkg/lcp"
	"github.com/liferay/lxc-workload-operator/pkg/status"
)

// Reconciler is the Build Controller.
type Reconciler struct {
	Client    client.Client
	FS        afero.Fs
	Extractor *bundle.Extractor
	Engine    engine.Engine
	Status    *status.Reporter
	Logger    log.Logger

	Namespace     string
	ClusterDomain string
}

// SetupWithManager registers the Build Controller, triggered by
// create/update of ExtensionResources only.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		Named("build-controller").
		For(&lxcv1.ExtensionResource{}).
		Complete(r)
}

// Reconcile implements reconcile.Reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	var res lxcv1.ExtensionResource
	if err := r.Client.Get(ctx, req.NamespacedName, &res); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	exists, err := afero.Exists(r.FS, res.Spec.SourcePath)
	if err != nil {
		level.Warn(r.Logger).Log("msg", "build: stat source path failed", "resource", req.NamespacedName, "err", err)
	}
	if !exists {
		r.Status.Patch(ctx, req.NamespacedName, status.Update{Phase: lxcv1.PhaseFailed, Message: "Zip file missing"})
		return reconcile.Result{}, nil
	}

	r.Status.Patch(ctx, req.NamespacedName, status.Update{Phase: lxcv1.PhaseBuilding})

	if err := r.build(ctx, req.NamespacedName, res); err != nil {
		r.Status.Patch(ctx, req.NamespacedName, status.Update{Phase: lxcv1.PhaseFailed, Message: err.Error()})
		return reconcile.Result{}, err
	}
	return reconcile.Result{}, nil
}

func (r *Reconciler) build(ctx context.Context, name types.NamespacedName, res lxcv1.ExtensionResource) error {
	id := bundle.IdentityFor(res.Spec.SourcePath)

	x, err := r.Extractor.Extract(res.Spec.SourcePath, name.Name)
	if err != nil {
		return errors.Wrap(err, "extract bundle")
	}
	defer func() {
		if err := r.Extractor.Cleanup(x); err != nil {
			level.Warn(r.Logger).Log("msg", "build: scratch cleanup failed", "resource", name, "err", err)
		}
	}()

	desc, lcpPath, err := lcp.Find(r.FS, x.Dir)
	if err != nil {
		desc = &lcp.Descriptor{}
		lcpPath = ""
	}

	serviceID := id.ServiceID
	if desc.ID != "" {
		serviceID = bundle.Sanitize(desc.ID)
	}

	imageTag := strings.ToLower(fmt.Sprintf("%s/%s:latest", id.VirtualInstanceID, serviceID))

	dockerfilePath := filepath.Join(x.Dir, "Dockerfile")
	if lcpPath != "" {
		dockerfilePath = lcp.DockerfilePath(lcpPath)
	}
	if err := r.maybeBuildImage(ctx, x.Dir, dockerfilePath, imageTag, serviceID, desc); err != nil {
		return errors.Wrap(err, "build image")
	}

	var hostRule, url string
	if tp := desc.TargetPort(); tp != nil {
		hostRule = fmt.Sprintf("%s.%s.%s", serviceID, id.VirtualInstanceID, r.ClusterDomain)
		url = "http://" + hostRule
	}

	data, err := r.provisionData(x.Dir, url)
	if err != nil {
		return errors.Wrap(err, "rewrite client-extension-config files")
	}

	if err := r.upsertProvisionObject(ctx, id.VirtualInstanceID, serviceID, res.Spec.ZipHash, hostRule, desc, data); err != nil {
		return errors.Wrap(err, "upsert provision object")
	}

	lcpSummary := &lxcv1.LCPStatus{
		ID:         serviceID,
		Type:       descKind(desc),
		TargetPort: desc.TargetPort(),
		Memory:     desc.Memory,
		CPU:        desc.CPU,
		Env:        desc.StringEnv(),
	}
	r.Status.Patch(ctx, name, status.Update{Phase: lxcv1.PhaseBuildReady, Image: imageTag, URL: url, LCP: lcpSummary})
	return nil
}

func descKind(d *lcp.Descriptor) string {
	if d.IsJob() {
		return "Job"
	}
	return "Service"
}

func (r *Reconciler) maybeBuildImage(ctx context.Context, dir, dockerfilePath, imageTag, serviceID string, desc *lcp.Descriptor) error {
	exists, err := afero.Exists(r.FS, dockerfilePath)
	if err != nil {
		return err
	}
	if !exists {
		level.Warn(r.Logger).Log("msg", "build: no Dockerfile at extract root, skipping image build", "dir", dir)
		return nil
	}

	raw, err := afero.ReadFile(r.FS, dockerfilePath)
	if err != nil {
		return err
	}
	injected := lcp.InjectBuildArgs(raw, desc.StringEnv(), serviceID, desc.TargetPort())
	if err := afero.WriteFile(r.FS, dockerfilePath, injected, 0o644); err != nil {
		return err
	}

	return r.Engine.Build(ctx, imageTag, dir)
}

// provisionData walks dir for *.client-extension-config.json files and
// returns filename -> rewritten, indented JSON content.
func (r *Reconciler) provisionData(dir, url string) (map[string]string, error) {
	data := make(map[string]string)

	err := afero.Walk(r.FS, dir, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".client-extension-config.json") {
			return nil
		}

		raw, err := afero.ReadFile(r.FS, path)
		if err != nil {
			return err
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			level.Warn(r.Logger).Log("msg", "build: malformed client-extension-config, leaving raw", "path", path, "err", err)
			data[info.Name()] = string(raw)
			return nil
		}

		if url != "" {
			for _, v := range doc {
				ext, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				ext["baseURL"] = url
				if _, hadHomePage := ext["homePageURL"]; hadHomePage {
					ext["homePageURL"] = url
				}
			}
		}

		out, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return err
		}
		data[info.Name()] = string(out)
		return nil
	})

	return data, err
}

func (r *Reconciler) upsertProvisionObject(ctx context.Context, virtualInstanceID, serviceID, zipHash, hostRule string, desc *lcp.Descriptor, data map[string]string) error {
	lcpJSON, err := json.Marshal(desc)
	if err != nil {
		return err
	}

	name := ProvisionObjectName(virtualInstanceID, serviceID)
	obj := &provisionConfigMap{
		name:      name,
		namespace: r.Namespace,
		labels: map[string]string{
			labels.MetadataType:      labels.MetadataTypeProvision,
			labels.VirtualInstanceID: virtualInstanceID,
			labels.ServiceID:         serviceID,
		},
		annotations: map[string]string{
			labels.ZipHash: zipHash,
			labels.LCPJSON: string(lcpJSON),
		},
		data: data,
	}
	if hostRule != "" {
		obj.annotations[labels.Domains] = hostRule
		obj.annotations[labels.MainDomain] = hostRule
	}

	return upsertConfigMap(ctx, r.Client, obj)
}

// ProvisionObjectName derives the deterministic name of the provision
// config object for (virtualInstanceID, serviceID).
func ProvisionObjectName(virtualInstanceID, serviceID string) string {
	return fmt.Sprintf("%s-%s-lxc-ext-provision-metadata", serviceID, virtualInstanceID)
}
