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

// Package watcher implements the background worker that scans the input
// tree for bundle files and upserts the ExtensionResource that mirrors
// each one's on-disk state.
package watcher

import (
	"context"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
	"github.com/liferay/lxc-workload-operator/pkg/bundle"
	"github.com/liferay/lxc-workload-operator/pkg/fingerprint"
)

// Watcher periodically scans InputRoot for *.zip bundles and upserts the
// ExtensionResource mirroring each one's spec.
type Watcher struct {
	FS        afero.Fs
	Client    client.Client
	Store     *fingerprint.Store
	Logger    log.Logger

	InputRoot    string
	Namespace    string
	ScanInterval time.Duration

	// ScanErrors, if set, counts scan errors: one per failed top-level walk
	// and one per walk-callback error on an individual entry, so a single
	// scan can add more than one. Nil is safe: callers that
	// don't care about the metric simply leave it unset.
	ScanErrors prometheus.Counter
}

func (w *Watcher) incScanErrors() {
	if w.ScanErrors != nil {
		w.ScanErrors.Inc()
	}
}

// Run scans InputRoot every ScanInterval until ctx is cancelled. It is the
// sole mechanism by which filesystem changes are picked up; an optional
// fsnotify watch only triggers an earlier scan, mirroring the teacher's own
// stance that fsnotify alone is not reliable enough to depend on.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.ScanInterval)
	defer ticker.Stop()

	trigger := w.watchFS(ctx)

	w.scanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.scanOnce(ctx)
		case <-trigger:
			w.scanOnce(ctx)
		}
	}
}

// watchFS best-effort watches InputRoot with fsnotify, returning a channel
// that receives a value on every fsnotify event, whatever its operation
// (coalesced while a signal is still pending). If the watch cannot be
// established, it returns a channel that never fires; the poll loop still
// covers every case.
func (w *Watcher) watchFS(ctx context.Context) <-chan struct{} {
	out := make(chan struct{}, 1)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		level.Warn(w.Logger).Log("msg", "fsnotify unavailable, relying on polling only", "err", err)
		return out
	}
	if err := fsw.Add(w.InputRoot); err != nil {
		level.Warn(w.Logger).Log("msg", "fsnotify watch failed, relying on polling only", "root", w.InputRoot, "err", err)
		fsw.Close()
		return out
	}

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-fsw.Events:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				level.Warn(w.Logger).Log("msg", "fsnotify error", "err", err)
			}
		}
	}()

	return out
}

func (w *Watcher) scanOnce(ctx context.Context) {
	err := afero.Walk(w.FS, w.InputRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			w.incScanErrors()
			level.Warn(w.Logger).Log("msg", "scan: walk error, skipping entry", "path", path, "err", err)
			return nil
		}
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(info.Name()), ".zip") {
			return nil
		}
		w.processBundle(ctx, path)
		return nil
	})
	if err != nil {
		w.incScanErrors()
		level.Warn(w.Logger).Log("msg", "scan: walk failed", "root", w.InputRoot, "err", err)
	}
}

func (w *Watcher) processBundle(ctx context.Context, path string) {
	hash, err := fingerprint.Hash(w.FS, path)
	if err != nil {
		level.Warn(w.Logger).Log("msg", "scan: hash failed, skipping", "path", path, "err", err)
		return
	}
	if !w.Store.Changed(path, hash) {
		return
	}

	id := bundle.IdentityFor(path)
	if err := w.upsert(ctx, id, hash); err != nil {
		level.Warn(w.Logger).Log("msg", "scan: upsert failed, will retry next tick", "path", path, "err", err)
	}
}

func (w *Watcher) upsert(ctx context.Context, id bundle.Identity, hash string) error {
	name := types.NamespacedName{Name: id.ServiceID, Namespace: w.Namespace}

	var res lxcv1.ExtensionResource
	err := w.Client.Get(ctx, name, &res)
	switch {
	case apierrors.IsNotFound(err):
		res = lxcv1.ExtensionResource{
			ObjectMeta: metav1.ObjectMeta{Name: name.Name, Namespace: name.Namespace},
			Spec: lxcv1.ExtensionResourceSpec{
				SourcePath: id.Path,
				ZipHash:    hash,
			},
		}
		return errors.Wrap(w.Client.Create(ctx, &res), "create ExtensionResource")
	case err != nil:
		return errors.Wrap(err, "get ExtensionResource")
	case res.Spec.ZipHash == hash:
		return nil
	default:
		res.Spec.SourcePath = id.Path
		res.Spec.ZipHash = hash
		return errors.Wrap(w.Client.Update(ctx, &res), "update ExtensionResource spec")
	}
}
