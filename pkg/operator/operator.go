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

// Package operator wires the bundle watcher and the three reconcilers
// (CR mirror, build, deploy) around one controller-runtime manager.
package operator

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-logr/zapr"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/liferay/lxc-workload-operator/internal/config"
	lxcv1 "github.com/liferay/lxc-workload-operator/pkg/apis/lxc/v1"
	"github.com/liferay/lxc-workload-operator/pkg/bundle"
	"github.com/liferay/lxc-workload-operator/pkg/build"
	"github.com/liferay/lxc-workload-operator/pkg/deploy"
	"github.com/liferay/lxc-workload-operator/pkg/engine"
	"github.com/liferay/lxc-workload-operator/pkg/fingerprint"
	"github.com/liferay/lxc-workload-operator/pkg/mirror"
	"github.com/liferay/lxc-workload-operator/pkg/status"
	"github.com/liferay/lxc-workload-operator/pkg/watcher"

	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
)

var metricScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "lxc_workload_operator",
	Name:      "bundle_scan_errors_total",
	Help:      "Number of errors encountered while scanning the input directory.",
})

// Operator owns the controller-runtime manager and the bundle watcher
// background loop.
type Operator struct {
	logger       log.Logger
	opts         config.Options
	clientConfig *rest.Config
	manager      manager.Manager
	watcher      *watcher.Watcher
}

// New instantiates the Operator: validates opts, builds the manager and
// registers every reconciler against it.
func New(logger log.Logger, clientConfig *rest.Config, registry prometheus.Registerer, opts config.Options) (*Operator, error) {
	if err := opts.DefaultAndValidate(logger); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	sc := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(sc); err != nil {
		return nil, errors.Wrap(err, "add Kubernetes core scheme")
	}
	if err := lxcv1.AddToScheme(sc); err != nil {
		return nil, errors.Wrap(err, "add lxc scheme")
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return nil, errors.Wrap(err, "create zap logger")
	}
	// controller-runtime logs through logr, not go-kit; bridge it via zapr
	// so its internal reconciler/webhook logs land in the same log stream
	// as everything else, rather than falling back to controller-runtime's
	// own unstructured default logger.
	ctrl.SetLogger(zapr.NewLogger(zapLogger))

	mgr, err := ctrl.NewManager(clientConfig, manager.Options{
		Scheme: sc,
		// Metrics are served explicitly by the caller, not by the manager.
		Metrics: metrics.Options{BindAddress: "0"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create controller manager")
	}

	if registry != nil {
		registry.MustRegister(metricScanErrors)
	}

	fs := afero.NewOsFs()
	store := fingerprint.New()
	cli := engine.NewCLI(opts.ContainerEngineBin, logger)

	op := &Operator{
		logger:       logger,
		opts:         opts,
		clientConfig: clientConfig,
		manager:      mgr,
		watcher: &watcher.Watcher{
			FS:           fs,
			Client:       mgr.GetClient(),
			Store:        store,
			Logger:       log.With(logger, "component", "watcher"),
			InputRoot:    opts.InputRoot,
			Namespace:    opts.Namespace,
			ScanInterval: opts.ScanInterval,
			ScanErrors:   metricScanErrors,
		},
	}

	mirrorReconciler := &mirror.Reconciler{
		Client: mgr.GetClient(),
		Store:  store,
		Logger: log.With(logger, "component", "cr-mirror"),
	}
	if err := mirrorReconciler.SetupWithManager(mgr); err != nil {
		return nil, errors.Wrap(err, "setup CR mirror reconciler")
	}

	statusReporter := status.New(mgr.GetClient(), log.With(logger, "component", "status"))

	buildReconciler := &build.Reconciler{
		Client:        mgr.GetClient(),
		FS:            fs,
		Extractor:     bundle.NewExtractor(fs, opts.ScratchRoot),
		Engine:        cli,
		Status:        statusReporter,
		Logger:        log.With(logger, "component", "build-controller"),
		Namespace:     opts.Namespace,
		ClusterDomain: opts.ClusterDomain,
	}
	if err := buildReconciler.SetupWithManager(mgr); err != nil {
		return nil, errors.Wrap(err, "setup build reconciler")
	}

	deployReconciler := deploy.NewReconciler()
	deployReconciler.Client = mgr.GetClient()
	deployReconciler.Engine = cli
	deployReconciler.Status = statusReporter
	deployReconciler.Logger = log.With(logger, "component", "deployment-controller")
	deployReconciler.ManifestFS = fs
	deployReconciler.ManifestRoot = opts.ManifestRoot
	deployReconciler.Namespace = opts.Namespace
	deployReconciler.OperatorID = opts.OperatorID
	deployReconciler.ForwarderHost = opts.ForwarderHost
	deployReconciler.ForwarderPort = opts.ForwarderPort
	if err := deployReconciler.SetupWithManager(mgr); err != nil {
		return nil, errors.Wrap(err, "setup deployment reconciler")
	}

	return op, nil
}

// Run starts the controller manager and the bundle watcher together,
// returning when either stops or ctx is canceled.
func (o *Operator) Run(ctx context.Context) error {
	if err := ensureCRD(ctx, o.clientConfig); err != nil {
		return errors.Wrap(err, "ensure ExtensionResource CRD")
	}

	errCh := make(chan error, 2)

	go func() {
		errCh <- errors.Wrap(o.manager.Start(ctx), "controller manager")
	}()
	go func() {
		errCh <- errors.Wrap(o.watcher.Run(ctx), "bundle watcher")
	}()

	level.Info(o.logger).Log("msg", "lxc workload operator started", "inputRoot", o.opts.InputRoot, "namespace", o.opts.Namespace)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
