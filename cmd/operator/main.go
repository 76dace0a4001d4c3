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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/liferay/lxc-workload-operator/internal/config"
	"github.com/liferay/lxc-workload-operator/pkg/operator"
)

// The valid levels for the --log-level flag.
const (
	logLevelDebug = "debug"
	logLevelInfo  = "info"
	logLevelWarn  = "warn"
	logLevelError = "error"
)

var validLogLevels = []string{logLevelDebug, logLevelInfo, logLevelWarn, logLevelError}

func main() {
	var kubeconfig *string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = flag.String("kubeconfig", filepath.Join(home, ".kube", "config"), "(optional) absolute path to the kubeconfig file")
	} else {
		kubeconfig = flag.String("kubeconfig", "", "absolute path to the kubeconfig file")
	}
	var (
		apiserverURL = flag.String("apiserver", "", "URL to the Kubernetes API server.")
		logLevel     = flag.String("log-level", logLevelInfo,
			fmt.Sprintf("Log level to use. Possible values: %s", strings.Join(validLogLevels, ", ")))
		namespace = flag.String("namespace", "", "Namespace the operator manages cluster objects in.")

		inputRoot    = flag.String("input-root", "", "Directory tree scanned for client extension zip bundles.")
		scratchRoot  = flag.String("scratch-root", "/var/run/lxc-workload-operator/scratch", "Directory used to extract bundles during a build.")
		manifestRoot = flag.String("manifest-root", "/var/run/lxc-workload-operator/manifests", "Directory the generated per-workload manifest files are written to.")

		clusterDomain = flag.String("cluster-domain", "", "DNS suffix appended to every computed host rule.")
		forwarderHost = flag.String("forwarder-host", "", "Host the traffic-forwarding sidecar forwards OAuth traffic to.")
		forwarderPort = flag.Int("forwarder-port", 8080, "Port the traffic-forwarding sidecar forwards OAuth traffic to.")

		operatorID         = flag.String("operator-id", config.DefaultOperatorID, "Value stamped onto every workload's managed-by label.")
		containerEngineBin = flag.String("container-engine", config.DefaultContainerEngineBin, "Container engine CLI binary used for build / kube down / play kube.")
		scanInterval       = flag.Duration("scan-interval", config.DefaultScanInterval, "How often the input root is re-scanned for bundles.")

		metricsAddr = flag.String("metrics-addr", ":8080", "Address to emit metrics on.")
	)
	flag.Parse()

	logger, err := setupLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Creating logger failed: %s", err)
		os.Exit(2)
	}

	cfg, err := clientcmd.BuildConfigFromFlags(*apiserverURL, *kubeconfig)
	if err != nil {
		level.Error(logger).Log("msg", "building kubeconfig failed", "err", err)
		os.Exit(1)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	op, err := operator.New(logger, cfg, metrics, config.Options{
		InputRoot:          *inputRoot,
		ScratchRoot:        *scratchRoot,
		ManifestRoot:       *manifestRoot,
		ClusterDomain:      *clusterDomain,
		ForwarderHost:      *forwarderHost,
		ForwarderPort:      int32(*forwarderPort),
		Namespace:          *namespace,
		OperatorID:         *operatorID,
		ContainerEngineBin: *containerEngineBin,
		ScanInterval:       *scanInterval,
	})
	if err != nil {
		level.Error(logger).Log("msg", "instantiating operator failed", "err", err)
		os.Exit(1)
	}

	var g run.Group
	// Termination handler.
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)

		g.Add(
			func() error {
				select {
				case <-term:
					level.Info(logger).Log("msg", "received SIGTERM, exiting gracefully...")
				case <-cancel:
				}
				return nil
			},
			func(err error) {
				close(cancel)
			},
		)
	}
	// Operator monitoring.
	{
		server := &http.Server{Addr: *metricsAddr}
		http.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{Registry: metrics}))
		g.Add(func() error {
			return server.ListenAndServe()
		}, func(err error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			server.Shutdown(ctx)
			cancel()
		})
	}
	// Main operator loop: bundle watcher + controller manager.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return op.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "exit with error", "err", err)
		os.Exit(1)
	}
}

func setupLogger(lvl string) (log.Logger, error) {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))

	switch lvl {
	case logLevelDebug:
		logger = level.NewFilter(logger, level.AllowDebug())
	case logLevelInfo:
		logger = level.NewFilter(logger, level.AllowInfo())
	case logLevelWarn:
		logger = level.NewFilter(logger, level.AllowWarn())
	case logLevelError:
		logger = level.NewFilter(logger, level.AllowError())
	default:
		return nil, errors.Errorf("log level %q unknown, must be one of (%s)", lvl, strings.Join(validLogLevels, ", "))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)

	return logger, nil
}
