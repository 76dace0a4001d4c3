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

package engine

import (
	"bufio"
	"context"
	"os/exec"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// CLI drives a podman-compatible binary as subprocesses, streaming its
// stdout to the logger the way the original build step reports build
// progress line by line.
type CLI struct {
	bin    string
	logger log.Logger
}

// NewCLI returns an Engine backed by bin (e.g. "podman").
func NewCLI(bin string, logger log.Logger) *CLI {
	return &CLI{bin: bin, logger: logger}
}

func (c *CLI) Build(ctx context.Context, tag, dir string) error {
	return c.run(ctx, "build", "-t", tag, dir)
}

func (c *CLI) KubeDown(ctx context.Context, manifestFile string) error {
	// Errors are expected here when nothing was previously deployed from
	// this manifest; the caller does not treat a non-nil return as fatal.
	return c.run(ctx, "kube", "down", manifestFile)
}

func (c *CLI) KubePlay(ctx context.Context, manifestFile string) error {
	return c.run(ctx, "play", "kube", "--replace", manifestFile)
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrapf(err, "pipe stdout for %q", args)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %q", args)
	}

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		level.Debug(c.logger).Log("msg", "engine output", "line", sc.Text())
	}

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "%s %v", c.bin, args)
	}
	return nil
}
