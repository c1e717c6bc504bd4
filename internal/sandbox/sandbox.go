// Package sandbox runs user supplied Python scripts inside a container that
// can only see its own work directory.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"awsdev/internal/logging"
)

const (
	// MountPoint is where the work directory appears inside the container.
	MountPoint = "/workspace"
	scriptName = "script.py"
)

var ErrImageMissing = errors.New("sandbox image not available")

type Job struct {
	Script  string
	Env     map[string]string
	WorkDir string
}

type Output struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

type Runner interface {
	Run(ctx context.Context, job Job) (Output, error)
}

type dockerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

type DockerRunner struct {
	api    dockerAPI
	image  string
	logger *slog.Logger
}

// NewDockerRunner connects to the daemon described by the DOCKER_* env vars.
func NewDockerRunner(image string, logger *slog.Logger) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return newDockerRunner(cli, image, logger), nil
}

func newDockerRunner(api dockerAPI, image string, logger *slog.Logger) *DockerRunner {
	return &DockerRunner{api: api, image: image, logger: logging.OrDiscard(logger)}
}

// Run writes the script into job.WorkDir, runs it to completion and returns
// its output. A non-zero exit code is not an error.
func (r *DockerRunner) Run(ctx context.Context, job Job) (Output, error) {
	if job.WorkDir == "" {
		return Output{}, errors.New("work directory required")
	}
	workDir, err := filepath.Abs(job.WorkDir)
	if err != nil {
		return Output{}, err
	}
	if err := os.WriteFile(filepath.Join(workDir, scriptName), []byte(job.Script), 0o600); err != nil {
		return Output{}, fmt.Errorf("write script: %w", err)
	}

	created, err := r.api.ContainerCreate(ctx,
		&container.Config{
			Image:      r.image,
			Cmd:        []string{"python", MountPoint + "/" + scriptName},
			Env:        envList(job.Env),
			WorkingDir: MountPoint,
		},
		&container.HostConfig{Binds: []string{workDir + ":" + MountPoint + ":rw"}},
		nil, nil, "")
	if err != nil {
		if errdefs.IsNotFound(err) {
			return Output{}, fmt.Errorf("%w: %s", ErrImageMissing, r.image)
		}
		return Output{}, fmt.Errorf("create container: %w", err)
	}
	id := created.ID
	defer func() {
		// Removal must outlive a cancelled request.
		if err := r.api.ContainerRemove(context.WithoutCancel(ctx), id, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Warn("remove sandbox container", "container", id, "err", err)
		}
	}()

	if err := r.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return Output{}, fmt.Errorf("start container: %w", err)
	}
	r.logger.Debug("sandbox container started", "container", id, "image", r.image)

	exitCode := 0
	waitCh, errCh := r.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case res := <-waitCh:
		if res.Error != nil && res.Error.Message != "" {
			return Output{}, fmt.Errorf("wait container: %s", res.Error.Message)
		}
		exitCode = int(res.StatusCode)
	case err := <-errCh:
		return Output{}, fmt.Errorf("wait container: %w", err)
	case <-ctx.Done():
		return Output{}, ctx.Err()
	}

	logs, err := r.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return Output{}, fmt.Errorf("container logs: %w", err)
	}
	defer logs.Close()
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return Output{}, fmt.Errorf("read container logs: %w", err)
	}
	return Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

// PrepareWorkDir creates a fresh work directory under root, or under the
// system temp dir when root is empty. The returned func removes it.
func PrepareWorkDir(root string) (string, func(), error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o700); err != nil {
			return "", nil, err
		}
	}
	dir, err := os.MkdirTemp(root, "awsdev-script-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, key+"="+env[key])
	}
	return out
}
