// Package engine provides the Docker Engine client handle shared by every
// pipeline stage.
//
// The client is constructed once at startup and passed explicitly into each
// component rather than held as ambient global state, so that every stage can
// be exercised against a fake engine in tests.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/system"
	dockerclient "github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// API is the subset of the Docker Engine client consumed by the quarantine
// pipeline. *client.Client satisfies it; tests substitute a fake.
type API interface {
	// Info queries daemon capabilities, including the advertised runtimes.
	Info(ctx context.Context) (system.Info, error)

	// ImagePull starts an image pull and returns the progress event stream.
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)

	// ContainerList lists containers known to the engine.
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)

	// ContainerCreate creates a container under the given name.
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)

	// ContainerStart starts a created container.
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error

	// ContainerStop stops a running container.
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error

	// ContainerRemove removes a container.
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error

	// ContainerExecCreate creates an exec instance inside a running container.
	ContainerExecCreate(ctx context.Context, container string, options container.ExecOptions) (types.IDResponse, error)

	// ContainerExecAttach starts the exec instance and hijacks the connection,
	// returning the attached bidirectional stream.
	ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error)
}

var _ API = (*dockerclient.Client)(nil)

// Connect builds a Docker Engine client from the standard environment
// (DOCKER_HOST etc.), negotiating the API version with the daemon.
func Connect() (*dockerclient.Client, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return cli, nil
}
