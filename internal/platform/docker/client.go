package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/dontdude/ymlint/internal/domain"
)

// Client wraps the official Docker SDK client and runs a self-hosted lint service.
type Client struct {
	cli           *client.Client
	imageName     string
	containerPort nat.Port
}

// Check if Client implements domain.EndpointProvisioner
var _ domain.EndpointProvisioner = (*Client)(nil)

// NewClient initializes and returns a verified Docker client for imageName.
// It performs a connection check (Ping) upon initialization.
// If the Docker daemon is unreachable, the function panics to prevent the worker from starting in a broken state
// (Fail-Fast).
func NewClient(imageName, containerPort string) *Client {
	port, err := nat.NewPort(nat.SplitProtoPort(containerPort))
	if err != nil {
		slog.Error("Invalid container port", "port", containerPort, "error", err)
		panic(err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		slog.Error("Failed to create Docker client", "error", err)
		panic(err)
	}

	// Ping Docker to ensure connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Docker Daemon", "error", err)
		panic(err)
	}

	slog.Info("Docker Client initialized successfully", "image", imageName)
	return &Client{cli: cli, imageName: imageName, containerPort: port}
}

// StartEndpoint pulls the lint service image, starts it with its port bound to an
// ephemeral loopback port, and returns the URL to POST to.
func (c *Client) StartEndpoint(ctx context.Context) (domain.Endpoint, error) {
	slog.Info("Pulling image", "image", c.imageName)
	reader, err := c.cli.ImagePull(ctx, c.imageName, image.PullOptions{})
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("failed to pull image: %w", err)
	}
	// Drain the response body to ensure the pull completes properly.
	io.Copy(io.Discard, reader)
	reader.Close()

	slog.Info("Creating container", "image", c.imageName)
	resp, err := c.cli.ContainerCreate(ctx, &container.Config{
		Image:        c.imageName,
		ExposedPorts: nat.PortSet{c.containerPort: struct{}{}},
	}, &container.HostConfig{
		PortBindings: nat.PortMap{
			c.containerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "0"}},
		},
		Resources: container.Resources{
			Memory: 256 * 1024 * 1024, // 256MB
		},
	}, nil, nil, "")
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("failed to create container: %w", err)
	}

	endpoint := domain.Endpoint{ID: resp.ID}
	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		c.remove(resp.ID)
		return domain.Endpoint{}, fmt.Errorf("failed to start container: %w", err)
	}

	info, err := c.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		c.remove(resp.ID)
		return domain.Endpoint{}, fmt.Errorf("failed to inspect container: %w", err)
	}
	if info.NetworkSettings == nil {
		c.remove(resp.ID)
		return domain.Endpoint{}, fmt.Errorf("container %s has no network settings", resp.ID)
	}
	url, err := endpointURL(info.NetworkSettings.Ports, c.containerPort)
	if err != nil {
		c.remove(resp.ID)
		return domain.Endpoint{}, err
	}
	endpoint.URL = url

	if err := waitReady(ctx, url, readyInitialBackoff); err != nil {
		c.remove(resp.ID)
		return domain.Endpoint{}, fmt.Errorf("lint endpoint %s never became ready: %w", url, err)
	}

	slog.Info("Lint endpoint container started", "containerID", resp.ID, "url", url)
	return endpoint, nil
}

const (
	readyInitialBackoff = 100 * time.Millisecond
	readyMaxBackoff     = 2 * time.Second
)

// waitReady polls url until the service answers with any HTTP status, doubling
// the wait between tries up to readyMaxBackoff. It gives up when ctx ends.
func waitReady(ctx context.Context, url string, backoff time.Duration) error {
	client := &http.Client{Timeout: readyMaxBackoff}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil
		}
		slog.Debug("Lint endpoint not ready yet", "url", url, "retryIn", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, readyMaxBackoff)
	}
}

// StopEndpoint force-removes the container behind endpoint.
func (c *Client) StopEndpoint(ctx context.Context, endpoint domain.Endpoint) error {
	if err := c.cli.ContainerRemove(ctx, endpoint.ID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", endpoint.ID, err)
	}
	slog.Info("Lint endpoint container removed", "containerID", endpoint.ID)
	return nil
}

func (c *Client) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		slog.Error("Failed to remove container", "containerID", id, "error", err)
	}
}

// endpointURL picks the loopback binding Docker assigned to port.
func endpointURL(ports nat.PortMap, port nat.Port) (string, error) {
	for _, binding := range ports[port] {
		if binding.HostPort == "" || binding.HostPort == "0" {
			continue
		}
		host := binding.HostIP
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		return fmt.Sprintf("http://%s:%s/", host, binding.HostPort), nil
	}
	return "", fmt.Errorf("no host binding for container port %s", port)
}
