package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DockerMetrics represents container status for the container widget.
// Available is false when no Docker socket is reachable; that is not an
// error, just a host without Docker.
type DockerMetrics struct {
	Available  bool              `json:"available"`
	Version    string            `json:"version,omitempty"`
	Containers []ContainerStatus `json:"containers"`
	Summary    DockerSummary     `json:"summary"`
}

// DockerSummary counts containers by state.
type DockerSummary struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Paused  int `json:"paused"`
	Stopped int `json:"stopped"`
}

// ContainerStatus describes one container.
type ContainerStatus struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	Status  string    `json:"status"`
	State   string    `json:"state"`
	Created time.Time `json:"created"`
}

// GetDockerMetrics lists containers and summarizes their states.
func GetDockerMetrics(parentCtx context.Context) (*DockerMetrics, error) {
	if parentCtx.Err() != nil {
		return nil, parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, 10*time.Second)
	defer cancel()

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return &DockerMetrics{Available: false, Containers: []ContainerStatus{}}, nil
	}
	defer func() { _ = cli.Close() }()

	info, err := cli.Info(ctx)
	if err != nil {
		return &DockerMetrics{Available: false, Containers: []ContainerStatus{}}, nil
	}

	metrics := &DockerMetrics{
		Available:  true,
		Version:    info.ServerVersion,
		Containers: make([]ContainerStatus, 0),
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return metrics, nil
	}

	metrics.Summary.Total = len(containers)
	for _, c := range containers {
		switch c.State {
		case "running":
			metrics.Summary.Running++
		case "paused":
			metrics.Summary.Paused++
		default:
			metrics.Summary.Stopped++
		}

		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		metrics.Containers = append(metrics.Containers, ContainerStatus{
			ID:      id,
			Name:    name,
			Image:   c.Image,
			Status:  c.Status,
			State:   c.State,
			Created: time.Unix(c.Created, 0),
		})
	}

	return metrics, nil
}
