// Copyright (c) 2019 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0
//

package guest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
)

// DefaultSiblingImage is the image used for sibling DHCP client
// containers when the configuration does not name another one.
const DefaultSiblingImage = "busybox"

// DockerManager resolves guests through the Docker API and can launch
// sibling containers sharing a guest's network namespace.
type DockerManager struct {
	cli          *client.Client
	siblingImage string
}

// NewDockerManager connects to the local Docker daemon. The returned
// manager reports itself unavailable when the daemon cannot be reached.
func NewDockerManager(siblingImage string) *DockerManager {
	if siblingImage == "" {
		siblingImage = DefaultSiblingImage
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		guestLog.WithField("error", err).Debug("Docker client unavailable")
		return &DockerManager{siblingImage: siblingImage}
	}

	return &DockerManager{cli: cli, siblingImage: siblingImage}
}

// Available reports whether the Docker daemon answers.
func (m *DockerManager) Available() bool {
	if m == nil || m.cli == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := m.cli.Ping(ctx)
	return err == nil
}

// Inspect reports the init pid and identity of the guest. A pid of
// zero means the container exists but has not started.
func (m *DockerManager) Inspect(ctx context.Context, guestID string) (Info, error) {
	inspect, err := m.cli.ContainerInspect(ctx, guestID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return Info{}, fmt.Errorf("no container named %s", guestID)
		}
		return Info{}, err
	}

	info := Info{
		ContainerID:   inspect.ID,
		ContainerName: strings.TrimPrefix(inspect.Name, "/"),
	}
	if inspect.State != nil {
		info.Pid = inspect.State.Pid
	}

	return info, nil
}

// RunSibling launches a short-lived client container sharing the
// network namespace of containerID and waits for it to finish.
func (m *DockerManager) RunSibling(containerID string, cmd []string) error {
	ctx := context.Background()

	guestLog.WithFields(logrus.Fields{
		"image":     m.siblingImage,
		"container": containerID,
		"command":   strings.Join(cmd, " "),
	}).Info("Launching sibling container")

	resp, err := m.cli.ContainerCreate(ctx,
		&container.Config{
			Image: m.siblingImage,
			Cmd:   cmd,
		},
		&container.HostConfig{
			NetworkMode: container.NetworkMode("container:" + containerID),
			AutoRemove:  true,
			CapAdd:      []string{"NET_ADMIN"},
		},
		nil, nil, "")
	if err != nil {
		return fmt.Errorf("Could not create sibling container: %v", err)
	}

	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("Could not start sibling container: %v", err)
	}

	waitCh, errCh := m.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case status := <-waitCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("Sibling container exited with status %d", status.StatusCode)
		}
	case err := <-errCh:
		return fmt.Errorf("Could not wait for sibling container: %v", err)
	}

	return nil
}
