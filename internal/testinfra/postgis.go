// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostGISImage bundles PostgreSQL with the PostGIS extension.
	DefaultPostGISImage = "postgis/postgis:16-3.4"

	// DefaultPostGISPort is the PostgreSQL port inside the container.
	DefaultPostGISPort = "5432"

	defaultPostGISUser     = "synapse"
	defaultPostGISPassword = "synapse"
	defaultPostGISDatabase = "synapses"
)

// PostGISContainer is a running PostGIS server.
type PostGISContainer struct {
	testcontainers.Container
	DSN string
}

// PostGISOption configures the container.
type PostGISOption func(*postgisConfig)

type postgisConfig struct {
	image        string
	startTimeout time.Duration
}

// WithPostGISImage overrides the image.
func WithPostGISImage(image string) PostGISOption {
	return func(c *postgisConfig) {
		c.image = image
	}
}

// WithPostGISStartTimeout sets how long to wait for the server.
func WithPostGISStartTimeout(timeout time.Duration) PostGISOption {
	return func(c *postgisConfig) {
		c.startTimeout = timeout
	}
}

// NewPostGISContainer starts PostGIS and waits until it accepts
// connections. The server logs its ready line twice: once for the init
// run and once for the real start.
func NewPostGISContainer(ctx context.Context, opts ...PostGISOption) (*PostGISContainer, error) {
	cfg := &postgisConfig{
		image:        DefaultPostGISImage,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultPostGISPort + "/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     defaultPostGISUser,
			"POSTGRES_PASSWORD": defaultPostGISPassword,
			"POSTGRES_DB":       defaultPostGISDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(DefaultPostGISPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultPostGISPort+"/tcp")
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &PostGISContainer{
		Container: container,
		DSN: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			defaultPostGISUser, defaultPostGISPassword, host, port.Port(), defaultPostGISDatabase),
	}, nil
}
