// Package testutils starts the shared Redis and NATS containers used by
// integration tests. Containers are started once per test binary.
package testutils

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once sync.Once

	// Shared clients
	redisClient *redis.Client
	natsConn    *nats.Conn
	jetStream   nats.JetStreamContext

	initErr error

	// Cleanup function
	globalCleanup func()
)

// Environment is the shared set of integration clients.
type Environment struct {
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext
}

// Integration skips t under -short and otherwise returns the shared
// environment with Redis flushed.
func Integration(t testing.TB) *Environment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env, err := GetTestEnvironment(context.Background())
	if err != nil {
		t.Skipf("integration environment unavailable: %v", err)
	}
	return env
}

// GetTestEnvironment returns shared Redis and NATS instances
func GetTestEnvironment(ctx context.Context) (*Environment, error) {
	once.Do(func() {
		redisClient, natsConn, jetStream, initErr = setupGlobalTestEnvironment(ctx)
	})

	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize test environment: %w", initErr)
	}

	// Reset data between tests
	if err := redisClient.FlushAll(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to flush Redis: %w", err)
	}

	return &Environment{Redis: redisClient, NATS: natsConn, JetStream: jetStream}, nil
}

// CleanupTestEnvironment should be called from TestMain after all tests
func CleanupTestEnvironment() {
	if globalCleanup != nil {
		globalCleanup()
	}
}

// setupGlobalTestEnvironment initializes containers once
func setupGlobalTestEnvironment(ctx context.Context) (*redis.Client, *nats.Conn, nats.JetStreamContext, error) {
	redisC, err := tcRedis.Run(ctx, "redis:7")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to start Redis: %w", err)
	}

	redisURL, err := redisC.ConnectionString(ctx)
	if err != nil {
		_ = redisC.Terminate(ctx)
		return nil, nil, nil, fmt.Errorf("failed to get Redis address: %w", err)
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		_ = redisC.Terminate(ctx)
		return nil, nil, nil, fmt.Errorf("failed to parse Redis address: %w", err)
	}
	rc := redis.NewClient(opts)

	if err := rc.Ping(ctx).Err(); err != nil {
		_ = redisC.Terminate(ctx)
		return nil, nil, nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	// NATS with JetStream on tmpfs
	natsReq := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"-js", "-sd", "/data/jetstream"},
			Tmpfs:        map[string]string{"/data/jetstream": "rw"},
			WaitingFor:   wait.ForLog("Listening for client connections").WithStartupTimeout(10 * time.Second),
		},
		Started: true,
	}

	natsC, err := testcontainers.GenericContainer(ctx, natsReq)
	if err != nil {
		_ = rc.Close()
		_ = redisC.Terminate(ctx)
		return nil, nil, nil, fmt.Errorf("failed to start NATS: %w", err)
	}

	natsHost, err := natsC.Host(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	natsPort, err := natsC.MappedPort(ctx, "4222/tcp")
	if err != nil {
		return nil, nil, nil, err
	}

	nc, err := nats.Connect(fmt.Sprintf("nats://%s:%s", natsHost, natsPort.Port()))
	if err != nil {
		return nil, nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, nil, err
	}

	globalCleanup = func() {
		ctx := context.Background()
		nc.Close()
		_ = rc.Close()
		_ = natsC.Terminate(ctx)
		_ = redisC.Terminate(ctx)
	}

	return rc, nc, js, nil
}
