package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/utkarsh5026/taskpool/pool"
)

// DefaultEmulatorTimeout bounds each emulator endpoint check.
const DefaultEmulatorTimeout = time.Second

// ErrEmulatorNotRunning is returned when no emulator endpoint accepts a connection.
var ErrEmulatorNotRunning = errors.New("storage emulator is not running")

var errNotChecked = errors.New("endpoint not checked")

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// EndpointCheck is the outcome of checking one emulator endpoint.
type EndpointCheck struct {
	Service  Service
	Endpoint string
	Err      error
}

// Reachable reports whether the endpoint answered.
func (c EndpointCheck) Reachable() bool { return c.Err == nil }

// DetectEmulator checks the blob, queue and table emulator endpoints
// concurrently. Blob is checked by reading its service properties through
// clients; queue and table, which have no client here, by opening a TCP
// connection with d. A nil clients falls back to d for blob too.
// It returns one check per endpoint and ErrEmulatorNotRunning if none of
// them is reachable.
func DetectEmulator(ctx context.Context, d Dialer, clients ClientFactory, timeout time.Duration, opts ...pool.Option) ([]EndpointCheck, error) {
	if d == nil {
		d = &net.Dialer{}
	}
	if timeout <= 0 {
		timeout = DefaultEmulatorTimeout
	}

	var checks []EndpointCheck
	for _, svc := range Services {
		if endpoint, ok := EmulatorEndpoint(svc); ok {
			checks = append(checks, EndpointCheck{Service: svc, Endpoint: endpoint, Err: errNotChecked})
		}
	}

	tasks := make([]pool.ValueTask[struct{}], len(checks))
	for i, c := range checks {
		check := func(ctx context.Context) (struct{}, error) {
			if c.Service == Blob && clients != nil {
				return struct{}{}, pingBlob(ctx, clients)
			}
			return struct{}{}, dialEndpoint(ctx, d, c.Endpoint)
		}
		tasks[i] = pool.Timeout(check, timeout)
	}

	// Every endpoint is checked even if some fail.
	opts = append(opts, pool.WithFailurePolicy(pool.CollectAll), pool.WithOnTaskEnd(func(i int, err error, _ time.Duration) {
		checks[i].Err = err
	}))
	if _, err := pool.RunIndexed(ctx, len(tasks), tasks, opts...); err != nil && ctx.Err() != nil {
		return checks, err
	}

	for _, c := range checks {
		if c.Reachable() {
			return checks, nil
		}
	}
	return checks, ErrEmulatorNotRunning
}

// ReachableEmulatorAccount returns the emulator account with only the
// endpoints that answered in checks.
func ReachableEmulatorAccount(checks []EndpointCheck) Account {
	acc := EmulatorAccount()
	acc.Endpoints = Endpoints{}
	for _, c := range checks {
		if c.Reachable() {
			acc.Endpoints.set(c.Service, c.Endpoint)
		}
	}
	return acc
}

func pingBlob(ctx context.Context, clients ClientFactory) error {
	client, err := clients(EmulatorAccount())
	if err != nil {
		return err
	}
	_, err = client.GetProperties(ctx, nil)
	return err
}

func dialEndpoint(ctx context.Context, d Dialer, endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint %s: %w", endpoint, err)
	}
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return err
	}
	return conn.Close()
}
