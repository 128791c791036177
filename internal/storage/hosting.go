package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/utkarsh5026/taskpool/pool"
)

var (
	// ErrNoBlobEndpoint is returned for accounts without a blob endpoint.
	ErrNoBlobEndpoint = errors.New("account has no blob endpoint")

	// ErrNotProbed marks accounts whose probe never started.
	ErrNotProbed = errors.New("account not probed")
)

// HostingStatus describes static website hosting on one account.
type HostingStatus struct {
	Account string

	// Capable is false when the account kind does not support static websites.
	Capable              bool
	Enabled              bool
	IndexDocument        string
	ErrorDocument404Path string

	Err     error
	Elapsed time.Duration
}

// PropertiesClient reads blob service properties. *service.Client satisfies it.
type PropertiesClient interface {
	GetProperties(ctx context.Context, o *service.GetPropertiesOptions) (service.GetPropertiesResponse, error)
}

// ClientFactory builds a PropertiesClient for an account.
type ClientFactory func(acc Account) (PropertiesClient, error)

// NewClientFactory returns a factory that authenticates with the account's
// shared key, or with the default Azure credential chain when it has none.
// The SDK's own retries are disabled so that retrying stays with the caller.
func NewClientFactory(transport policy.Transporter) ClientFactory {
	opts := &service.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry:     policy.RetryOptions{MaxRetries: -1},
			Telemetry: policy.TelemetryOptions{ApplicationID: "storageprobe"},
			Transport: transport,
		},
	}

	var (
		credOnce sync.Once
		cred     azcore.TokenCredential
		credErr  error
	)

	return func(acc Account) (PropertiesClient, error) {
		endpoint := acc.Endpoints.For(Blob)
		if endpoint == "" {
			return nil, ErrNoBlobEndpoint
		}

		if acc.HasKey() {
			keyCred, err := azblob.NewSharedKeyCredential(acc.Name, acc.Key.Value)
			if err != nil {
				return nil, fmt.Errorf("shared key credential: %w", err)
			}
			client, err := service.NewClientWithSharedKeyCredential(endpoint, keyCred, opts)
			if err != nil {
				return nil, fmt.Errorf("blob service client: %w", err)
			}
			return client, nil
		}

		credOnce.Do(func() {
			cred, credErr = azidentity.NewDefaultAzureCredential(nil)
		})
		if credErr != nil {
			return nil, fmt.Errorf("default azure credential: %w", credErr)
		}
		client, err := service.NewClient(endpoint, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("blob service client: %w", err)
		}
		return client, nil
	}
}

// ProbeConfig tunes how accounts are probed.
type ProbeConfig struct {
	Concurrency   int
	FailurePolicy pool.FailurePolicy
	Timeout       time.Duration
	Retry         pool.RetryPolicy
	RateLimit     float64
	Burst         int
	Logger        *slog.Logger

	// OnProbed is called once per finished probe, from the probing goroutine.
	OnProbed func(index int, err error, elapsed time.Duration)
}

// Prober reads static website hosting status for many accounts with bounded
// concurrency.
type Prober struct {
	clients ClientFactory
	conf    ProbeConfig
}

// NewProber returns a prober using clients to reach each account.
func NewProber(clients ClientFactory, conf ProbeConfig) *Prober {
	if conf.Concurrency <= 0 {
		conf.Concurrency = pool.DefaultConcurrency
	}
	if conf.Logger == nil {
		conf.Logger = slog.New(slog.DiscardHandler)
	}
	if conf.Retry.ShouldRetry == nil {
		conf.Retry.ShouldRetry = retryable
	}
	return &Prober{clients: clients, conf: conf}
}

// Probe reads the hosting status of a single account.
func (p *Prober) Probe(ctx context.Context, acc Account) (HostingStatus, error) {
	client, err := p.clients(acc)
	if err != nil {
		return HostingStatus{Account: acc.Name}, err
	}

	resp, err := client.GetProperties(ctx, nil)
	if err != nil {
		return HostingStatus{Account: acc.Name}, fmt.Errorf("get properties of %s: %w", acc.Name, err)
	}

	status := HostingStatus{Account: acc.Name}
	if sw := resp.StaticWebsite; sw != nil {
		status.Capable = true
		status.Enabled = deref(sw.Enabled)
		status.IndexDocument = deref(sw.IndexDocument)
		status.ErrorDocument404Path = deref(sw.ErrorDocument404Path)
	}
	return status, nil
}

// ProbeAll probes every account and returns one status per account in input
// order. Failures are recorded on each status. The returned error follows the
// configured failure policy.
func (p *Prober) ProbeAll(ctx context.Context, accounts []Account) ([]HostingStatus, error) {
	statuses := make([]HostingStatus, len(accounts))
	tasks := make([]pool.ValueTask[HostingStatus], len(accounts))
	for i, acc := range accounts {
		statuses[i] = HostingStatus{Account: acc.Name, Err: ErrNotProbed}
		probe := func(ctx context.Context) (HostingStatus, error) {
			return p.Probe(ctx, acc)
		}
		tasks[i] = pool.Retry(pool.Timeout(probe, p.conf.Timeout), p.conf.Retry)
	}

	opts := []pool.Option{
		pool.WithFailurePolicy(p.conf.FailurePolicy),
		pool.WithLogger(p.conf.Logger),
		pool.WithRateLimit(p.conf.RateLimit, p.conf.Burst),
		pool.WithOnTaskEnd(func(i int, err error, elapsed time.Duration) {
			statuses[i].Err = err
			statuses[i].Elapsed = elapsed
			if p.conf.OnProbed != nil {
				p.conf.OnProbed(i, err, elapsed)
			}
		}),
	}

	results, err := pool.RunIndexed(ctx, p.conf.Concurrency, tasks, opts...)
	for i, res := range results {
		if statuses[i].Err == nil {
			res.Elapsed = statuses[i].Elapsed
			statuses[i] = res
		}
	}
	return statuses, err
}

// retryable rejects failures that another attempt cannot fix.
func retryable(err error) bool {
	if errors.Is(err, ErrNoBlobEndpoint) || errors.Is(err, context.Canceled) {
		return false
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return false
		}
	}
	return true
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
