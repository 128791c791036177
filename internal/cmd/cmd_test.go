package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/utkarsh5026/taskpool/internal/storage"
)

const testConnString = "DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=a2V5;EndpointSuffix=core.windows.net"

type refusingDialer struct{ open string }

func (d refusingDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	if address != d.open {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

type websiteClient struct{ enabled bool }

func (c websiteClient) GetProperties(context.Context, *service.GetPropertiesOptions) (service.GetPropertiesResponse, error) {
	var resp service.GetPropertiesResponse
	resp.StaticWebsite = &service.StaticWebsite{Enabled: to.Ptr(c.enabled), IndexDocument: to.Ptr("index.html")}
	return resp, nil
}

type failingClient struct{ err error }

func (c failingClient) GetProperties(context.Context, *service.GetPropertiesOptions) (service.GetPropertiesResponse, error) {
	return service.GetPropertiesResponse{}, c.err
}

// harness runs commands against an isolated store and config directory.
type harness struct {
	t          *testing.T
	storePath  string
	dialer     storage.Dialer
	clients    storage.ClientFactory
	emulatorUp bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		t:         t,
		storePath: filepath.Join(dir, "accounts.json"),
		dialer:    refusingDialer{},
	}
	h.clients = h.propertiesClient
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("STORAGEPROBE_STORE_PATH", h.storePath)
	return h
}

// propertiesClient answers for the emulator only while emulatorUp is set.
// Other accounts host a website when their name starts with "site".
func (h *harness) propertiesClient(acc storage.Account) (storage.PropertiesClient, error) {
	if acc.IsEmulator() && !h.emulatorUp {
		return failingClient{err: errors.New("connection refused")}, nil
	}
	return websiteClient{enabled: strings.HasPrefix(acc.Name, "site")}, nil
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := newRootCmd(&app{dialer: h.dialer, clients: h.clients})

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func TestAttachListDetach(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "alpha"))
	if !strings.Contains(out, "Attached") {
		t.Errorf("attach output: %q", out)
	}

	out = h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "alpha"))
	if !strings.Contains(out, "already attached") {
		t.Errorf("second attach should warn, got %q", out)
	}

	h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "beta"))

	out = h.mustRun("list")
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "https://beta.blob.core.windows.net") {
		t.Errorf("list output missing accounts:\n%s", out)
	}

	h.mustRun("detach", "alpha")
	out = h.mustRun("list")
	if strings.Contains(out, "alpha") {
		t.Errorf("alpha still listed after detach:\n%s", out)
	}

	if _, err := h.run("detach", "alpha"); !errors.Is(err, storage.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAttach_InvalidConnectionString(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("attach", "AccountName=x"); !errors.Is(err, storage.ErrInvalidConnectionString) {
		t.Errorf("expected ErrInvalidConnectionString, got %v", err)
	}
}

func TestAttachEmulator(t *testing.T) {
	t.Run("not running", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.run("attach-emulator")
		if !errors.Is(err, storage.ErrEmulatorNotRunning) {
			t.Fatalf("expected ErrEmulatorNotRunning, got %v", err)
		}
		if out := h.mustRun("list"); strings.Contains(out, storage.EmulatorAccountName) {
			t.Errorf("emulator attached although not running:\n%s", out)
		}
	})

	t.Run("blob port held by another process", func(t *testing.T) {
		h := newHarness(t)
		h.dialer = refusingDialer{open: "127.0.0.1:10000"}
		if _, err := h.run("attach-emulator"); !errors.Is(err, storage.ErrEmulatorNotRunning) {
			t.Fatalf("expected ErrEmulatorNotRunning, got %v", err)
		}
	})

	t.Run("blob running", func(t *testing.T) {
		h := newHarness(t)
		h.emulatorUp = true

		out := h.mustRun("attach-emulator")
		if !strings.Contains(out, "Attached") {
			t.Errorf("attach-emulator output: %q", out)
		}
		if out := h.mustRun("list"); !strings.Contains(out, storage.EmulatorAccountName) {
			t.Errorf("emulator not listed:\n%s", out)
		}

		acc, err := storage.NewStore(h.storePath).Get(storage.EmulatorAccountName)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if acc.Endpoints.Blob == "" {
			t.Error("blob endpoint not saved")
		}
		if acc.Endpoints.Queue != "" || acc.Endpoints.Table != "" {
			t.Errorf("unreachable endpoints saved: queue=%q table=%q", acc.Endpoints.Queue, acc.Endpoints.Table)
		}
	})
}

func TestEmulatorAccountHiddenWhileStopped(t *testing.T) {
	h := newHarness(t)
	h.emulatorUp = true
	h.mustRun("attach-emulator")
	h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "site1"))

	h.emulatorUp = false
	out := h.mustRun("list")
	if strings.Contains(out, "http://127.0.0.1") || !strings.Contains(out, "site1") {
		t.Errorf("list while stopped:\n%s", out)
	}
	if !strings.Contains(out, "hidden") {
		t.Errorf("list should note the hidden emulator account:\n%s", out)
	}

	out = h.mustRun("probe", "--no-progress")
	if !strings.Contains(out, "1 accounts probed") {
		t.Errorf("probe while stopped:\n%s", out)
	}

	// Named explicitly, the account is still probed.
	out, err := h.run("probe", "--no-progress", storage.EmulatorAccountName)
	if err == nil || !strings.Contains(out, "1 failed") {
		t.Errorf("explicit probe of stopped emulator: err=%v\n%s", err, out)
	}

	h.emulatorUp = true
	out = h.mustRun("list")
	if !strings.Contains(out, "http://127.0.0.1") || strings.Contains(out, "hidden") {
		t.Errorf("list while running:\n%s", out)
	}
	out = h.mustRun("probe", "--no-progress")
	if !strings.Contains(out, "2 accounts probed") {
		t.Errorf("probe while running:\n%s", out)
	}
}

func TestProbe(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"site1", "plain", "site2"} {
		h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", name))
	}

	out := h.mustRun("probe", "--no-progress", "-j", "2")
	for _, want := range []string{"site1", "plain", "site2", "enabled", "disabled", "3 accounts probed", "2 hosting"} {
		if !strings.Contains(out, want) {
			t.Errorf("probe output missing %q:\n%s", want, out)
		}
	}

	out = h.mustRun("probe", "--no-progress", "plain")
	if strings.Contains(out, "site1") {
		t.Errorf("probe of a single account listed others:\n%s", out)
	}

	if _, err := h.run("probe", "missing"); !errors.Is(err, storage.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestProbe_FailuresSetExitError(t *testing.T) {
	h := newHarness(t)
	h.clients = func(acc storage.Account) (storage.PropertiesClient, error) {
		if acc.Name == "broken" {
			return nil, storage.ErrNoBlobEndpoint
		}
		return websiteClient{enabled: true}, nil
	}
	h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "broken"))
	h.mustRun("attach", strings.ReplaceAll(testConnString, "%s", "fine"))

	out, err := h.run("probe", "--no-progress")
	if !errors.Is(err, storage.ErrNoBlobEndpoint) {
		t.Fatalf("expected ErrNoBlobEndpoint, got %v", err)
	}
	if !strings.Contains(out, "1 failed") || !strings.Contains(out, "fine") {
		t.Errorf("probe output:\n%s", out)
	}
}

func TestInvalidConfig(t *testing.T) {
	h := newHarness(t)
	t.Setenv("STORAGEPROBE_POOL_FAILURE_POLICY", "sometimes")
	if _, err := h.run("list"); err == nil || !strings.Contains(err.Error(), "pool.failure_policy") {
		t.Errorf("expected validation error, got %v", err)
	}
}
