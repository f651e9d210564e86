package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/protocol"
)

// fireTVFake plays the TV side of the PIN/bearer-token API.
type fireTVFake struct {
	mu         sync.Mutex
	validToken string
	pin        string
	requests   []string
	cmdTokens  []string // x-client-token values seen on command requests
}

func (tv *fireTVFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.requests = append(tv.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get(protocol.FireTVAPIKeyHdr) != protocol.FireTVAPIKey {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	switch r.URL.Path {
	case protocol.FireTVOpenerPath:
		w.WriteHeader(http.StatusOK)
	case protocol.FireTVKeepAlivePath:
		if r.Header.Get(protocol.FireTVTokenHdr) != tv.validToken || tv.validToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	case protocol.FireTVPinDisplayPath:
		w.WriteHeader(http.StatusOK)
	case protocol.FireTVPinVerifyPath:
		if !strings.Contains(string(body), tv.pin) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tv.validToken = "tok-fresh"
		_, _ = w.Write([]byte(`{"description":"tok-fresh"}`))
	default:
		// Command and text endpoints require the bearer token.
		tv.cmdTokens = append(tv.cmdTokens, r.Header.Get(protocol.FireTVTokenHdr))
		if r.Header.Get(protocol.FireTVTokenHdr) != tv.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (tv *fireTVFake) paths() []string {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	return append([]string(nil), tv.requests...)
}

func startFireTVFake(t *testing.T, tv *fireTVFake) (*FireTVService, *recordingDelegate, creds.Store) {
	t.Helper()
	server := httptest.NewServer(tv)
	t.Cleanup(server.Close)

	host, port := splitHostPort(t, server.URL)
	dev := testDevice(device.BrandFireTV)
	dev.Address = host

	delegate := &recordingDelegate{}
	store := creds.NewMemStore()
	svc := NewFireTVService(dev, delegate, store)
	svc.port = port
	return svc, delegate, store
}

func TestFireTVPinPairingIssuesToken(t *testing.T) {
	tv := &fireTVFake{pin: "5309"}
	svc, delegate, store := startFireTVFake(t, tv)
	delegate.onPin = func(*device.Device) { svc.ProvidePin("5309") }

	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if svc.State() != StateConnected {
		t.Fatalf("state = %s", svc.State())
	}

	if token, ok := store.Token(device.BrandFireTV, svc.Device().ID); !ok || token != "tok-fresh" {
		t.Errorf("stored token = %q, %v", token, ok)
	}
	if len(delegate.pinRequested) != 1 {
		t.Errorf("OnPinRequested fired %d times", len(delegate.pinRequested))
	}

	paths := tv.paths()
	want := []string{
		"POST " + protocol.FireTVOpenerPath,
		"POST " + protocol.FireTVPinDisplayPath,
		"POST " + protocol.FireTVPinVerifyPath,
	}
	for i, p := range want {
		if i >= len(paths) || paths[i] != p {
			t.Fatalf("requests = %v, want prefix %v", paths, want)
		}
	}
}

func TestFireTVStoredTokenIsValidatedAndReused(t *testing.T) {
	tv := &fireTVFake{validToken: "tok-old"}
	svc, delegate, store := startFireTVFake(t, tv)

	if err := store.SetToken(device.BrandFireTV, svc.Device().ID, "tok-old"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(delegate.pinRequested) != 0 {
		t.Error("valid stored token should not trigger a PIN prompt")
	}

	if err := svc.SendCommand(context.Background(), device.Command{Name: device.CmdHome}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	tv.mu.Lock()
	tokens := append([]string(nil), tv.cmdTokens...)
	tv.mu.Unlock()
	if len(tokens) != 1 || tokens[0] != "tok-old" {
		t.Errorf("command tokens = %v, want the stored bearer token", tokens)
	}
}

func TestFireTVStaleTokenIsPurgedAndRepaired(t *testing.T) {
	tv := &fireTVFake{pin: "0000"} // validToken empty: any stored token fails validation
	svc, delegate, store := startFireTVFake(t, tv)
	delegate.onPin = func(*device.Device) { svc.ProvidePin("0000") }

	if err := store.SetToken(device.BrandFireTV, svc.Device().ID, "tok-stale"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if token, _ := store.Token(device.BrandFireTV, svc.Device().ID); token != "tok-fresh" {
		t.Errorf("stored token = %q, want the reissued one", token)
	}
	if len(delegate.pinRequested) != 1 {
		t.Error("stale token should force a PIN exchange")
	}
}

func TestFireTVPowerCommandDisconnectsImplicitly(t *testing.T) {
	tv := &fireTVFake{validToken: "tok-old"}
	svc, delegate, store := startFireTVFake(t, tv)

	if err := store.SetToken(device.BrandFireTV, svc.Device().ID, "tok-old"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := svc.SendCommand(context.Background(), device.Command{Name: device.CmdPowerOff}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if svc.State() != StateDisconnected {
		t.Errorf("state = %s after poweroff, want disconnected", svc.State())
	}
	if len(delegate.disconnected) != 1 {
		t.Errorf("OnDisconnected fired %d times", len(delegate.disconnected))
	}

	// The session is gone; further commands must fail fast.
	if err := svc.SendCommand(context.Background(), device.Command{Name: device.CmdHome}); err == nil {
		t.Error("SendCommand after implicit disconnect should fail")
	}
}
