package creds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tvlink/tvlink/internal/device"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, ok := s.Token(device.BrandSamsung, "uuid-1"); ok {
		t.Error("Token() on empty store should report not found")
	}

	if err := s.SetToken(device.BrandSamsung, "uuid-1", "tok-abc"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if err := s.SetPaired(device.BrandAndroidTV, "uuid-2", true); err != nil {
		t.Fatalf("SetPaired() error = %v", err)
	}

	// Reopen from disk and verify persistence.
	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}

	tok, ok := s2.Token(device.BrandSamsung, "uuid-1")
	if !ok || tok != "tok-abc" {
		t.Errorf("Token() = %q, %v, want tok-abc, true", tok, ok)
	}
	if !s2.Paired(device.BrandAndroidTV, "uuid-2") {
		t.Error("Paired() = false after reopen, want true")
	}

	// Same device ID under a different brand is a separate entry.
	if _, ok := s2.Token(device.BrandFireTV, "uuid-1"); ok {
		t.Error("Token() under a different brand should not find the entry")
	}
}

func TestFileStoreClearToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := s.ClearToken(device.BrandSamsung, "missing"); err != nil {
		t.Errorf("ClearToken() on missing entry should be a no-op, got %v", err)
	}

	if err := s.SetToken(device.BrandSamsung, "uuid-1", "tok"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if err := s.ClearToken(device.BrandSamsung, "uuid-1"); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if _, ok := s.Token(device.BrandSamsung, "uuid-1"); ok {
		t.Error("Token() after ClearToken() should report not found")
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := s.SetToken(device.BrandFireTV, "dev", "secret"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("credential file mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestClientCertStableAcrossCalls(t *testing.T) {
	s := NewMemStore()

	cert1, err := ClientCert(s, "atv-1")
	if err != nil {
		t.Fatalf("ClientCert() error = %v", err)
	}
	cert2, err := ClientCert(s, "atv-1")
	if err != nil {
		t.Fatalf("ClientCert() second call error = %v", err)
	}

	if len(cert1.Certificate) == 0 || len(cert2.Certificate) == 0 {
		t.Fatal("ClientCert() returned empty certificate chain")
	}
	if string(cert1.Certificate[0]) != string(cert2.Certificate[0]) {
		t.Error("ClientCert() regenerated the certificate; expected the stored one")
	}

	// A different device gets its own keypair.
	cert3, err := ClientCert(s, "atv-2")
	if err != nil {
		t.Fatalf("ClientCert() for second device error = %v", err)
	}
	if string(cert1.Certificate[0]) == string(cert3.Certificate[0]) {
		t.Error("ClientCert() shared a certificate between devices")
	}
}

func TestMemStorePairedFlag(t *testing.T) {
	s := NewMemStore()

	if s.Paired(device.BrandAndroidTV, "dev") {
		t.Error("Paired() on empty store = true, want false")
	}
	if err := s.SetPaired(device.BrandAndroidTV, "dev", true); err != nil {
		t.Fatalf("SetPaired() error = %v", err)
	}
	if !s.Paired(device.BrandAndroidTV, "dev") {
		t.Error("Paired() = false, want true")
	}
	if err := s.SetPaired(device.BrandAndroidTV, "dev", false); err != nil {
		t.Fatalf("SetPaired(false) error = %v", err)
	}
	if s.Paired(device.BrandAndroidTV, "dev") {
		t.Error("Paired() after unset = true, want false")
	}
}

func TestKeyScoping(t *testing.T) {
	k1 := key(device.BrandSamsung, "id")
	k2 := key(device.BrandFireTV, "id")
	if k1 == k2 {
		t.Errorf("key() collision across brands: %q", k1)
	}
	if !strings.Contains(k1, "/") {
		t.Errorf("key() = %q, want brand/id form", k1)
	}
}
