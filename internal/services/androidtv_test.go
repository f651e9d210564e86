package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/tvlink/tvlink/internal/creds"
	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/protocol"
)

func generateServerCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "fake-tv"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func listenTLS(t *testing.T, cert tls.Certificate) (net.Listener, int) {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
	})
	if err != nil {
		t.Fatalf("tls listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

// servePairing plays the device side of the pairing handshake: ack each of
// the three configuration messages, consume the secret, answer with two
// frames carrying an OK status.
func servePairing(ln net.Listener, secrets chan<- []byte) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ack := protocol.PairingOptionMessage()
	for i := 0; i < 3; i++ {
		if _, err := protocol.ReadPairingFrame(conn); err != nil {
			return
		}
		if err := protocol.WritePairingFrame(conn, ack); err != nil {
			return
		}
	}

	secret, err := protocol.ReadPairingFrame(conn)
	if err != nil {
		return
	}
	secrets <- secret

	_ = protocol.WritePairingFrame(conn, ack)
	_ = protocol.WritePairingFrame(conn, ack)
}

// serveRemote plays the device side of the remote-control session.
func serveRemote(ln net.Listener, keys chan<- []byte) {
	conn, err := ln.Accept()
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	// configure -> ack
	if _, err := protocol.ReadPairingFrame(conn); err != nil {
		return
	}
	if err := protocol.WritePairingFrame(conn, protocol.PairingOptionMessage()); err != nil {
		return
	}
	// set-active, then key injects
	if _, err := protocol.ReadPairingFrame(conn); err != nil {
		return
	}
	for {
		frame, err := protocol.ReadPairingFrame(conn)
		if err != nil {
			return
		}
		keys <- frame
	}
}

func TestAndroidTVPairingAndRemoteSession(t *testing.T) {
	cert := generateServerCert(t)
	pairingLn, pairingPort := listenTLS(t, cert)
	remoteLn, remotePort := listenTLS(t, cert)

	secrets := make(chan []byte, 1)
	keys := make(chan []byte, 16)
	go servePairing(pairingLn, secrets)
	go serveRemote(remoteLn, keys)

	dev := testDevice(device.BrandAndroidTV)
	store := creds.NewMemStore()
	delegate := &recordingDelegate{}

	svc := NewAndroidTVService(dev, delegate, store)
	svc.pairingPort = pairingPort
	svc.remotePort = remotePort

	// Answer the PIN prompt as the user would. The first two characters
	// are the protocol marker; the rest must be hex.
	delegate.onPin = func(*device.Device) { svc.ProvidePin("2a1b3c4d") }

	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = svc.Disconnect() }()

	if svc.State() != StateConnected {
		t.Fatalf("state = %s", svc.State())
	}
	if !store.Paired(device.BrandAndroidTV, dev.ID) {
		t.Error("pairing flag not persisted")
	}
	if len(delegate.pinRequested) != 1 {
		t.Errorf("OnPinRequested fired %d times", len(delegate.pinRequested))
	}
	if dev.Port != remotePort {
		t.Errorf("device port = %d, want remote port %d", dev.Port, remotePort)
	}

	select {
	case secret := <-secrets:
		// SHA-256 digest wrapped in the secret message envelope.
		if len(secret) < 32 {
			t.Errorf("secret message too short: %d bytes", len(secret))
		}
	default:
		t.Fatal("device never received a pairing secret")
	}

	if err := svc.SendCommand(context.Background(), device.Command{Name: device.CmdHome}); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	select {
	case <-keys:
	case <-time.After(2 * time.Second):
		t.Fatal("device never received the key inject")
	}
}

func TestAndroidTVPairedDeviceSkipsPairing(t *testing.T) {
	cert := generateServerCert(t)
	remoteLn, remotePort := listenTLS(t, cert)

	keys := make(chan []byte, 1)
	go serveRemote(remoteLn, keys)

	dev := testDevice(device.BrandAndroidTV)
	store := creds.NewMemStore()
	if err := store.SetPaired(device.BrandAndroidTV, dev.ID, true); err != nil {
		t.Fatal(err)
	}

	delegate := &recordingDelegate{}
	svc := NewAndroidTVService(dev, delegate, store)
	svc.pairingPort = 1 // nothing listens here; pairing must not be attempted
	svc.remotePort = remotePort

	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = svc.Disconnect() }()

	if len(delegate.pinRequested) != 0 {
		t.Error("paired device prompted for a PIN")
	}
}

func TestAndroidTVRequestPinCancellation(t *testing.T) {
	svc := NewAndroidTVService(testDevice(device.BrandAndroidTV), &recordingDelegate{}, creds.NewMemStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.requestPin(ctx); err == nil {
		t.Error("requestPin should fail on a cancelled context")
	}
}

func TestAndroidTVProvidePinWithoutPendingAttempt(t *testing.T) {
	svc := NewAndroidTVService(testDevice(device.BrandAndroidTV), &recordingDelegate{}, creds.NewMemStore())
	// Must not panic or block.
	svc.ProvidePin("2a1b3c4d")
}
