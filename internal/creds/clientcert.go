package creds

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/tvlink/tvlink/internal/device"
)

// certKeySuffix scopes the Android TV client certificate inside the store,
// separate from the device's pairing flag entry.
const certKeySuffix = "#clientcert"

// clientCertBits is the RSA key size for generated client certificates.
// Android TVs expect an RSA client certificate; the pairing secret is derived
// from its modulus.
const clientCertBits = 2048

// ClientCert returns the persistent TLS client certificate for an Android TV,
// generating and storing a new self-signed one on first use. The same
// certificate must be presented for pairing and for every later command
// connection, because the TV remembers the paired client key.
func ClientCert(s Store, deviceID string) (tls.Certificate, error) {
	if pemData, ok := s.Token(device.BrandAndroidTV, deviceID+certKeySuffix); ok {
		cert, err := tls.X509KeyPair([]byte(pemData), []byte(pemData))
		if err == nil {
			return cert, nil
		}
		// Unreadable stored material: regenerate. The TV will re-prompt for
		// pairing since the key no longer matches.
		_ = s.ClearToken(device.BrandAndroidTV, deviceID+certKeySuffix)
	}

	pemData, err := generateClientCertPEM()
	if err != nil {
		return tls.Certificate{}, err
	}
	if err := s.SetToken(device.BrandAndroidTV, deviceID+certKeySuffix, string(pemData)); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to persist client certificate: %w", err)
	}
	return tls.X509KeyPair(pemData, pemData)
}

// generateClientCertPEM creates a new RSA key and long-lived self-signed
// certificate, returned as concatenated CERTIFICATE + RSA PRIVATE KEY PEM
// blocks.
func generateClientCertPEM() ([]byte, error) {
	priv, err := rsa.GenerateKey(rand.Reader, clientCertBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate client key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate serial: %w", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "tvlink-remote",
			Organization: []string{"tvlink"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create client certificate: %w", err)
	}

	var out []byte
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	out = append(out, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})...)
	return out, nil
}
