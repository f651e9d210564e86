package creds

import (
	"github.com/tvlink/tvlink/internal/device"
)

// Store persists per-device pairing material keyed by (brand, device identity).
//
// Tokens are opaque to the store: a Samsung channel token, a Fire TV bearer
// token, or PEM-encoded certificate material. Entries are created on first
// successful pairing, cleared when a TV rejects a stored credential, and
// survive application restarts (FileStore) or live for one process (MemStore).
type Store interface {
	// Token returns the stored credential for the device, if any.
	Token(brand device.Brand, deviceID string) (string, bool)

	// SetToken stores (or replaces) the credential for the device.
	SetToken(brand device.Brand, deviceID, token string) error

	// ClearToken removes the credential for the device. Clearing a missing
	// entry is a no-op.
	ClearToken(brand device.Brand, deviceID string) error

	// Paired reports whether the device completed a pairing handshake.
	Paired(brand device.Brand, deviceID string) bool

	// SetPaired records the pairing flag for the device.
	SetPaired(brand device.Brand, deviceID string, paired bool) error
}

// key builds the storage key for a (brand, device identity) pair. Scoping by
// brand keeps concurrent pairing of two different devices from touching each
// other's entries.
func key(brand device.Brand, deviceID string) string {
	return string(brand) + "/" + deviceID
}
