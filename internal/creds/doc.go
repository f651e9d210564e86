// Package creds persists per-device pairing material.
//
// Each TV brand that pairs (Samsung's channel token, Fire TV's bearer token,
// Android TV's client certificate and paired flag) stores one opaque
// credential keyed by (brand, device identity). The FileStore keeps them in
// a YAML file under the user config directory with atomic writes; MemStore
// backs tests.
//
// Credentials are created on first successful pairing, cleared when a TV
// rejects a stored credential, and otherwise survive restarts. The store is
// the only state shared between brand state machines; brand-scoped keys keep
// concurrent pairing of two devices independent.
package creds
