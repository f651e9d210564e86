// Package config manages the user's device registry and preferences.
//
// The registry is a YAML file under the user config directory
// ($XDG_CONFIG_HOME/tvlink/registry.yaml on Linux) recording every TV the
// client has discovered or connected to: display name, brand, address, the
// last control port that worked, and a last-seen timestamp. It also stores
// the last connected device so the next session can reconnect, and a small
// set of preferences controlling discovery behavior.
//
// Saves are atomic (temp file + rename). Pairing tokens never live in this
// file; see the creds package.
package config
