// Package device defines the shared data model for the connectivity layer.
//
// A Device is a TV found on the local network: a stable identity, a display
// name, a Brand and a network endpoint. The Brand enumeration is closed and
// carries a Protocol tag that selects the connection state machine handling
// the device (plain HTTP keypress, Samsung's WebSocket token channel, Android
// TV's certificate pairing stream, or Fire TV's PIN/bearer-token API).
//
// The package also declares the delegate surfaces through which the
// connectivity layer reports back to its consumers:
//   - DiscoveryDelegate: per-device and per-batch discovery callbacks
//   - ConnectionDelegate: connect/disconnect/error/pin-request events
//   - Telemetry: once-per-sweep search success/failure signals
//
// Everything in this package is plain data; no network behavior lives here.
package device
