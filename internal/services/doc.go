// Package services implements the per-brand connection state machines and
// the orchestrator that owns them.
//
// Every brand exposes the same Service contract (Connect, Disconnect,
// SendCommand, TestConnection, DiscoverDevices) over a Disconnected ->
// Connecting -> Connected lifecycle, but the work behind Connect varies
// wildly by protocol family:
//
//   - Simple HTTP brands (Sony, LG, Philips, TCL, Toshiba, Vizio,
//     Panasonic) probe a status path and fire keypress POSTs; one generic
//     implementation driven by a per-brand profile serves them all.
//   - Roku probes a fixed port/endpoint matrix until an ECP endpoint
//     answers with a body, then remembers the working port.
//   - Samsung opens an authenticated WebSocket channel; first-time pairing
//     waits up to a minute for the user to press Allow on the TV, and the
//     issued token is persisted and reused.
//   - Android TV runs a certificate pairing handshake over a raw TLS stream
//     with one-byte-length framing, derives a shared secret from both
//     endpoint certificates and an on-screen PIN, then controls the TV over
//     a second port.
//   - Fire TV exchanges an on-screen PIN for a bearer token and sends every
//     command over authenticated HTTP.
//
// # Orchestration
//
// Manager keeps at most one live service. Command dispatch reuses the
// current instance when it is bound to the target device, so a live socket
// or session is never rebuilt per command. Ports probed during connect are
// written back to the device registry. Delegate callbacks are serialized
// through a single dispatch goroutine, so delegate implementations never
// run concurrently with protocol goroutines.
//
// # Error Handling
//
// Failures surface as *TVError with a typed category (connection, command,
// PIN verification, authentication, timeout). Rejected stored credentials
// are cleared and pairing restarts; declined pairing prompts fail the
// connect attempt without retry.
package services
