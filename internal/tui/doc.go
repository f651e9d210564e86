// Package tui implements the interactive terminal interface: device
// discovery, connection with pairing PIN entry, and a remote-control screen.
//
// # Architecture
//
// The package follows the bubbletea Model-Update-View pattern. AppModel is
// the top-level coordinator; it owns the screen state machine
// (discovery -> connecting -> pin -> remote) and routes messages to the
// active screen model.
//
// Discovery sweeps and connection attempts run on manager goroutines, not
// inside Update. Their delegate callbacks are adapted into bubbletea
// messages by the bridge type, and the app model keeps one waitForEvent
// command in flight to drain them. This keeps all model mutation on the
// bubbletea loop.
//
// # Screens
//
//   - DiscoveryModel: live device list fed by sweep results, with a manual
//     "brand address" entry mode for TVs that do not answer multicast.
//   - Connecting: spinner while ConnectToDevice runs; esc cancels.
//   - PIN prompt: shown when a pairing flow requests a PIN; the typed value
//     is routed to the in-flight attempt via ProvidePin.
//   - RemoteModel: keypress-to-command remote for the connected TV, with a
//     text entry mode for on-screen keyboards.
package tui
