// Package transport provides the thin network adapters the protocol state
// machines drive: HTTP request/response with bounded retries, WebSocket
// connections, raw framed TLS streams, and UDP sockets for multicast search.
//
// Adapters expose only send/receive primitives; all protocol sequencing,
// timeouts beyond a single exchange, and credential handling live in the
// services package. TLS certificate verification is disabled for WebSocket
// and stream dials because TVs universally present self-signed certificates;
// the Android TV machine instead consumes the peer certificate directly for
// its pairing secret.
package transport
