// Package protocol implements the per-brand TV wire formats.
//
// Each supported control protocol gets its own encoder/decoder set:
//
//   - Samsung: JSON frames on the remote-control WebSocket channel. The first
//     inbound frame is a channel event (ms.channel.connect carries the pairing
//     token, ms.channel.unauthorized means the user declined); commands are
//     single Click frames.
//   - Android TV: length-prefixed binary frames on a raw TLS stream. Pairing
//     frames are [1-byte length][payload]; payloads use protocol-buffer wire
//     encoding built by hand (varint + length-delimited only). The pairing
//     secret is a SHA-256 digest over both certificates' RSA moduli, their
//     exponents, and the hex-decoded PIN tail.
//   - Roku: plaintext ECP paths (/keypress/<key>, /launch/<id>) on HTTP.
//   - Fire TV: JSON PIN-challenge and command payloads with an API-key header
//     plus a bearer-token header.
//
// Every brand exposes a command table translating the generic vocabulary in
// the device package into its own key codes; unmapped command names fall
// through to a per-brand default key.
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
