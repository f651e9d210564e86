package protocol

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
)

// Android TV pairing frames are a one-byte length prefix followed by the
// payload, so a single message can never exceed 255 bytes.
const maxPairingFrame = 255

// WritePairingFrame writes one length-prefixed frame to the stream.
func WritePairingFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxPairingFrame {
		return fmt.Errorf("pairing frame too large: %d bytes (max %d)", len(payload), maxPairingFrame)
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, byte(len(payload)))
	buf = append(buf, payload...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write pairing frame: %w", err)
	}
	return nil
}

// ReadPairingFrame reads one length-prefixed frame from the stream.
func ReadPairingFrame(r io.Reader) ([]byte, error) {
	var length [1]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}
	payload := make([]byte, length[0])
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return payload, nil
}

// Pairing protocol constants. Messages are protocol-buffer wire format built
// by hand; the pairing service only ever uses varint and length-delimited
// fields, so a full protobuf dependency buys nothing here.
const (
	pairingProtocolVersion = 2
	pairingStatusOK        = 200

	// Outer message field numbers.
	fieldProtocolVersion = 1
	fieldStatus          = 2
	fieldPairingRequest  = 10
	fieldPairingOption   = 20
	fieldConfiguration   = 30
	fieldSecret          = 40

	// Encoding constants shared by option and configuration payloads:
	// hexadecimal secret encoding, six symbols, client-driven role.
	encodingTypeHex = 3
	secretSymbols   = 6
	roleTypeInput   = 1
)

// AndroidTVStatusOK is the status value the TV reports on pairing success.
const AndroidTVStatusOK = pairingStatusOK

// pvarint appends a protobuf varint field.
func pvarint(buf []byte, field int, value uint64) []byte {
	buf = appendUvarint(buf, uint64(field)<<3)
	return appendUvarint(buf, value)
}

// pbytes appends a protobuf length-delimited field.
func pbytes(buf []byte, field int, value []byte) []byte {
	buf = appendUvarint(buf, uint64(field)<<3|2)
	buf = appendUvarint(buf, uint64(len(value)))
	return append(buf, value...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// envelope wraps an inner pairing message with the version and status fields
// every frame carries.
func envelope(field int, inner []byte) []byte {
	var buf []byte
	buf = pvarint(buf, fieldProtocolVersion, pairingProtocolVersion)
	buf = pvarint(buf, fieldStatus, pairingStatusOK)
	return pbytes(buf, field, inner)
}

// PairingRequestMessage names the TV's pairing service and this client.
func PairingRequestMessage(serviceName, clientName string) []byte {
	var inner []byte
	inner = pbytes(inner, 1, []byte(serviceName))
	inner = pbytes(inner, 2, []byte(clientName))
	return envelope(fieldPairingRequest, inner)
}

// PairingOptionMessage declares the supported secret encoding (hex, six
// symbols) and the input role: the user reads the PIN off the TV and types it
// into this client.
func PairingOptionMessage() []byte {
	var enc []byte
	enc = pvarint(enc, 1, encodingTypeHex)
	enc = pvarint(enc, 2, secretSymbols)

	var inner []byte
	inner = pbytes(inner, 1, enc)
	inner = pvarint(inner, 3, roleTypeInput)
	return envelope(fieldPairingOption, inner)
}

// PairingConfigurationMessage commits the encoding/role choice.
func PairingConfigurationMessage() []byte {
	var enc []byte
	enc = pvarint(enc, 1, encodingTypeHex)
	enc = pvarint(enc, 2, secretSymbols)

	var inner []byte
	inner = pbytes(inner, 1, enc)
	inner = pvarint(inner, 2, roleTypeInput)
	return envelope(fieldConfiguration, inner)
}

// PairingSecretMessage carries the derived secret digest.
func PairingSecretMessage(secret []byte) []byte {
	var inner []byte
	inner = pbytes(inner, 1, secret)
	return envelope(fieldSecret, inner)
}

// ParsePairingStatus extracts the status field from a response frame.
func ParsePairingStatus(frame []byte) (uint64, error) {
	i := 0
	for i < len(frame) {
		tag, n := readUvarint(frame[i:])
		if n <= 0 {
			return 0, fmt.Errorf("malformed pairing frame at offset %d", i)
		}
		i += n
		field, wire := int(tag>>3), int(tag&7)

		switch wire {
		case 0:
			v, n := readUvarint(frame[i:])
			if n <= 0 {
				return 0, fmt.Errorf("malformed varint at offset %d", i)
			}
			i += n
			if field == fieldStatus {
				return v, nil
			}
		case 2:
			l, n := readUvarint(frame[i:])
			if n <= 0 || i+n+int(l) > len(frame) {
				return 0, fmt.Errorf("malformed length-delimited field at offset %d", i)
			}
			i += n + int(l)
		default:
			return 0, fmt.Errorf("unsupported wire type %d in pairing frame", wire)
		}
	}
	return 0, fmt.Errorf("pairing frame has no status field")
}

func readUvarint(buf []byte) (uint64, int) {
	var v uint64
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return v, i + 1
		}
		if i == 9 {
			break
		}
	}
	return 0, -1
}

// DerivePairingSecret computes the SHA-256 pairing secret from the client and
// server certificates and the PIN displayed on the TV.
//
// The digest covers clientModulus || clientExponent || serverModulus ||
// serverExponent || decode(pin[2:]). The PIN's first two characters are a
// protocol marker and are dropped; the rest is hex-decoded. Both certificates
// must carry RSA keys, and the public exponent is fixed at 0x010001 on every
// TV observed, so a different exponent is rejected outright.
func DerivePairingSecret(clientCert, serverCert *x509.Certificate, pin string) ([]byte, error) {
	if len(pin) <= 2 {
		return nil, fmt.Errorf("pin %q too short: need a marker plus at least one hex digit", pin)
	}

	clientKey, err := rsaKey(clientCert)
	if err != nil {
		return nil, fmt.Errorf("client certificate: %w", err)
	}
	serverKey, err := rsaKey(serverCert)
	if err != nil {
		return nil, fmt.Errorf("server certificate: %w", err)
	}

	nonce, err := hex.DecodeString(pin[2:])
	if err != nil {
		return nil, fmt.Errorf("pin %q is not hex after the marker: %w", pin, err)
	}

	h := sha256.New()
	h.Write(clientKey.N.Bytes())
	h.Write(exponentBytes(clientKey.E))
	h.Write(serverKey.N.Bytes())
	h.Write(exponentBytes(serverKey.E))
	h.Write(nonce)
	return h.Sum(nil), nil
}

// rsaKey extracts the RSA public key from a certificate. A non-RSA key makes
// pairing impossible, so this is a hard failure.
func rsaKey(cert *x509.Certificate) (*rsa.PublicKey, error) {
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA; cannot derive pairing secret", cert.PublicKey)
	}
	return key, nil
}

// exponentBytes encodes the public exponent big-endian without leading zeros.
// For the fixed TV exponent this is always {0x01, 0x00, 0x01}.
func exponentBytes(e int) []byte {
	if e == 0 {
		return []byte{0}
	}
	var out []byte
	for v := uint(e); v > 0; v >>= 8 {
		out = append([]byte{byte(v)}, out...)
	}
	return out
}

// Remote-control messages for the command port. The remote service reuses the
// same hand-built wire format with its own field numbers.
const (
	fieldRemoteConfigure = 1
	fieldRemoteSetActive = 2
	fieldRemoteKeyInject = 10

	remoteActiveFlag = 622
)

// Key event directions for RemoteKeyInjectMessage.
const (
	KeyActionDown      = 0
	KeyActionUp        = 1
	KeyActionDownAndUp = 2
)

// RemoteConfigureMessage opens the remote-control session on the command port.
func RemoteConfigureMessage(clientName string) []byte {
	var info []byte
	info = pbytes(info, 1, []byte(clientName))
	info = pvarint(info, 2, 1)

	var inner []byte
	inner = pvarint(inner, 1, pairingProtocolVersion)
	inner = pbytes(inner, 2, info)
	return pbytes(nil, fieldRemoteConfigure, inner)
}

// RemoteSetActiveMessage marks the session active so key injection is accepted.
func RemoteSetActiveMessage() []byte {
	var inner []byte
	inner = pvarint(inner, 1, remoteActiveFlag)
	return pbytes(nil, fieldRemoteSetActive, inner)
}

// RemoteKeyInjectMessage presses a key. action is one of the KeyAction
// constants; remote key presses from this client always use down-and-up.
func RemoteKeyInjectMessage(keycode int, action int) []byte {
	var inner []byte
	inner = pvarint(inner, 1, uint64(keycode))
	inner = pvarint(inner, 2, uint64(action))
	return pbytes(nil, fieldRemoteKeyInject, inner)
}

// androidKeycodes maps the generic command vocabulary to Android key codes.
var androidKeycodes = map[string]int{
	"power":       26,  // KEYCODE_POWER
	"poweroff":    26,  // KEYCODE_POWER
	"home":        3,   // KEYCODE_HOME
	"back":        4,   // KEYCODE_BACK
	"up":          19,  // KEYCODE_DPAD_UP
	"down":        20,  // KEYCODE_DPAD_DOWN
	"left":        21,  // KEYCODE_DPAD_LEFT
	"right":       22,  // KEYCODE_DPAD_RIGHT
	"select":      23,  // KEYCODE_DPAD_CENTER
	"menu":        82,  // KEYCODE_MENU
	"volumeup":    24,  // KEYCODE_VOLUME_UP
	"volumedown":  25,  // KEYCODE_VOLUME_DOWN
	"mute":        164, // KEYCODE_VOLUME_MUTE
	"play":        126, // KEYCODE_MEDIA_PLAY
	"pause":       127, // KEYCODE_MEDIA_PAUSE
	"rewind":      89,  // KEYCODE_MEDIA_REWIND
	"fastforward": 90,  // KEYCODE_MEDIA_FAST_FORWARD
	"channelup":   166, // KEYCODE_CHANNEL_UP
	"channeldown": 167, // KEYCODE_CHANNEL_DOWN
}

// AndroidKeycodeDefault is KEYCODE_HOME, used for unmapped command names.
const AndroidKeycodeDefault = 3

// AndroidKeycode returns the key code for a generic command name.
func AndroidKeycode(command string) int {
	if code, ok := androidKeycodes[command]; ok {
		return code
	}
	return AndroidKeycodeDefault
}
