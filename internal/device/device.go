package device

import (
	"fmt"
	"time"
)

// Brand identifies the TV vendor and therefore the control protocol family.
type Brand string

const (
	BrandRoku           Brand = "roku"
	BrandSamsung        Brand = "samsung"
	BrandAndroidTV      Brand = "androidtv"
	BrandFireTV         Brand = "firetv"
	BrandSony           Brand = "sony"
	BrandLG             Brand = "lg"
	BrandPhilipsAndroid Brand = "philips"
	BrandTCL            Brand = "tcl"
	BrandToshiba        Brand = "toshiba"
	BrandVizio          Brand = "vizio"
	BrandPanasonic      Brand = "panasonic"
)

// Protocol is the connection protocol family a brand speaks.
type Protocol string

const (
	// ProtocolSimpleHTTP covers brands controlled with plain HTTP keypress
	// requests and no real handshake.
	ProtocolSimpleHTTP Protocol = "simple-http"

	// ProtocolWebSocketToken is Samsung's authenticated WebSocket channel.
	ProtocolWebSocketToken Protocol = "websocket-token"

	// ProtocolCertPairing is Android TV's certificate pairing over a raw
	// TLS stream with binary framing.
	ProtocolCertPairing Protocol = "cert-pairing"

	// ProtocolPinToken is Fire TV's PIN-challenge HTTP API with bearer tokens.
	ProtocolPinToken Protocol = "pin-token"
)

// Protocol returns the connection protocol family for the brand.
func (b Brand) Protocol() Protocol {
	switch b {
	case BrandSamsung:
		return ProtocolWebSocketToken
	case BrandAndroidTV:
		return ProtocolCertPairing
	case BrandFireTV:
		return ProtocolPinToken
	default:
		return ProtocolSimpleHTTP
	}
}

// String returns a human-readable brand name.
func (b Brand) String() string {
	switch b {
	case BrandRoku:
		return "Roku"
	case BrandSamsung:
		return "Samsung"
	case BrandAndroidTV:
		return "Android TV"
	case BrandFireTV:
		return "Fire TV"
	case BrandSony:
		return "Sony"
	case BrandLG:
		return "LG"
	case BrandPhilipsAndroid:
		return "Philips"
	case BrandTCL:
		return "TCL"
	case BrandToshiba:
		return "Toshiba"
	case BrandVizio:
		return "Vizio"
	case BrandPanasonic:
		return "Panasonic"
	default:
		return string(b)
	}
}

// Device represents a TV on the local network.
//
// ID is stable across rediscovery even when the control port changes.
// Discovery de-duplicates by (Address, Name) rather than ID because the same
// physical TV may be redetected with a new ID.
type Device struct {
	// ID is a stable identifier, usually the UPnP UDN or a generated UUID.
	ID string

	// Name is the display name shown to the user.
	Name string

	// Brand selects the connection state machine.
	Brand Brand

	// Address is the IPv4 address on the local network.
	Address string

	// Port is the control port. Mutable: Roku, Samsung and Android TV probe
	// several ports during connect and record the one that worked.
	Port int

	// DiscoveredAt is when the device was last seen by discovery.
	DiscoveredAt time.Time
}

// DedupKey is the discovery de-duplication key.
func (d *Device) DedupKey() string {
	return d.Address + d.Name
}

// String returns a human-readable representation of the device.
func (d *Device) String() string {
	return fmt.Sprintf("%s %q at %s:%d", d.Brand, d.Name, d.Address, d.Port)
}

// Command is a remote-control command to deliver to a device. Name is a
// generic vocabulary entry (see Commands); Text optionally carries literal
// text for on-screen keyboard input. Commands are translated to the brand's
// wire format immediately before send and never persisted.
type Command struct {
	Name string
	Text string
}

// Generic command vocabulary. Brands map these to their own key codes;
// unmapped names fall through to a per-brand default.
const (
	CmdPower      = "power"
	CmdPowerOff   = "poweroff"
	CmdHome       = "home"
	CmdBack       = "back"
	CmdUp         = "up"
	CmdDown       = "down"
	CmdLeft       = "left"
	CmdRight      = "right"
	CmdSelect     = "select"
	CmdMenu       = "menu"
	CmdVolumeUp   = "volumeup"
	CmdVolumeDown = "volumedown"
	CmdMute       = "mute"
	CmdPlay       = "play"
	CmdPause      = "pause"
	CmdRewind     = "rewind"
	CmdFastFwd    = "fastforward"
	CmdChannelUp  = "channelup"
	CmdChannelDn  = "channeldown"
	CmdText       = "text"
)
