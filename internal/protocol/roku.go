package protocol

import (
	"fmt"
	"net/url"
)

// Roku ECP control ports. Firmware and developer-mode settings move the
// control port around, so connect probes each port against each probe
// endpoint in order and keeps the first combination that answers with a
// non-empty body.
var (
	RokuProbePorts     = []int{8060, 8080}
	RokuProbeEndpoints = []string{"/query/device-info", "/"}
)

// RokuKeypressPath returns the ECP path for a key press.
func RokuKeypressPath(key string) string {
	return "/keypress/" + key
}

// RokuLaunchPath returns the ECP path for launching a channel by app ID.
func RokuLaunchPath(appID string) string {
	return "/launch/" + appID
}

// RokuLiteralPath returns the ECP path for typing one character on the
// on-screen keyboard.
func RokuLiteralPath(ch rune) string {
	return "/keypress/Lit_" + url.PathEscape(string(ch))
}

// RokuBaseURL builds the ECP base URL.
func RokuBaseURL(host string, port int) string {
	return fmt.Sprintf("http://%s:%d", host, port)
}

// rokuKeys maps the generic command vocabulary to ECP key names.
var rokuKeys = map[string]string{
	"power":       "Power",
	"poweroff":    "PowerOff",
	"home":        "Home",
	"back":        "Back",
	"up":          "Up",
	"down":        "Down",
	"left":        "Left",
	"right":       "Right",
	"select":      "Select",
	"menu":        "Info",
	"volumeup":    "VolumeUp",
	"volumedown":  "VolumeDown",
	"mute":        "VolumeMute",
	"play":        "Play",
	"pause":       "Play", // ECP toggles play/pause with one key
	"rewind":      "Rev",
	"fastforward": "Fwd",
	"channelup":   "ChannelUp",
	"channeldown": "ChannelDown",
}

// RokuKeyDefault is used for command names outside the mapped vocabulary.
const RokuKeyDefault = "Home"

// RokuKey returns the ECP key name for a generic command name.
func RokuKey(command string) string {
	if key, ok := rokuKeys[command]; ok {
		return key
	}
	return RokuKeyDefault
}
