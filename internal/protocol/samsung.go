package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/buger/jsonparser"
)

// Samsung channel events delivered as the first frame after the socket opens.
const (
	SamsungEventConnect      = "ms.channel.connect"
	SamsungEventUnauthorized = "ms.channel.unauthorized"
	SamsungEventDisconnect   = "ms.channel.disconnect"
)

// SamsungChannelPath is the remote-control channel endpoint on the TV.
const SamsungChannelPath = "/api/v2/channels/samsung.remote.control"

// SamsungChannelURL builds the wss URL for the remote-control channel.
// The application name travels base64-encoded in the query string; token is
// empty on the first (pairing) connection.
func SamsungChannelURL(host string, port int, appName, token string) string {
	q := url.Values{}
	q.Set("name", base64.StdEncoding.EncodeToString([]byte(appName)))
	q.Set("token", token)
	u := url.URL{
		Scheme:   "wss",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     SamsungChannelPath,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// SamsungEvent is a decoded channel event frame.
type SamsungEvent struct {
	Event string // One of the SamsungEvent* constants
	Token string // Present on ms.channel.connect after the user pressed Allow
}

// ParseSamsungEvent decodes a channel frame. Frames are JSON; only the event
// name and the optional data.token field matter to the connection machine,
// so the rest of the document is left untouched.
func ParseSamsungEvent(data []byte) (*SamsungEvent, error) {
	event, err := jsonparser.GetString(data, "event")
	if err != nil {
		return nil, fmt.Errorf("channel frame has no event field: %w", err)
	}

	ev := &SamsungEvent{Event: event}
	if token, err := jsonparser.GetString(data, "data", "token"); err == nil {
		ev.Token = token
	}
	return ev, nil
}

// samsungRemoteMessage is the outgoing command frame shape.
type samsungRemoteMessage struct {
	Method string              `json:"method"`
	Params samsungRemoteParams `json:"params"`
}

type samsungRemoteParams struct {
	Cmd          string `json:"Cmd"`
	DataOfCmd    string `json:"DataOfCmd"`
	Option       bool   `json:"Option"`
	TypeOfRemote string `json:"TypeOfRemote"`
}

// SamsungClickFrame builds a one-frame key click for the channel.
func SamsungClickFrame(key string) ([]byte, error) {
	msg := samsungRemoteMessage{
		Method: "ms.remote.control",
		Params: samsungRemoteParams{
			Cmd:          "Click",
			DataOfCmd:    key,
			Option:       false,
			TypeOfRemote: "SendRemoteKey",
		},
	}
	return json.Marshal(msg)
}

// SamsungPingFrame builds the application-level keepalive frame. TVs that
// have gone to sleep stop answering these, which is the trigger for the
// delayed reconnect.
func SamsungPingFrame() []byte {
	return []byte(`{"method":"ms.channel.emit","params":{"event":"ed.ping","to":"host"}}`)
}

// samsungKeys maps the generic command vocabulary to Samsung key codes.
var samsungKeys = map[string]string{
	"power":       "KEY_POWER",
	"poweroff":    "KEY_POWEROFF",
	"home":        "KEY_HOME",
	"back":        "KEY_RETURN",
	"up":          "KEY_UP",
	"down":        "KEY_DOWN",
	"left":        "KEY_LEFT",
	"right":       "KEY_RIGHT",
	"select":      "KEY_ENTER",
	"menu":        "KEY_MENU",
	"volumeup":    "KEY_VOLUP",
	"volumedown":  "KEY_VOLDOWN",
	"mute":        "KEY_MUTE",
	"play":        "KEY_PLAY",
	"pause":       "KEY_PAUSE",
	"rewind":      "KEY_REWIND",
	"fastforward": "KEY_FF",
	"channelup":   "KEY_CHUP",
	"channeldown": "KEY_CHDOWN",
}

// SamsungKeyDefault is used for command names outside the mapped vocabulary.
const SamsungKeyDefault = "KEY_HOME"

// SamsungKey returns the key code for a generic command name.
func SamsungKey(command string) string {
	if key, ok := samsungKeys[command]; ok {
		return key
	}
	return SamsungKeyDefault
}
