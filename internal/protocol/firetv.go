package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Fire TV remote API constants. Every request needs the API key header; once
// paired, the bearer token rides in its own header next to it.
const (
	FireTVPort        = 8080
	FireTVAPIKey      = "0987654321"
	FireTVAPIKeyHdr   = "x-api-key"
	FireTVTokenHdr    = "x-client-token"
	FireTVContentType = "application/json"
)

// Fire TV remote API paths.
const (
	FireTVOpenerPath     = "/v1/FireTV/app/remote"
	FireTVPinDisplayPath = "/v1/FireTV/pin/display"
	FireTVPinVerifyPath  = "/v1/FireTV/pin/verify"
	FireTVKeepAlivePath  = "/v1/FireTV/keepalive"
)

// FireTVCommandPath returns the command endpoint for an action.
func FireTVCommandPath(action string) string {
	return "/v1/FireTV?action=" + action
}

// FireTVTextPath returns the endpoint for literal text input.
const FireTVTextPath = "/v1/FireTV/text"

// FireTVPinDisplayBody builds the request that makes the TV show its PIN,
// labeled with the requesting client's name.
func FireTVPinDisplayBody(friendlyName string) ([]byte, error) {
	body := map[string]string{"friendlyName": friendlyName}
	return json.Marshal(body)
}

// FireTVPinVerifyBody builds the PIN-for-token exchange request.
func FireTVPinVerifyBody(pin string) ([]byte, error) {
	body := map[string]string{"pin": pin}
	return json.Marshal(body)
}

// FireTVTextBody builds the literal text injection payload.
func FireTVTextBody(text string) ([]byte, error) {
	body := map[string]string{"text": text}
	return json.Marshal(body)
}

// ParseFireTVToken extracts the bearer token from a pin/verify response.
func ParseFireTVToken(data []byte) (string, error) {
	token, err := jsonparser.GetString(data, "description")
	if err != nil || token == "" {
		return "", fmt.Errorf("pin verify response carries no token")
	}
	return token, nil
}

// fireTVActions maps the generic command vocabulary to Fire TV actions.
var fireTVActions = map[string]string{
	"power":       "power",
	"poweroff":    "sleep",
	"home":        "home",
	"back":        "back",
	"up":          "dpad_up",
	"down":        "dpad_down",
	"left":        "dpad_left",
	"right":       "dpad_right",
	"select":      "select",
	"menu":        "menu",
	"volumeup":    "volume_up",
	"volumedown":  "volume_down",
	"mute":        "mute",
	"play":        "play",
	"pause":       "pause",
	"rewind":      "rewind",
	"fastforward": "fast_forward",
}

// FireTVActionDefault is used for command names outside the mapped vocabulary.
const FireTVActionDefault = "home"

// FireTVAction returns the wire action for a generic command name.
func FireTVAction(command string) string {
	if action, ok := fireTVActions[command]; ok {
		return action
	}
	return FireTVActionDefault
}
