package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSamsungChannelURL(t *testing.T) {
	got := SamsungChannelURL("192.168.1.20", 8002, "tvlink", "")

	if !strings.HasPrefix(got, "wss://192.168.1.20:8002/api/v2/channels/samsung.remote.control?") {
		t.Errorf("SamsungChannelURL() = %q, wrong prefix", got)
	}
	// "tvlink" base64-encodes to dHZsaW5r.
	if !strings.Contains(got, "name=dHZsaW5r") {
		t.Errorf("SamsungChannelURL() = %q, app name not base64-encoded", got)
	}
	if !strings.Contains(got, "token=") {
		t.Errorf("SamsungChannelURL() = %q, missing empty token parameter", got)
	}
}

func TestParseSamsungEvent(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantErr   bool
		wantEvent string
		wantToken string
	}{
		{
			name:      "connect with token",
			data:      `{"event":"ms.channel.connect","data":{"token":"12345678","clients":[]}}`,
			wantEvent: SamsungEventConnect,
			wantToken: "12345678",
		},
		{
			name:      "connect without token",
			data:      `{"event":"ms.channel.connect","data":{"clients":[]}}`,
			wantEvent: SamsungEventConnect,
		},
		{
			name:      "unauthorized",
			data:      `{"event":"ms.channel.unauthorized"}`,
			wantEvent: SamsungEventUnauthorized,
		},
		{
			name:    "no event field",
			data:    `{"data":{"token":"x"}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `hello`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseSamsungEvent([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseSamsungEvent() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSamsungEvent() error = %v", err)
			}
			if ev.Event != tt.wantEvent {
				t.Errorf("Event = %q, want %q", ev.Event, tt.wantEvent)
			}
			if ev.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", ev.Token, tt.wantToken)
			}
		})
	}
}

func TestSamsungClickFrame(t *testing.T) {
	frame, err := SamsungClickFrame("KEY_VOLUP")
	if err != nil {
		t.Fatalf("SamsungClickFrame() error = %v", err)
	}

	var decoded struct {
		Method string `json:"method"`
		Params struct {
			Cmd          string `json:"Cmd"`
			DataOfCmd    string `json:"DataOfCmd"`
			Option       bool   `json:"Option"`
			TypeOfRemote string `json:"TypeOfRemote"`
		} `json:"params"`
	}
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("click frame is not valid JSON: %v", err)
	}

	if decoded.Method != "ms.remote.control" {
		t.Errorf("method = %q, want ms.remote.control", decoded.Method)
	}
	if decoded.Params.Cmd != "Click" {
		t.Errorf("Cmd = %q, want Click", decoded.Params.Cmd)
	}
	if decoded.Params.DataOfCmd != "KEY_VOLUP" {
		t.Errorf("DataOfCmd = %q, want KEY_VOLUP", decoded.Params.DataOfCmd)
	}
	if decoded.Params.TypeOfRemote != "SendRemoteKey" {
		t.Errorf("TypeOfRemote = %q, want SendRemoteKey", decoded.Params.TypeOfRemote)
	}
}

func TestSamsungKeyMapping(t *testing.T) {
	if got := SamsungKey("volumeup"); got != "KEY_VOLUP" {
		t.Errorf("SamsungKey(volumeup) = %q, want KEY_VOLUP", got)
	}
	if got := SamsungKey("no-such-command"); got != SamsungKeyDefault {
		t.Errorf("SamsungKey(unmapped) = %q, want default %q", got, SamsungKeyDefault)
	}
}
