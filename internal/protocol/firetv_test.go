package protocol

import (
	"encoding/json"
	"testing"
)

func TestFireTVBodies(t *testing.T) {
	body, err := FireTVPinDisplayBody("tvlink")
	if err != nil {
		t.Fatalf("FireTVPinDisplayBody() error = %v", err)
	}
	var display map[string]string
	if err := json.Unmarshal(body, &display); err != nil {
		t.Fatalf("pin display body is not valid JSON: %v", err)
	}
	if display["friendlyName"] != "tvlink" {
		t.Errorf("friendlyName = %q, want tvlink", display["friendlyName"])
	}

	body, err = FireTVPinVerifyBody("1234")
	if err != nil {
		t.Fatalf("FireTVPinVerifyBody() error = %v", err)
	}
	var verify map[string]string
	if err := json.Unmarshal(body, &verify); err != nil {
		t.Fatalf("pin verify body is not valid JSON: %v", err)
	}
	if verify["pin"] != "1234" {
		t.Errorf("pin = %q, want 1234", verify["pin"])
	}
}

func TestParseFireTVToken(t *testing.T) {
	token, err := ParseFireTVToken([]byte(`{"description":"bearer-xyz"}`))
	if err != nil {
		t.Fatalf("ParseFireTVToken() error = %v", err)
	}
	if token != "bearer-xyz" {
		t.Errorf("token = %q, want bearer-xyz", token)
	}

	if _, err := ParseFireTVToken([]byte(`{}`)); err == nil {
		t.Error("ParseFireTVToken() should fail when the token is missing")
	}
	if _, err := ParseFireTVToken([]byte(`{"description":""}`)); err == nil {
		t.Error("ParseFireTVToken() should fail on an empty token")
	}
}

func TestFireTVActionMapping(t *testing.T) {
	if got := FireTVAction("volumeup"); got != "volume_up" {
		t.Errorf("FireTVAction(volumeup) = %q, want volume_up", got)
	}
	if got := FireTVAction("poweroff"); got != "sleep" {
		t.Errorf("FireTVAction(poweroff) = %q, want sleep", got)
	}
	if got := FireTVAction("no-such-command"); got != FireTVActionDefault {
		t.Errorf("FireTVAction(unmapped) = %q, want default", got)
	}
}

func TestFireTVCommandPath(t *testing.T) {
	if got := FireTVCommandPath("dpad_up"); got != "/v1/FireTV?action=dpad_up" {
		t.Errorf("FireTVCommandPath() = %q", got)
	}
}
