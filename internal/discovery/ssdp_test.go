package discovery

import (
	"strings"
	"testing"
)

func TestBuildMSearch(t *testing.T) {
	msg := string(buildMSearch("roku:ecp", 5))

	if !strings.HasPrefix(msg, "M-SEARCH * HTTP/1.1\r\n") {
		t.Errorf("datagram start line wrong: %q", msg)
	}
	for _, want := range []string{
		"HOST: 239.255.255.250:1900\r\n",
		"MAN: \"ssdp:discover\"\r\n",
		"MX: 5\r\n",
		"ST: roku:ecp\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("datagram missing %q:\n%s", want, msg)
		}
	}
	if !strings.HasSuffix(msg, "\r\n\r\n") {
		t.Error("datagram must end with a blank line")
	}
}

func TestBuildMSearchClampsMX(t *testing.T) {
	msg := string(buildMSearch("ssdp:all", 0))
	if !strings.Contains(msg, "MX: 1\r\n") {
		t.Errorf("MX should clamp to 1, got:\n%s", msg)
	}
}

func TestSSDPResponseHeader(t *testing.T) {
	resp := SSDPResponse{
		Host: "192.168.1.50",
		Text: "HTTP/1.1 200 OK\r\n" +
			"CACHE-CONTROL: max-age=3600\r\n" +
			"Location: http://192.168.1.50:8060/\r\n" +
			"SERVER: Roku/9.4 UPnP/1.0\r\n" +
			"ST: roku:ecp\r\n" +
			"\r\n",
	}

	if got := resp.Header("LOCATION"); got != "http://192.168.1.50:8060/" {
		t.Errorf("Header(LOCATION) = %q (lookup must be case-insensitive)", got)
	}
	if got := resp.Header("SERVER"); got != "Roku/9.4 UPnP/1.0" {
		t.Errorf("Header(SERVER) = %q", got)
	}
	if got := resp.Header("ST"); got != "roku:ecp" {
		t.Errorf("Header(ST) = %q", got)
	}
	if got := resp.Header("MISSING"); got != "" {
		t.Errorf("Header(MISSING) = %q, want empty", got)
	}
}

func TestEngineStopWithoutSearchIsNoop(t *testing.T) {
	e := NewSSDPEngine()
	e.Stop()
	e.Stop()
}
