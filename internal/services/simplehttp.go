package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tvlink/tvlink/internal/device"
	"github.com/tvlink/tvlink/internal/logging"
	"github.com/tvlink/tvlink/internal/transport"
)

// httpProfile describes how one simple-HTTP brand is probed and commanded.
// These brands have no real handshake: any non-error response to the probe
// path counts as connected, and commands are fire-and-forget POSTs.
type httpProfile struct {
	port      int
	probePath string
	// cmdPath builds the POST path for a brand key code.
	cmdPath func(key string) string
	// body builds the optional JSON body for a brand key code; nil means the
	// key is carried in the path alone.
	body func(key string) []byte
	// keys maps the generic command vocabulary to brand key codes.
	keys map[string]string
	// defaultKey handles commands absent from keys.
	defaultKey string
}

func jsonKeyBody(field string) func(string) []byte {
	return func(key string) []byte {
		b, _ := json.Marshal(map[string]string{field: key})
		return b
	}
}

// Simple-HTTP brand profiles. Each entry is a best-effort mapping onto the
// vendor's local control API; TVs with the feature disabled simply fail the
// probe.
var httpProfiles = map[device.Brand]httpProfile{
	device.BrandSony: {
		port:      80,
		probePath: "/sony/system",
		cmdPath:   func(string) string { return "/sony/ircc" },
		body:      jsonKeyBody("irccCode"),
		keys: map[string]string{
			device.CmdPower:      "AAAAAQAAAAEAAAAVAw==",
			device.CmdHome:       "AAAAAQAAAAEAAABgAw==",
			device.CmdBack:       "AAAAAgAAAJcAAAAjAw==",
			device.CmdUp:         "AAAAAQAAAAEAAAB0Aw==",
			device.CmdDown:       "AAAAAQAAAAEAAAB1Aw==",
			device.CmdLeft:       "AAAAAQAAAAEAAAA0Aw==",
			device.CmdRight:      "AAAAAQAAAAEAAAAzAw==",
			device.CmdSelect:     "AAAAAQAAAAEAAABlAw==",
			device.CmdVolumeUp:   "AAAAAQAAAAEAAAASAw==",
			device.CmdVolumeDown: "AAAAAQAAAAEAAAATAw==",
			device.CmdMute:       "AAAAAQAAAAEAAAAUAw==",
			device.CmdPlay:       "AAAAAgAAAJcAAAAaAw==",
			device.CmdPause:      "AAAAAgAAAJcAAAAZAw==",
		},
		defaultKey: "AAAAAQAAAAEAAABgAw==",
	},
	device.BrandLG: {
		port:      8080,
		probePath: "/udap/api/data?target=version_info",
		cmdPath:   func(string) string { return "/udap/api/command" },
		body:      jsonKeyBody("code"),
		keys: map[string]string{
			device.CmdPower:      "1",
			device.CmdHome:       "21",
			device.CmdBack:       "23",
			device.CmdUp:         "12",
			device.CmdDown:       "13",
			device.CmdLeft:       "14",
			device.CmdRight:      "15",
			device.CmdSelect:     "20",
			device.CmdVolumeUp:   "24",
			device.CmdVolumeDown: "25",
			device.CmdMute:       "26",
			device.CmdChannelUp:  "27",
			device.CmdChannelDn:  "28",
		},
		defaultKey: "21",
	},
	device.BrandPhilipsAndroid: {
		port:      1925,
		probePath: "/6/system",
		cmdPath:   func(string) string { return "/6/input/key" },
		body:      jsonKeyBody("key"),
		keys: map[string]string{
			device.CmdPower:      "Standby",
			device.CmdHome:       "Home",
			device.CmdBack:       "Back",
			device.CmdUp:         "CursorUp",
			device.CmdDown:       "CursorDown",
			device.CmdLeft:       "CursorLeft",
			device.CmdRight:      "CursorRight",
			device.CmdSelect:     "Confirm",
			device.CmdVolumeUp:   "VolumeUp",
			device.CmdVolumeDown: "VolumeDown",
			device.CmdMute:       "Mute",
			device.CmdPlay:       "Play",
			device.CmdPause:      "Pause",
			device.CmdRewind:     "Rewind",
			device.CmdFastFwd:    "FastForward",
		},
		defaultKey: "Home",
	},
	device.BrandTCL: {
		port:      8060,
		probePath: "/query/device-info",
		cmdPath:   func(key string) string { return "/keypress/" + key },
		keys: map[string]string{
			device.CmdPower:      "Power",
			device.CmdHome:       "Home",
			device.CmdBack:       "Back",
			device.CmdUp:         "Up",
			device.CmdDown:       "Down",
			device.CmdLeft:       "Left",
			device.CmdRight:      "Right",
			device.CmdSelect:     "Select",
			device.CmdVolumeUp:   "VolumeUp",
			device.CmdVolumeDown: "VolumeDown",
			device.CmdMute:       "VolumeMute",
		},
		defaultKey: "Home",
	},
	device.BrandToshiba: {
		port:      8080,
		probePath: "/v2/remote/status",
		cmdPath:   func(string) string { return "/v2/remote/key" },
		body:      jsonKeyBody("key"),
		keys: map[string]string{
			device.CmdPower:      "POWER",
			device.CmdHome:       "HOME",
			device.CmdBack:       "BACK",
			device.CmdUp:         "UP",
			device.CmdDown:       "DOWN",
			device.CmdLeft:       "LEFT",
			device.CmdRight:      "RIGHT",
			device.CmdSelect:     "OK",
			device.CmdVolumeUp:   "VOLUP",
			device.CmdVolumeDown: "VOLDOWN",
			device.CmdMute:       "MUTE",
		},
		defaultKey: "HOME",
	},
	device.BrandVizio: {
		port:      7345,
		probePath: "/state/device/power_mode",
		cmdPath:   func(string) string { return "/key_command/" },
		body:      jsonKeyBody("ACTION"),
		keys: map[string]string{
			device.CmdPower:      "POW",
			device.CmdHome:       "HOME",
			device.CmdBack:       "BACK",
			device.CmdUp:         "UP",
			device.CmdDown:       "DOWN",
			device.CmdLeft:       "LEFT",
			device.CmdRight:      "RIGHT",
			device.CmdSelect:     "OK",
			device.CmdVolumeUp:   "VOL_UP",
			device.CmdVolumeDown: "VOL_DOWN",
			device.CmdMute:       "MUTE",
			device.CmdChannelUp:  "CH_UP",
			device.CmdChannelDn:  "CH_DOWN",
		},
		defaultKey: "HOME",
	},
	device.BrandPanasonic: {
		port:      55000,
		probePath: "/nrc/ddd.xml",
		cmdPath:   func(string) string { return "/nrc/control_0" },
		body:      jsonKeyBody("key"),
		keys: map[string]string{
			device.CmdPower:      "NRC_POWER-ONOFF",
			device.CmdHome:       "NRC_HOME-ONOFF",
			device.CmdBack:       "NRC_RETURN-ONOFF",
			device.CmdUp:         "NRC_UP-ONOFF",
			device.CmdDown:       "NRC_DOWN-ONOFF",
			device.CmdLeft:       "NRC_LEFT-ONOFF",
			device.CmdRight:      "NRC_RIGHT-ONOFF",
			device.CmdSelect:     "NRC_ENTER-ONOFF",
			device.CmdVolumeUp:   "NRC_VOLUP-ONOFF",
			device.CmdVolumeDown: "NRC_VOLDOWN-ONOFF",
			device.CmdMute:       "NRC_MUTE-ONOFF",
		},
		defaultKey: "NRC_HOME-ONOFF",
	},
}

// SimpleHTTPService controls the brands that expose a plain HTTP keypress
// API with no handshake. One implementation serves all of them, driven by
// the brand profile.
type SimpleHTTPService struct {
	dev      *device.Device
	delegate device.ConnectionDelegate
	profile  httpProfile
	http     *transport.HTTPClient
	st       state
}

// NewSimpleHTTPService builds the service for a simple-HTTP brand.
func NewSimpleHTTPService(dev *device.Device, delegate device.ConnectionDelegate) (*SimpleHTTPService, error) {
	profile, ok := httpProfiles[dev.Brand]
	if !ok {
		return nil, fmt.Errorf("no HTTP profile for brand %s", dev.Brand)
	}
	return &SimpleHTTPService{
		dev:      dev,
		delegate: delegate,
		profile:  profile,
		http:     transport.NewHTTPClient(transport.DefaultHTTPTimeout, transport.DefaultHTTPRetries),
	}, nil
}

func (s *SimpleHTTPService) Device() *device.Device { return s.dev }

func (s *SimpleHTTPService) State() ConnState { return s.st.get() }

// port prefers the port recorded on the device, falling back to the brand
// default.
func (s *SimpleHTTPService) port() int {
	if s.dev.Port != 0 {
		return s.dev.Port
	}
	return s.profile.port
}

func (s *SimpleHTTPService) url(path string) string {
	return fmt.Sprintf("http://%s:%d%s", s.dev.Address, s.port(), path)
}

// Connect probes the brand status path. Any non-error response means the TV
// is reachable and accepting commands.
func (s *SimpleHTTPService) Connect(ctx context.Context) error {
	if err := s.st.transition(StateDisconnected, StateConnecting); err != nil {
		return NewConnectionError(err.Error(), nil, s.dev.Address)
	}

	resp, err := s.http.Get(ctx, s.url(s.profile.probePath), nil)
	if err != nil {
		s.st.set(StateDisconnected)
		return NewConnectionError("probe failed", err, s.dev.Address)
	}
	if !resp.OK() {
		s.st.set(StateDisconnected)
		return NewConnectionError(
			fmt.Sprintf("probe returned HTTP %d", resp.StatusCode), nil, s.dev.Address)
	}

	s.st.set(StateConnected)
	logging.LogConnection(s.dev.Address, "connected")
	if s.delegate != nil {
		s.delegate.OnConnected(s.dev)
	}
	return nil
}

// Disconnect is a pure state change; there is no session to tear down.
func (s *SimpleHTTPService) Disconnect() error {
	if s.st.get() == StateDisconnected {
		return nil
	}
	s.st.set(StateDisconnected)
	logging.LogConnection(s.dev.Address, "disconnected")
	if s.delegate != nil {
		s.delegate.OnDisconnected(s.dev)
	}
	return nil
}

// SendCommand maps the generic command onto the brand key code and POSTs it.
func (s *SimpleHTTPService) SendCommand(ctx context.Context, cmd device.Command) error {
	if err := s.st.requireConnected(); err != nil {
		return err
	}

	key, ok := s.profile.keys[cmd.Name]
	if !ok {
		key = s.profile.defaultKey
	}

	var body []byte
	if s.profile.body != nil {
		body = s.profile.body(key)
	}
	headers := map[string]string{"Content-Type": "application/json"}

	logging.LogCommand(string(s.dev.Brand), s.dev.Address, cmd.Name)
	resp, err := s.http.Post(ctx, s.url(s.profile.cmdPath(key)), headers, body)
	if err != nil {
		return NewCommandError(fmt.Sprintf("failed to send %q", cmd.Name), err)
	}
	if !resp.OK() {
		return NewCommandError(
			fmt.Sprintf("device rejected %q with HTTP %d", cmd.Name, resp.StatusCode), nil)
	}
	return nil
}

// TestConnection re-runs the probe without touching connection state.
func (s *SimpleHTTPService) TestConnection(ctx context.Context) (bool, error) {
	resp, err := s.http.Get(ctx, s.url(s.profile.probePath), nil)
	if err != nil {
		return false, nil
	}
	return resp.OK(), nil
}

// DiscoverDevices sweeps for devices of this brand.
func (s *SimpleHTTPService) DiscoverDevices(ctx context.Context) ([]*device.Device, error) {
	return discoverBrand(ctx, "ssdp:all", s.dev.Brand)
}
