package discovery

import (
	"testing"

	"github.com/tvlink/tvlink/internal/device"
)

func desc(manufacturer, friendly, model, number string) *Description {
	d := &Description{}
	d.Device.Manufacturer = manufacturer
	d.Device.FriendlyName = friendly
	d.Device.ModelName = model
	d.Device.ModelNumber = number
	return d
}

func TestClassifyBrandRules(t *testing.T) {
	tests := []struct {
		name         string
		manufacturer string
		model        string
		want         device.Brand
	}{
		{"samsung", "Samsung Electronics", "QN90A", device.BrandSamsung},
		{"roku", "Roku, Inc.", "Ultra", device.BrandRoku},
		{"amazon", "Amazon.com, Inc.", "Fire TV Stick", device.BrandFireTV},
		{"sony", "Sony Corporation", "Bravia", device.BrandSony},
		{"lg", "LG Electronics", "OLED55", device.BrandLG},
		{"tcl plain", "TCL Technology", "6-Series", device.BrandTCL},
		// Roku precedence: a manufacturer mentioning both wins as Roku.
		{"tcl roku", "TCL Roku TV Co", "55S425", device.BrandRoku},
		{"tcl fire", "Amazon for TCL", "S3", device.BrandFireTV},
		{"vizio", "VIZIO Inc", "M-Series", device.BrandVizio},
		{"toshiba", "Toshiba Visual Solutions", "C350", device.BrandToshiba},
		{"panasonic", "Panasonic Corp", "JX800", device.BrandPanasonic},
		{"xiaomi", "Xiaomi Communications", "Mi Box S", device.BrandAndroidTV},
		// Generic fallback applies only when no specific substring matched.
		{"google xiaomi", "Google Inc. (associated with Xiaomi box)", "Chromecast", device.BrandAndroidTV},
		{"android generic", "Android", "ShieldTV", device.BrandAndroidTV},
		{"philips by model", "TP Vision", "Philips 55PUS", device.BrandPhilipsAndroid},
		{"unknown", "Frobnicate Industries", "X1", device.BrandAndroidTV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := Classify(desc(tt.manufacturer, "", tt.model, ""))
			if !ok {
				t.Fatal("Classify() returned not-ok for a classifiable document")
			}
			if got != tt.want {
				t.Errorf("Classify() brand = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyRejectsEmptyDocument(t *testing.T) {
	if _, _, ok := Classify(desc("", "", "", "")); ok {
		t.Error("Classify() should reject a document without manufacturer or model")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		d    *Description
		want string
	}{
		{
			name: "friendly device name preferred",
			d: func() *Description {
				d := desc("Samsung Electronics", "[TV] Samsung", "QN90A", "2021")
				d.Device.FriendlyDeviceName = "Living Room TV"
				return d
			}(),
			want: "Living Room TV",
		},
		{
			name: "friendly name second",
			d:    desc("Samsung Electronics", "[TV] Samsung QN90A", "QN90A", ""),
			want: "[TV] Samsung QN90A",
		},
		{
			name: "samsung composition includes model number",
			d:    desc("Samsung Electronics", "", "QN90A", "2021"),
			want: "Samsung QN90A [2021]",
		},
		{
			name: "roku uses bare model",
			d:    desc("Roku, Inc.", "", "Ultra 4800X", ""),
			want: "Ultra 4800X",
		},
		{
			name: "android uses bare model",
			d:    desc("Google Inc.", "", "Chromecast with Google TV", ""),
			want: "Chromecast with Google TV",
		},
		{
			name: "fallback brand tv",
			d:    desc("Sony Corporation", "", "", ""),
			want: "Sony TV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, ok := Classify(tt.d)
			if !ok {
				t.Fatal("Classify() returned not-ok")
			}
			if got != tt.want {
				t.Errorf("display name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDescription(t *testing.T) {
	doc := `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
    <friendlyName>Bedroom TV</friendlyName>
    <manufacturer>Samsung Electronics</manufacturer>
    <modelName>UE43</modelName>
    <modelNumber>1.0</modelNumber>
    <UDN>uuid:0a1b2c3d-data</UDN>
  </device>
</root>`

	desc, err := ParseDescription([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDescription() error = %v", err)
	}
	if desc.Device.Manufacturer != "Samsung Electronics" {
		t.Errorf("Manufacturer = %q", desc.Device.Manufacturer)
	}
	if desc.Device.FriendlyName != "Bedroom TV" {
		t.Errorf("FriendlyName = %q", desc.Device.FriendlyName)
	}
	if desc.Device.UDN != "uuid:0a1b2c3d-data" {
		t.Errorf("UDN = %q", desc.Device.UDN)
	}

	if _, err := ParseDescription([]byte("not xml at all <<<")); err == nil {
		t.Error("ParseDescription() should fail on malformed XML")
	}
}
