package discovery

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tvlink/tvlink/internal/device"
)

// Description is the subset of a UPnP device description document the
// classifier cares about. Amazon and Samsung sets add the non-standard
// friendlyDeviceName element carrying the user-assigned name.
type Description struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		FriendlyDeviceName string `xml:"friendlyDeviceName"`
		FriendlyName       string `xml:"friendlyName"`
		Manufacturer       string `xml:"manufacturer"`
		ModelName          string `xml:"modelName"`
		ModelNumber        string `xml:"modelNumber"`
		UDN                string `xml:"UDN"`
	} `xml:"device"`
}

// ParseDescription decodes a device description document.
func ParseDescription(data []byte) (*Description, error) {
	var desc Description
	if err := xml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse device description: %w", err)
	}
	return &desc, nil
}

// brandRule maps a manufacturer substring to a brand. Rules are evaluated in
// order: specific brands must come before the generic android-ish matches,
// because many Android-TV-based sets report "android" next to their OEM name.
type brandRule struct {
	substr string
	brand  device.Brand
}

var brandRules = []brandRule{
	{"samsung", device.BrandSamsung},
	{"roku", device.BrandRoku},
	{"amazon", device.BrandFireTV},
	{"sony", device.BrandSony},
	{"lg", device.BrandLG},
	{"tcl", device.BrandTCL},
	{"vizio", device.BrandVizio},
	{"toshiba", device.BrandToshiba},
	{"panasonic", device.BrandPanasonic},
	{"xiaomi", device.BrandAndroidTV},
	{"android", device.BrandAndroidTV},
	{"google", device.BrandAndroidTV},
}

// Classify determines the brand and display name for a description document.
// Returns false when the document carries neither a manufacturer nor a model
// name, which means the responding service is not a classifiable TV.
func Classify(desc *Description) (device.Brand, string, bool) {
	manufacturer := strings.ToLower(strings.TrimSpace(desc.Device.Manufacturer))
	model := strings.TrimSpace(desc.Device.ModelName)

	if manufacturer == "" && model == "" {
		return "", "", false
	}

	brand := device.BrandAndroidTV
	matched := false
	for _, rule := range brandRules {
		if strings.Contains(manufacturer, rule.substr) {
			brand = rule.brand
			matched = true
			break
		}
	}
	if !matched && strings.Contains(strings.ToLower(model), "philips") {
		brand = device.BrandPhilipsAndroid
	}

	return brand, displayName(brand, desc), true
}

// displayName builds the user-facing name: the vendor-extension friendly
// device name when present, then the standard friendly name, then a
// brand-formatted composition of model fields, then "<brand> TV".
func displayName(brand device.Brand, desc *Description) string {
	if name := strings.TrimSpace(desc.Device.FriendlyDeviceName); name != "" {
		return name
	}
	if name := strings.TrimSpace(desc.Device.FriendlyName); name != "" {
		return name
	}

	model := strings.TrimSpace(desc.Device.ModelName)
	number := strings.TrimSpace(desc.Device.ModelNumber)
	if model == "" {
		return brand.String() + " TV"
	}

	switch brand {
	case device.BrandSamsung:
		if number != "" {
			return fmt.Sprintf("%s %s [%s]", brand, model, number)
		}
		return fmt.Sprintf("%s %s", brand, model)
	case device.BrandRoku, device.BrandAndroidTV:
		return model
	default:
		return fmt.Sprintf("%s %s", brand, model)
	}
}
