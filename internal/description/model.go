package description

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
)

// ApplicationURLHeader is the response header a DIAL server uses to
// advertise its application REST endpoint.
const ApplicationURLHeader = "Application-URL"

// Description is the subset of a UPnP device description dialscan uses
type Description struct {
	Location       string    `json:"location"`
	ApplicationURL string    `json:"applicationUrl,omitempty"`
	URLBase        string    `json:"urlBase,omitempty"`
	DeviceType     string    `json:"deviceType,omitempty"`
	FriendlyName   string    `json:"friendlyName"`
	Manufacturer   string    `json:"manufacturer,omitempty"`
	ModelName      string    `json:"modelName,omitempty"`
	ModelNumber    string    `json:"modelNumber,omitempty"`
	UDN            string    `json:"udn,omitempty"`
	Services       []Service `json:"services,omitempty"`
}

// Service is one entry of the device's serviceList
type Service struct {
	ServiceType string `json:"serviceType" xml:"serviceType"`
	ServiceID   string `json:"serviceId" xml:"serviceId"`
	ControlURL  string `json:"controlUrl,omitempty" xml:"controlURL"`
	EventSubURL string `json:"eventSubUrl,omitempty" xml:"eventSubURL"`
	SCPDURL     string `json:"scpdUrl,omitempty" xml:"SCPDURL"`
}

// xmlRoot mirrors the document layout. Tags carry no namespace so both
// namespaced and bare documents decode.
type xmlRoot struct {
	XMLName xml.Name `xml:"root"`
	URLBase string   `xml:"URLBase"`
	Device  *struct {
		DeviceType   string    `xml:"deviceType"`
		FriendlyName string    `xml:"friendlyName"`
		Manufacturer string    `xml:"manufacturer"`
		ModelName    string    `xml:"modelName"`
		ModelNumber  string    `xml:"modelNumber"`
		UDN          string    `xml:"UDN"`
		Services     []Service `xml:"serviceList>service"`
	} `xml:"device"`
}

// Name returns the friendly name, falling back to the model name
func (d *Description) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}
	return d.ModelName
}

// SupportsDIAL reports whether the device type or a service names DIAL
func (d *Description) SupportsDIAL() bool {
	if strings.Contains(d.DeviceType, "dial") {
		return true
	}
	for _, s := range d.Services {
		if strings.Contains(s.ServiceType, "dial") {
			return true
		}
	}
	return false
}

// Parse decodes a device description document.
// Declared non-UTF-8 charsets are transcoded.
func Parse(data []byte) (*Description, error) {
	if err := checkContent(data); err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var root xmlRoot
	if err := dec.Decode(&root); err != nil {
		return nil, NewParseError("failed to decode device description", err)
	}
	if root.Device == nil {
		return nil, NewParseError("description has no device element", nil)
	}

	dev := root.Device
	return &Description{
		URLBase:      strings.TrimSpace(root.URLBase),
		DeviceType:   strings.TrimSpace(dev.DeviceType),
		FriendlyName: strings.TrimSpace(dev.FriendlyName),
		Manufacturer: strings.TrimSpace(dev.Manufacturer),
		ModelName:    strings.TrimSpace(dev.ModelName),
		ModelNumber:  strings.TrimSpace(dev.ModelNumber),
		UDN:          strings.TrimSpace(dev.UDN),
		Services:     dev.Services,
	}, nil
}

// checkContent rejects bodies that are clearly not text, such as images or
// archives served by a misbehaving device.
func checkContent(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewParseError("empty description document", nil)
	}

	detected := mimetype.Detect(data)
	if detected.Is("text/html") {
		return NewParseError("expected XML, got "+detected.String(), nil)
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return NewParseError("expected XML, got "+detected.String(), nil)
}
