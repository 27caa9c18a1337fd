package domain

import (
	"fmt"
	"strings"
)

// DeviceType classifies a physical device.
type DeviceType int

const (
	// DeviceOther is any device Guardian does not recognize.
	DeviceOther DeviceType = iota
	// DeviceToken is a physical authentication token.
	DeviceToken
	// DeviceStorage is a plain removable storage device.
	DeviceStorage
)

// String returns the lowercase name of the device type.
func (t DeviceType) String() string {
	switch t {
	case DeviceToken:
		return "token"
	case DeviceStorage:
		return "storage"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DeviceType) UnmarshalText(text []byte) error {
	parsed, err := ParseDeviceType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDeviceType parses a device type name (case-insensitive).
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "token", "usb":
		return DeviceToken, nil
	case "storage", "disk":
		return DeviceStorage, nil
	case "other", "":
		return DeviceOther, nil
	default:
		return DeviceOther, fmt.Errorf("unknown device type %q", s)
	}
}

// Descriptor is an immutable snapshot of a device's identity.
// It is used for classification only, never for authentication.
type Descriptor struct {
	Name string     `json:"name" yaml:"name"`
	ID   string     `json:"id" yaml:"id"`
	Type DeviceType `json:"type" yaml:"type"`
}

// IsToken reports whether the descriptor classifies the device as a token.
func (d Descriptor) IsToken() bool {
	return d.Type == DeviceToken
}

// String returns a short form for logs.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s, %s)", d.Name, d.ID, d.Type)
}
