package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/guardian/internal/core/domain"
)

// On-volume layout.
const (
	MetaDir      = ".guardian"
	ManifestFile = "device.yaml"
	KeyFile      = "key"
	InboxDir     = "inbox"
	OutboxFile   = "outbox"
)

// Manifest is the on-volume device description.
type Manifest struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// ReadManifest parses the manifest of the volume at dir.
// It returns an error wrapping os.ErrNotExist when there is none.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, MetaDir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// WriteManifest writes m to the volume at dir, creating the metadata
// directory and inbox.
func WriteManifest(dir string, m Manifest) error {
	meta := filepath.Join(dir, MetaDir)
	if err := os.MkdirAll(filepath.Join(meta, InboxDir), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(meta, ManifestFile), data, 0o600)
}

// describe builds the descriptor of the volume at dir.
//
// No manifest means plain storage. A manifest without a type is a token.
// An unreadable manifest makes the volume "other" so it is never
// authenticated.
func describe(dir string) (domain.Descriptor, error) {
	name := filepath.Base(dir)

	info, err := os.Stat(dir)
	if err != nil {
		return domain.Descriptor{}, err
	}
	if !info.IsDir() {
		return domain.Descriptor{}, fmt.Errorf("%s: not a directory", dir)
	}

	m, err := ReadManifest(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return domain.Descriptor{Name: name, ID: name, Type: domain.DeviceStorage}, nil
	case err != nil:
		return domain.Descriptor{Name: name, ID: name, Type: domain.DeviceOther}, nil
	}

	d := domain.Descriptor{Name: m.Name, ID: m.ID, Type: domain.DeviceToken}
	if d.Name == "" {
		d.Name = name
	}
	if d.ID == "" {
		d.ID = name
	}
	if t := strings.TrimSpace(m.Type); t != "" {
		parsed, err := domain.ParseDeviceType(t)
		if err != nil {
			parsed = domain.DeviceOther
		}
		d.Type = parsed
	}
	return d, nil
}
