package volume

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/guardian/pkg/keydigest"
)

// Provision turns the volume at dir into a token: it writes the manifest
// and key, and returns the key digest to configure as expected_key_hash.
// A nil key generates keydigest.MaxKeyBytes random bytes.
func Provision(dir string, m Manifest, key []byte) (string, error) {
	if m.ID == "" {
		return "", fmt.Errorf("token id is required")
	}
	if m.Type == "" {
		m.Type = "token"
	}
	if key == nil {
		key = make([]byte, keydigest.MaxKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
	}
	if len(key) == 0 {
		return "", fmt.Errorf("key material is empty")
	}

	if err := WriteManifest(dir, m); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, MetaDir, KeyFile), key, 0o600); err != nil {
		return "", err
	}
	return keydigest.Sum(key), nil
}

// PushCommand queues a command in the volume's inbox. The file is written
// under a dot name and renamed so a reader never sees it half written.
func PushCommand(dir, command string) error {
	inbox := filepath.Join(dir, MetaDir, InboxDir)
	if err := os.MkdirAll(inbox, 0o700); err != nil {
		return err
	}
	name := fmt.Sprintf("%020d", time.Now().UnixNano())
	tmp := filepath.Join(inbox, "."+name)
	if err := os.WriteFile(tmp, []byte(command+"\n"), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(inbox, name))
}

// KeyDigest returns the digest of the key stored on the volume at dir.
func KeyDigest(dir string) (string, error) {
	f, err := os.Open(filepath.Join(dir, MetaDir, KeyFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return keydigest.SumReader(f)
}
