package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

const testDigest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func logJSON(t *testing.T, fn func(Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	fn(l)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}
	return entry
}

func TestRedactSensitive_DigestValue(t *testing.T) {
	entry := logJSON(t, func(l Logger) {
		l.Info("key read", "computed", testDigest)
	})

	got, _ := entry["computed"].(string)
	if got == testDigest {
		t.Fatal("digest-shaped value should be masked")
	}
	if got != "9f86...0a08" {
		t.Errorf("mask = %q, want %q", got, "9f86...0a08")
	}
}

func TestRedactSensitive_SensitiveKeys(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"expected_key_hash", testDigest},
		{"digest", "short"},
		{"password", "hunter2"},
		{"client_secret", "abc"},
		{"Bearer", "xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			entry := logJSON(t, func(l Logger) {
				l.Info("config", tt.key, tt.value)
			})
			if entry[tt.key] != redactedValue {
				t.Errorf("%s = %v, want %q", tt.key, entry[tt.key], redactedValue)
			}
		})
	}
}

func TestRedactSensitive_KeepsOrdinaryFields(t *testing.T) {
	entry := logJSON(t, func(l Logger) {
		l.Info("device", "key_id", "key-01", "device_type", "token", "command", "LOCK_SCREEN")
	})

	if entry["key_id"] != "key-01" {
		t.Errorf("key_id = %v, want key-01", entry["key_id"])
	}
	if entry["command"] != "LOCK_SCREEN" {
		t.Errorf("command = %v, want LOCK_SCREEN", entry["command"])
	}
}

func TestRedactSensitive_EmptyValue(t *testing.T) {
	entry := logJSON(t, func(l Logger) {
		l.Info("config", "password", "")
	})
	if entry["password"] != "" {
		t.Errorf("empty password = %v, want empty", entry["password"])
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	entry := logJSON(t, func(l Logger) {
		l.Info("config", slog.Group("auth", "expected_key_hash", testDigest, "key_id", "k1"))
	})

	auth, ok := entry["auth"].(map[string]any)
	if !ok {
		t.Fatalf("auth group missing: %v", entry)
	}
	if auth["expected_key_hash"] != redactedValue {
		t.Errorf("auth.expected_key_hash = %v, want redacted", auth["expected_key_hash"])
	}
	if auth["key_id"] != "k1" {
		t.Errorf("auth.key_id = %v, want k1", auth["key_id"])
	}
}

func TestRedactString(t *testing.T) {
	if got := RedactString(testDigest); strings.Contains(got, testDigest[8:56]) {
		t.Errorf("RedactString leaked digest body: %q", got)
	}
	if got := RedactString("locked"); got != "locked" {
		t.Errorf("RedactString(locked) = %q", got)
	}
}

func TestIsSensitiveValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{testDigest, true},
		{strings.ToUpper(testDigest), true},
		{testDigest[:63], false},
		{strings.Repeat("g", 64), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveValue(tt.value); got != tt.want {
			t.Errorf("IsSensitiveValue(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"expected_key_hash", true},
		{"DIGEST", true},
		{"db_password", true},
		{"key_id", false},
		{"session_id", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
