package config

import "time"

// GuardianConfig is the root configuration for the guardian daemon.
type GuardianConfig struct {
	Auth     AuthSection     `koanf:"auth" yaml:"auth" json:"auth"`
	Dispatch DispatchSection `koanf:"dispatch" yaml:"dispatch" json:"dispatch"`
	Device   DeviceSection   `koanf:"device" yaml:"device" json:"device"`
	HTTP     HTTPSection     `koanf:"http" yaml:"http" json:"http"`
	Log      LogSection      `koanf:"log" yaml:"log" json:"log"`
}

// AuthSection identifies the one token that is accepted.
type AuthSection struct {
	// ExpectedKeyHash is the hex SHA-256 of the token's first 1024 bytes.
	ExpectedKeyHash string `koanf:"expected_key_hash" yaml:"expected_key_hash" json:"expected_key_hash"`

	// KeyID is the device id the token must report.
	KeyID string `koanf:"key_id" yaml:"key_id" json:"key_id"`
}

// DispatchSection configures command dispatch.
type DispatchSection struct {
	ScriptDir     string   `koanf:"script_dir" yaml:"script_dir" json:"script_dir"`
	PlatformDir   string   `koanf:"platform_dir" yaml:"platform_dir" json:"platform_dir"`
	Shell         string   `koanf:"shell" yaml:"shell" json:"shell"`
	StatusCommand []string `koanf:"status_command" yaml:"status_command" json:"status_command"`
}

// DeviceSection selects and tunes the device backend.
type DeviceSection struct {
	// Backend is one of volume, bridge or placeholder.
	Backend        string        `koanf:"backend" yaml:"backend" json:"backend"`
	WaitTimeout    time.Duration `koanf:"wait_timeout" yaml:"wait_timeout" json:"wait_timeout"`
	CommandTimeout time.Duration `koanf:"command_timeout" yaml:"command_timeout" json:"command_timeout"`
	RetryInterval  time.Duration `koanf:"retry_interval" yaml:"retry_interval" json:"retry_interval"`

	Volume VolumeConfig `koanf:"volume" yaml:"volume" json:"volume"`
	Bridge BridgeConfig `koanf:"bridge" yaml:"bridge" json:"bridge"`
}

// VolumeConfig configures the mounted-volume backend.
type VolumeConfig struct {
	Root         string        `koanf:"root" yaml:"root" json:"root"`
	PollInterval time.Duration `koanf:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
}

// BridgeConfig configures the hardware bridge backend.
type BridgeConfig struct {
	SocketPath string        `koanf:"socket_path" yaml:"socket_path" json:"socket_path"`
	IOTimeout  time.Duration `koanf:"io_timeout" yaml:"io_timeout" json:"io_timeout"`
}

// HTTPSection configures the local status server.
type HTTPSection struct {
	// Addr is the listen address; empty disables the server.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`

	// RateLimit caps requests per second across all clients; 0 disables it.
	RateLimit int `koanf:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}
