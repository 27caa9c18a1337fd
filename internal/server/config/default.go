package config

import "time"

// Device backends.
const (
	BackendVolume      = "volume"
	BackendBridge      = "bridge"
	BackendPlaceholder = "placeholder"
)

// Default configuration values.
const (
	DefaultScriptDir = "./response"
	DefaultBackend   = BackendVolume

	DefaultWaitTimeout    = 60 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultRetryInterval  = time.Second

	DefaultVolumeRoot         = "/media"
	DefaultVolumePollInterval = 500 * time.Millisecond
	DefaultBridgeSocket       = "/run/guardian/bridge.sock"
	DefaultBridgeIOTimeout    = 5 * time.Second

	DefaultHTTPAddr      = "127.0.0.1:7420"
	DefaultHTTPRateLimit = 50

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration. Auth has no default: the
// expected digest and key id must always be configured.
func Default() *GuardianConfig {
	return &GuardianConfig{
		Dispatch: DispatchSection{
			ScriptDir: DefaultScriptDir,
		},
		Device: DeviceSection{
			Backend:        DefaultBackend,
			WaitTimeout:    DefaultWaitTimeout,
			CommandTimeout: DefaultCommandTimeout,
			RetryInterval:  DefaultRetryInterval,
			Volume: VolumeConfig{
				Root:         DefaultVolumeRoot,
				PollInterval: DefaultVolumePollInterval,
			},
			Bridge: BridgeConfig{
				SocketPath: DefaultBridgeSocket,
				IOTimeout:  DefaultBridgeIOTimeout,
			},
		},
		HTTP: HTTPSection{
			Addr:      DefaultHTTPAddr,
			RateLimit: DefaultHTTPRateLimit,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
