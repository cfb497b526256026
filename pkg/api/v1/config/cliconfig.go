package config

// CliConfig is loaded from env/flags via multiconfig at startup.
type CliConfig struct {
	ModbusListen string `default:":5502"`
	MQTTListen   string `default:":1883"`
	// HTTPListen serves the read-only /state and /telemetry endpoints.
	// Empty disables them.
	HTTPListen string `default:":8080"`

	ConfigFile string `default:"config.yaml"`

	// StartupTimeoutSeconds bounds the wait for the point server to
	// accept connections before startup fails.
	StartupTimeoutSeconds int `default:"30"`

	LogLevel string `default:"info"`
}
