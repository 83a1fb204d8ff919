package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	NatsURL           string // URL of the NATS server used for telemetry ingest (empty disables NATS)
	WaitForServices   string // duration to wait for other services to be ready
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogConfig         string // path to log config file
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry
	ProfilingPort     int    // port for profiling
	HTTPServerAddr    string // listen addr for the HTTP API server
	StaleDuration     string // duration after which a session is considered stale
	BufferCapacity    int    // max samples kept per session history buffer
)
