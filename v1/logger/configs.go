package logger

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the zap logger.
type Config struct {
	// Level is "debug", "info", "warning" or "error". Anything else is info.
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL" default:"info"`

	// ServiceName is attached to every entry as "service".
	ServiceName string `yaml:"service_name" envconfig:"ZAP_LOGGER_SERVICE_NAME" default:"vdbclient"`

	// EnableTracing adds trace_id and span_id from the context to
	// *WithContext entries.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"ZAP_LOGGER_ENABLE_TRACING"`
}
