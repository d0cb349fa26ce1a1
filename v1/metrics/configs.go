package metrics

// Config controls the Prometheus registry and the /metrics server.
type Config struct {
	// Address is where the metrics server listens, e.g. ":9090".
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS" default:":9090"`

	// ServiceName is added to every metric as the constant "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME" default:"vdbclient"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE" default:"vdbclient"`

	// EnableDefaultCollectors registers the Go, process and build-info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`
}
