package trace

// Config 链路追踪配置
//
//	trace:
//	  enabled: true
//	  service_name: bits
//	  endpoint: localhost:4317
//	  sampler: 0.1
type Config struct {
	// Enabled 为 false 时 Init 只设置不导出的 Provider
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC 地址
	Sampler     float64 `mapstructure:"sampler"`  // 采样率 [0, 1]
	Batcher     string  `mapstructure:"batcher"`  // batch|simple
	Insecure    bool    `mapstructure:"insecure"`
}

// DefaultConfig 本地 collector，全量采样
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}
