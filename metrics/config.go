package metrics

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "bits"
//	  version: "v0.1.0"
//	  port: 9090
//	  path: "/metrics"
//	  runtime: true
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName/Version 写入 OpenTelemetry Resource
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`

	// Port 大于 0 时启动 HTTP 服务暴露 Prometheus 指标
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go 运行时指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置：启用、不监听端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

// NewProdDefaultConfig 生产环境默认配置：监听 9090 并采集运行时指标
func NewProdDefaultConfig(serviceName, version string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     version,
		Port:        9090,
		Path:        "/metrics",
		Runtime:     true,
	}
}
