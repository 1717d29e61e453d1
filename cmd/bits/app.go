package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/config"
	"github.com/ceyewan/bits/connector"
	"github.com/ceyewan/bits/metrics"
	"github.com/ceyewan/bits/snowflake"
	"github.com/ceyewan/bits/trace"
	"github.com/ceyewan/bits/xerrors"
)

// appConfig 配置文件的完整结构
//
//	log:
//	  level: info
//	snowflake:
//	  datacenter_id: 1
//	  worker_id: 15
//	  resolver: redis
//	redis:
//	  addr: 127.0.0.1:6379
type appConfig struct {
	Log       clog.Config           `mapstructure:"log"`
	Metrics   metrics.Config        `mapstructure:"metrics"`
	Trace     trace.Config          `mapstructure:"trace"`
	Snowflake snowflake.Config      `mapstructure:"snowflake"`
	Redis     connector.RedisConfig `mapstructure:"redis"`
	Etcd      connector.EtcdConfig  `mapstructure:"etcd"`
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":               "warn",
		"log.format":              "console",
		"log.output":              "stderr",
		"metrics.enabled":         false,
		"metrics.service_name":    "bits",
		"metrics.path":            "/metrics",
		"trace.enabled":           false,
		"trace.service_name":      "bits",
		"trace.endpoint":          "localhost:4317",
		"trace.sampler":           1.0,
		"trace.insecure":          true,
		"snowflake.epoch":         snowflake.DefaultEpoch.Format(time.RFC3339),
		"snowflake.datacenter_id": 0,
		"snowflake.worker_id":     0,
		"snowflake.random_node":   false,
		"snowflake.strict":        false,
		"snowflake.clock_policy":  string(snowflake.ClockPolicyWait),
		"snowflake.resolver":      snowflake.ResolverMemory,
		"snowflake.key_prefix":    snowflake.DefaultKeyPrefix,
	}
}

// flags 根命令的全局参数，只有显式设置的 flag 才覆盖配置
type flags struct {
	configFile string
	datacenter int64
	worker     int64
	epoch      string
	logLevel   string
}

func (f *flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "config file (yaml)")
	pf.Int64Var(&f.datacenter, "datacenter", 0, "datacenter id")
	pf.Int64Var(&f.worker, "worker", 0, "worker id")
	pf.StringVar(&f.epoch, "epoch", "", "epoch in RFC3339")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
}

// app 一次命令执行期间持有的组件
type app struct {
	cfg     appConfig
	logger  clog.Logger
	meter   metrics.Meter
	gen     *snowflake.Generator
	closers []func() error
}

func loadConfig(ctx context.Context, cmd *cobra.Command, f *flags) (*appConfig, error) {
	loaderCfg := &config.Config{Name: "bits", Defaults: defaults()}
	if f.configFile != "" {
		ext := filepath.Ext(f.configFile)
		loaderCfg.Name = strings.TrimSuffix(filepath.Base(f.configFile), ext)
		loaderCfg.Paths = []string{filepath.Dir(f.configFile)}
		if ext != "" {
			loaderCfg.FileType = strings.TrimPrefix(ext, ".")
		}
	}

	loader, err := config.New(loaderCfg)
	if err != nil {
		return nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, err
	}
	if f.configFile != "" && loader.ConfigFileUsed() == "" {
		return nil, xerrors.Wrapf(xerrors.ErrNotFound, "config file %s", f.configFile)
	}

	var cfg appConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Wrap(err, "unmarshal config")
	}

	fs := cmd.Flags()
	if fs.Changed("datacenter") {
		cfg.Snowflake.DatacenterID = f.datacenter
	}
	if fs.Changed("worker") {
		cfg.Snowflake.WorkerID = f.worker
	}
	if fs.Changed("epoch") {
		cfg.Snowflake.Epoch = f.epoch
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	return &cfg, nil
}

func newApp(ctx context.Context, cmd *cobra.Command, f *flags) (*app, error) {
	cfg, err := loadConfig(ctx, cmd, f)
	if err != nil {
		return nil, err
	}

	logger, err := clog.New(&cfg.Log, clog.WithNamespace("bits"))
	if err != nil {
		return nil, xerrors.Wrap(err, "create logger")
	}
	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "create meter")
	}

	a := &app{cfg: *cfg, logger: logger, meter: meter}
	a.closers = append(a.closers, func() error { return meter.Shutdown(context.Background()) })

	opts := []snowflake.Option{snowflake.WithLogger(logger), snowflake.WithMeter(meter)}
	connOpts := []connector.Option{connector.WithLogger(logger), connector.WithMeter(meter)}
	if cfg.Trace.Enabled {
		shutdown, err := trace.Init(&a.cfg.Trace)
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
		opts = append(opts, snowflake.WithTracerProvider(otel.GetTracerProvider()))
		connOpts = append(connOpts, connector.WithTracerProvider(otel.GetTracerProvider()))
	}

	switch strings.ToLower(cfg.Snowflake.Resolver) {
	case snowflake.ResolverRedis:
		conn, err := connector.NewRedis(&a.cfg.Redis, connOpts...)
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Connect(ctx); err != nil {
			return nil, a.fail(err)
		}
		opts = append(opts, snowflake.WithRedis(conn))
	case snowflake.ResolverEtcd:
		conn, err := connector.NewEtcd(&a.cfg.Etcd, connOpts...)
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Connect(ctx); err != nil {
			return nil, a.fail(err)
		}
		opts = append(opts, snowflake.WithEtcd(conn))
	}

	gen, err := snowflake.New(&a.cfg.Snowflake, opts...)
	if err != nil {
		return nil, a.fail(err)
	}
	a.gen = gen
	return a, nil
}

func (a *app) fail(err error) error {
	return xerrors.Combine(err, a.Close())
}

// Close 逆序释放连接器和指标
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	a.logger.Flush()
	return xerrors.Combine(errs...)
}
