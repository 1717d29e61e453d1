package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ceyewan/bits/clog"
	"github.com/ceyewan/bits/xerrors"
)

// loader 实现 Loader 接口
type loader struct {
	v      *viper.Viper
	cfg    *Config
	logger clog.Logger

	mu        sync.Mutex
	watches   map[string][]chan Event
	oldValues map[string]any
}

func newLoader(cfg *Config, o *options) *loader {
	return &loader{
		v:         viper.New(),
		cfg:       cfg,
		logger:    o.logger,
		watches:   make(map[string][]chan Event),
		oldValues: make(map[string]any),
	}
}

// Load 依次设置默认值、环境变量、.env、基础配置和环境特定配置
func (l *loader) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for key, val := range l.cfg.Defaults {
		l.v.SetDefault(key, val)
	}

	l.v.SetConfigName(l.cfg.Name)
	l.v.SetConfigType(l.cfg.FileType)
	for _, path := range l.cfg.Paths {
		l.v.AddConfigPath(path)
	}

	l.v.SetEnvPrefix(l.cfg.EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.loadDotEnv(); err != nil {
		l.logger.Debug("no .env file loaded", clog.Error(err))
	}

	fileFound := true
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return WrapLoadError(err, l.cfg.Name)
		}
		fileFound = false
		l.logger.Info("no configuration file found, using defaults and environment",
			clog.String("name", l.cfg.Name), clog.Any("paths", l.cfg.Paths))
	}

	if err := l.loadEnvironmentConfig(); err != nil {
		return err
	}

	if err := l.Validate(); err != nil {
		return err
	}

	l.captureCurrentValues()

	if fileFound {
		l.logger.Info("configuration loaded", clog.String("file", l.v.ConfigFileUsed()))
		l.v.OnConfigChange(func(e fsnotify.Event) {
			if err := l.loadEnvironmentConfig(); err != nil {
				l.logger.Error("reload environment config failed", clog.Error(err))
			}
			l.notifyWatches(e)
		})
		l.v.WatchConfig()
	}
	return nil
}

// loadDotEnv 从工作目录和搜索路径加载 .env，已存在的环境变量不会被覆盖
func (l *loader) loadDotEnv() error {
	var loaded bool
	var lastErr error

	candidates := []string{".env"}
	for _, path := range l.cfg.Paths {
		candidates = append(candidates, filepath.Join(path, ".env"))
	}
	for _, file := range candidates {
		if err := godotenv.Load(file); err != nil {
			lastErr = err
			continue
		}
		loaded = true
	}

	if !loaded && lastErr != nil {
		return lastErr
	}
	return nil
}

// loadEnvironmentConfig 合并 <name>.<env>.<type>，env 取自 <PREFIX>_ENV
func (l *loader) loadEnvironmentConfig() error {
	env := os.Getenv(fmt.Sprintf("%s_ENV", l.cfg.EnvPrefix))
	if env == "" {
		return nil
	}

	envName := fmt.Sprintf("%s.%s", l.cfg.Name, env)
	l.v.SetConfigName(envName)
	defer l.v.SetConfigName(l.cfg.Name)

	if err := l.v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return xerrors.Wrapf(err, "merge environment config %s", envName)
		}
		l.logger.Debug("no environment configuration file", clog.String("env", env))
		return nil
	}
	l.logger.Info("environment configuration merged", clog.String("env", env))
	return nil
}

func (l *loader) captureCurrentValues() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.watches {
		l.oldValues[key] = l.v.Get(key)
	}
}

func (l *loader) Get(key string) any {
	return l.v.Get(key)
}

func (l *loader) Unmarshal(v any) error {
	return l.v.Unmarshal(v)
}

func (l *loader) UnmarshalKey(key string, v any) error {
	return l.v.UnmarshalKey(key, v)
}

func (l *loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *loader) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if key == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "watch key is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, 10)
	l.watches[key] = append(l.watches[key], ch)
	l.oldValues[key] = l.v.Get(key)

	go func() {
		<-ctx.Done()
		l.removeWatch(key, ch)
	}()

	return ch, nil
}

func (l *loader) removeWatch(key string, ch chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	chans := l.watches[key]
	for i, c := range chans {
		if c == ch {
			l.watches[key] = append(chans[:i], chans[i+1:]...)
			close(ch)
			break
		}
	}
	if len(l.watches[key]) == 0 {
		delete(l.watches, key)
		delete(l.oldValues, key)
	}
}

// Validate 配置为空（没有文件、没有默认值、没有环境变量命中）视为无效
func (l *loader) Validate() error {
	if len(l.v.AllSettings()) == 0 {
		return xerrors.Wrap(ErrValidationFailed, "configuration is empty")
	}
	return nil
}

func (l *loader) notifyWatches(e fsnotify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, channels := range l.watches {
		newValue := l.v.Get(key)
		oldValue := l.oldValues[key]
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}

		event := Event{
			Key:       key,
			Value:     newValue,
			OldValue:  oldValue,
			Source:    "file",
			Timestamp: time.Now(),
		}
		l.oldValues[key] = newValue

		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				l.logger.Warn("watch channel full, event dropped",
					clog.String("key", key), clog.String("file", e.Name))
			}
		}
	}
}
