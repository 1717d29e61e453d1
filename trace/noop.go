package trace

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Discard 设置不导出的全局 TracerProvider，只生成 TraceID 供日志关联
func Discard(serviceName string) (func(context.Context) error, error) {
	res, err := newResource(context.Background(), serviceName)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1.0))),
	)
	setGlobal(tp)
	return tp.Shutdown, nil
}
