package clog

import (
	"context"
	"log/slog"
	"strings"
)

// extractContextFields 按 options 中的规则从 ctx 提取字段追加到 attrs
func extractContextFields(ctx context.Context, o *options, attrs []slog.Attr) []slog.Attr {
	if ctx == nil || o == nil || len(o.contextFields) == 0 {
		return attrs
	}
	for _, cf := range o.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, val))
		}
	}
	return attrs
}

// namespaceAttr 返回命名空间字段，没有命名空间时 ok 为 false
func namespaceAttr(o *options) (slog.Attr, bool) {
	if o == nil || len(o.namespaceParts) == 0 {
		return slog.Attr{}, false
	}
	return slog.String(NamespaceKey, strings.Join(o.namespaceParts, ".")), true
}
