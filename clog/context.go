package clog

import (
	"context"
	"log/slog"
)

// NamespaceKey 是日志中命名空间的字段名
const NamespaceKey = "namespace"

// extractContextFields 按配置的规则从 ctx 中提取字段并追加到 attrs。
func extractContextFields(ctx context.Context, options *options, attrs []slog.Attr) []slog.Attr {
	if ctx == nil || len(options.contextFields) == 0 {
		return attrs
	}

	for _, cf := range options.contextFields {
		if val := ctx.Value(cf.Key); val != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, val))
		}
	}
	return attrs
}
