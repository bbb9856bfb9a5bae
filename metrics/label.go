package metrics

// Label 指标标签，为指标添加维度信息。
//
// 注意避免高基数标签（用户 ID、请求 ID 等），它们会拖垮时序存储。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("service", "payments"), metrics.L("state", "open"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
