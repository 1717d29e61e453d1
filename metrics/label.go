package metrics

// Label 指标标签。标签值应保持低基数，不要把 ID、时间戳之类的值放进标签
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
//
//	counter.Inc(ctx, metrics.L("policy", "wait"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
