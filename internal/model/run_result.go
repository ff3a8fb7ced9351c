package model

// EpochMetric 训练过程中每个 epoch 产出一条，按 epoch 序号递增
type EpochMetric struct {
	Epoch    int     `json:"epoch"`
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

// RunResult 一次完整训练的产出：逐 epoch 训练指标 + 测试集最终指标。
// 只在 Trainer 跑完整个 run 后创建，之后不再修改
type RunResult struct {
	EpochMetrics []EpochMetric `json:"epoch_metrics"`
	TestAccuracy float64       `json:"test_accuracy"`
	TestLoss     float64       `json:"test_loss"`
}

// Validate 校验指标序列非空且 epoch 序号从 0 递增
func (r *RunResult) Validate() error {
	if len(r.EpochMetrics) == 0 {
		return invalidConfig("epoch_metrics", "指标序列不能为空")
	}
	for i, m := range r.EpochMetrics {
		if m.Epoch != i {
			return invalidConfig("epoch_metrics", "epoch 序号必须从 0 递增，位置 %d 上是 %d", i, m.Epoch)
		}
	}
	return nil
}

// FinalEpoch 最后一个 epoch 的训练指标
func (r *RunResult) FinalEpoch() EpochMetric {
	return r.EpochMetrics[len(r.EpochMetrics)-1]
}
