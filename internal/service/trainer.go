package service

import (
	"context"
	"fmt"

	"tune-log/internal/model"
)

// 训练失败原因
const (
	FailureDiverged  = "diverged"           // 数值发散（如 NaN loss）
	FailureExhausted = "resource_exhausted" // 资源耗尽
)

// TrainingFailure 训练失败，对该 run 是终态。相同输入重跑会确定性地复现
// 同样的发散，所以不做自动重试；失败的 run 不写任何部分结果进日志
type TrainingFailure struct {
	Reason string
	Detail string
}

func (e *TrainingFailure) Error() string {
	return fmt.Sprintf("训练失败(%s): %s", e.Reason, e.Detail)
}

// Trainer 外部训练方：按 spec 建网、编译、训练 spec.Epochs 个 epoch
// 并在测试集上评估一次。对日志来说是一次长阻塞调用
type Trainer interface {
	Run(ctx context.Context, spec *model.RunSpec) (*model.RunResult, error)
}
