package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogEntry 实验日志条目：一次 run 的配置、结果与人工记录的调参理由。
// 日志只追加（保留实验溯源），因此不做软删除
type LogEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// 配置与逐 epoch 指标以 JSON 存储（结构见 RunSpec / RunResult）
	SpecJSON    string `gorm:"type:text;not null" json:"-"`
	MetricsJSON string `gorm:"type:text;not null" json:"-"`

	// 常用查询字段冗余成列
	EpochCount   int     `json:"epoch_count"`
	Optimizer    string  `gorm:"type:varchar(50)" json:"optimizer"`
	Loss         string  `gorm:"type:varchar(100)" json:"loss"`
	TestAccuracy float64 `gorm:"index" json:"test_accuracy"`
	TestLoss     float64 `json:"test_loss"`

	// 调参理由（人工自由文本：为什么这么改、观察到什么、下一步想试什么）
	Rationale string `gorm:"type:text" json:"rationale"`

	// 运行态字段，不落库；Decode 后可用
	Spec   *RunSpec   `gorm:"-" json:"spec,omitempty"`
	Result *RunResult `gorm:"-" json:"result,omitempty"`
}

// NewLogEntry 由校验过的 spec/result 构造条目（ID 由日志分配）
func NewLogEntry(spec *RunSpec, result *RunResult, rationale string) (*LogEntry, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	if len(result.EpochMetrics) != spec.Epochs {
		return nil, invalidConfig("result", "epoch 指标数 %d 与配置的 epoch 数 %d 不一致",
			len(result.EpochMetrics), spec.Epochs)
	}

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("序列化 spec 失败: %w", err)
	}
	metricsJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("序列化 result 失败: %w", err)
	}

	return &LogEntry{
		SpecJSON:     string(specJSON),
		MetricsJSON:  string(metricsJSON),
		EpochCount:   spec.Epochs,
		Optimizer:    spec.Compile.Optimizer,
		Loss:         spec.Compile.Loss,
		TestAccuracy: result.TestAccuracy,
		TestLoss:     result.TestLoss,
		Rationale:    rationale,
		Spec:         spec,
		Result:       result,
	}, nil
}

// Decode 从 JSON 列还原运行态的 Spec/Result（从库中查出后调用）
func (e *LogEntry) Decode() error {
	if e.Spec == nil {
		var spec RunSpec
		if err := json.Unmarshal([]byte(e.SpecJSON), &spec); err != nil {
			return fmt.Errorf("解析条目 %d 的 spec 失败: %w", e.ID, err)
		}
		e.Spec = &spec
	}
	if e.Result == nil {
		var result RunResult
		if err := json.Unmarshal([]byte(e.MetricsJSON), &result); err != nil {
			return fmt.Errorf("解析条目 %d 的 result 失败: %w", e.ID, err)
		}
		e.Result = &result
	}
	return nil
}
