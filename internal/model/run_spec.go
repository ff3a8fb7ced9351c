package model

import (
	"fmt"
)

// LayerType 网络层类型
type LayerType string

const (
	LayerConv2D    LayerType = "conv2d"
	LayerMaxPool2D LayerType = "maxpool2d"
	LayerFlatten   LayerType = "flatten"
	LayerDense     LayerType = "dense"
	LayerDropout   LayerType = "dropout"
)

// InvalidConfigError 配置非法（在任何训练开始前被拒绝，修正输入即可恢复）
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("配置非法: %s: %s", e.Field, e.Reason)
}

func invalidConfig(field, format string, args ...interface{}) error {
	return &InvalidConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Conv2DParams 卷积层参数
type Conv2DParams struct {
	Filters    int    `json:"filters"`
	KernelH    int    `json:"kernel_h"`
	KernelW    int    `json:"kernel_w"`
	Activation string `json:"activation"`
}

// MaxPool2DParams 池化层参数
type MaxPool2DParams struct {
	PoolH  int `json:"pool_h"`
	PoolW  int `json:"pool_w"`
	Stride int `json:"stride"`
}

// DenseParams 全连接层参数
type DenseParams struct {
	Units      int    `json:"units"`
	Activation string `json:"activation"`
}

// DropoutParams 随机失活层参数
type DropoutParams struct {
	Rate float64 `json:"rate"`
}

// LayerConfig 单层配置。Type 决定哪个参数字段有效（flatten 无参数）
type LayerConfig struct {
	Type      LayerType        `json:"type"`
	Conv2D    *Conv2DParams    `json:"conv2d,omitempty"`
	MaxPool2D *MaxPool2DParams `json:"maxpool2d,omitempty"`
	Dense     *DenseParams     `json:"dense,omitempty"`
	Dropout   *DropoutParams   `json:"dropout,omitempty"`
}

func NewConv2D(filters, kernelH, kernelW int, activation string) LayerConfig {
	return LayerConfig{
		Type:   LayerConv2D,
		Conv2D: &Conv2DParams{Filters: filters, KernelH: kernelH, KernelW: kernelW, Activation: activation},
	}
}

func NewMaxPool2D(poolH, poolW, stride int) LayerConfig {
	return LayerConfig{
		Type:      LayerMaxPool2D,
		MaxPool2D: &MaxPool2DParams{PoolH: poolH, PoolW: poolW, Stride: stride},
	}
}

func NewFlatten() LayerConfig {
	return LayerConfig{Type: LayerFlatten}
}

func NewDense(units int, activation string) LayerConfig {
	return LayerConfig{Type: LayerDense, Dense: &DenseParams{Units: units, Activation: activation}}
}

func NewDropout(rate float64) LayerConfig {
	return LayerConfig{Type: LayerDropout, Dropout: &DropoutParams{Rate: rate}}
}

// Validate 校验层参数是否与层类型匹配且合法
func (l *LayerConfig) Validate(pos int) error {
	field := fmt.Sprintf("layers[%d]", pos)
	switch l.Type {
	case LayerConv2D:
		p := l.Conv2D
		if p == nil {
			return invalidConfig(field, "conv2d 缺少参数")
		}
		if p.Filters <= 0 {
			return invalidConfig(field, "filters 必须为正数，当前 %d", p.Filters)
		}
		if p.KernelH <= 0 || p.KernelW <= 0 {
			return invalidConfig(field, "kernel 尺寸必须为正数，当前 %dx%d", p.KernelH, p.KernelW)
		}
		if p.Activation == "" {
			return invalidConfig(field, "conv2d 缺少激活函数")
		}
	case LayerMaxPool2D:
		p := l.MaxPool2D
		if p == nil {
			return invalidConfig(field, "maxpool2d 缺少参数")
		}
		if p.PoolH <= 0 || p.PoolW <= 0 {
			return invalidConfig(field, "pool 尺寸必须为正数，当前 %dx%d", p.PoolH, p.PoolW)
		}
		if p.Stride <= 0 {
			return invalidConfig(field, "stride 必须为正数，当前 %d", p.Stride)
		}
	case LayerFlatten:
		// 无参数
	case LayerDense:
		p := l.Dense
		if p == nil {
			return invalidConfig(field, "dense 缺少参数")
		}
		if p.Units <= 0 {
			return invalidConfig(field, "units 必须为正数，当前 %d", p.Units)
		}
		if p.Activation == "" {
			return invalidConfig(field, "dense 缺少激活函数")
		}
	case LayerDropout:
		p := l.Dropout
		if p == nil {
			return invalidConfig(field, "dropout 缺少参数")
		}
		if p.Rate < 0 || p.Rate >= 1 {
			return invalidConfig(field, "rate 必须在 [0,1) 区间，当前 %v", p.Rate)
		}
	default:
		return invalidConfig(field, "未知层类型 %q", l.Type)
	}
	return nil
}

// Equal 同类型且参数完全一致
func (l *LayerConfig) Equal(o *LayerConfig) bool {
	if l.Type != o.Type {
		return false
	}
	switch l.Type {
	case LayerConv2D:
		return l.Conv2D != nil && o.Conv2D != nil && *l.Conv2D == *o.Conv2D
	case LayerMaxPool2D:
		return l.MaxPool2D != nil && o.MaxPool2D != nil && *l.MaxPool2D == *o.MaxPool2D
	case LayerFlatten:
		return true
	case LayerDense:
		return l.Dense != nil && o.Dense != nil && *l.Dense == *o.Dense
	case LayerDropout:
		return l.Dropout != nil && o.Dropout != nil && *l.Dropout == *o.Dropout
	}
	return false
}

// Describe 层的单行可读描述（用于diff与报告）
func (l *LayerConfig) Describe() string {
	switch l.Type {
	case LayerConv2D:
		if l.Conv2D == nil {
			return "Conv2D(?)"
		}
		return fmt.Sprintf("Conv2D(filters=%d, kernel=%dx%d, activation=%s)",
			l.Conv2D.Filters, l.Conv2D.KernelH, l.Conv2D.KernelW, l.Conv2D.Activation)
	case LayerMaxPool2D:
		if l.MaxPool2D == nil {
			return "MaxPool2D(?)"
		}
		return fmt.Sprintf("MaxPool2D(pool=%dx%d, stride=%d)", l.MaxPool2D.PoolH, l.MaxPool2D.PoolW, l.MaxPool2D.Stride)
	case LayerFlatten:
		return "Flatten"
	case LayerDense:
		if l.Dense == nil {
			return "Dense(?)"
		}
		return fmt.Sprintf("Dense(units=%d, activation=%s)", l.Dense.Units, l.Dense.Activation)
	case LayerDropout:
		if l.Dropout == nil {
			return "Dropout(?)"
		}
		return fmt.Sprintf("Dropout(rate=%g)", l.Dropout.Rate)
	}
	return string(l.Type)
}

// CompilationConfig 编译配置（一次run开始后不再变更）
type CompilationConfig struct {
	Optimizer string   `json:"optimizer"`
	Loss      string   `json:"loss"`
	Metrics   []string `json:"metrics"`
}

func (c *CompilationConfig) Validate() error {
	if c.Optimizer == "" {
		return invalidConfig("compile.optimizer", "缺少优化器名称")
	}
	if c.Loss == "" {
		return invalidConfig("compile.loss", "缺少损失函数名称")
	}
	return nil
}

func (c *CompilationConfig) Equal(o *CompilationConfig) bool {
	if c.Optimizer != o.Optimizer || c.Loss != o.Loss || len(c.Metrics) != len(o.Metrics) {
		return false
	}
	for i := range c.Metrics {
		if c.Metrics[i] != o.Metrics[i] {
			return false
		}
	}
	return true
}

// RunSpec 一次实验的完整描述：层序为输入到输出。创建后不再修改
type RunSpec struct {
	Layers  []LayerConfig     `json:"layers"`
	Compile CompilationConfig `json:"compile"`
	Epochs  int               `json:"epochs"`
}

// NewRunSpec 构造并校验。任何一项非法都返回 InvalidConfigError
func NewRunSpec(layers []LayerConfig, compile CompilationConfig, epochs int) (*RunSpec, error) {
	spec := &RunSpec{Layers: layers, Compile: compile, Epochs: epochs}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (s *RunSpec) Validate() error {
	if len(s.Layers) == 0 {
		return invalidConfig("layers", "层序列不能为空")
	}
	for i := range s.Layers {
		if err := s.Layers[i].Validate(i); err != nil {
			return err
		}
	}
	if err := s.Compile.Validate(); err != nil {
		return err
	}
	if s.Epochs <= 0 {
		return invalidConfig("epochs", "epoch 数必须为正数，当前 %d", s.Epochs)
	}
	return nil
}

func (s *RunSpec) Equal(o *RunSpec) bool {
	if s.Epochs != o.Epochs || len(s.Layers) != len(o.Layers) || !s.Compile.Equal(&o.Compile) {
		return false
	}
	for i := range s.Layers {
		if !s.Layers[i].Equal(&o.Layers[i]) {
			return false
		}
	}
	return true
}
