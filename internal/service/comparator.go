package service

import (
	"fmt"
	"strings"

	"tune-log/internal/model"
)

// 层变更类型
const (
	DeltaAdded    = "added"    // b 比 a 多出的层
	DeltaRemoved  = "removed"  // a 有而 b 没有的层
	DeltaModified = "modified" // 同位置同类型但参数不同
	DeltaReplaced = "replaced" // 同位置类型不同
)

// LayerDelta 单个位置上的层变更
type LayerDelta struct {
	Position int    `json:"position"`
	Kind     string `json:"kind"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
}

// FieldDelta 编译配置 / epoch 数的标量变更
type FieldDelta struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// StructuralDiff 两个 RunSpec 的结构化差异。
// 层先裁掉公共前缀与公共后缀，剩余中段按位置对齐：这个流程里相邻两次 run
// 通常只在某个位置做局部小改动（比如输出层前插两层），不需要编辑距离对齐
type StructuralDiff struct {
	LayerDeltas   []LayerDelta `json:"layer_deltas"`
	CompileDeltas []FieldDelta `json:"compile_deltas"`
	EpochDelta    *FieldDelta  `json:"epoch_delta,omitempty"`
}

func (d *StructuralDiff) Empty() bool {
	return len(d.LayerDeltas) == 0 && len(d.CompileDeltas) == 0 && d.EpochDelta == nil
}

// Render 每条变更一行的可读形式，用于报告与结论
func (d *StructuralDiff) Render() string {
	if d.Empty() {
		return "（无变更）"
	}
	var b strings.Builder
	for _, ld := range d.LayerDeltas {
		switch ld.Kind {
		case DeltaAdded:
			b.WriteString(fmt.Sprintf("- 层[%d] 新增: %s\n", ld.Position, ld.After))
		case DeltaRemoved:
			b.WriteString(fmt.Sprintf("- 层[%d] 移除: %s\n", ld.Position, ld.Before))
		default:
			b.WriteString(fmt.Sprintf("- 层[%d] %s: %s -> %s\n", ld.Position, ld.Kind, ld.Before, ld.After))
		}
	}
	for _, fd := range d.CompileDeltas {
		b.WriteString(fmt.Sprintf("- %s: %s -> %s\n", fd.Field, fd.Before, fd.After))
	}
	if d.EpochDelta != nil {
		b.WriteString(fmt.Sprintf("- epochs: %s -> %s\n", d.EpochDelta.Before, d.EpochDelta.After))
	}
	return b.String()
}

// DiffRuns 计算 a -> b 的结构化差异。输入必须是合法的 RunSpec
func DiffRuns(a, b *model.RunSpec) (*StructuralDiff, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	diff := &StructuralDiff{}

	la, lb := a.Layers, b.Layers

	// 公共前缀
	prefix := 0
	for prefix < len(la) && prefix < len(lb) && la[prefix].Equal(&lb[prefix]) {
		prefix++
	}
	// 公共后缀（不与前缀重叠）
	suffix := 0
	for suffix < len(la)-prefix && suffix < len(lb)-prefix &&
		la[len(la)-1-suffix].Equal(&lb[len(lb)-1-suffix]) {
		suffix++
	}

	midA := la[prefix : len(la)-suffix]
	midB := lb[prefix : len(lb)-suffix]
	n := len(midA)
	if len(midB) < n {
		n = len(midB)
	}
	for i := 0; i < n; i++ {
		if midA[i].Equal(&midB[i]) {
			continue
		}
		kind := DeltaModified
		if midA[i].Type != midB[i].Type {
			kind = DeltaReplaced
		}
		diff.LayerDeltas = append(diff.LayerDeltas, LayerDelta{
			Position: prefix + i,
			Kind:     kind,
			Before:   midA[i].Describe(),
			After:    midB[i].Describe(),
		})
	}
	for i := n; i < len(midA); i++ {
		diff.LayerDeltas = append(diff.LayerDeltas, LayerDelta{
			Position: prefix + i,
			Kind:     DeltaRemoved,
			Before:   midA[i].Describe(),
		})
	}
	for i := n; i < len(midB); i++ {
		diff.LayerDeltas = append(diff.LayerDeltas, LayerDelta{
			Position: prefix + i,
			Kind:     DeltaAdded,
			After:    midB[i].Describe(),
		})
	}

	if a.Compile.Optimizer != b.Compile.Optimizer {
		diff.CompileDeltas = append(diff.CompileDeltas, FieldDelta{
			Field: "optimizer", Before: a.Compile.Optimizer, After: b.Compile.Optimizer,
		})
	}
	if a.Compile.Loss != b.Compile.Loss {
		diff.CompileDeltas = append(diff.CompileDeltas, FieldDelta{
			Field: "loss", Before: a.Compile.Loss, After: b.Compile.Loss,
		})
	}
	if ma, mb := strings.Join(a.Compile.Metrics, ","), strings.Join(b.Compile.Metrics, ","); ma != mb {
		diff.CompileDeltas = append(diff.CompileDeltas, FieldDelta{
			Field: "metrics", Before: ma, After: mb,
		})
	}
	if a.Epochs != b.Epochs {
		diff.EpochDelta = &FieldDelta{
			Field:  "epochs",
			Before: fmt.Sprintf("%d", a.Epochs),
			After:  fmt.Sprintf("%d", b.Epochs),
		}
	}

	return diff, nil
}
