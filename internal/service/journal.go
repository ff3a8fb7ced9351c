package service

import (
	"errors"
	"sync"

	"tune-log/internal/model"
)

// ErrNotFound 查询不到符合条件的条目（例如日志为空）
var ErrNotFound = errors.New("日志中没有符合条件的条目")

// MetricSelector 从 RunResult 中取一个标量，并约定最优方向
type MetricSelector struct {
	Name    string
	Larger  bool // true 表示越大越好
	Extract func(*model.RunResult) float64
}

var (
	ByTestAccuracy = MetricSelector{
		Name:    "test_accuracy",
		Larger:  true,
		Extract: func(r *model.RunResult) float64 { return r.TestAccuracy },
	}
	ByTestLoss = MetricSelector{
		Name:    "test_loss",
		Larger:  false,
		Extract: func(r *model.RunResult) float64 { return r.TestLoss },
	}
	ByFinalTrainAccuracy = MetricSelector{
		Name:    "final_train_accuracy",
		Larger:  true,
		Extract: func(r *model.RunResult) float64 { return r.FinalEpoch().Accuracy },
	}
	ByFinalTrainLoss = MetricSelector{
		Name:    "final_train_loss",
		Larger:  false,
		Extract: func(r *model.RunResult) float64 { return r.FinalEpoch().Loss },
	}
)

// SelectorByName 按名称查找内置指标选择器
func SelectorByName(name string) (MetricSelector, bool) {
	for _, sel := range []MetricSelector{ByTestAccuracy, ByTestLoss, ByFinalTrainAccuracy, ByFinalTrainLoss} {
		if sel.Name == name {
			return sel, true
		}
	}
	return MetricSelector{}, false
}

// Journal 追加式实验日志。条目一经追加不再修改或删除（保留调参过程的完整溯源）
type Journal interface {
	// Append 追加一条 run 记录，分配下一个顺序序号
	Append(spec *model.RunSpec, result *model.RunResult, rationale string) (*model.LogEntry, error)
	// BestBy 按指标选择器取最优条目；并列时取序号最小的。空日志返回 ErrNotFound
	BestBy(sel MetricSelector) (*model.LogEntry, error)
	// History 按追加顺序返回全部条目。只读，可反复调用
	History() ([]*model.LogEntry, error)
	// Get 按序号取单条
	Get(id uint) (*model.LogEntry, error)
	Count() (int64, error)
}

// bestOf 在已解码的条目序列中取最优；entries 必须按序号升序，
// 并列只在严格更优时才替换，因此自然落在最早的条目上
func bestOf(entries []*model.LogEntry, sel MetricSelector) *model.LogEntry {
	var best *model.LogEntry
	var bestVal float64
	for _, e := range entries {
		v := sel.Extract(e.Result)
		if best == nil {
			best, bestVal = e, v
			continue
		}
		if (sel.Larger && v > bestVal) || (!sel.Larger && v < bestVal) {
			best, bestVal = e, v
		}
	}
	return best
}

// MemoryJournal 内存版日志，主要用于 simulated 模式与测试。
// 写入方按设计是单个顺序执行的人（见 run 流程），锁只为保护并发读
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []*model.LogEntry
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(spec *model.RunSpec, result *model.RunResult, rationale string) (*model.LogEntry, error) {
	entry, err := model.NewLogEntry(spec, result, rationale)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	entry.ID = uint(len(j.entries) + 1)
	j.entries = append(j.entries, entry)
	return entry, nil
}

func (j *MemoryJournal) BestBy(sel MetricSelector) (*model.LogEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	best := bestOf(j.entries, sel)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (j *MemoryJournal) History() ([]*model.LogEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]*model.LogEntry, len(j.entries))
	copy(out, j.entries)
	return out, nil
}

func (j *MemoryJournal) Get(id uint) (*model.LogEntry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	// 在 uint 域比较，避免超大序号转 int 变负后越过边界检查
	if id == 0 || uint64(id) > uint64(len(j.entries)) {
		return nil, ErrNotFound
	}
	return j.entries[id-1], nil
}

func (j *MemoryJournal) Count() (int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return int64(len(j.entries)), nil
}
