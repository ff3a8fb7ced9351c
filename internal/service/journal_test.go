package service

import (
	"errors"
	"testing"

	"tune-log/internal/model"
)

// makeResult 构造一个合法的 RunResult，最终测试指标给定
func makeResult(t *testing.T, epochs int, testAcc, testLoss float64) *model.RunResult {
	t.Helper()
	metrics := make([]model.EpochMetric, epochs)
	for i := 0; i < epochs; i++ {
		progress := float64(i+1) / float64(epochs)
		metrics[i] = model.EpochMetric{
			Epoch:    i,
			Loss:     3.0 * (1 - progress),
			Accuracy: testAcc * progress,
		}
	}
	return &model.RunResult{EpochMetrics: metrics, TestAccuracy: testAcc, TestLoss: testLoss}
}

func TestMemoryJournal_AppendOrder(t *testing.T) {
	j := NewMemoryJournal()
	spec := specRun1(t)

	accs := []float64{0.93, 0.97, 0.91, 0.95}
	for i, acc := range accs {
		entry, err := j.Append(spec, makeResult(t, spec.Epochs, acc, 1-acc), "第几轮")
		if err != nil {
			t.Fatal(err)
		}
		if entry.ID != uint(i+1) {
			t.Fatalf("序号应连续递增: 第 %d 次追加得到 %d", i+1, entry.ID)
		}
	}

	history, err := j.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != len(accs) {
		t.Fatalf("历史条数不符: %d", len(history))
	}
	for i, e := range history {
		if e.TestAccuracy != accs[i] {
			t.Fatalf("历史顺序应为追加顺序: 位置 %d 上是 %v", i, e.TestAccuracy)
		}
	}

	// 重复遍历应得到同样的序列，且拿到的切片与内部状态隔离
	again, err := j.History()
	if err != nil {
		t.Fatal(err)
	}
	again[0] = nil
	third, _ := j.History()
	if third[0] == nil || third[0].TestAccuracy != accs[0] {
		t.Fatal("History 返回的切片不应共享内部存储")
	}
	if len(again) != len(history) {
		t.Fatal("重复遍历结果应一致")
	}
}

func TestMemoryJournal_BestBy(t *testing.T) {
	j := NewMemoryJournal()
	spec := specRun1(t)

	if _, err := j.BestBy(ByTestAccuracy); !errors.Is(err, ErrNotFound) {
		t.Fatalf("空日志应返回 ErrNotFound，实际: %v", err)
	}

	// 0.93 / 0.97 / 0.97(并列) / 0.91
	for _, acc := range []float64{0.93, 0.97, 0.97, 0.91} {
		if _, err := j.Append(spec, makeResult(t, spec.Epochs, acc, 1-acc), ""); err != nil {
			t.Fatal(err)
		}
	}

	best, err := j.BestBy(ByTestAccuracy)
	if err != nil {
		t.Fatal(err)
	}
	if best.ID != 2 {
		t.Fatalf("并列时应取序号最小的条目，实际 run %d", best.ID)
	}
	if best.TestAccuracy != 0.97 {
		t.Fatalf("最优值不符: %v", best.TestAccuracy)
	}

	// 最小方向：test_loss 最低的是 0.97 那两条（loss 0.03），同样取更早的
	bestLoss, err := j.BestBy(ByTestLoss)
	if err != nil {
		t.Fatal(err)
	}
	if bestLoss.ID != 2 {
		t.Fatalf("按 test_loss 最小应取 run 2，实际 run %d", bestLoss.ID)
	}
}

func TestMemoryJournal_Get(t *testing.T) {
	j := NewMemoryJournal()
	spec := specRun1(t)
	if _, err := j.Append(spec, makeResult(t, spec.Epochs, 0.9, 0.3), "基线"); err != nil {
		t.Fatal(err)
	}

	entry, err := j.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Rationale != "基线" {
		t.Fatalf("取回的条目不符: %+v", entry)
	}

	if _, err := j.Get(2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("不存在的序号应返回 ErrNotFound，实际: %v", err)
	}
	if _, err := j.Get(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("序号 0 应返回 ErrNotFound，实际: %v", err)
	}

	// 超过 int 最大值的序号（HTTP 参数能传进来）不能越过边界检查
	if _, err := j.Get(uint(1) << 63); !errors.Is(err, ErrNotFound) {
		t.Fatalf("超大序号应返回 ErrNotFound，实际: %v", err)
	}
}

func TestMemoryJournal_AppendRejectsBadInput(t *testing.T) {
	j := NewMemoryJournal()
	spec := specRun1(t)

	// epoch 指标数与配置不一致：整条拒绝，日志不变
	if _, err := j.Append(spec, makeResult(t, 3, 0.9, 0.3), ""); err == nil {
		t.Fatal("指标数不一致应当拒绝")
	}
	if n, _ := j.Count(); n != 0 {
		t.Fatalf("拒绝的追加不应留下部分写入，当前 %d 条", n)
	}
}

func TestSelectorByName(t *testing.T) {
	for _, name := range []string{"test_accuracy", "test_loss", "final_train_accuracy", "final_train_loss"} {
		if _, ok := SelectorByName(name); !ok {
			t.Fatalf("内置选择器 %s 应当存在", name)
		}
	}
	if _, ok := SelectorByName("train_speed"); ok {
		t.Fatal("未知名称不应命中")
	}
}

// 完整场景：基线 run 优于加宽后的 run，diff 报告插入的两层
func TestJournal_EndToEndScenario(t *testing.T) {
	j := NewMemoryJournal()
	run1, run2 := specRun1(t), specRun2(t)

	e1, err := j.Append(run1, makeResult(t, run1.Epochs, 0.972, 0.12), "基线：单卷积+单池化")
	if err != nil {
		t.Fatal(err)
	}
	e2, err := j.Append(run2, makeResult(t, run2.Epochs, 0.91, 0.35),
		"输出层前加 Dense(128)+Dropout(0.5)，看能否压过拟合")
	if err != nil {
		t.Fatal(err)
	}

	best, err := j.BestBy(ByTestAccuracy)
	if err != nil {
		t.Fatal(err)
	}
	if best.ID != e1.ID {
		t.Fatalf("最优应为 run %d，实际 run %d", e1.ID, best.ID)
	}

	diff, err := DiffRuns(e1.Spec, e2.Spec)
	if err != nil {
		t.Fatal(err)
	}
	if len(diff.LayerDeltas) != 2 || diff.LayerDeltas[0].Kind != DeltaAdded || diff.LayerDeltas[1].Kind != DeltaAdded {
		t.Fatalf("diff 应报告输出层前两处新增: %+v", diff.LayerDeltas)
	}

	conclusion := GenerateRunConclusion(e1, e2, diff)
	if conclusion.Verdict != "regressed" {
		t.Fatalf("run 2 低于此前最优，结论应为 regressed，实际 %s", conclusion.Verdict)
	}
}
