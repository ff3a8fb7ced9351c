package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tune-log/internal/model"
)

// RenderEntryMarkdown 单条 run 的可读记录：配置、逐 epoch 指标、最终指标与调参理由
func RenderEntryMarkdown(entry *model.LogEntry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## Run %d\n\n", entry.ID))
	b.WriteString(fmt.Sprintf("- created_at: %s\n", entry.CreatedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- optimizer: %s / loss: %s / epochs: %d\n",
		entry.Optimizer, entry.Loss, entry.EpochCount))
	b.WriteString(fmt.Sprintf("- test_accuracy: %.4f / test_loss: %.4f\n\n", entry.TestAccuracy, entry.TestLoss))

	if entry.Spec != nil {
		b.WriteString("### 网络结构\n\n")
		for i := range entry.Spec.Layers {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, entry.Spec.Layers[i].Describe()))
		}
		b.WriteString("\n")
	}

	if entry.Result != nil {
		b.WriteString("### 逐 epoch 指标\n\n")
		b.WriteString("| epoch | loss | accuracy |\n")
		b.WriteString("| ---: | ---: | ---: |\n")
		for _, m := range entry.Result.EpochMetrics {
			b.WriteString(fmt.Sprintf("| %d | %.4f | %.4f |\n", m.Epoch, m.Loss, m.Accuracy))
		}
		b.WriteString("\n")
	}

	if entry.Rationale != "" {
		b.WriteString("### 调参记录\n\n")
		b.WriteString(entry.Rationale)
		b.WriteString("\n\n")
	}
	return b.String()
}

// RenderJournalMarkdown 整本日志的可读报告：汇总统计 + 按追加顺序的全部条目
func RenderJournalMarkdown(entries []*model.LogEntry, stats JournalStats) string {
	var b strings.Builder
	b.WriteString("# 调参日志\n\n")
	b.WriteString(fmt.Sprintf("- 共 %d 次 run，累计 %d 个 epoch\n", stats.Runs, stats.TotalEpochs))
	if stats.Runs > 0 {
		b.WriteString(fmt.Sprintf("- 最优: run %d（test_accuracy %.4f）\n", stats.BestRunID, stats.BestTestAcc))
		b.WriteString(fmt.Sprintf("- 最差: run %d（test_accuracy %.4f）\n", stats.WorstRunID, stats.WorstTestAcc))
		b.WriteString(fmt.Sprintf("- test_accuracy 均值 %.4f / 标准差 %.4f\n", stats.MeanTestAcc, stats.StdTestAcc))
	}
	b.WriteString("\n")

	for _, e := range entries {
		b.WriteString(RenderEntryMarkdown(e))
	}
	return b.String()
}

// ExportJournalMarkdown 把报告落盘，返回文件路径
func ExportJournalMarkdown(dir string, entries []*model.LogEntry, stats JournalStats) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("journal_%s.md", time.Now().Format("20060102_150405")))
	content := RenderJournalMarkdown(entries, stats)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("写入报告失败: %w", err)
	}
	return path, nil
}
