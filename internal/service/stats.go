package service

import (
	"gonum.org/v1/gonum/stat"

	"tune-log/internal/model"
)

// JournalStats 整本日志的汇总统计
type JournalStats struct {
	Runs         int     `json:"runs"`
	TotalEpochs  int     `json:"total_epochs"`
	BestRunID    uint    `json:"best_run_id"`
	BestTestAcc  float64 `json:"best_test_accuracy"`
	WorstRunID   uint    `json:"worst_run_id"`
	WorstTestAcc float64 `json:"worst_test_accuracy"`
	MeanTestAcc  float64 `json:"mean_test_accuracy"`
	StdTestAcc   float64 `json:"std_test_accuracy"`
	MeanTestLoss float64 `json:"mean_test_loss"`
}

// ComputeJournalStats 对按追加顺序排列的条目做汇总。空日志返回零值
func ComputeJournalStats(entries []*model.LogEntry) JournalStats {
	stats := JournalStats{Runs: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	accs := make([]float64, 0, len(entries))
	losses := make([]float64, 0, len(entries))
	for _, e := range entries {
		accs = append(accs, e.TestAccuracy)
		losses = append(losses, e.TestLoss)
		stats.TotalEpochs += e.EpochCount
	}

	best, worst := entries[0], entries[0]
	for _, e := range entries[1:] {
		// 并列保留更早的条目
		if e.TestAccuracy > best.TestAccuracy {
			best = e
		}
		if e.TestAccuracy < worst.TestAccuracy {
			worst = e
		}
	}
	stats.BestRunID, stats.BestTestAcc = best.ID, best.TestAccuracy
	stats.WorstRunID, stats.WorstTestAcc = worst.ID, worst.TestAccuracy

	stats.MeanTestAcc = stat.Mean(accs, nil)
	stats.MeanTestLoss = stat.Mean(losses, nil)
	if len(accs) > 1 {
		stats.StdTestAcc = stat.StdDev(accs, nil)
	}
	return stats
}
