package service

import (
	"fmt"
	"math"

	"tune-log/internal/model"
)

// RunConclusion 一条 run 的自动结论：相对之前最优的判定 + 下一步建议。
// 只是启发式参考，最终取舍（比如 epoch 数和算力的权衡）仍由人记在 rationale 里
type RunConclusion struct {
	Verdict     string   `json:"verdict"` // first_run / improved / regressed / flat
	Claims      []string `json:"claims"`
	Suggestions []string `json:"suggestions"`
}

// GenerateRunConclusion 根据新条目、此前最优条目与结构差异生成结论。
// prevBest 为 nil 表示这是第一条记录
func GenerateRunConclusion(prevBest, entry *model.LogEntry, diff *StructuralDiff) RunConclusion {
	out := RunConclusion{Verdict: "first_run"}

	if prevBest != nil {
		delta := entry.TestAccuracy - prevBest.TestAccuracy
		switch {
		case delta > 0.001:
			out.Verdict = "improved"
			out.Claims = append(out.Claims,
				fmt.Sprintf("测试准确率 %.4f，比此前最优（run %d 的 %.4f）提升 %.4f。",
					entry.TestAccuracy, prevBest.ID, prevBest.TestAccuracy, delta))
		case delta < -0.001:
			out.Verdict = "regressed"
			out.Claims = append(out.Claims,
				fmt.Sprintf("测试准确率 %.4f，低于此前最优（run %d 的 %.4f），本次改动没有收益。",
					entry.TestAccuracy, prevBest.ID, prevBest.TestAccuracy))
		default:
			out.Verdict = "flat"
			out.Claims = append(out.Claims,
				fmt.Sprintf("测试准确率 %.4f，与此前最优基本持平。", entry.TestAccuracy))
		}
		if diff != nil && !diff.Empty() {
			out.Claims = append(out.Claims, "相对上一次 run 的改动：\n"+diff.Render())
		}
	}

	// 过拟合/欠拟合启发式：看最后一个 epoch 的训练指标与测试指标的差距
	if entry.Result != nil && len(entry.Result.EpochMetrics) > 0 {
		final := entry.Result.FinalEpoch()
		gap := final.Accuracy - entry.TestAccuracy
		if gap > 0.05 {
			out.Suggestions = append(out.Suggestions,
				fmt.Sprintf("训练准确率 %.4f 明显高于测试准确率 %.4f，疑似过拟合，可以尝试加 Dropout 或更强的数据增强。",
					final.Accuracy, entry.TestAccuracy))
		}
		if final.Accuracy < 0.85 {
			out.Suggestions = append(out.Suggestions,
				"训练准确率偏低，疑似欠拟合，可以尝试加卷积层或增大 filter 数量。")
		}
		if len(entry.Result.EpochMetrics) >= 2 {
			prev := entry.Result.EpochMetrics[len(entry.Result.EpochMetrics)-2]
			if math.Abs(final.Loss-prev.Loss) > 0.05 && final.Loss < prev.Loss {
				out.Suggestions = append(out.Suggestions,
					"最后一个 epoch 的 loss 仍在明显下降，增加 epoch 数可能还有提升空间。")
			}
		}
	}

	return out
}
