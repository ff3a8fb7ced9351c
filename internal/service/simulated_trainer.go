package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"tune-log/internal/model"
)

// 模拟训练器假定的输入形状与类别数（GTSRB 交通标志数据集）
const (
	simImgHeight   = 30
	simImgWidth    = 30
	simImgChannels = 3
	simCategories  = 43
)

// SimulatedTrainer 本地确定性训练模拟：不碰真实数据，只根据网络结构
// 合成一条合理的指标曲线。同一个 spec 永远得到同一个 RunResult，
// 方便在没有训练集群的环境里联调日志与对比流程
type SimulatedTrainer struct {
	// 参数量预算，超出按资源耗尽处理；<=0 不限制
	MaxParams int
}

func NewSimulatedTrainer(maxParams int) *SimulatedTrainer {
	return &SimulatedTrainer{MaxParams: maxParams}
}

func (t *SimulatedTrainer) Run(ctx context.Context, spec *model.RunSpec) (*model.RunResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	shape, err := inferNetworkShape(spec)
	if err != nil {
		return nil, err
	}
	if t.MaxParams > 0 && shape.Params > t.MaxParams {
		return nil, &TrainingFailure{
			Reason: FailureExhausted,
			Detail: fmt.Sprintf("参数量 %d 超出预算 %d", shape.Params, t.MaxParams),
		}
	}

	rng := rand.New(rand.NewSource(specSeed(spec)))

	// 容量/正则启发式：卷积层提特征、参数量升上限、没有 dropout 会过拟合
	ceiling := 0.85
	ceiling += 0.04 * math.Min(float64(shape.ConvCount), 2)
	if shape.Params > 0 {
		ceiling += 0.01 * math.Log10(float64(shape.Params))
	}
	overfitGap := 0.02
	if shape.DropoutSum == 0 {
		overfitGap = 0.06
	}
	ceiling = math.Min(ceiling, 0.995)

	trainFinal := math.Min(ceiling+overfitGap/2, 0.999)
	testAcc := clamp01(ceiling - overfitGap + rng.NormFloat64()*0.003)

	tau := float64(spec.Epochs) / 3.0
	if tau < 1 {
		tau = 1
	}
	initialLoss := math.Log(float64(simCategories)) // 随机初始化时交叉熵约 ln(类别数)

	metrics := make([]model.EpochMetric, 0, spec.Epochs)
	for e := 0; e < spec.Epochs; e++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		progress := 1 - math.Exp(-float64(e+1)/tau)
		acc := clamp01(trainFinal*progress + rng.NormFloat64()*0.004)
		loss := initialLoss*math.Exp(-float64(e+1)/tau) + 0.05 + math.Abs(rng.NormFloat64())*0.01
		metrics = append(metrics, model.EpochMetric{Epoch: e, Loss: loss, Accuracy: acc})
	}

	result := &model.RunResult{
		EpochMetrics: metrics,
		TestAccuracy: testAcc,
		TestLoss:     0.08 + (1-testAcc)*1.5,
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// networkShape 按输入形状推导出来的网络规模
type networkShape struct {
	Params     int
	ConvCount  int
	DenseCount int
	DropoutSum float64
}

// inferNetworkShape 沿层序推导特征图形状并累计参数量。
// 形状推不下去（比如卷积核大于特征图、flatten 之后又接卷积）时，
// 真实训练器在建网阶段就会崩，这里按训练失败上报
func inferNetworkShape(spec *model.RunSpec) (*networkShape, error) {
	h, w, c := simImgHeight, simImgWidth, simImgChannels
	flat := -1
	shape := &networkShape{}

	fail := func(pos int, format string, args ...interface{}) error {
		return &TrainingFailure{
			Reason: FailureDiverged,
			Detail: fmt.Sprintf("层[%d] 建网失败: %s", pos, fmt.Sprintf(format, args...)),
		}
	}

	for i := range spec.Layers {
		l := &spec.Layers[i]
		switch l.Type {
		case model.LayerConv2D:
			if flat >= 0 {
				return nil, fail(i, "flatten 之后不能再接卷积")
			}
			p := l.Conv2D
			if p.KernelH > h || p.KernelW > w {
				return nil, fail(i, "卷积核 %dx%d 大于特征图 %dx%d", p.KernelH, p.KernelW, h, w)
			}
			shape.Params += (p.KernelH*p.KernelW*c + 1) * p.Filters
			shape.ConvCount++
			h, w, c = h-p.KernelH+1, w-p.KernelW+1, p.Filters
		case model.LayerMaxPool2D:
			if flat >= 0 {
				return nil, fail(i, "flatten 之后不能再接池化")
			}
			p := l.MaxPool2D
			if p.PoolH > h || p.PoolW > w {
				return nil, fail(i, "池化窗口 %dx%d 大于特征图 %dx%d", p.PoolH, p.PoolW, h, w)
			}
			h = (h-p.PoolH)/p.Stride + 1
			w = (w-p.PoolW)/p.Stride + 1
		case model.LayerFlatten:
			if flat < 0 {
				flat = h * w * c
			}
		case model.LayerDense:
			if flat < 0 {
				// 没显式 flatten 时按展平处理
				flat = h * w * c
			}
			p := l.Dense
			shape.Params += (flat + 1) * p.Units
			shape.DenseCount++
			flat = p.Units
		case model.LayerDropout:
			shape.DropoutSum += l.Dropout.Rate
		}
	}
	return shape, nil
}

// specSeed 由 spec 内容派生随机种子，保证模拟结果可复现
func specSeed(spec *model.RunSpec) int64 {
	data, _ := json.Marshal(spec)
	h := fnv.New64a()
	h.Write(data)
	return int64(h.Sum64())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
