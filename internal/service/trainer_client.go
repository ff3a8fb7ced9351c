package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tune-log/internal/model"
)

// RemoteTrainer 外部训练服务的客户端：提交 RunSpec，阻塞等完整训练结果。
// 训练端负责建网、数据加载、GPU 调度，这里只关心输入输出
type RemoteTrainer struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewRemoteTrainer(baseURL, apiKey string, timeout time.Duration) *RemoteTrainer {
	if timeout <= 0 {
		// 一次完整训练可能跑很久
		timeout = 30 * time.Minute
	}
	return &RemoteTrainer{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

type trainRequest struct {
	Spec *model.RunSpec `json:"spec"`
}

type trainResponse struct {
	// succeeded / diverged / resource_exhausted
	Status string           `json:"status"`
	Error  string           `json:"error"`
	Result *model.RunResult `json:"result"`
}

func (t *RemoteTrainer) Run(ctx context.Context, spec *model.RunSpec) (*model.RunResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/train", t.BaseURL)

	jsonData, err := json.Marshal(trainRequest{Spec: spec})
	if err != nil {
		return nil, fmt.Errorf("序列化训练请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求训练服务失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("训练服务返回状态码 %d: %s", resp.StatusCode, string(body))
	}

	var trainResp trainResponse
	if err := json.Unmarshal(body, &trainResp); err != nil {
		return nil, fmt.Errorf("解析训练响应失败: %w", err)
	}

	switch trainResp.Status {
	case "succeeded":
		if trainResp.Result == nil {
			return nil, fmt.Errorf("训练服务返回成功但没有结果")
		}
		if err := trainResp.Result.Validate(); err != nil {
			return nil, fmt.Errorf("训练服务返回的结果不合法: %w", err)
		}
		if len(trainResp.Result.EpochMetrics) != spec.Epochs {
			return nil, fmt.Errorf("训练服务返回 %d 个 epoch 指标，配置要求 %d 个",
				len(trainResp.Result.EpochMetrics), spec.Epochs)
		}
		return trainResp.Result, nil
	case FailureDiverged, FailureExhausted:
		return nil, &TrainingFailure{Reason: trainResp.Status, Detail: trainResp.Error}
	default:
		return nil, fmt.Errorf("训练服务返回未知状态 %q: %s", trainResp.Status, trainResp.Error)
	}
}
