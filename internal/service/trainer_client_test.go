package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tune-log/internal/model"
)

// capturedTrainCall 假训练服务收到的请求要点
type capturedTrainCall struct {
	Path string
	Auth string
	Body trainRequest
}

// fakeTrainServer 起一个假训练服务，按给定响应回包，并留存请求便于断言
func fakeTrainServer(t *testing.T, resp trainResponse) (*httptest.Server, *capturedTrainCall) {
	t.Helper()
	var got capturedTrainCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Path = r.URL.Path
		got.Auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got.Body); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("写响应失败: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRemoteTrainer_Succeeded(t *testing.T) {
	spec := specRun1(t)
	want := makeResult(t, spec.Epochs, 0.95, 0.2)
	srv, got := fakeTrainServer(t, trainResponse{Status: "succeeded", Result: want})

	trainer := NewRemoteTrainer(srv.URL, "test-key", 0)
	result, err := trainer.Run(context.Background(), spec)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if result.TestAccuracy != want.TestAccuracy || len(result.EpochMetrics) != spec.Epochs {
		t.Fatalf("返回结果不符: %+v", result)
	}

	// 请求形状：路径、鉴权头、完整的 spec
	if got.Path != "/v1/train" {
		t.Fatalf("请求路径不符: %s", got.Path)
	}
	if got.Auth != "Bearer test-key" {
		t.Fatalf("鉴权头不符: %q", got.Auth)
	}
	if got.Body.Spec == nil || !got.Body.Spec.Equal(spec) {
		t.Fatal("提交的 spec 与原始不一致")
	}
}

func TestRemoteTrainer_FailureStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status string
	}{
		{"数值发散", FailureDiverged},
		{"资源耗尽", FailureExhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := fakeTrainServer(t, trainResponse{Status: tc.status, Error: "remote says no"})

			_, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), specRun1(t))
			var tf *TrainingFailure
			if !errors.As(err, &tf) {
				t.Fatalf("应映射为 TrainingFailure，实际: %T %v", err, err)
			}
			if tf.Reason != tc.status {
				t.Fatalf("失败原因应为 %s，实际 %s", tc.status, tf.Reason)
			}
		})
	}
}

func TestRemoteTrainer_EpochCountMismatch(t *testing.T) {
	spec := specRun1(t)
	// 服务端只回了 1 个 epoch 的指标，配置要求 10 个
	srv, _ := fakeTrainServer(t, trainResponse{Status: "succeeded", Result: makeResult(t, 1, 0.9, 0.3)})

	_, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), spec)
	if err == nil {
		t.Fatal("epoch 指标数不符应报错")
	}
	var tf *TrainingFailure
	if errors.As(err, &tf) {
		t.Fatalf("指标数不符不是训练失败，不应映射为 TrainingFailure: %v", err)
	}
}

func TestRemoteTrainer_InvalidResult(t *testing.T) {
	// epoch 序号不从 0 递增的结果要在进日志前被拒绝
	bad := &model.RunResult{
		EpochMetrics: []model.EpochMetric{{Epoch: 5, Loss: 0.5, Accuracy: 0.9}},
		TestAccuracy: 0.9,
		TestLoss:     0.3,
	}
	srv, _ := fakeTrainServer(t, trainResponse{Status: "succeeded", Result: bad})

	if _, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), specRun1(t)); err == nil {
		t.Fatal("不合法的结果应报错")
	}
}

func TestRemoteTrainer_MissingResult(t *testing.T) {
	srv, _ := fakeTrainServer(t, trainResponse{Status: "succeeded"})

	if _, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), specRun1(t)); err == nil {
		t.Fatal("成功但没有结果应报错")
	}
}

func TestRemoteTrainer_UnknownStatus(t *testing.T) {
	srv, _ := fakeTrainServer(t, trainResponse{Status: "queued", Error: "try later"})

	_, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), specRun1(t))
	if err == nil {
		t.Fatal("未知状态应报错")
	}
	var tf *TrainingFailure
	if errors.As(err, &tf) {
		t.Fatalf("未知状态不应映射为 TrainingFailure: %v", err)
	}
}

func TestRemoteTrainer_NonOKStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	if _, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), specRun1(t)); err == nil {
		t.Fatal("非 200 响应应报错")
	}
}

func TestRemoteTrainer_InvalidSpecRejectedBeforeRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	t.Cleanup(srv.Close)

	bad := &model.RunSpec{Epochs: 0}
	_, err := NewRemoteTrainer(srv.URL, "", 0).Run(context.Background(), bad)
	var ic *model.InvalidConfigError
	if !errors.As(err, &ic) {
		t.Fatalf("非法配置应在请求前被拒绝，实际: %v", err)
	}
	if called {
		t.Fatal("非法配置不应发起远程请求")
	}
}
