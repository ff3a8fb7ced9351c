package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"tune-log/internal/model"
	"tune-log/internal/service"

	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	journal   service.Journal
	trainer   service.Trainer
	exportDir string
}

func NewRunHandler(svcCtx *service.ServiceContext) *RunHandler {
	return &RunHandler{
		journal:   svcCtx.Journal,
		trainer:   svcCtx.Trainer,
		exportDir: svcCtx.ExportDir,
	}
}

type ExecuteRunRequest struct {
	Spec      model.RunSpec `json:"spec"`
	Rationale string        `json:"rationale"`
}

// ExecuteRun 提交一次 run：校验 -> 训练（长阻塞）-> 追加日志。
// 训练失败对该 run 是终态，日志里不会留下任何部分结果
func (h *RunHandler) ExecuteRun(c *gin.Context) {
	var req ExecuteRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Spec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 训练前先取此前最优与最近一条，便于训练完成后给出对比结论
	prevBest, err := h.journal.BestBy(service.ByTestAccuracy)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	history, err := h.journal.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := h.trainer.Run(c.Request.Context(), &req.Spec)
	if err != nil {
		var tf *service.TrainingFailure
		if errors.As(err, &tf) {
			c.JSON(http.StatusBadGateway, gin.H{"error": tf.Error(), "reason": tf.Reason})
			return
		}
		var ic *model.InvalidConfigError
		if errors.As(err, &ic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ic.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.journal.Append(&req.Spec, result, req.Rationale)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var diff *service.StructuralDiff
	if len(history) > 0 {
		last := history[len(history)-1]
		if last.Spec != nil {
			d, derr := service.DiffRuns(last.Spec, entry.Spec)
			if derr != nil {
				// 两边都是校验过的 spec，这里失败不应中断已入库的 run，只是不带 diff
				log.Printf("计算 run %d 与 run %d 的 diff 失败: %v", last.ID, entry.ID, derr)
			} else {
				diff = d
			}
		}
	}
	conclusion := service.GenerateRunConclusion(prevBest, entry, diff)

	c.JSON(http.StatusOK, gin.H{
		"entry":      entry,
		"diff":       diff,
		"conclusion": conclusion,
	})
}

// ListRuns 按追加顺序返回全部条目
func (h *RunHandler) ListRuns(c *gin.Context) {
	entries, err := h.journal.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetRun 按序号取单条
func (h *RunHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id 必须是正整数"})
		return
	}
	entry, err := h.journal.Get(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// BestRun 按指标选择器取最优条目，默认 test_accuracy
func (h *RunHandler) BestRun(c *gin.Context) {
	name := c.DefaultQuery("metric", service.ByTestAccuracy.Name)
	sel, ok := service.SelectorByName(name)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未知指标: " + name})
		return
	}
	entry, err := h.journal.BestBy(sel)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metric": name, "entry": entry})
}

// DiffRuns 对比日志里任意两条 run 的配置
func (h *RunHandler) DiffRuns(c *gin.Context) {
	a, errA := strconv.ParseUint(c.Query("a"), 10, 64)
	b, errB := strconv.ParseUint(c.Query("b"), 10, 64)
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a 和 b 必须是日志序号"})
		return
	}

	entryA, err := h.journal.Get(uint(a))
	if err == nil {
		var entryB *model.LogEntry
		entryB, err = h.journal.Get(uint(b))
		if err == nil {
			diff, derr := service.DiffRuns(entryA.Spec, entryB.Spec)
			if derr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": derr.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"a":    entryA.ID,
				"b":    entryB.ID,
				"diff": diff,
			})
			return
		}
	}
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// GetStats 日志汇总统计
func (h *RunHandler) GetStats(c *gin.Context) {
	entries, err := h.journal.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": service.ComputeJournalStats(entries)})
}

// GetReport 整本日志的 markdown 报告；export=1 时同时落盘
func (h *RunHandler) GetReport(c *gin.Context) {
	entries, err := h.journal.History()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	stats := service.ComputeJournalStats(entries)
	markdown := service.RenderJournalMarkdown(entries, stats)

	resp := gin.H{"markdown": markdown}
	if c.Query("export") == "1" && h.exportDir != "" {
		path, err := service.ExportJournalMarkdown(h.exportDir, entries, stats)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		resp["path"] = path
	}
	c.JSON(http.StatusOK, resp)
}
