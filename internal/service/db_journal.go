package service

import (
	"errors"
	"fmt"

	"tune-log/internal/db"
	"tune-log/internal/model"

	"gorm.io/gorm"
)

// DBJournal 落库版日志：序号由自增主键承担，追加是单行插入（要么整条写入要么不写）
type DBJournal struct {
	db *gorm.DB
}

func NewDBJournal() *DBJournal {
	return &DBJournal{db: db.DB}
}

func (j *DBJournal) Append(spec *model.RunSpec, result *model.RunResult, rationale string) (*model.LogEntry, error) {
	entry, err := model.NewLogEntry(spec, result, rationale)
	if err != nil {
		return nil, err
	}
	if err := j.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("写入日志条目失败: %w", err)
	}
	return entry, nil
}

func (j *DBJournal) BestBy(sel MetricSelector) (*model.LogEntry, error) {
	entries, err := j.History()
	if err != nil {
		return nil, err
	}
	best := bestOf(entries, sel)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (j *DBJournal) History() ([]*model.LogEntry, error) {
	var entries []*model.LogEntry
	if err := j.db.Order("id asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("读取日志失败: %w", err)
	}
	for _, e := range entries {
		if err := e.Decode(); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (j *DBJournal) Get(id uint) (*model.LogEntry, error) {
	var entry model.LogEntry
	if err := j.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取日志条目失败: %w", err)
	}
	if err := entry.Decode(); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (j *DBJournal) Count() (int64, error) {
	var n int64
	if err := j.db.Model(&model.LogEntry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("统计日志条目失败: %w", err)
	}
	return n, nil
}
