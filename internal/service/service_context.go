package service

import (
	"time"

	"tune-log/internal/config"
)

type ServiceContext struct {
	Journal   Journal
	Trainer   Trainer
	ExportDir string
}

func NewServiceContext(cfg *config.Config) *ServiceContext {
	var trainer Trainer
	switch cfg.Trainer.Mode {
	case "remote":
		trainer = NewRemoteTrainer(
			cfg.Trainer.BaseURL,
			cfg.Trainer.APIKey,
			time.Duration(cfg.Trainer.TimeoutSeconds)*time.Second,
		)
	default:
		trainer = NewSimulatedTrainer(cfg.Trainer.MaxParams)
	}

	return &ServiceContext{
		Journal:   NewDBJournal(),
		Trainer:   trainer,
		ExportDir: cfg.Report.ExportDir,
	}
}
