package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Trainer  TrainerConfig  `yaml:"trainer"`
	Report   ReportConfig   `yaml:"report"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
}

type TrainerConfig struct {
	// 训练后端：simulated（本地确定性模拟）/ remote（外部训练服务）
	Mode string `yaml:"mode"`
	// remote 模式：训练服务地址与鉴权
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// remote 模式：单次 run 的超时（秒）；一次完整训练可能很长
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// simulated 模式：参数量预算，超出视为资源耗尽
	MaxParams int `yaml:"max_params"`
}

type ReportConfig struct {
	// 报告导出目录，留空则不落盘
	ExportDir string `yaml:"export_dir"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}
