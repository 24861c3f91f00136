package main

import (
	"encoding/json"
	"os"
)

// BenchConfig represents the optional configuration file structure
type BenchConfig struct {
	TemporalHost string `json:"temporal_host"`
	Namespace    string `json:"namespace"`
	TaskQueue    string `json:"task_queue"`
}

// LoadBenchConfig loads configuration from a file
func LoadBenchConfig(path string) (*BenchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg BenchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
