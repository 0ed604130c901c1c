package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix は環境変数による上書きの接頭辞です。
const EnvPrefix = "MASKBEAT_"

// envOverrides は環境変数で上書きできる項目です。未設定の項目は nil のままになります。
type envOverrides struct {
	Debug                 *bool    `env:"DEBUG"`
	Seed                  *int64   `env:"SEED"`
	BeatsPerSecond        *float64 `env:"BEATS_PER_SECOND"`
	TokenSpeed            *float64 `env:"TOKEN_SPEED"`
	ChartPath             *string  `env:"CHART"`
	PerfectCountForLaunch *int     `env:"PERFECT_COUNT_FOR_LAUNCH"`
	PerfectCountForCreate *int     `env:"PERFECT_COUNT_FOR_CREATE"`
}

// Load はデフォルト設定に tuning ファイル、環境変数、チャート CSV の順で上書きをかけます。
// path が空ならファイルは読みません。
func Load(path string) (Config, error) {
	cfg := LoadConfig()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Spawner.ChartPath != "" {
		chart, err := LoadChart(cfg.Spawner.ChartPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load chart: %w", err)
		}
		cfg.Spawner.Sequences = chart
		cfg.Spawner.Mode = SpawnModeSequence
	}
	return cfg, nil
}

// LoadFile は yaml の tuning ファイルを cfg に重ねます。ファイルに無い項目は元の値が残ります。
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ApplyEnv は MASKBEAT_ で始まる環境変数を cfg に反映します。
func ApplyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.ParseWithOptions(&ov, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.Debug != nil {
		cfg.Debug = *ov.Debug
	}
	if ov.Seed != nil {
		cfg.Seed = *ov.Seed
	}
	if ov.BeatsPerSecond != nil {
		cfg.Spawner.BeatsPerSecond = *ov.BeatsPerSecond
	}
	if ov.TokenSpeed != nil {
		cfg.Spawner.Speed = *ov.TokenSpeed
	}
	if ov.ChartPath != nil {
		cfg.Spawner.ChartPath = *ov.ChartPath
	}
	if ov.PerfectCountForLaunch != nil {
		cfg.Inventory.PerfectCountForLaunch = *ov.PerfectCountForLaunch
	}
	if ov.PerfectCountForCreate != nil {
		cfg.Inventory.PerfectCountForCreate = *ov.PerfectCountForCreate
	}
	return nil
}
