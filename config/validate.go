package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSpawnPosition = errors.New("spawn position is not configured")
	ErrMissingLaunchTarget  = errors.New("launch target is not configured")
	ErrMissingWearTarget    = errors.New("wear target is not configured")
	ErrSlotPositions        = errors.New("exactly 3 slot positions are required")
	ErrInvalidZone          = errors.New("judgment zone width must be positive")
	ErrInvalidFraction      = errors.New("judgment fractions must be within [0,1]")
	ErrInvertedThresholds   = errors.New("perfect fraction exceeds great fraction")
	ErrInvalidCadence       = errors.New("beats per second must be positive")
	ErrInvalidSpeed         = errors.New("token speed must not be negative")
	ErrUnknownSpawnMode     = errors.New("unknown spawn mode")
)

// InventorySlots は所持枠の数です。
const InventorySlots = 3

// Validate はスポナーの起動前チェックです。トークン設定が空かどうかはスポナー側が判断します。
func (c *SpawnerConfig) Validate() error {
	if c.Position == nil {
		return ErrMissingSpawnPosition
	}
	if c.BeatsPerSecond <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCadence, c.BeatsPerSecond)
	}
	if c.Speed < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, c.Speed)
	}
	switch c.Mode {
	case "", SpawnModeRandom, SpawnModeSequence:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSpawnMode, c.Mode)
	}
	return nil
}

// Validate は判定ゾーンの設定を検査します。
func (c *JudgmentConfig) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidZone, c.Width)
	}
	if c.PerfectFraction < 0 || c.PerfectFraction > 1 || c.GreatFraction < 0 || c.GreatFraction > 1 {
		return fmt.Errorf("%w: perfect=%v great=%v", ErrInvalidFraction, c.PerfectFraction, c.GreatFraction)
	}
	if c.PerfectFraction > c.GreatFraction {
		return fmt.Errorf("%w: perfect=%v great=%v", ErrInvertedThresholds, c.PerfectFraction, c.GreatFraction)
	}
	return nil
}

// Validate はマスク所持枠の設定を検査します。
func (c *InventoryConfig) Validate() error {
	if len(c.SlotPositions) != InventorySlots {
		return fmt.Errorf("%w: got %d", ErrSlotPositions, len(c.SlotPositions))
	}
	if c.WearTarget == nil {
		return ErrMissingWearTarget
	}
	if c.LaunchTarget == nil {
		return ErrMissingLaunchTarget
	}
	return nil
}

// Validate は全体の設定を検査し、最初に見つかった設定エラーを返します。
func (c *Config) Validate() error {
	if err := c.Spawner.Validate(); err != nil {
		return fmt.Errorf("spawner: %w", err)
	}
	if err := c.Judgment.Validate(); err != nil {
		return fmt.Errorf("judgment: %w", err)
	}
	if err := c.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	return nil
}
