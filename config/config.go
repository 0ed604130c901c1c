package config

import (
	"image/color"

	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/core"
)

// Point は設定ファイル上の2次元座標です。
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Vec2 は donburi の Vec2 に変換します。
func (p Point) Vec2() math.Vec2 {
	return math.NewVec2(p.X, p.Y)
}

// SpawnerConfig はトークン生成の設定です。
type SpawnerConfig struct {
	BeatsPerSecond float64 `yaml:"beats_per_second"`
	Speed          float64 `yaml:"speed"`
	Position       *Point  `yaml:"position"`
	// Mode は "random" か "sequence" です。
	Mode      string             `yaml:"mode"`
	Entries   []core.TokenSpec   `yaml:"entries"`
	Sequences [][]core.TokenSpec `yaml:"sequences"`
	Loop      bool               `yaml:"loop"`
	// ChartPath が指定されていれば CSV から Sequences を読み込みます。
	ChartPath string `yaml:"chart"`
}

const (
	SpawnModeRandom   = "random"
	SpawnModeSequence = "sequence"
)

// JudgmentConfig は判定ゾーンの設定です。
type JudgmentConfig struct {
	Center          float64 `yaml:"center"`
	Width           float64 `yaml:"width"`
	PerfectFraction float64 `yaml:"perfect_fraction"`
	GreatFraction   float64 `yaml:"great_fraction"`
}

// MaskConfig はマスクの飛行と静止判定の設定です。
type MaskConfig struct {
	FlightDuration float64 `yaml:"flight_duration"`
	FlightHeight   float64 `yaml:"flight_height"`
	// 着地時に残す飛行速度の割合
	LandingCarry          float64 `yaml:"landing_carry"`
	SettleDamping         float64 `yaml:"settle_damping"`
	StillLinearThreshold  float64 `yaml:"still_linear_threshold"`
	StillAngularThreshold float64 `yaml:"still_angular_threshold"`
	StillDuration         float64 `yaml:"still_duration"`
}

// InventoryConfig はマスク所持枠の設定です。
type InventoryConfig struct {
	SlotPositions         []Point `yaml:"slot_positions"`
	WearTarget            *Point  `yaml:"wear_target"`
	LaunchTarget          *Point  `yaml:"launch_target"`
	PendingPosition       Point   `yaml:"pending_position"`
	PerfectCountForLaunch int     `yaml:"perfect_count_for_launch"`
	PerfectCountForCreate int     `yaml:"perfect_count_for_create"`
}

// UIConfig はホスト側の描画設定です。
type UIConfig struct {
	Screen struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"screen"`
	LaneY  float64 `yaml:"lane_y"`
	Colors struct {
		Background color.Color
		Zone       color.Color
		Perfect    color.Color
		Token      [3]color.Color
		Mask       [3]color.Color
		Text       color.Color
	} `yaml:"-"`
}

// Config はゲーム全体のすべての設定を保持します。
type Config struct {
	Debug     bool            `yaml:"debug"`
	Seed      int64           `yaml:"seed"`
	Spawner   SpawnerConfig   `yaml:"spawner"`
	Judgment  JudgmentConfig  `yaml:"judgment"`
	Mask      MaskConfig      `yaml:"mask"`
	Inventory InventoryConfig `yaml:"inventory"`
	UI        UIConfig        `yaml:"ui"`
}

// LoadConfig はデフォルトの全設定を生成して返します。
func LoadConfig() Config {
	screenWidth := 960
	screenHeight := 540
	laneY := float64(screenHeight) * 0.25

	cfg := Config{
		Debug: false,
		Spawner: SpawnerConfig{
			BeatsPerSecond: 2,
			Speed:          320,
			Position:       &Point{X: float64(screenWidth) + 40, Y: laneY},
			Mode:           SpawnModeRandom,
			Entries: []core.TokenSpec{
				{Category: core.MaskFire, Behavior: core.ActionAttack, Weight: 1},
				{Category: core.MaskWater, Behavior: core.ActionDefense, Weight: 1},
				{Category: core.MaskWind, Behavior: core.ActionAttack, Weight: 1},
				{Category: core.MaskNone, Behavior: core.ActionIdle, Weight: 1},
			},
		},
		Judgment: JudgmentConfig{
			Center:          160,
			Width:           90,
			PerfectFraction: 0.33,
			GreatFraction:   0.66,
		},
		Mask: MaskConfig{
			FlightDuration:        1.0,
			FlightHeight:          140,
			LandingCarry:          0.15,
			SettleDamping:         8,
			StillLinearThreshold:  0.5,
			StillAngularThreshold: 0.05,
			StillDuration:         0.5,
		},
		Inventory: InventoryConfig{
			SlotPositions: []Point{
				{X: float64(screenWidth) - 240, Y: float64(screenHeight) - 60},
				{X: float64(screenWidth) - 160, Y: float64(screenHeight) - 60},
				{X: float64(screenWidth) - 80, Y: float64(screenHeight) - 60},
			},
			WearTarget:            &Point{X: 80, Y: float64(screenHeight) * 0.6},
			LaunchTarget:          &Point{X: float64(screenWidth) / 2, Y: laneY + 60},
			PendingPosition:       Point{X: -1000, Y: -1000},
			PerfectCountForLaunch: 3,
			PerfectCountForCreate: 6,
		},
	}

	cfg.UI.Screen.Width = screenWidth
	cfg.UI.Screen.Height = screenHeight
	cfg.UI.LaneY = laneY
	cfg.UI.Colors.Background = color.NRGBA{R: 0x1a, G: 0x20, B: 0x2c, A: 0xff}
	cfg.UI.Colors.Zone = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	cfg.UI.Colors.Perfect = color.RGBA{R: 255, G: 255, B: 100, A: 255}
	cfg.UI.Colors.Token = [3]color.Color{
		color.RGBA{R: 255, G: 100, B: 100, A: 255}, // Attack
		color.RGBA{R: 100, G: 100, B: 255, A: 255}, // Defense
		color.RGBA{R: 100, G: 255, B: 100, A: 255}, // Idle
	}
	cfg.UI.Colors.Mask = [3]color.Color{
		color.White,                                 // Active
		color.RGBA{R: 255, G: 165, B: 0, A: 255},   // MaskMode
		color.RGBA{R: 255, G: 255, B: 100, A: 255}, // Wearing
	}
	cfg.UI.Colors.Text = color.White
	return cfg
}
