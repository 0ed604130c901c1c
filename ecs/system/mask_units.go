package system

import (
	"errors"
	"log"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

var (
	ErrNotActive     = errors.New("mask is not active")
	ErrAlreadyFlying = errors.New("mask is already flying")
)

// MaskUnits はマスク1体ごとの状態遷移を扱います。
// Wearing が全体で1体だけであることは MaskInventory が保証します。
type MaskUnits struct {
	cfg    config.MaskConfig
	feeds  *event.Feeds
	logger *log.Logger
}

func NewMaskUnits(cfg config.MaskConfig, feeds *event.Feeds, logger *log.Logger) *MaskUnits {
	return &MaskUnits{cfg: cfg, feeds: feeds, logger: orDiscard(logger)}
}

// Spawn は home の姿勢に Active 状態のマスクを作成します。
func (m *MaskUnits) Spawn(w donburi.World, category core.MaskType, home core.Pose) *donburi.Entry {
	entity := w.Create(component.MaskUnit, component.Motion, component.Stillness, component.Home)
	entry := w.Entry(entity)
	component.MaskUnit.SetValue(entry, component.MaskUnitData{Category: category, State: core.MaskActive})
	component.Motion.SetValue(entry, component.MotionData{Position: home.Position, Rotation: home.Rotation})
	component.Home.SetValue(entry, component.HomeData{Pose: home})
	return entry
}

// LaunchOption は Launch の省略可能な引数です。
type LaunchOption func(*component.FlightData)

// WithDuration は飛行時間(秒)を指定します。
func WithDuration(d float64) LaunchOption {
	return func(f *component.FlightData) { f.Duration = d }
}

// WithHeight は放物線の最高点の高さを指定します。
func WithHeight(h float64) LaunchOption {
	return func(f *component.FlightData) { f.Height = h }
}

// Launch は現在位置から target へ放物線飛行を開始します。Active かつ飛行中でないときだけ有効です。
func (m *MaskUnits) Launch(entry *donburi.Entry, target math.Vec2, opts ...LaunchOption) error {
	unit := component.MaskUnit.Get(entry)
	if unit.State != core.MaskActive {
		return ErrNotActive
	}
	if entry.HasComponent(component.Flight) {
		return ErrAlreadyFlying
	}

	motion := component.Motion.Get(entry)
	flight := component.FlightData{
		Start:    motion.Position,
		Target:   target,
		Duration: m.cfg.FlightDuration,
		Height:   m.cfg.FlightHeight,
	}
	for _, opt := range opts {
		opt(&flight)
	}

	still := component.Stillness.Get(entry)
	still.Checking = false
	still.Timer = 0

	entry.AddComponent(component.Flight)
	component.Flight.SetValue(entry, flight)
	m.logger.Printf("mask %d launched toward (%.1f, %.1f)", entry.Entity().Id(), target.X, target.Y)
	return nil
}

// StopFlight は飛行を即座に打ち切り、その場で静止判定を始めます。
func (m *MaskUnits) StopFlight(entry *donburi.Entry) {
	if !entry.HasComponent(component.Flight) {
		return
	}
	entry.RemoveComponent(component.Flight)
	motion := component.Motion.Get(entry)
	motion.Velocity = math.Vec2{}
	motion.AngularVelocity = 0
	if component.MaskUnit.Get(entry).State == core.MaskActive {
		still := component.Stillness.Get(entry)
		still.Checking = true
		still.Timer = 0
	}
}

// WearAt はどの状態からでも position へ瞬間移動して Wearing になります。
func (m *MaskUnits) WearAt(w donburi.World, entry *donburi.Entry, position math.Vec2) {
	m.halt(entry)
	motion := component.Motion.Get(entry)
	motion.Position = position
	motion.Rotation = 0
	m.setState(w, entry, core.MaskWearing)
}

// ResetAndActivate は初期姿勢へ戻して Active にします。
func (m *MaskUnits) ResetAndActivate(w donburi.World, entry *donburi.Entry) {
	m.halt(entry)
	home := component.Home.Get(entry).Pose
	motion := component.Motion.Get(entry)
	motion.Position = home.Position
	motion.Rotation = home.Rotation
	m.setState(w, entry, core.MaskActive)
}

// BindKey はキーを記録するだけで状態は変えません。
func (m *MaskUnits) BindKey(entry *donburi.Entry, key core.MaskKey) {
	unit := component.MaskUnit.Get(entry)
	unit.Key = key
	unit.Bound = true
}

func (m *MaskUnits) UnbindKey(entry *donburi.Entry) {
	unit := component.MaskUnit.Get(entry)
	unit.Bound = false
}

// SetHome は戻り先の姿勢を更新します。
func (m *MaskUnits) SetHome(entry *donburi.Entry, home core.Pose) {
	component.Home.Get(entry).Pose = home
}

// Teleport は運動を止めて position へ移動させます。状態は変えません。
func (m *MaskUnits) Teleport(entry *donburi.Entry, pose core.Pose) {
	motion := component.Motion.Get(entry)
	motion.Position = pose.Position
	motion.Rotation = pose.Rotation
	motion.Velocity = math.Vec2{}
	motion.AngularVelocity = 0
}

// Nudge は着地後のマスクに速度を与えます。静止判定のタイマーは次のフレームでリセットされます。
func (m *MaskUnits) Nudge(entry *donburi.Entry, velocity math.Vec2, angular float64) {
	motion := component.Motion.Get(entry)
	motion.Velocity = math.NewVec2(motion.Velocity.X+velocity.X, motion.Velocity.Y+velocity.Y)
	motion.AngularVelocity += angular
}

// Flying は飛行中かを返します。
func Flying(entry *donburi.Entry) bool {
	return entry.HasComponent(component.Flight)
}

// halt は飛行と静止判定を止め、速度を0にします。
func (m *MaskUnits) halt(entry *donburi.Entry) {
	if entry.HasComponent(component.Flight) {
		entry.RemoveComponent(component.Flight)
	}
	still := component.Stillness.Get(entry)
	still.Checking = false
	still.Timer = 0
	motion := component.Motion.Get(entry)
	motion.Velocity = math.Vec2{}
	motion.AngularVelocity = 0
}

func (m *MaskUnits) setState(w donburi.World, entry *donburi.Entry, state core.MaskState) {
	unit := component.MaskUnit.Get(entry)
	old := unit.State
	if old == state {
		return
	}
	unit.State = state
	m.logger.Printf("mask %d: %v -> %v", entry.Entity().Id(), old, state)
	m.feeds.StateChanged.Publish(w, event.MaskStateChanged{Unit: entry.Entity(), Old: old, New: state})
}
