package system

import (
	gomath "math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/features/math"
	"github.com/yohamta/donburi/filter"

	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

// MaskMotionSystem は飛行中のマスクの補間と、着地後の静止判定を行います。
type MaskMotionSystem struct {
	units       *MaskUnits
	flightQuery *donburi.Query
	settleQuery *donburi.Query
}

func NewMaskMotionSystem(units *MaskUnits) *MaskMotionSystem {
	return &MaskMotionSystem{
		units: units,
		flightQuery: donburi.NewQuery(filter.And(
			filter.Contains(component.MaskUnit, component.Motion, component.Flight),
			filter.Not(filter.Contains(component.PendingTag)),
		)),
		settleQuery: donburi.NewQuery(filter.And(
			filter.Contains(component.MaskUnit, component.Motion, component.Stillness),
			filter.Not(filter.Contains(component.Flight)),
		)),
	}
}

func (sys *MaskMotionSystem) Update(ecs *ecs.ECS) {
	sys.Tick(ecs.World, deltaTime(ecs.World))
}

// Tick は飛行を先に進め、その後で静止判定を行います。着地したフレームでは静止判定を行いません。
func (sys *MaskMotionSystem) Tick(w donburi.World, dt float64) {
	var flying, settling []*donburi.Entry
	sys.flightQuery.Each(w, func(entry *donburi.Entry) { flying = append(flying, entry) })
	sys.settleQuery.Each(w, func(entry *donburi.Entry) {
		if component.Stillness.Get(entry).Checking {
			settling = append(settling, entry)
		}
	})

	// コンポーネントの付け外しがあるのでイテレーションの外で処理する
	for _, entry := range flying {
		sys.advanceFlight(w, entry, dt)
	}
	for _, entry := range settling {
		sys.settle(w, entry, dt)
	}
}

// BallisticPoint は進行度 t における放物線上の位置を返します。縦方向のオフセットは 4·h·t·(1−t) です。
func BallisticPoint(start, target math.Vec2, height, t float64) math.Vec2 {
	p := lerp(start, target, t)
	p.Y += 4 * height * t * (1 - t)
	return p
}

// BallisticVelocity は BallisticPoint の時間微分です。
func BallisticVelocity(start, target math.Vec2, height, duration, t float64) math.Vec2 {
	if duration <= 0 {
		return math.Vec2{}
	}
	return math.NewVec2(
		(target.X-start.X)/duration,
		(target.Y-start.Y)/duration+4*height*(1-2*t)/duration,
	)
}

func (sys *MaskMotionSystem) advanceFlight(w donburi.World, entry *donburi.Entry, dt float64) {
	flight := component.Flight.Get(entry)
	flight.Elapsed += dt
	t := flight.Fraction()

	motion := component.Motion.Get(entry)
	motion.Position = BallisticPoint(flight.Start, flight.Target, flight.Height, t)
	motion.Velocity = BallisticVelocity(flight.Start, flight.Target, flight.Height, flight.Duration, t)
	if length(motion.Velocity) > 0 {
		motion.Rotation = gomath.Atan2(motion.Velocity.Y, motion.Velocity.X)
	}

	if t < 1 {
		return
	}

	motion.Position = flight.Target
	motion.Velocity = scale(motion.Velocity, sys.units.cfg.LandingCarry)
	motion.AngularVelocity = 0
	entry.RemoveComponent(component.Flight)

	still := component.Stillness.Get(entry)
	still.Checking = true
	still.Timer = 0

	sys.units.feeds.FlightComplete.Publish(w, event.FlightComplete{Unit: entry.Entity()})
}

func (sys *MaskMotionSystem) settle(w donburi.World, entry *donburi.Entry, dt float64) {
	unit := component.MaskUnit.Get(entry)
	still := component.Stillness.Get(entry)
	if unit.State != core.MaskActive {
		still.Checking = false
		still.Timer = 0
		return
	}

	cfg := sys.units.cfg
	motion := component.Motion.Get(entry)
	decay := 1 - cfg.SettleDamping*dt
	if decay < 0 {
		decay = 0
	}
	motion.Velocity = scale(motion.Velocity, decay)
	motion.AngularVelocity *= decay
	motion.Position = math.NewVec2(motion.Position.X+motion.Velocity.X*dt, motion.Position.Y+motion.Velocity.Y*dt)
	motion.Rotation += motion.AngularVelocity * dt

	if length(motion.Velocity) >= cfg.StillLinearThreshold || gomath.Abs(motion.AngularVelocity) >= cfg.StillAngularThreshold {
		still.Timer = 0
		return
	}

	still.Timer += dt
	if still.Timer >= cfg.StillDuration {
		still.Timer = 0
		still.Checking = false
		sys.units.setState(w, entry, core.MaskModeState)
	}
}
