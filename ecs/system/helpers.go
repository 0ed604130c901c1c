package system

import (
	"io"
	"log"
	gomath "math"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/ecs/component"
)

// deltaTime はこのフレームの経過秒数を返します。
func deltaTime(w donburi.World) float64 {
	entry, ok := component.Clock.First(w)
	if !ok {
		return 0
	}
	return component.Clock.Get(entry).Delta
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

func lerp(a, b math.Vec2, t float64) math.Vec2 {
	return math.NewVec2(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t)
}

func length(v math.Vec2) float64 {
	return gomath.Hypot(v.X, v.Y)
}

func scale(v math.Vec2, s float64) math.Vec2 {
	return math.NewVec2(v.X*s, v.Y*s)
}

// removeEntities はクエリのイテレーション後にまとめて削除します。
func removeEntities(w donburi.World, entities []donburi.Entity) {
	for _, e := range entities {
		if w.Valid(e) {
			w.Remove(e)
		}
	}
}
