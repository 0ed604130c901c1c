package system

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/filter"

	"maskbeat-ebiten/ecs/component"
)

// TokenMotionSystem はトークンを一定速度で X 軸負方向に進めます。
type TokenMotionSystem struct {
	query *donburi.Query
}

func NewTokenMotionSystem() *TokenMotionSystem {
	return &TokenMotionSystem{
		query: donburi.NewQuery(filter.Contains(component.Token, component.Position)),
	}
}

func (sys *TokenMotionSystem) Update(ecs *ecs.ECS) {
	sys.Tick(ecs.World, deltaTime(ecs.World))
}

// Tick は移動中のトークンの位置を speed*dt だけ減らします。
func (sys *TokenMotionSystem) Tick(w donburi.World, dt float64) {
	sys.query.Each(w, func(entry *donburi.Entry) {
		token := component.Token.Get(entry)
		if !token.Moving {
			return
		}
		pos := component.Position.Get(entry)
		pos.Position.X -= token.Speed * dt
	})
}

// Halt はトークンの移動を止めます。止まったトークンは通り過ぎ判定の対象外になります。
func Halt(entry *donburi.Entry) {
	component.Token.Get(entry).Moving = false
}
