package main

import (
	"errors"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/system"
)

var (
	maskKeys = map[ebiten.Key]core.MaskKey{
		ebiten.KeyQ: core.MaskKeyQ,
		ebiten.KeyW: core.MaskKeyW,
		ebiten.KeyE: core.MaskKeyE,
	}
	behaviorKeys = map[ebiten.Key]core.ActionType{
		ebiten.KeyJ: core.ActionAttack,
		ebiten.KeyK: core.ActionDefense,
		ebiten.KeyL: core.ActionIdle,
	}
	overflowKeys = map[ebiten.Key]core.OverflowChoice{
		ebiten.KeyDigit1: core.OverflowEvict0,
		ebiten.KeyDigit2: core.OverflowEvict1,
		ebiten.KeyDigit3: core.OverflowEvict2,
		ebiten.KeyDigit4: core.OverflowDiscard,
	}
)

// PlayerInputSystem はキーの押下エッジをコアの入力に変換します。
type PlayerInputSystem struct{}

func NewPlayerInputSystem() *PlayerInputSystem { return &PlayerInputSystem{} }

// Update は Tick の後に同じフレームで呼ばれます。
func (sys *PlayerInputSystem) Update(g *Game) {
	// 選択プロンプト表示中は選択キーだけを受け付ける
	if g.Messages.PromptActive {
		for key, choice := range overflowKeys {
			if inpututil.IsKeyJustPressed(key) {
				if err := g.Battle.ResolveOverflow(choice); err != nil {
					log.Printf("overflow selection %v rejected: %v", choice, err)
				}
				return
			}
		}
		return
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		sys.trigger(g, g.Battle.TriggerKeyDown)
	}
	for key, behavior := range behaviorKeys {
		if inpututil.IsKeyJustPressed(key) {
			b := behavior
			sys.trigger(g, func() (core.Grade, error) { return g.Battle.TriggerKeyDownFor(b) })
		}
	}
	for key, maskKey := range maskKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.Battle.MaskKeyDown(maskKey)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if g.Battle.Spawner.Running() {
			g.Battle.StopSpawning()
		} else if err := g.Battle.StartSpawning(); err != nil {
			log.Printf("cannot start spawning: %v", err)
		}
	}

	// デバッグ用
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.Battle.DebugCreate()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		g.Battle.DebugLaunch()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		g.DebugMode = !g.DebugMode
	}
}

func (sys *PlayerInputSystem) trigger(g *Game, fn func() (core.Grade, error)) {
	grade, err := fn()
	if errors.Is(err, system.ErrNoTokenInZone) {
		return
	}
	if err != nil {
		log.Printf("trigger failed: %v", err)
		return
	}
	g.LastGrade = grade
}
