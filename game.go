package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"maskbeat-ebiten/battle"
	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
)

// Game implements ebiten.Game interface.
type Game struct {
	Battle    *battle.Battle
	Config    config.Config
	Messages  *MessageSystem
	LastGrade core.Grade
	DebugMode bool

	input  *PlayerInputSystem
	render *RenderSystem
}

// NewGame creates a new Game instance.
func NewGame(cfg config.Config, b *battle.Battle) *Game {
	return &Game{
		Battle:    b,
		Config:    cfg,
		Messages:  NewMessageSystem(b),
		DebugMode: cfg.Debug,
		input:     NewPlayerInputSystem(),
		render:    NewRenderSystem(),
	}
}

// Update proceeds the game state.
// Update is called every tick (1/60 [s] by default).
func (g *Game) Update() error {
	dt := 1 / float64(ebiten.TPS())
	g.Battle.Tick(dt)
	g.Messages.Update(dt)
	g.input.Update(g)
	return nil
}

// Draw draws the game screen.
func (g *Game) Draw(screen *ebiten.Image) {
	g.render.Draw(screen, g)
}

// Layout takes the outside size (e.g., window size) and returns the (logical) screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return g.Config.UI.Screen.Width, g.Config.UI.Screen.Height
}
