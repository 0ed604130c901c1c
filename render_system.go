package main

import (
	"fmt"
	"image/color"
	gomath "math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"
	"github.com/yohamta/donburi/filter"
	"golang.org/x/image/font/basicfont"

	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
)

const (
	tokenRadius = 14
	maskRadius  = 18
	lineWidth   = 2
)

// RenderSystem はデバッグ用の簡易描画を担当します。ワールドは Y 軸上向きなので描画時に反転します。
type RenderSystem struct {
	tokenQuery *donburi.Query
	maskQuery  *donburi.Query
}

// NewRenderSystem はRenderSystemを初期化します。
func NewRenderSystem() *RenderSystem {
	return &RenderSystem{
		tokenQuery: donburi.NewQuery(filter.Contains(component.Token, component.Position)),
		maskQuery: donburi.NewQuery(filter.And(
			filter.Contains(component.MaskUnit, component.Motion),
			filter.Not(filter.Contains(component.PendingTag)),
		)),
	}
}

func (sys *RenderSystem) toScreen(g *Game, p math.Vec2) (float32, float32) {
	return float32(p.X), float32(float64(g.Config.UI.Screen.Height) - p.Y)
}

// Draw はRenderSystemのメイン描画ロジックです。
func (sys *RenderSystem) Draw(screen *ebiten.Image, g *Game) {
	ui := g.Config.UI
	screen.Fill(ui.Colors.Background)

	sys.drawLane(screen, g)
	sys.drawSlots(screen, g)

	w := g.Battle.World
	sys.tokenQuery.Each(w, func(entry *donburi.Entry) {
		token := component.Token.Get(entry)
		x, y := sys.toScreen(g, component.Position.Get(entry).Position)
		clr := ui.Colors.Token[int(token.Behavior)%len(ui.Colors.Token)]
		vector.DrawFilledCircle(screen, x, y, tokenRadius, clr, true)
		text.Draw(screen, token.Category.String()[:1], basicfont.Face7x13, int(x)-3, int(y)+4, color.Black)
	})

	sys.maskQuery.Each(w, func(entry *donburi.Entry) {
		sys.drawMask(screen, g, entry)
	})

	if g.Messages.Banner != "" {
		clr := ui.Colors.Text
		if g.Messages.BannerGrade == core.GradePerfect {
			clr = ui.Colors.Perfect
		}
		cx, cy := sys.toScreen(g, math.NewVec2(g.Config.Judgment.Center, ui.LaneY+60))
		text.Draw(screen, g.Messages.Banner, basicfont.Face7x13, int(cx)-len(g.Messages.Banner)*7/2, int(cy), clr)
	}

	sys.drawHUD(screen, g)
	if g.Messages.PromptActive {
		sys.drawOverflowPrompt(screen, g)
	}
}

func (sys *RenderSystem) drawLane(screen *ebiten.Image, g *Game) {
	ui := g.Config.UI
	jc := g.Config.Judgment
	_, laneY := sys.toScreen(g, math.NewVec2(0, ui.LaneY))
	vector.StrokeLine(screen, 0, laneY, float32(ui.Screen.Width), laneY, 1, ui.Colors.Zone, false)

	bounds := g.Battle.Zone.Bounds()
	h := float32(tokenRadius * 3)
	vector.StrokeRect(screen, float32(bounds.Min), laneY-h/2, float32(bounds.Max-bounds.Min), h, lineWidth, ui.Colors.Zone, false)

	perfect := jc.Width / 2 * jc.PerfectFraction
	vector.StrokeRect(screen, float32(jc.Center-perfect), laneY-h/2, float32(perfect*2), h, 1, ui.Colors.Perfect, false)
	vector.StrokeLine(screen, float32(jc.Center), laneY-h/2, float32(jc.Center), laneY+h/2, 1, ui.Colors.Perfect, false)
}

func (sys *RenderSystem) drawSlots(screen *ebiten.Image, g *Game) {
	for _, p := range g.Config.Inventory.SlotPositions {
		x, y := sys.toScreen(g, p.Vec2())
		vector.StrokeCircle(screen, x, y, maskRadius+4, 1, g.Config.UI.Colors.Zone, true)
	}
	if wt := g.Config.Inventory.WearTarget; wt != nil {
		x, y := sys.toScreen(g, wt.Vec2())
		vector.StrokeRect(screen, x-maskRadius-4, y-maskRadius-4, (maskRadius+4)*2, (maskRadius+4)*2, 1, g.Config.UI.Colors.Zone, false)
	}
}

func (sys *RenderSystem) drawMask(screen *ebiten.Image, g *Game, entry *donburi.Entry) {
	ui := g.Config.UI
	unit := component.MaskUnit.Get(entry)
	motion := component.Motion.Get(entry)
	x, y := sys.toScreen(g, motion.Position)

	clr := ui.Colors.Mask[int(unit.State)%len(ui.Colors.Mask)]
	vector.DrawFilledCircle(screen, x, y, maskRadius, clr, true)

	// 回転はワールド座標系の角度なので Y を反転して向きを描く
	dx := float32(gomath.Cos(motion.Rotation)) * maskRadius
	dy := -float32(gomath.Sin(motion.Rotation)) * maskRadius
	vector.StrokeLine(screen, x, y, x+dx, y+dy, lineWidth, color.Black, true)

	label := unit.Category.String()
	if unit.Bound {
		label = fmt.Sprintf("[%v] %s", unit.Key, label)
	}
	text.Draw(screen, label, basicfont.Face7x13, int(x)-maskRadius, int(y)-maskRadius-4, ui.Colors.Text)
}

func (sys *RenderSystem) drawHUD(screen *ebiten.Image, g *Game) {
	launch, create := g.Battle.Inventory.Streaks(g.Battle.World)
	status := "stopped"
	if g.Battle.Spawner.Running() {
		status = "running"
	}
	msg := fmt.Sprintf("Spawner: %s  Last: %v  Perfect streak: launch %d/%d  create %d/%d",
		status, g.LastGrade,
		launch, g.Config.Inventory.PerfectCountForLaunch,
		create, g.Config.Inventory.PerfectCountForCreate)
	ebitenutil.DebugPrintAt(screen, msg, 10, 10)
	ebitenutil.DebugPrintAt(screen, "Enter: start/stop  Space: hit  J/K/L: hit by behavior  Q/W/E: wear", 10, 26)

	if g.DebugMode {
		clock := g.Battle.Clock()
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Tick: %d  Time: %.2f  Tokens: %d  F1: create  F2: launch",
			clock.TickCount, clock.Elapsed, len(g.Battle.Spawner.LiveTokens(g.Battle.World))), 10, g.Config.UI.Screen.Height-20)
	}
}

func (sys *RenderSystem) drawOverflowPrompt(screen *ebiten.Image, g *Game) {
	ui := g.Config.UI
	w, h := float32(360), float32(120)
	x := float32(ui.Screen.Width)/2 - w/2
	y := float32(ui.Screen.Height)/2 - h/2
	vector.DrawFilledRect(screen, x, y, w, h, color.RGBA{R: 0, G: 0, B: 0, A: 220}, false)
	vector.StrokeRect(screen, x, y, w, h, lineWidth, ui.Colors.Text, false)

	lines := []string{"Mask inventory is full. Replace which?"}
	for i, e := range g.Messages.Candidates {
		name := "-"
		if g.Battle.World.Valid(e) {
			name = component.MaskUnit.Get(g.Battle.World.Entry(e)).Category.String()
		}
		lines = append(lines, fmt.Sprintf("%d: %s", i+1, name))
	}
	lines = append(lines, "4: discard the new mask")
	for i, l := range lines {
		text.Draw(screen, l, basicfont.Face7x13, int(x)+12, int(y)+22+i*18, ui.Colors.Text)
	}
}
