package main

import (
	"fmt"

	"github.com/yohamta/donburi"

	"maskbeat-ebiten/battle"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/event"
)

// bannerDuration は判定表示が残る秒数です。
const bannerDuration = 0.6

// MessageSystem は判定結果の表示と、所持枠あふれ時の選択プロンプトを管理します。
type MessageSystem struct {
	Banner      string
	BannerGrade core.Grade
	bannerTimer float64

	// プロンプト表示中はマスク作成の結果待ち
	PromptActive bool
	Pending      donburi.Entity
	Candidates   [3]donburi.Entity

	subs []event.Subscription
}

// NewMessageSystem はフィードを購読して MessageSystem を作成します。
func NewMessageSystem(b *battle.Battle) *MessageSystem {
	sys := &MessageSystem{}
	sys.subs = append(sys.subs,
		b.Feeds.Judgment.Subscribe(func(_ donburi.World, r event.JudgmentResult) {
			sys.show(r.Grade, r.Grade.String())
		}),
		b.Feeds.Overflow.Subscribe(func(_ donburi.World, ev event.InventoryOverflow) {
			sys.PromptActive = true
			sys.Pending = ev.Pending
			sys.Candidates = ev.Candidates
		}),
		b.Feeds.OverflowResolved.Subscribe(func(_ donburi.World, ev event.OverflowResolved) {
			sys.PromptActive = false
			sys.Pending = donburi.Entity(0)
			sys.show(core.GradeGreat, fmt.Sprintf("Overflow: %v", ev.Choice))
		}),
		b.Feeds.MaskCreated.Subscribe(func(_ donburi.World, ev event.MaskCreated) {
			sys.show(core.GradePerfect, fmt.Sprintf("%v mask -> [%v]", ev.Category, ev.Key))
		}),
	)
	return sys
}

func (sys *MessageSystem) show(grade core.Grade, text string) {
	sys.Banner = text
	sys.BannerGrade = grade
	sys.bannerTimer = bannerDuration
}

// Update は表示の残り時間を減らします。
func (sys *MessageSystem) Update(dt float64) {
	if sys.bannerTimer <= 0 {
		return
	}
	sys.bannerTimer -= dt
	if sys.bannerTimer <= 0 {
		sys.Banner = ""
	}
}

// Close は購読を解除します。
func (sys *MessageSystem) Close() {
	for _, s := range sys.subs {
		s.Unsubscribe()
	}
	sys.subs = nil
}
