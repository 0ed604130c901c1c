package system

import (
	"errors"
	"log"
	gomath "math"

	"github.com/yohamta/donburi"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

// ErrNoTokenInZone はゾーン内にトークンが無いときの TryTrigger の失敗です。
var ErrNoTokenInZone = errors.New("no token in zone")

// TokenSource は生存中のトークンを生成順で返します。
type TokenSource interface {
	LiveTokens(w donburi.World) []*donburi.Entry
}

// Bounds は判定ゾーンの閉区間です。
type Bounds struct {
	Min, Max float64
}

// Contains は x が区間内(両端含む)かを返します。
func (b Bounds) Contains(x float64) bool {
	return x >= b.Min && x <= b.Max
}

// JudgmentZone は中心からの距離で判定を行います。判定間で状態を持ちません。
type JudgmentZone struct {
	cfg    config.JudgmentConfig
	tokens TokenSource
	feeds  *event.Feeds
	logger *log.Logger
}

// NewJudgmentZone は判定ゾーンを作成します。幅が正でなければ設定エラーです。
// 閾値の大小関係は config.Validate 側で検査し、ここでは評価順(Perfect→Great)だけを守ります。
func NewJudgmentZone(cfg config.JudgmentConfig, feeds *event.Feeds, logger *log.Logger) (*JudgmentZone, error) {
	if cfg.Width <= 0 {
		return nil, config.ErrInvalidZone
	}
	return &JudgmentZone{cfg: cfg, feeds: feeds, logger: orDiscard(logger)}, nil
}

// SetTokenSource はトークンの問い合わせ先を設定します。
func (z *JudgmentZone) SetTokenSource(src TokenSource) {
	z.tokens = src
}

// Center はゾーン中心です。
func (z *JudgmentZone) Center() float64 { return z.cfg.Center }

// Bounds は [center−width/2, center+width/2] を返します。
func (z *JudgmentZone) Bounds() Bounds {
	hw := z.cfg.Width / 2
	return Bounds{Min: z.cfg.Center - hw, Max: z.cfg.Center + hw}
}

// Grade は中心からの距離 d に対する判定です。
func (z *JudgmentZone) Grade(d float64) core.Grade {
	hw := z.cfg.Width / 2
	switch {
	case d <= hw*z.cfg.PerfectFraction:
		return core.GradePerfect
	case d <= hw*z.cfg.GreatFraction:
		return core.GradeGreat
	default:
		return core.GradeMiss
	}
}

// TryTrigger はゾーン内で中心に最も近いトークンを消費して判定します。
func (z *JudgmentZone) TryTrigger(w donburi.World) (core.Grade, error) {
	return z.trigger(w, nil)
}

// TryTriggerByBehavior は行動区分が一致するトークンだけを対象にします。
func (z *JudgmentZone) TryTriggerByBehavior(w donburi.World, behavior core.ActionType) (core.Grade, error) {
	return z.trigger(w, &behavior)
}

func (z *JudgmentZone) trigger(w donburi.World, behavior *core.ActionType) (core.Grade, error) {
	if z.tokens == nil {
		return core.GradeMiss, ErrNoTokenInZone
	}

	bounds := z.Bounds()
	var best *donburi.Entry
	bestDist := gomath.Inf(1)

	// LiveTokens は生成順なので、同距離なら先に見つかった方が残る
	for _, entry := range z.tokens.LiveTokens(w) {
		token := component.Token.Get(entry)
		if behavior != nil && token.Behavior != *behavior {
			continue
		}
		x := component.Position.Get(entry).Position.X
		if !bounds.Contains(x) {
			continue
		}
		d := gomath.Abs(x - z.cfg.Center)
		if d < bestDist {
			best = entry
			bestDist = d
		}
	}

	if best == nil {
		z.logger.Printf("trigger ignored: %v", ErrNoTokenInZone)
		return core.GradeMiss, ErrNoTokenInZone
	}

	token := *component.Token.Get(best)
	entity := best.Entity()
	grade := z.Grade(bestDist)
	w.Remove(entity)

	z.logger.Printf("judged token #%d (%v/%v) at distance %.3f: %v", token.Seq, token.Category, token.Behavior, bestDist, grade)
	z.feeds.Judgment.Publish(w, event.JudgmentResult{
		Grade:    grade,
		Category: token.Category,
		Behavior: token.Behavior,
		Token:    entity,
		Distance: bestDist,
	})
	return grade, nil
}

// NotifyUnconsumed はゾーンを通り過ぎたトークンの Miss を配信します。
// トークンの破棄は呼び出し側(スポナー)が行います。
func (z *JudgmentZone) NotifyUnconsumed(w donburi.World, entry *donburi.Entry) {
	token := component.Token.Get(entry)
	z.logger.Printf("token #%d (%v/%v) left the zone unconsumed", token.Seq, token.Category, token.Behavior)
	z.feeds.Judgment.Publish(w, event.JudgmentResult{
		Grade:      core.GradeMiss,
		Category:   token.Category,
		Behavior:   token.Behavior,
		Token:      entry.Entity(),
		Distance:   gomath.Abs(component.Position.Get(entry).Position.X - z.cfg.Center),
		Unconsumed: true,
	})
}
