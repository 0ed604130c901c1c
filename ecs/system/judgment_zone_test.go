package system

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

// zoneFixture は幅3、中心0のゾーンと、その奥側の境界を通り過ぎ判定に使うスポナーです。
type zoneFixture struct {
	w       donburi.World
	feeds   *event.Feeds
	zone    *JudgmentZone
	spawner *TokenSpawner
	results []event.JudgmentResult
}

func newZoneFixture(t *testing.T) *zoneFixture {
	t.Helper()
	cfg := config.LoadConfig()
	cfg.Judgment = config.JudgmentConfig{Center: 0, Width: 3, PerfectFraction: 0.33, GreatFraction: 0.66}

	f := &zoneFixture{w: donburi.NewWorld(), feeds: event.NewFeeds()}
	component.WorldState(f.w)

	var err error
	f.zone, err = NewJudgmentZone(cfg.Judgment, f.feeds, nil)
	if err != nil {
		t.Fatalf("NewJudgmentZone: %v", err)
	}
	f.spawner, err = NewTokenSpawner(cfg.Spawner, f.zone, f.feeds, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("NewTokenSpawner: %v", err)
	}
	f.feeds.Judgment.Subscribe(func(_ donburi.World, r event.JudgmentResult) {
		f.results = append(f.results, r)
	})
	return f
}

// place は生成順 seq のトークンを x に置きます。
func (f *zoneFixture) place(seq uint64, x float64, category core.MaskType, behavior core.ActionType) donburi.Entity {
	entity := f.w.Create(component.Token, component.Position)
	entry := f.w.Entry(entity)
	component.Token.SetValue(entry, component.TokenData{Seq: seq, Category: category, Behavior: behavior, Moving: true})
	component.Position.SetValue(entry, component.PositionData{Position: math.NewVec2(x, 0)})
	return entity
}

func TestJudgmentZone_GradeThresholds(t *testing.T) {
	tests := []struct {
		name     string
		x        float64
		expected core.Grade
	}{
		{"center", 0, core.GradePerfect},
		{"perfect", 0.4, core.GradePerfect},
		{"great", 0.7, core.GradeGreat},
		{"great from behind", -0.7, core.GradeGreat},
		{"miss inside zone", 1.2, core.GradeMiss},
		{"edge is inside", 1.5, core.GradeMiss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newZoneFixture(t)
			token := f.place(0, tt.x, core.MaskFire, core.ActionAttack)

			grade, err := f.zone.TryTrigger(f.w)
			if err != nil {
				t.Fatalf("TryTrigger: %v", err)
			}
			if grade != tt.expected {
				t.Errorf("grade at %v = %v, want %v", tt.x, grade, tt.expected)
			}
			if f.w.Valid(token) {
				t.Errorf("judged token should be destroyed")
			}
			if len(f.results) != 1 || f.results[0].Grade != tt.expected || f.results[0].Category != core.MaskFire {
				t.Errorf("unexpected results: %+v", f.results)
			}
		})
	}
}

func TestJudgmentZone_OutsideIsNotEligible(t *testing.T) {
	f := newZoneFixture(t)
	token := f.place(0, 1.6, core.MaskFire, core.ActionAttack)

	_, err := f.zone.TryTrigger(f.w)
	if !errors.Is(err, ErrNoTokenInZone) {
		t.Fatalf("err = %v, want ErrNoTokenInZone", err)
	}
	if !f.w.Valid(token) {
		t.Errorf("token outside the zone must survive")
	}
	if len(f.results) != 0 {
		t.Errorf("no result expected, got %+v", f.results)
	}
}

func TestJudgmentZone_EmptyZone(t *testing.T) {
	f := newZoneFixture(t)
	if _, err := f.zone.TryTrigger(f.w); !errors.Is(err, ErrNoTokenInZone) {
		t.Fatalf("err = %v, want ErrNoTokenInZone", err)
	}
	if len(f.results) != 0 {
		t.Errorf("no result expected, got %+v", f.results)
	}
}

func TestJudgmentZone_NearestWins(t *testing.T) {
	f := newZoneFixture(t)
	far := f.place(0, 0.875, core.MaskFire, core.ActionAttack)
	near := f.place(1, -0.25, core.MaskWater, core.ActionDefense)

	grade, err := f.zone.TryTrigger(f.w)
	if err != nil {
		t.Fatalf("TryTrigger: %v", err)
	}
	if grade != core.GradePerfect {
		t.Errorf("grade = %v, want Perfect", grade)
	}
	if f.w.Valid(near) || !f.w.Valid(far) {
		t.Errorf("only the nearest token should be consumed")
	}
	if f.results[0].Token != near || f.results[0].Category != core.MaskWater {
		t.Errorf("result = %+v", f.results[0])
	}

	// 2回目は残った方
	grade, err = f.zone.TryTrigger(f.w)
	if err != nil || grade != core.GradeGreat {
		t.Errorf("second trigger = %v, %v", grade, err)
	}
}

func TestJudgmentZone_TieGoesToEarliest(t *testing.T) {
	f := newZoneFixture(t)
	later := f.place(5, -0.5, core.MaskWind, core.ActionIdle)
	earlier := f.place(2, 0.5, core.MaskFire, core.ActionAttack)

	if _, err := f.zone.TryTrigger(f.w); err != nil {
		t.Fatalf("TryTrigger: %v", err)
	}
	if f.w.Valid(earlier) {
		t.Errorf("earliest token should win the tie")
	}
	if !f.w.Valid(later) {
		t.Errorf("later token should remain")
	}
}

func TestJudgmentZone_TriggerByBehavior(t *testing.T) {
	f := newZoneFixture(t)
	attack := f.place(0, 0, core.MaskFire, core.ActionAttack)
	defense := f.place(1, 0.75, core.MaskWater, core.ActionDefense)

	grade, err := f.zone.TryTriggerByBehavior(f.w, core.ActionDefense)
	if err != nil {
		t.Fatalf("TryTriggerByBehavior: %v", err)
	}
	if grade != core.GradeGreat {
		t.Errorf("grade = %v, want Great", grade)
	}
	if f.w.Valid(defense) || !f.w.Valid(attack) {
		t.Errorf("only the matching behavior should be consumed")
	}

	if _, err := f.zone.TryTriggerByBehavior(f.w, core.ActionIdle); !errors.Is(err, ErrNoTokenInZone) {
		t.Errorf("err = %v, want ErrNoTokenInZone", err)
	}
}

func TestJudgmentZone_ExitedTokenIsUnconsumedMiss(t *testing.T) {
	f := newZoneFixture(t)
	inside := f.place(0, -1.5, core.MaskFire, core.ActionAttack)
	exited := f.place(1, -1.625, core.MaskEarth, core.ActionDefense)
	halted := f.place(2, -3, core.MaskWind, core.ActionIdle)
	Halt(f.w.Entry(halted))

	f.spawner.CullExited(f.w)

	if f.w.Valid(exited) {
		t.Errorf("exited token should be destroyed")
	}
	if !f.w.Valid(inside) || !f.w.Valid(halted) {
		t.Errorf("token on the edge and halted token should remain")
	}
	if len(f.results) != 1 {
		t.Fatalf("results = %+v", f.results)
	}
	r := f.results[0]
	if r.Grade != core.GradeMiss || !r.Unconsumed || r.Category != core.MaskEarth || r.Token != exited {
		t.Errorf("result = %+v", r)
	}
}

func TestNewJudgmentZone_InvalidWidth(t *testing.T) {
	_, err := NewJudgmentZone(config.JudgmentConfig{Width: 0}, event.NewFeeds(), nil)
	if !errors.Is(err, config.ErrInvalidZone) {
		t.Errorf("err = %v, want ErrInvalidZone", err)
	}
}
