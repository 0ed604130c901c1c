package system

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/features/math"
	"github.com/yohamta/donburi/filter"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

// ErrEmptyTokenConfig はトークン設定が空でスポナーを開始できないことを示します。
var ErrEmptyTokenConfig = errors.New("token configuration is empty")

// UnconsumedSink は消費されずにゾーンを抜けたトークンの通知先です。
type UnconsumedSink interface {
	NotifyUnconsumed(w donburi.World, entry *donburi.Entry)
}

// TokenSpawner は一定間隔でトークンを生成し、ゾーンを抜けたトークンを片付けます。
type TokenSpawner struct {
	query  *donburi.Query
	sink   UnconsumedSink
	limit  func() float64
	feeds  *event.Feeds
	rng    *rand.Rand
	logger *log.Logger

	position math.Vec2
	speed    float64
	interval float64
	mode     string
	entries  []core.TokenSpec
	sequence []core.TokenSpec
	loop     bool

	running   bool
	elapsed   float64
	counter   int
	nextSeq   uint64
	exhausted bool
}

// NewTokenSpawner はスポナーを作成します。zone は通り過ぎ判定の境界と Miss 通知先を兼ねます。
func NewTokenSpawner(cfg config.SpawnerConfig, zone *JudgmentZone, feeds *event.Feeds, rng *rand.Rand, logger *log.Logger) (*TokenSpawner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &TokenSpawner{
		query:    donburi.NewQuery(filter.Contains(component.Token, component.Position)),
		feeds:    feeds,
		rng:      rng,
		logger:   orDiscard(logger),
		position: cfg.Position.Vec2(),
		speed:    cfg.Speed,
		interval: 1 / cfg.BeatsPerSecond,
		mode:     cfg.Mode,
		entries:  append([]core.TokenSpec(nil), cfg.Entries...),
		loop:     cfg.Loop,
	}
	for _, seq := range cfg.Sequences {
		s.sequence = append(s.sequence, seq...)
	}
	if s.mode == "" {
		s.mode = config.SpawnModeRandom
		if len(s.sequence) > 0 {
			s.mode = config.SpawnModeSequence
		}
	}
	if zone != nil {
		s.sink = zone
		s.limit = func() float64 { return zone.Bounds().Min }
		zone.SetTokenSource(s)
	}
	return s, nil
}

// Start は生成を開始します。選ばれたモードの設定が空なら開始せずにエラーを返します。
func (s *TokenSpawner) Start() error {
	if s.configSize() == 0 {
		s.running = false
		return fmt.Errorf("spawner mode %q: %w", s.mode, ErrEmptyTokenConfig)
	}
	s.running = true
	s.elapsed = 0
	s.exhausted = false
	return nil
}

// Stop は生成を止めます。移動中のトークンはそのまま流れ続けます。
func (s *TokenSpawner) Stop() {
	s.running = false
}

// Running は生成中かを返します。
func (s *TokenSpawner) Running() bool { return s.running }

// Clear は判定せずに全トークンを破棄します。
func (s *TokenSpawner) Clear(w donburi.World) {
	var doomed []donburi.Entity
	s.query.Each(w, func(entry *donburi.Entry) {
		doomed = append(doomed, entry.Entity())
	})
	removeEntities(w, doomed)
}

// Speed は現在のトークン速度です。
func (s *TokenSpawner) Speed() float64 { return s.speed }

// Interval は生成間隔(秒)です。
func (s *TokenSpawner) Interval() float64 { return s.interval }

// SetSpeed は速度を変更します。生存中のトークンにも次のフレームから適用されます。
func (s *TokenSpawner) SetSpeed(w donburi.World, speed float64) error {
	if speed < 0 {
		return fmt.Errorf("%w: %v", config.ErrInvalidSpeed, speed)
	}
	s.speed = speed
	s.query.Each(w, func(entry *donburi.Entry) {
		component.Token.Get(entry).Speed = speed
	})
	return nil
}

// SetBeatsPerSecond は生成間隔を変更します。蓄積中の経過時間はリセットしません。
func (s *TokenSpawner) SetBeatsPerSecond(bps float64) error {
	if bps <= 0 {
		return fmt.Errorf("%w: %v", config.ErrInvalidCadence, bps)
	}
	s.interval = 1 / bps
	return nil
}

// LiveTokens は生存中のトークンを生成順で返します。
func (s *TokenSpawner) LiveTokens(w donburi.World) []*donburi.Entry {
	var tokens []*donburi.Entry
	s.query.Each(w, func(entry *donburi.Entry) {
		tokens = append(tokens, entry)
	})
	sort.Slice(tokens, func(i, j int) bool {
		return component.Token.Get(tokens[i]).Seq < component.Token.Get(tokens[j]).Seq
	})
	return tokens
}

// Update は生成間隔を確認してトークンを生成します。
func (s *TokenSpawner) Update(ecs *ecs.ECS) {
	s.Tick(ecs.World, deltaTime(ecs.World))
}

// Tick は経過時間を蓄積し、間隔を超えるたびに1つ生成します。
func (s *TokenSpawner) Tick(w donburi.World, dt float64) {
	if !s.running {
		return
	}
	s.elapsed += dt
	for s.running && s.elapsed >= s.interval {
		s.elapsed -= s.interval
		if !s.spawn(w) {
			break
		}
	}
}

// UpdateExits は移動中にゾーンの奥側境界を越えたトークンを Miss として片付けます。
func (s *TokenSpawner) UpdateExits(ecs *ecs.ECS) {
	s.CullExited(ecs.World)
}

// CullExited は UpdateExits の本体です。
func (s *TokenSpawner) CullExited(w donburi.World) {
	if s.limit == nil {
		return
	}
	limit := s.limit()
	var exited []*donburi.Entry
	for _, entry := range s.LiveTokens(w) {
		token := component.Token.Get(entry)
		if token.Moving && component.Position.Get(entry).Position.X < limit {
			exited = append(exited, entry)
		}
	}
	doomed := make([]donburi.Entity, 0, len(exited))
	for _, entry := range exited {
		s.sink.NotifyUnconsumed(w, entry)
		doomed = append(doomed, entry.Entity())
	}
	removeEntities(w, doomed)
}

func (s *TokenSpawner) configSize() int {
	if s.mode == config.SpawnModeSequence {
		return len(s.sequence)
	}
	return len(s.entries)
}

func (s *TokenSpawner) spawn(w donburi.World) bool {
	spec, ok := s.next()
	if !ok {
		return false
	}

	entity := w.Create(component.Token, component.Position)
	entry := w.Entry(entity)
	seq := s.nextSeq
	s.nextSeq++
	component.Token.SetValue(entry, component.TokenData{
		Seq:      seq,
		Category: spec.Category,
		Behavior: spec.Behavior,
		Speed:    s.speed,
		Moving:   true,
	})
	component.Position.SetValue(entry, component.PositionData{Position: s.position})

	s.feeds.TokenCreated.Publish(w, event.TokenCreated{
		Token:    entity,
		Seq:      seq,
		Category: spec.Category,
		Behavior: spec.Behavior,
	})
	return true
}

// next は次に生成する設定エントリを選びます。
func (s *TokenSpawner) next() (core.TokenSpec, bool) {
	if s.mode == config.SpawnModeSequence {
		if len(s.sequence) == 0 {
			return core.TokenSpec{}, false
		}
		idx := s.counter
		if idx >= len(s.sequence) {
			if !s.loop {
				if !s.exhausted {
					s.exhausted = true
					s.logger.Printf("sequence finished after %d tokens", s.counter)
				}
				return core.TokenSpec{}, false
			}
			idx %= len(s.sequence)
		}
		s.counter++
		return s.sequence[idx], true
	}

	if len(s.entries) == 0 {
		return core.TokenSpec{}, false
	}
	total := 0
	for _, e := range s.entries {
		total += weightOf(e)
	}
	r := s.rng.Intn(total)
	for _, e := range s.entries {
		r -= weightOf(e)
		if r < 0 {
			return e, true
		}
	}
	return s.entries[len(s.entries)-1], true
}

// weightOf は未指定(0以下)の重みを1として扱います。
func weightOf(spec core.TokenSpec) int {
	if spec.Weight <= 0 {
		return 1
	}
	return spec.Weight
}
