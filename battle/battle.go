package battle

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
	"maskbeat-ebiten/ecs/system"
)

// Battle は判定とマスク資源のコアを1つにまとめたものです。
// ホストのループが Tick と入力エッジを呼び出します。グローバルな状態は持ちません。
type Battle struct {
	World donburi.World
	Feeds *event.Feeds

	Spawner   *system.TokenSpawner
	Zone      *system.JudgmentZone
	Units     *system.MaskUnits
	Inventory *system.MaskInventory

	cfg    config.Config
	ecs    *ecs.ECS
	rng    *rand.Rand
	logger *log.Logger
	subs   []event.Subscription
}

// Option は New の省略可能な引数です。
type Option func(*Battle)

// WithRand は乱数源を差し替えます。テストで結果を固定するのに使います。
func WithRand(rng *rand.Rand) Option {
	return func(b *Battle) { b.rng = rng }
}

// WithLogger は診断ログの出力先を差し替えます。
func WithLogger(logger *log.Logger) Option {
	return func(b *Battle) { b.logger = logger }
}

// New は設定からコアを組み立てます。設定エラーがあれば何も作らずに返します。
func New(cfg config.Config, opts ...Option) (*Battle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	b := &Battle{
		World: donburi.NewWorld(),
		Feeds: event.NewFeeds(),
		cfg:   cfg,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		b.rng = rand.New(rand.NewSource(seed))
	}
	if b.logger == nil {
		if cfg.Debug {
			b.logger = log.New(os.Stderr, "[maskbeat] ", log.LstdFlags)
		} else {
			b.logger = log.New(io.Discard, "", 0)
		}
	}

	var err error
	b.Zone, err = system.NewJudgmentZone(cfg.Judgment, b.Feeds, b.logger)
	if err != nil {
		return nil, fmt.Errorf("judgment zone: %w", err)
	}
	b.Spawner, err = system.NewTokenSpawner(cfg.Spawner, b.Zone, b.Feeds, b.rng, b.logger)
	if err != nil {
		return nil, fmt.Errorf("token spawner: %w", err)
	}
	b.Units = system.NewMaskUnits(cfg.Mask, b.Feeds, b.logger)
	b.Inventory, err = system.NewMaskInventory(cfg.Inventory, b.Units, b.Feeds, b.rng, b.logger)
	if err != nil {
		return nil, fmt.Errorf("mask inventory: %w", err)
	}

	component.WorldState(b.World)

	// 1フレーム内の順序: 生成 → トークン移動 → 通り過ぎ判定 → マスクの飛行と静止判定
	b.ecs = ecs.NewECS(b.World)
	b.ecs.AddSystem(b.Spawner.Update)
	b.ecs.AddSystem(system.NewTokenMotionSystem().Update)
	b.ecs.AddSystem(b.Spawner.UpdateExits)
	b.ecs.AddSystem(system.NewMaskMotionSystem(b.Units).Update)

	// 所持枠は判定結果の最初の購読者
	b.subs = append(b.subs, b.Feeds.Judgment.Subscribe(b.Inventory.OnJudgmentResult))
	return b, nil
}

// Config はコアの設定を返します。
func (b *Battle) Config() config.Config { return b.cfg }

// Close は内部の購読を解除します。
func (b *Battle) Close() {
	for _, s := range b.subs {
		s.Unsubscribe()
	}
	b.subs = nil
}

// Tick は dt 秒だけ時間を進めます。
func (b *Battle) Tick(dt float64) {
	clock := component.Clock.Get(component.WorldState(b.World))
	clock.TickCount++
	clock.Delta = dt
	clock.Elapsed += dt
	b.ecs.Update()
}

// Clock は現在のフレーム情報を返します。
func (b *Battle) Clock() component.ClockData {
	return *component.Clock.Get(component.WorldState(b.World))
}

// StartSpawning はトークン生成を開始します。
func (b *Battle) StartSpawning() error {
	if err := b.Spawner.Start(); err != nil {
		return fmt.Errorf("start spawning: %w", err)
	}
	return nil
}

// StopSpawning はトークン生成を止めます。
func (b *Battle) StopSpawning() {
	b.Spawner.Stop()
}

// TriggerKeyDown は判定キーの押下です。
func (b *Battle) TriggerKeyDown() (core.Grade, error) {
	return b.Zone.TryTrigger(b.World)
}

// TriggerKeyDownFor は行動区分ごとの判定キーの押下です。
func (b *Battle) TriggerKeyDownFor(behavior core.ActionType) (core.Grade, error) {
	return b.Zone.TryTriggerByBehavior(b.World, behavior)
}

// MaskKeyDown はマスクキーの押下です。
func (b *Battle) MaskKeyDown(key core.MaskKey) bool {
	return b.Inventory.OnMaskKeyPressed(b.World, key)
}

// ResolveOverflow は所持枠あふれの選択結果を反映します。
func (b *Battle) ResolveOverflow(choice core.OverflowChoice) error {
	return b.Inventory.ResolveOverflow(b.World, choice)
}

// DebugCreate はランダムな分類のマスクを作成します。
func (b *Battle) DebugCreate() bool {
	category := core.MaskType(1 + b.rng.Intn(core.MaskTypeCount-1))
	return b.Inventory.Create(b.World, category)
}

// DebugLaunch はランダムなマスクを1体発射します。
func (b *Battle) DebugLaunch() bool {
	return b.Inventory.LaunchRandom(b.World)
}
