package system

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

var (
	ErrInvalidChoice = errors.New("invalid overflow choice")
	ErrUnknownUnit   = errors.New("unit is not in the inventory")
)

// MaskInventory は最大3体のマスク、キー割り当て、装着中の1体、あふれ時の保留、
// 2つの Perfect 連続カウンタを管理します。所持枠の状態はワールド状態エンティティの
// component.Inventory にあり、このシステムのメソッドだけが書き換えます。
type MaskInventory struct {
	cfg    config.InventoryConfig
	units  *MaskUnits
	feeds  *event.Feeds
	rng    *rand.Rand
	logger *log.Logger

	slotPositions []math.Vec2
	wearTarget    math.Vec2
	launchTarget  math.Vec2
}

// NewMaskInventory は所持枠を作成します。座標が設定されていなければ設定エラーを返します。
func NewMaskInventory(cfg config.InventoryConfig, units *MaskUnits, feeds *event.Feeds, rng *rand.Rand, logger *log.Logger) (*MaskInventory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inv := &MaskInventory{
		cfg:          cfg,
		units:        units,
		feeds:        feeds,
		rng:          rng,
		logger:       orDiscard(logger),
		wearTarget:   cfg.WearTarget.Vec2(),
		launchTarget: cfg.LaunchTarget.Vec2(),
	}
	for _, p := range cfg.SlotPositions {
		inv.slotPositions = append(inv.slotPositions, p.Vec2())
	}
	return inv, nil
}

func (m *MaskInventory) state(w donburi.World) *component.InventoryData {
	return component.Inventory.Get(component.WorldState(w))
}

func (m *MaskInventory) slotPose(i int) core.Pose {
	return core.Pose{Position: m.slotPositions[i]}
}

// Units は所持枠のマスクを枠順に返します。
func (m *MaskInventory) Units(w donburi.World) []donburi.Entity {
	return append([]donburi.Entity(nil), m.state(w).Slots...)
}

// Worn は装着中のマスクを返します。
func (m *MaskInventory) Worn(w donburi.World) (donburi.Entity, bool) {
	inv := m.state(w)
	return inv.Worn, inv.Worn != component.NoEntity
}

// Pending は選択待ちのマスクを返します。
func (m *MaskInventory) Pending(w donburi.World) (donburi.Entity, bool) {
	inv := m.state(w)
	return inv.Pending, inv.Pending != component.NoEntity
}

// Bound はキーに割り当てられたマスクを返します。
func (m *MaskInventory) Bound(w donburi.World, key core.MaskKey) (donburi.Entity, bool) {
	e, ok := m.state(w).Bindings[key]
	return e, ok
}

// Streaks は (発射用, 生成用) の Perfect 連続数を返します。
func (m *MaskInventory) Streaks(w donburi.World) (launch, create int) {
	inv := m.state(w)
	return inv.PerfectLaunchStreak, inv.PerfectCreateStreak
}

// Create はマスクを1体作成します。空き枠があれば次の枠に置いて true を返します。
// 満杯なら画面外に保留して InventoryOverflow を配信し、ResolveOverflow まで所持枠を変えずに false を返します。
func (m *MaskInventory) Create(w donburi.World, category core.MaskType) bool {
	inv := m.state(w)

	if len(inv.Slots) < config.InventorySlots {
		idx := len(inv.Slots)
		entry := m.units.Spawn(w, category, m.slotPose(idx))
		inv.Slots = append(inv.Slots, entry.Entity())
		key := m.bindFreeKey(w, inv, entry)
		m.logger.Printf("mask %d (%v) created in slot %d bound to %v", entry.Entity().Id(), category, idx, key)
		m.feeds.MaskCreated.Publish(w, event.MaskCreated{Unit: entry.Entity(), Category: category, Key: key, Slot: idx})
		return true
	}

	if inv.Pending != component.NoEntity {
		m.logger.Printf("create ignored: overflow selection already pending")
		return false
	}

	entry := m.units.Spawn(w, category, core.Pose{Position: m.cfg.PendingPosition.Vec2()})
	entry.AddComponent(component.PendingTag)
	inv.Pending = entry.Entity()

	var candidates [config.InventorySlots]donburi.Entity
	copy(candidates[:], inv.Slots)
	m.logger.Printf("inventory full: mask %d (%v) pending selection", entry.Entity().Id(), category)
	m.feeds.Overflow.Publish(w, event.InventoryOverflow{Pending: entry.Entity(), Candidates: candidates})
	return false
}

// ResolveOverflow は選択 UI の結果を反映します。0〜2 はその枠のマスクを破棄し、
// 保留中のマスクがあれば空いた枠に入れます。Discard は保留中のマスクを破棄します。
func (m *MaskInventory) ResolveOverflow(w donburi.World, choice core.OverflowChoice) error {
	inv := m.state(w)

	if choice == core.OverflowDiscard {
		pending := inv.Pending
		if pending != component.NoEntity {
			inv.Pending = component.NoEntity
			m.destroy(w, pending)
		}
		m.feeds.OverflowResolved.Publish(w, event.OverflowResolved{Choice: choice, Evicted: pending})
		return nil
	}

	idx := int(choice)
	if idx < 0 || idx >= len(inv.Slots) {
		return fmt.Errorf("%w: %v with %d slots", ErrInvalidChoice, choice, len(inv.Slots))
	}

	evicted := inv.Slots[idx]
	m.release(inv, evicted)
	m.destroy(w, evicted)

	inserted := inv.Pending
	if inserted != component.NoEntity {
		inv.Pending = component.NoEntity
		entry := w.Entry(inserted)
		entry.RemoveComponent(component.PendingTag)
		inv.Slots[idx] = inserted
		key := m.bindFreeKey(w, inv, entry)
		m.units.Teleport(entry, m.slotPose(idx))
		unit := component.MaskUnit.Get(entry)
		m.feeds.MaskCreated.Publish(w, event.MaskCreated{Unit: inserted, Category: unit.Category, Key: key, Slot: idx})
	} else {
		inv.Slots = append(inv.Slots[:idx], inv.Slots[idx+1:]...)
	}
	m.reposition(w, inv)

	m.logger.Printf("overflow resolved: evicted %d, inserted %d", evicted.Id(), inserted.Id())
	m.feeds.OverflowResolved.Publish(w, event.OverflowResolved{Choice: choice, Evicted: evicted, Inserted: inserted})
	return nil
}

// OnMaskKeyPressed はキーに割り当てられたマスクを装着します。
// 装着中のマスクがあれば先に外してから装着します。同じマスクのキーを再度押した場合も外して付け直します。
func (m *MaskInventory) OnMaskKeyPressed(w donburi.World, key core.MaskKey) bool {
	inv := m.state(w)
	target, ok := inv.Bindings[key]
	if !ok || !w.Valid(target) {
		return false
	}
	entry := w.Entry(target)
	state := component.MaskUnit.Get(entry).State
	if state != core.MaskModeState && target != inv.Worn {
		m.logger.Printf("mask key %v ignored: mask %d is %v", key, target.Id(), state)
		return false
	}

	if inv.Worn != component.NoEntity && w.Valid(inv.Worn) {
		m.units.ResetAndActivate(w, w.Entry(inv.Worn))
	}
	inv.Worn = component.NoEntity

	m.units.WearAt(w, entry, m.wearTarget)
	inv.Worn = target
	return true
}

// OnJudgmentResult は Perfect の連続数を数え、閾値で発射と生成を行います。
// Perfect 以外の結果は両方のカウンタを0に戻します。
func (m *MaskInventory) OnJudgmentResult(w donburi.World, result event.JudgmentResult) {
	inv := m.state(w)
	if result.Grade != core.GradePerfect {
		inv.PerfectLaunchStreak = 0
		inv.PerfectCreateStreak = 0
		return
	}

	inv.PerfectLaunchStreak++
	if m.cfg.PerfectCountForLaunch > 0 && inv.PerfectLaunchStreak >= m.cfg.PerfectCountForLaunch {
		inv.PerfectLaunchStreak = 0
		m.LaunchRandom(w)
	}

	inv.PerfectCreateStreak++
	if m.cfg.PerfectCountForCreate > 0 && inv.PerfectCreateStreak >= m.cfg.PerfectCountForCreate {
		inv.PerfectCreateStreak = 0
		category := result.Category
		if category == core.MaskNone {
			category = m.randomCategory()
		}
		m.Create(w, category)
	}
}

// LaunchRandom は飛行中でない Active のマスクを1体ランダムに選んで発射します。
// 対象が無ければ何もせず false を返します。
func (m *MaskInventory) LaunchRandom(w donburi.World) bool {
	inv := m.state(w)
	var eligible []*donburi.Entry
	for _, e := range inv.Slots {
		if !w.Valid(e) {
			continue
		}
		entry := w.Entry(e)
		if component.MaskUnit.Get(entry).State == core.MaskActive && !Flying(entry) {
			eligible = append(eligible, entry)
		}
	}
	if len(eligible) == 0 {
		m.logger.Printf("launch skipped: no active mask")
		return false
	}
	entry := eligible[m.rng.Intn(len(eligible))]
	return m.units.Launch(entry, m.launchTarget) == nil
}

// Remove はマスクを所持枠から外して破棄し、残りを枠順に詰めます。
func (m *MaskInventory) Remove(w donburi.World, unit donburi.Entity) error {
	inv := m.state(w)
	if unit != component.NoEntity && unit == inv.Pending {
		inv.Pending = component.NoEntity
		m.destroy(w, unit)
		return nil
	}

	idx := -1
	for i, e := range inv.Slots {
		if e == unit {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownUnit, unit.Id())
	}

	m.release(inv, unit)
	inv.Slots = append(inv.Slots[:idx], inv.Slots[idx+1:]...)
	m.destroy(w, unit)
	m.reposition(w, inv)
	return nil
}

// release はキー割り当てと装着参照を外します。
func (m *MaskInventory) release(inv *component.InventoryData, unit donburi.Entity) {
	for k, e := range inv.Bindings {
		if e == unit {
			delete(inv.Bindings, k)
		}
	}
	if inv.Worn == unit {
		inv.Worn = component.NoEntity
	}
}

func (m *MaskInventory) destroy(w donburi.World, unit donburi.Entity) {
	if !w.Valid(unit) {
		return
	}
	w.Remove(unit)
	m.feeds.MaskRemoved.Publish(w, event.MaskRemoved{Unit: unit})
}

// bindFreeKey は生存中のマスクに割り当てられていない最初のキーを割り当てます。
func (m *MaskInventory) bindFreeKey(w donburi.World, inv *component.InventoryData, entry *donburi.Entry) core.MaskKey {
	for _, k := range core.MaskKeys {
		if e, ok := inv.Bindings[k]; ok && w.Valid(e) {
			continue
		}
		inv.Bindings[k] = entry.Entity()
		m.units.BindKey(entry, k)
		return k
	}
	// 所持枠が3つ以下なので到達しない
	return core.MaskKeys[len(core.MaskKeys)-1]
}

// reposition は枠順に戻り先を更新し、初期位置で待機しているマスクはその場へ移動させます。
func (m *MaskInventory) reposition(w donburi.World, inv *component.InventoryData) {
	for i, e := range inv.Slots {
		if !w.Valid(e) {
			continue
		}
		entry := w.Entry(e)
		pose := m.slotPose(i)
		m.units.SetHome(entry, pose)
		if component.MaskUnit.Get(entry).State == core.MaskActive && !Flying(entry) && !component.Stillness.Get(entry).Checking {
			m.units.Teleport(entry, pose)
		}
	}
}

func (m *MaskInventory) randomCategory() core.MaskType {
	return core.MaskType(1 + m.rng.Intn(core.MaskTypeCount-1))
}
