package system

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/yohamta/donburi"

	"maskbeat-ebiten/config"
	"maskbeat-ebiten/core"
	"maskbeat-ebiten/ecs/component"
	"maskbeat-ebiten/ecs/event"
)

type inventoryFixture struct {
	w     donburi.World
	cfg   config.InventoryConfig
	feeds *event.Feeds
	units *MaskUnits
	inv   *MaskInventory
	log   []string
}

func newInventoryFixture(t *testing.T) *inventoryFixture {
	t.Helper()
	cfg := config.LoadConfig()
	f := &inventoryFixture{w: donburi.NewWorld(), cfg: cfg.Inventory, feeds: event.NewFeeds()}
	component.WorldState(f.w)
	f.units = NewMaskUnits(cfg.Mask, f.feeds, nil)

	var err error
	f.inv, err = NewMaskInventory(cfg.Inventory, f.units, f.feeds, rand.New(rand.NewSource(3)), nil)
	if err != nil {
		t.Fatalf("NewMaskInventory: %v", err)
	}

	f.feeds.StateChanged.Subscribe(func(_ donburi.World, ev event.MaskStateChanged) {
		f.log = append(f.log, fmt.Sprintf("state %d %v->%v", ev.Unit.Id(), ev.Old, ev.New))
	})
	f.feeds.MaskCreated.Subscribe(func(_ donburi.World, ev event.MaskCreated) {
		f.log = append(f.log, fmt.Sprintf("created %d slot %d key %v", ev.Unit.Id(), ev.Slot, ev.Key))
	})
	f.feeds.Overflow.Subscribe(func(_ donburi.World, ev event.InventoryOverflow) {
		f.log = append(f.log, fmt.Sprintf("overflow %d", ev.Pending.Id()))
	})
	f.feeds.MaskRemoved.Subscribe(func(_ donburi.World, ev event.MaskRemoved) {
		f.log = append(f.log, fmt.Sprintf("removed %d", ev.Unit.Id()))
	})
	return f
}

func (f *inventoryFixture) fill(t *testing.T, categories ...core.MaskType) []donburi.Entity {
	t.Helper()
	for _, c := range categories {
		if !f.inv.Create(f.w, c) {
			t.Fatalf("Create(%v) failed", c)
		}
	}
	return f.inv.Units(f.w)
}

func (f *inventoryFixture) toMaskMode(units ...donburi.Entity) {
	for _, u := range units {
		f.units.setState(f.w, f.w.Entry(u), core.MaskModeState)
	}
}

func (f *inventoryFixture) judge(grades ...core.Grade) {
	for _, g := range grades {
		f.inv.OnJudgmentResult(f.w, event.JudgmentResult{Grade: g, Category: core.MaskIce})
	}
}

func (f *inventoryFixture) state(u donburi.Entity) core.MaskState {
	return component.MaskUnit.Get(f.w.Entry(u)).State
}

func TestMaskInventory_CreateBindsKeysInOrder(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater, core.MaskWind)

	if len(units) != 3 {
		t.Fatalf("units = %v", units)
	}
	for i, key := range core.MaskKeys {
		bound, ok := f.inv.Bound(f.w, key)
		if !ok || bound != units[i] {
			t.Errorf("key %v bound to %v, want %v", key, bound, units[i])
		}
		entry := f.w.Entry(units[i])
		unit := component.MaskUnit.Get(entry)
		if unit.Key != key || !unit.Bound || unit.State != core.MaskActive {
			t.Errorf("unit %d = %+v", i, unit)
		}
		if pos := component.Motion.Get(entry).Position; pos != f.cfg.SlotPositions[i].Vec2() {
			t.Errorf("unit %d at %v, want slot %v", i, pos, f.cfg.SlotPositions[i])
		}
	}
	if len(f.log) != 3 {
		t.Errorf("log = %v", f.log)
	}
}

func TestMaskInventory_StreaksAreIndependent(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater)

	f.judge(core.GradePerfect, core.GradePerfect, core.GradePerfect)
	flying := 0
	for _, u := range units {
		if Flying(f.w.Entry(u)) {
			flying++
		}
	}
	if flying != 1 {
		t.Fatalf("flying after 3 perfects = %d, want 1", flying)
	}

	f.judge(core.GradePerfect, core.GradePerfect, core.GradePerfect)
	flying = 0
	for _, u := range units {
		if Flying(f.w.Entry(u)) {
			flying++
		}
	}
	if flying != 2 {
		t.Errorf("flying after 6 perfects = %d, want 2", flying)
	}

	all := f.inv.Units(f.w)
	if len(all) != 3 {
		t.Fatalf("units after 6 perfects = %d, want 3", len(all))
	}
	created := f.w.Entry(all[2])
	if c := component.MaskUnit.Get(created).Category; c != core.MaskIce {
		t.Errorf("created category = %v, want the judged token's", c)
	}
	if Flying(created) {
		t.Errorf("newly created unit should not be launched in the same judgment")
	}
	if launch, create := f.inv.Streaks(f.w); launch != 0 || create != 0 {
		t.Errorf("streaks = %d/%d, want 0/0", launch, create)
	}
}

func TestMaskInventory_NonPerfectResetsBothStreaks(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire)

	f.judge(core.GradePerfect, core.GradePerfect, core.GradeGreat, core.GradePerfect, core.GradePerfect)
	if Flying(f.w.Entry(units[0])) {
		t.Errorf("launch triggered without 3 consecutive perfects")
	}
	if launch, create := f.inv.Streaks(f.w); launch != 2 || create != 2 {
		t.Errorf("streaks = %d/%d, want 2/2", launch, create)
	}

	f.judge(core.GradeMiss)
	if launch, create := f.inv.Streaks(f.w); launch != 0 || create != 0 {
		t.Errorf("streaks after miss = %d/%d, want 0/0", launch, create)
	}
}

func TestMaskInventory_LaunchWithoutEligibleUnit(t *testing.T) {
	f := newInventoryFixture(t)
	if f.inv.LaunchRandom(f.w) {
		t.Errorf("launch succeeded with no units")
	}
	units := f.fill(t, core.MaskFire)
	f.toMaskMode(units...)
	if f.inv.LaunchRandom(f.w) {
		t.Errorf("launch succeeded with only a MaskMode unit")
	}
}

func TestMaskInventory_WearSwapsWornUnit(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater, core.MaskWind)
	f.toMaskMode(units[0], units[1])
	f.log = nil

	if f.inv.OnMaskKeyPressed(f.w, core.MaskKeyE) {
		t.Errorf("Active unit should not be worn")
	}

	if !f.inv.OnMaskKeyPressed(f.w, core.MaskKeyQ) {
		t.Fatalf("wear Q failed")
	}
	if worn, ok := f.inv.Worn(f.w); !ok || worn != units[0] {
		t.Errorf("worn = %v, want %v", worn, units[0])
	}
	if pos := component.Motion.Get(f.w.Entry(units[0])).Position; pos != f.cfg.WearTarget.Vec2() {
		t.Errorf("worn unit at %v", pos)
	}

	f.log = nil
	if !f.inv.OnMaskKeyPressed(f.w, core.MaskKeyW) {
		t.Fatalf("wear W failed")
	}
	expected := []string{
		fmt.Sprintf("state %d Wearing->Active", units[0].Id()),
		fmt.Sprintf("state %d MaskMode->Wearing", units[1].Id()),
	}
	if fmt.Sprint(f.log) != fmt.Sprint(expected) {
		t.Errorf("log = %v, want %v", f.log, expected)
	}
	if f.state(units[0]) != core.MaskActive {
		t.Errorf("previous worn unit = %v, want Active", f.state(units[0]))
	}
	if pos := component.Motion.Get(f.w.Entry(units[0])).Position; pos != f.cfg.SlotPositions[0].Vec2() {
		t.Errorf("previous worn unit at %v, want its slot", pos)
	}

	// 装着中のキーをもう一度押すと外してから付け直す
	f.log = nil
	if !f.inv.OnMaskKeyPressed(f.w, core.MaskKeyW) {
		t.Fatalf("re-press W failed")
	}
	expected = []string{
		fmt.Sprintf("state %d Wearing->Active", units[1].Id()),
		fmt.Sprintf("state %d Active->Wearing", units[1].Id()),
	}
	if fmt.Sprint(f.log) != fmt.Sprint(expected) {
		t.Errorf("log = %v, want %v", f.log, expected)
	}

	wearing := 0
	for _, u := range units {
		if f.state(u) == core.MaskWearing {
			wearing++
		}
	}
	if wearing != 1 {
		t.Errorf("%d units wearing, want 1", wearing)
	}
}

func TestMaskInventory_OverflowEvict(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater, core.MaskWind)

	var overflow []event.InventoryOverflow
	f.feeds.Overflow.Subscribe(func(_ donburi.World, ev event.InventoryOverflow) {
		overflow = append(overflow, ev)
	})
	var resolved []event.OverflowResolved
	f.feeds.OverflowResolved.Subscribe(func(_ donburi.World, ev event.OverflowResolved) {
		resolved = append(resolved, ev)
	})

	if f.inv.Create(f.w, core.MaskThunder) {
		t.Fatalf("Create into a full inventory should not succeed")
	}
	pending, ok := f.inv.Pending(f.w)
	if !ok {
		t.Fatalf("no pending unit")
	}
	if len(overflow) != 1 || overflow[0].Pending != pending {
		t.Fatalf("overflow = %+v", overflow)
	}
	for i, c := range overflow[0].Candidates {
		if c != units[i] {
			t.Errorf("candidate %d = %v, want %v", i, c, units[i])
		}
	}
	if got := f.inv.Units(f.w); fmt.Sprint(got) != fmt.Sprint(units) {
		t.Errorf("inventory changed before resolution: %v", got)
	}
	if !f.w.Entry(pending).HasComponent(component.PendingTag) {
		t.Errorf("pending unit should carry the pending tag")
	}

	// 選択待ちの間の Create は無視される
	if f.inv.Create(f.w, core.MaskDark) || len(overflow) != 1 {
		t.Errorf("second Create while pending should be ignored")
	}

	if err := f.inv.ResolveOverflow(f.w, core.OverflowEvict1); err != nil {
		t.Fatalf("ResolveOverflow: %v", err)
	}
	got := f.inv.Units(f.w)
	want := []donburi.Entity{units[0], pending, units[2]}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("units = %v, want %v", got, want)
	}
	if f.w.Valid(units[1]) {
		t.Errorf("evicted unit should be destroyed")
	}
	if _, ok := f.inv.Pending(f.w); ok {
		t.Errorf("pending should be cleared")
	}
	if bound, _ := f.inv.Bound(f.w, core.MaskKeyW); bound != pending {
		t.Errorf("W bound to %v, want inserted unit %v", bound, pending)
	}
	entry := f.w.Entry(pending)
	if entry.HasComponent(component.PendingTag) {
		t.Errorf("inserted unit still pending")
	}
	if pos := component.Motion.Get(entry).Position; pos != f.cfg.SlotPositions[1].Vec2() {
		t.Errorf("inserted unit at %v, want slot 1", pos)
	}
	if len(resolved) != 1 || resolved[0].Evicted != units[1] || resolved[0].Inserted != pending {
		t.Errorf("resolved = %+v", resolved)
	}
}

func TestMaskInventory_OverflowDiscard(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater, core.MaskWind)
	f.inv.Create(f.w, core.MaskThunder)
	pending, _ := f.inv.Pending(f.w)

	if err := f.inv.ResolveOverflow(f.w, core.OverflowDiscard); err != nil {
		t.Fatalf("ResolveOverflow: %v", err)
	}
	if f.w.Valid(pending) {
		t.Errorf("discarded unit should be destroyed")
	}
	if got := f.inv.Units(f.w); fmt.Sprint(got) != fmt.Sprint(units) {
		t.Errorf("units = %v, want %v", got, units)
	}

	// 次の Create で再びあふれる
	if f.inv.Create(f.w, core.MaskEarth) {
		t.Errorf("Create should overflow again")
	}
	if _, ok := f.inv.Pending(f.w); !ok {
		t.Errorf("expected a new pending unit")
	}
}

func TestMaskInventory_ResolveInvalidChoice(t *testing.T) {
	f := newInventoryFixture(t)
	f.fill(t, core.MaskFire)
	if err := f.inv.ResolveOverflow(f.w, core.OverflowChoice(2)); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("err = %v, want ErrInvalidChoice", err)
	}
	if err := f.inv.ResolveOverflow(f.w, core.OverflowChoice(-5)); !errors.Is(err, ErrInvalidChoice) {
		t.Errorf("err = %v, want ErrInvalidChoice", err)
	}
}

func TestMaskInventory_RemoveCompactsSlots(t *testing.T) {
	f := newInventoryFixture(t)
	units := f.fill(t, core.MaskFire, core.MaskWater, core.MaskWind)
	f.toMaskMode(units[1])
	if !f.inv.OnMaskKeyPressed(f.w, core.MaskKeyW) {
		t.Fatalf("wear W failed")
	}

	if err := f.inv.Remove(f.w, units[1]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if f.w.Valid(units[1]) {
		t.Errorf("removed unit should be destroyed")
	}
	if _, ok := f.inv.Worn(f.w); ok {
		t.Errorf("worn reference should be cleared")
	}
	if _, ok := f.inv.Bound(f.w, core.MaskKeyW); ok {
		t.Errorf("W should be unbound")
	}

	got := f.inv.Units(f.w)
	want := []donburi.Entity{units[0], units[2]}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("units = %v, want %v", got, want)
	}
	moved := f.w.Entry(units[2])
	if pos := component.Motion.Get(moved).Position; pos != f.cfg.SlotPositions[1].Vec2() {
		t.Errorf("compacted unit at %v, want slot 1", pos)
	}
	if home := component.Home.Get(moved).Pose.Position; home != f.cfg.SlotPositions[1].Vec2() {
		t.Errorf("compacted unit home = %v, want slot 1", home)
	}
	// キーは付け替えない
	if bound, _ := f.inv.Bound(f.w, core.MaskKeyE); bound != units[2] {
		t.Errorf("E bound to %v, want %v", bound, units[2])
	}

	if !f.inv.Create(f.w, core.MaskIce) {
		t.Fatalf("Create after Remove failed")
	}
	created := f.inv.Units(f.w)[2]
	if bound, _ := f.inv.Bound(f.w, core.MaskKeyW); bound != created {
		t.Errorf("freed key W should go to the new unit")
	}

	if err := f.inv.Remove(f.w, units[1]); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("err = %v, want ErrUnknownUnit", err)
	}
}
