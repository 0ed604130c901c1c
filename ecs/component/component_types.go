package component

import (
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"

	"maskbeat-ebiten/core"
)

// --- Token Components ---

// TokenData はスクロールするアクショントークンの情報です。
type TokenData struct {
	Seq      uint64 // 生成順。判定の同距離タイブレークに使う
	Category core.MaskType
	Behavior core.ActionType
	Speed    float64
	Moving   bool
}

// PositionData はトークンの位置です。移動は X 軸のみ。
type PositionData struct {
	Position math.Vec2
}

// --- Mask Components ---

// MaskUnitData はマスクの状態とキー割り当てです。
type MaskUnitData struct {
	Category core.MaskType
	State    core.MaskState
	Key      core.MaskKey
	Bound    bool
}

// MotionData はマスクの運動状態です。
type MotionData struct {
	Position        math.Vec2
	Rotation        float64
	Velocity        math.Vec2
	AngularVelocity float64
}

// FlightData は放物線飛行の進行状況です。飛行中のエンティティだけが持ちます。
type FlightData struct {
	Start    math.Vec2
	Target   math.Vec2
	Elapsed  float64
	Duration float64
	Height   float64
}

// Fraction は飛行の進行度 t を [0,1] で返します。
func (f *FlightData) Fraction() float64 {
	if f.Duration <= 0 {
		return 1
	}
	t := f.Elapsed / f.Duration
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// StillnessData は着地後の静止判定タイマーです。
type StillnessData struct {
	Checking bool
	Timer    float64
}

// HomeData はマスクが戻るべき初期姿勢です。
type HomeData struct {
	Pose core.Pose
}

// --- Singleton Components ---

// InventoryData はマスク所持枠の状態です。
type InventoryData struct {
	Slots               []donburi.Entity
	Bindings            map[core.MaskKey]donburi.Entity
	Worn                donburi.Entity
	Pending             donburi.Entity
	PerfectLaunchStreak int
	PerfectCreateStreak int
}

// ClockData はフレームの経過時間です。
type ClockData struct {
	TickCount int
	Delta     float64
	Elapsed   float64
}

// --- Componentの型定義 ---
var (
	Token     = donburi.NewComponentType[TokenData]()
	Position  = donburi.NewComponentType[PositionData]()
	MaskUnit  = donburi.NewComponentType[MaskUnitData]()
	Motion    = donburi.NewComponentType[MotionData]()
	Flight    = donburi.NewComponentType[FlightData]()
	Stillness = donburi.NewComponentType[StillnessData]()
	Home      = donburi.NewComponentType[HomeData]()
	Inventory = donburi.NewComponentType[InventoryData]()
	Clock     = donburi.NewComponentType[ClockData]()
)

// --- Tags ---

// PendingTag は所持枠あふれで選択待ちのマスクに付きます。
var PendingTag = donburi.NewTag().SetName("Pending")

// WorldStateTag はシングルトンを持つワールド状態エンティティを識別します。
var WorldStateTag = donburi.NewTag().SetName("WorldState")

// NoEntity は未設定のエンティティ参照を表します。
const NoEntity donburi.Entity = 0

// WorldState はワールド状態エンティティを返します。無ければ作成します。
func WorldState(w donburi.World) *donburi.Entry {
	if entry, ok := Clock.First(w); ok {
		return entry
	}
	entity := w.Create(WorldStateTag, Clock, Inventory)
	entry := w.Entry(entity)
	Inventory.SetValue(entry, InventoryData{
		Bindings: make(map[core.MaskKey]donburi.Entity),
	})
	return entry
}
