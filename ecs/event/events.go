package event

import (
	"github.com/yohamta/donburi"

	"maskbeat-ebiten/core"
)

// TokenCreated はスポナーがトークンを生成したときに配信されます。
type TokenCreated struct {
	Token    donburi.Entity
	Seq      uint64
	Category core.MaskType
	Behavior core.ActionType
}

// JudgmentResult は判定結果です。効果・音声側もこれを購読します。
type JudgmentResult struct {
	Grade    core.Grade
	Category core.MaskType
	Behavior core.ActionType
	Token    donburi.Entity
	Distance float64
	// Unconsumed はゾーンを通り過ぎたトークンの Miss であることを示します。
	Unconsumed bool
}

// MaskStateChanged はマスクの状態遷移ごとに配信されます。
type MaskStateChanged struct {
	Unit donburi.Entity
	Old  core.MaskState
	New  core.MaskState
}

// FlightComplete は放物線飛行が終わったときに配信されます。
type FlightComplete struct {
	Unit donburi.Entity
}

// InventoryOverflow は所持枠が満杯で新しいマスクが保留になったときに配信されます。
// 外部の選択 UI はこれを受けて ResolveOverflow を1回だけ呼びます。
type InventoryOverflow struct {
	Pending    donburi.Entity
	Candidates [3]donburi.Entity
}

// OverflowResolved は選択 UI を閉じる合図です。
type OverflowResolved struct {
	Choice   core.OverflowChoice
	Evicted  donburi.Entity
	Inserted donburi.Entity
}

// MaskCreated はマスクが所持枠に入ったときに配信されます。
type MaskCreated struct {
	Unit     donburi.Entity
	Category core.MaskType
	Key      core.MaskKey
	Slot     int
}

// MaskRemoved はマスクが破棄されたときに配信されます。
type MaskRemoved struct {
	Unit donburi.Entity
}

// Feeds はコアが持つ全イベントの配信口です。
type Feeds struct {
	TokenCreated     Feed[TokenCreated]
	Judgment         Feed[JudgmentResult]
	StateChanged     Feed[MaskStateChanged]
	FlightComplete   Feed[FlightComplete]
	Overflow         Feed[InventoryOverflow]
	OverflowResolved Feed[OverflowResolved]
	MaskCreated      Feed[MaskCreated]
	MaskRemoved      Feed[MaskRemoved]
}

// NewFeeds は空の Feeds を返します。
func NewFeeds() *Feeds {
	return &Feeds{}
}
