package core

import (
	"fmt"
	"strings"

	"github.com/yohamta/donburi/features/math"
)

// MaskType はトークンとマスクの両方に付く分類です。
type MaskType int

const (
	MaskNone MaskType = iota
	MaskFire
	MaskWater
	MaskWind
	MaskEarth
	MaskThunder
	MaskIce
	MaskLight
	MaskDark
)

// MaskTypeCount は MaskNone を含む分類の総数です。
const MaskTypeCount = 9

var maskTypeNames = [MaskTypeCount]string{
	"None", "Fire", "Water", "Wind", "Earth", "Thunder", "Ice", "Light", "Dark",
}

func (m MaskType) String() string {
	if m < 0 || int(m) >= MaskTypeCount {
		return fmt.Sprintf("MaskType(%d)", int(m))
	}
	return maskTypeNames[m]
}

// ParseMaskType は大文字小文字を無視して名前から MaskType を得ます。
func ParseMaskType(s string) (MaskType, error) {
	s = strings.TrimSpace(s)
	for i, name := range maskTypeNames {
		if strings.EqualFold(name, s) {
			return MaskType(i), nil
		}
	}
	return MaskNone, fmt.Errorf("unknown mask type %q", s)
}

// ActionType はトークンの行動区分です。
type ActionType int

const (
	ActionAttack ActionType = iota
	ActionDefense
	ActionIdle
)

func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "Attack"
	case ActionDefense:
		return "Defense"
	case ActionIdle:
		return "Idle"
	}
	return fmt.Sprintf("ActionType(%d)", int(a))
}

// ParseActionType は名前から ActionType を得ます。
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "attack":
		return ActionAttack, nil
	case "defense":
		return ActionDefense, nil
	case "idle":
		return ActionIdle, nil
	}
	return ActionIdle, fmt.Errorf("unknown action type %q", s)
}

// Grade は判定結果です。
type Grade int

const (
	GradeMiss Grade = iota
	GradeGreat
	GradePerfect
)

func (g Grade) String() string {
	switch g {
	case GradePerfect:
		return "Perfect"
	case GradeGreat:
		return "Great"
	case GradeMiss:
		return "Miss"
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// MaskState はマスクの状態です。
type MaskState int

const (
	MaskActive MaskState = iota
	MaskModeState
	MaskWearing
)

func (s MaskState) String() string {
	switch s {
	case MaskActive:
		return "Active"
	case MaskModeState:
		return "MaskMode"
	case MaskWearing:
		return "Wearing"
	}
	return fmt.Sprintf("MaskState(%d)", int(s))
}

// MaskKey はマスクに割り当てる固定3キーのいずれかです。
type MaskKey int

const (
	MaskKeyQ MaskKey = iota
	MaskKeyW
	MaskKeyE
)

// MaskKeys は割り当て順に並んだキー集合です。
var MaskKeys = [3]MaskKey{MaskKeyQ, MaskKeyW, MaskKeyE}

func (k MaskKey) String() string {
	switch k {
	case MaskKeyQ:
		return "Q"
	case MaskKeyW:
		return "W"
	case MaskKeyE:
		return "E"
	}
	return fmt.Sprintf("MaskKey(%d)", int(k))
}

// TokenSpec はスポナー設定の1エントリです。
type TokenSpec struct {
	Category MaskType
	Behavior ActionType
	Weight   int
}

// Pose は位置と回転(ラジアン)の組です。
type Pose struct {
	Position math.Vec2
	Rotation float64
}

// UnmarshalText により yaml や環境変数から名前で読み込めます。
func (m *MaskType) UnmarshalText(text []byte) error {
	v, err := ParseMaskType(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m MaskType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (a *ActionType) UnmarshalText(text []byte) error {
	v, err := ParseActionType(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// OverflowChoice は所持枠あふれ時の選択結果です。0〜2 は追い出す枠番号です。
type OverflowChoice int

const (
	OverflowEvict0  OverflowChoice = 0
	OverflowEvict1  OverflowChoice = 1
	OverflowEvict2  OverflowChoice = 2
	OverflowDiscard OverflowChoice = -1
)

func (c OverflowChoice) String() string {
	if c == OverflowDiscard {
		return "Discard"
	}
	return fmt.Sprintf("Evict%d", int(c))
}
