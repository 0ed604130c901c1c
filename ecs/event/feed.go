package event

import "github.com/yohamta/donburi"

// Handler は購読者のコールバックです。
type Handler[T any] func(w donburi.World, ev T)

type subscriber[T any] struct {
	id      int
	handler Handler[T]
}

// Feed は同期配信の publish/subscribe レジストリです。
//
//   - Publish は全購読者への配信が終わってから戻る
//   - 購読者は登録順に呼ばれる
//   - ハンドラ内からの Publish は深さ優先で即時配信される
//   - ハンドラ内での Subscribe/Unsubscribe は次の Publish から有効になる
type Feed[T any] struct {
	subs   []subscriber[T]
	nextID int
}

// Subscription は Subscribe の戻り値で、購読解除に使います。
type Subscription struct {
	cancel func()
}

// Unsubscribe は購読を解除します。複数回呼んでも安全です。
func (s Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Subscribe はハンドラを末尾に登録します。
func (f *Feed[T]) Subscribe(h Handler[T]) Subscription {
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber[T]{id: id, handler: h})
	return Subscription{cancel: func() { f.remove(id) }}
}

func (f *Feed[T]) remove(id int) {
	for i, s := range f.subs {
		if s.id == id {
			// 配信中のスナップショットを壊さないようにコピーしてから詰める
			next := make([]subscriber[T], 0, len(f.subs)-1)
			next = append(next, f.subs[:i]...)
			next = append(next, f.subs[i+1:]...)
			f.subs = next
			return
		}
	}
}

// Publish はイベントを全購読者へ登録順に配信します。
func (f *Feed[T]) Publish(w donburi.World, ev T) {
	subs := f.subs
	for _, s := range subs {
		s.handler(w, ev)
	}
}

// Len は購読者数を返します。
func (f *Feed[T]) Len() int {
	return len(f.subs)
}
