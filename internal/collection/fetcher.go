package collection

import (
	"context"
	"log/slog"
	"sync"
)

// Status はコレクションの取得状態を表す。
type Status int

const (
	// StatusIdle は未取得の初期状態。
	StatusIdle Status = iota
	// StatusLoading は取得中。
	StatusLoading
	// StatusReady は取得成功。Itemsが有効。
	StatusReady
	// StatusFailed は取得失敗。LastErrorが有効。
	StatusFailed
)

// String はステータスの文字列表現を返す。
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State はある時点のコレクション状態のスナップショット。
type State[T any] struct {
	Status    Status
	Items     []T
	LastError error
}

// LoadFunc はリモートからコレクションを取得する関数。
type LoadFunc[T any] func(ctx context.Context) ([]T, error)

// Fetcher はリモートコレクションの取得と状態管理を行う。
// アイデンティティが切り替わった後に届いた古い取得結果は
// 世代カウンタの比較によって破棄される。
type Fetcher[T any] struct {
	name string
	load LoadFunc[T]

	mu    sync.Mutex
	gen   uint64
	state State[T]

	onChange func()
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// nameはログ出力にのみ使用する。
func NewFetcher[T any](name string, load LoadFunc[T]) *Fetcher[T] {
	return &Fetcher[T]{
		name:  name,
		load:  load,
		state: State[T]{Status: StatusIdle},
	}
}

// OnChange は状態が変化するたびに呼ばれるコールバックを登録する。
// コールバックはロック外で呼ばれる。
func (f *Fetcher[T]) OnChange(fn func()) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// State は現在の状態のスナップショットを返す。
func (f *Fetcher[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Gen は現在の世代カウンタを返す。Fetchに渡す世代は
// 取得を予約した時点で読むこと。
func (f *Fetcher[T]) Gen() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// Fetch は予約時点の世代genで取得を開始する。呼び出しと同時にLoadingへ
// 遷移し、取得完了後にReadyまたはFailedへちょうど一度だけ確定する。
// 予約から実行開始までの間、または実行中にResetされた場合、
// 取得は発行されないか、結果が適用されない。
func (f *Fetcher[T]) Fetch(ctx context.Context, gen uint64) {
	f.mu.Lock()
	if f.gen != gen {
		// 予約後・開始前にリセットされた。Loadingへ遷移せず何もしない
		f.mu.Unlock()
		slog.Debug("skipping superseded fetch", slog.String("collection", f.name))
		return
	}
	f.state = State[T]{Status: StatusLoading, Items: f.state.Items}
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify()
	}

	items, err := f.load(ctx)

	f.mu.Lock()
	if f.gen != gen {
		// 取得中にリセットされた。結果は古い世代のものなので捨てる
		f.mu.Unlock()
		slog.Debug("discarding stale fetch result", slog.String("collection", f.name))
		return
	}
	if err != nil {
		f.state = State[T]{Status: StatusFailed, LastError: err}
	} else {
		f.state = State[T]{Status: StatusReady, Items: items}
	}
	notify = f.onChange
	f.mu.Unlock()

	if err != nil {
		slog.Warn("collection fetch failed",
			slog.String("collection", f.name),
			slog.String("error", err.Error()),
		)
	}
	if notify != nil {
		notify()
	}
}

// Reset は状態をIdleに戻し、実行中の取得結果を無効化する。
// アイデンティティの切り替え時に必ず呼ぶこと。
func (f *Fetcher[T]) Reset() {
	f.mu.Lock()
	f.gen++
	f.state = State[T]{Status: StatusIdle}
	notify := f.onChange
	f.mu.Unlock()

	if notify != nil {
		notify()
	}
}
