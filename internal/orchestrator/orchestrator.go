package orchestrator

import (
	"context"
	"sync"

	"github.com/hitoshi/rezerveme/internal/authz"
	"github.com/hitoshi/rezerveme/internal/collection"
	"github.com/hitoshi/rezerveme/internal/model"
	"github.com/hitoshi/rezerveme/internal/session"
)

// Phase はオーケストレーターの大域的な状態を表す。
type Phase int

const (
	// PhaseBootstrapping は起動直後、初回のセッション解決が終わるまでの状態。
	PhaseBootstrapping Phase = iota
	// PhaseLoggedOut は未ログインの定常状態。
	PhaseLoggedOut
	// PhaseLoggedIn はログイン済みの定常状態。
	PhaseLoggedIn
)

// String はフェーズの文字列表現を返す。
func (p Phase) String() string {
	switch p {
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseLoggedOut:
		return "logged_out"
	case PhaseLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// BookingAPI は予約バックエンドへのアクセスを抽象化するインターフェース。
type BookingAPI interface {
	ListSpaces(ctx context.Context) ([]model.Space, error)
	ListReservations(ctx context.Context, userEmail string) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, spaceID int64, userEmail string, date model.Date) (*model.Reservation, error)
	CreateSpace(ctx context.Context, name string, capacity int) (*model.Space, error)
}

// Snapshot はある時点のアプリケーション状態の読み取り専用コピー。
type Snapshot struct {
	Phase         Phase
	Identity      *session.Identity
	Admin         bool
	AdminResolved bool
	Spaces        collection.State[model.Space]
	Reservations  collection.State[model.Reservation]
	SelectedDate  model.Date
	ReserveBusy   bool
	AddSpaceBusy  bool
}

// Orchestrator はセッション・権限・コレクション・ミューテーションを束ねる
// 最上位のコントローラー。プレゼンテーション層はこのコンポーネントとだけ
// 対話する。
type Orchestrator struct {
	tracker  *session.Tracker
	provider session.IdentityProvider
	resolver *authz.Resolver
	api      BookingAPI

	spaces       *collection.Fetcher[model.Space]
	reservations *collection.Fetcher[model.Reservation]

	mu           sync.Mutex
	phase        Phase
	identity     *session.Identity
	selectedDate model.Date
	reserveBusy  bool
	addSpaceBusy bool
	closed       bool
	unsubscribe  func()

	baseCtx context.Context
	updates chan struct{}
}

// New はOrchestratorの新しいインスタンスを生成する。
// 選択日付はローカルタイムゾーンの今日に初期化される。
func New(tracker *session.Tracker, provider session.IdentityProvider, resolver *authz.Resolver, api BookingAPI) *Orchestrator {
	o := &Orchestrator{
		tracker:      tracker,
		provider:     provider,
		resolver:     resolver,
		api:          api,
		phase:        PhaseBootstrapping,
		selectedDate: model.Today(),
		baseCtx:      context.Background(),
		updates:      make(chan struct{}, 1),
	}
	o.spaces = collection.NewFetcher("spaces", o.api.ListSpaces)
	o.reservations = collection.NewFetcher("reservations", func(ctx context.Context) ([]model.Reservation, error) {
		email := o.identityKey()
		if email == "" {
			// アイデンティティの消去はリセットと同一クリティカルセクション
			// で行われるため、ここに到達する取得は必ず旧世代であり、
			// この結果が状態に適用されることはない
			return nil, model.NewNotAuthenticatedError()
		}
		return o.api.ListReservations(ctx, email)
	})
	o.spaces.OnChange(o.notify)
	o.reservations.OnChange(o.notify)
	return o
}

// Start は初回のセッション解決を行い、以後のセッション変更の購読を開始する。
// ログイン済みなら権限解決と両コレクションの取得を予約する。
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	o.baseCtx = ctx
	o.mu.Unlock()

	o.tracker.Initialize(ctx)

	unsub := o.tracker.Subscribe(o.onSessionChange)
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		unsub()
		return
	}
	o.unsubscribe = unsub
	o.mu.Unlock()

	// 現在値の読み取りは購読開始後に行う。購読前に読むと、その間に
	// 届いたイベントを古いスナップショットで上書きしてしまう
	state, identity := o.tracker.Current()
	o.onSessionChange(state, identity)
}

// Close はセッション購読を解除する。すべての終了経路で呼ぶこと。
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	unsub := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	o.tracker.Close()
}

// Updates は状態変更の通知チャネルを返す。通知は合流されるため、
// 受信したら必ずSnapshotで最新状態を読み直すこと。
func (o *Orchestrator) Updates() <-chan struct{} {
	return o.updates
}

// Snapshot は現在のアプリケーション状態のコピーを返す。
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	snap := Snapshot{
		Phase:        o.phase,
		Identity:     o.identity,
		SelectedDate: o.selectedDate,
		ReserveBusy:  o.reserveBusy,
		AddSpaceBusy: o.addSpaceBusy,
	}
	o.mu.Unlock()

	snap.Admin, snap.AdminResolved = o.resolver.Privilege()
	snap.Spaces = o.spaces.State()
	snap.Reservations = o.reservations.State()
	return snap
}

// SelectDate は予約作成に使う日付を変更する。
func (o *Orchestrator) SelectDate(d model.Date) {
	o.mu.Lock()
	o.selectedDate = d
	o.mu.Unlock()
	o.notify()
}

// SignIn はログインを試みる。成功するとプロバイダ経由のセッション変更
// イベントが届き、権限解決とコレクション取得が予約される。
func (o *Orchestrator) SignIn(ctx context.Context, email, password string) error {
	return o.provider.SignIn(ctx, email, password)
}

// SignUp はユーザーを仮登録する。確認が済むまでログイン状態にはならない。
func (o *Orchestrator) SignUp(ctx context.Context, email, password string) error {
	return o.provider.SignUp(ctx, email, password)
}

// SignOut はログアウトする。依存状態のクリアはセッション変更イベント側で行う。
func (o *Orchestrator) SignOut(ctx context.Context) error {
	return o.provider.SignOut(ctx)
}

// Reserve は選択中の日付で指定スペースの予約を作成する。
// ローカル検証に失敗した場合はネットワークに一切触れない。
// 成功時は予約コレクションをちょうど一度だけ再取得する。
func (o *Orchestrator) Reserve(ctx context.Context, spaceID int64) error {
	o.mu.Lock()
	identity := o.identity
	date := o.selectedDate
	if identity == nil {
		o.mu.Unlock()
		return model.NewNotAuthenticatedError()
	}
	if date.IsZero() {
		o.mu.Unlock()
		return model.NewInvalidDateError()
	}
	if o.reserveBusy {
		o.mu.Unlock()
		return model.NewOperationInFlightError("reserve")
	}
	o.reserveBusy = true
	o.mu.Unlock()
	o.notify()

	_, err := o.api.CreateReservation(ctx, spaceID, identity.Key, date)

	o.mu.Lock()
	o.reserveBusy = false
	o.mu.Unlock()
	o.notify()

	if err != nil {
		return err
	}

	o.RefreshReservations(ctx)
	return nil
}

// AddSpace は新しいスペースを登録する。管理者権限の最終判定はバックエンドが行う。
// 成功時はスペースコレクションをちょうど一度だけ再取得する。
func (o *Orchestrator) AddSpace(ctx context.Context, name string, capacity int) error {
	if name == "" {
		return model.NewInvalidSpaceNameError()
	}
	if capacity < 1 {
		return model.NewInvalidCapacityError(capacity)
	}

	o.mu.Lock()
	if o.identity == nil {
		o.mu.Unlock()
		return model.NewNotAuthenticatedError()
	}
	if o.addSpaceBusy {
		o.mu.Unlock()
		return model.NewOperationInFlightError("add_space")
	}
	o.addSpaceBusy = true
	o.mu.Unlock()
	o.notify()

	_, err := o.api.CreateSpace(ctx, name, capacity)

	o.mu.Lock()
	o.addSpaceBusy = false
	o.mu.Unlock()
	o.notify()

	if err != nil {
		return err
	}

	o.RefreshSpaces(ctx)
	return nil
}

// RefreshSpaces はスペース一覧を再取得する。
func (o *Orchestrator) RefreshSpaces(ctx context.Context) {
	o.spaces.Fetch(ctx, o.spaces.Gen())
}

// RefreshReservations は現在のアイデンティティの予約一覧を再取得する。
// 未ログインの場合は状態に触れず何もしない。
func (o *Orchestrator) RefreshReservations(ctx context.Context) {
	if o.identityKey() == "" {
		return
	}
	o.reservations.Fetch(ctx, o.reservations.Gen())
}

// onSessionChange はセッション変更イベントを処理する。
// アイデンティティが変わった場合は、依存する再取得を予約する前に
// 権限と両コレクションを必ずリセットする。キーが異なるログイン済み同士の
// 遷移もログアウト＋ログインとして扱う。
func (o *Orchestrator) onSessionChange(state session.State, identity *session.Identity) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	prevKey := ""
	if o.identity != nil {
		prevKey = o.identity.Key
	}
	newKey := ""
	if identity != nil {
		newKey = identity.Key
	}
	sameIdentity := o.phase == PhaseLoggedIn && state == session.StateAuthenticated && prevKey == newKey

	o.identity = identity
	if state == session.StateAuthenticated {
		o.phase = PhaseLoggedIn
	} else {
		o.phase = PhaseLoggedOut
	}
	ctx := o.baseCtx

	if sameIdentity {
		o.mu.Unlock()
		// 同一アイデンティティのセッション更新。依存状態は維持する
		o.notify()
		return
	}

	// アイデンティティの公開とリセットは同一クリティカルセクションで行う。
	// アイデンティティを読めた取得は必ずリセット前の世代を持つため、
	// その後の結果は世代比較で破棄される
	o.resolver.Reset()
	o.spaces.Reset()
	o.reservations.Reset()

	// 依存処理の世代は予約時点で確定させる。実行開始までの間に
	// 次のセッション変更が入った場合、取得は発行されずに終わる
	resolveGen := o.resolver.Gen()
	spacesGen := o.spaces.Gen()
	reservationsGen := o.reservations.Gen()
	o.mu.Unlock()
	o.notify()

	if identity == nil {
		return
	}

	go func() {
		o.resolver.Resolve(ctx, newKey, resolveGen)
		o.notify()
	}()
	go o.spaces.Fetch(ctx, spacesGen)
	go o.reservations.Fetch(ctx, reservationsGen)
}

func (o *Orchestrator) identityKey() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.identity == nil {
		return ""
	}
	return o.identity.Key
}

// notify は更新通知を送る。受信側が追いついていない場合は合流させる。
func (o *Orchestrator) notify() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}
