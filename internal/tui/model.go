package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hitoshi/rezerveme/internal/collection"
	"github.com/hitoshi/rezerveme/internal/model"
	"github.com/hitoshi/rezerveme/internal/orchestrator"
)

// pane はメイン画面でフォーカスされている一覧を表す。
type pane int

const (
	paneSpaces pane = iota
	paneReservations
)

// form はモーダル的に表示される入力フォームの種別。
type form int

const (
	formNone form = iota
	formDate
	formAddSpace
)

// updateMsg はオーケストレーターの状態変更通知をbubbleteaの
// メッセージループへ運ぶ。
type updateMsg struct{}

// opResultMsg は非同期ミューテーションの完了を伝える。
type opResultMsg struct {
	notice string
	err    error
}

// listenForUpdates は通知チャネルで待機し、届いたらupdateMsgとして
// 配送するtea.Cmdを返す。受信のたびに再登録すること。
func listenForUpdates(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return updateMsg{}
	}
}

// Model は予約クライアントの最上位bubbleteaモデル。
// すべての状態読み取りはオーケストレーターのSnapshot経由で行い、
// モデル自身はUI上の一時状態（カーソル位置や入力欄）だけを持つ。
type Model struct {
	orch *orchestrator.Orchestrator
	snap orchestrator.Snapshot

	width  int
	height int

	// ログインフォーム
	emailInput    textinput.Model
	passwordInput textinput.Model
	loginFocus    int
	signupMode    bool

	// メイン画面
	activePane pane
	cursor     int
	activeForm form

	// 日付フォーム
	dateInput textinput.Model

	// スペース追加フォーム（管理者のみ）
	nameInput      textinput.Model
	capacityInput  textinput.Model
	spaceFormFocus int

	notice  string
	errText string
}

// NewModel は起動済みのオーケストレーターに接続したModelを生成する。
func NewModel(orch *orchestrator.Orchestrator) Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.CharLimit = 128

	date := textinput.New()
	date.Placeholder = "YYYY-MM-DD"
	date.CharLimit = 10

	name := textinput.New()
	name.Placeholder = "スペース名"
	name.CharLimit = 100

	capacity := textinput.New()
	capacity.Placeholder = "定員"
	capacity.CharLimit = 4

	return Model{
		orch:          orch,
		snap:          orch.Snapshot(),
		emailInput:    email,
		passwordInput: password,
		dateInput:     date,
		nameInput:     name,
		capacityInput: capacity,
	}
}

// Init はtea.Modelを実装する。状態変更通知の受信を開始する。
func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForUpdates(m.orch.Updates()), textinput.Blink)
}

// Update はtea.Modelを実装する。
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case updateMsg:
		m.snap = m.orch.Snapshot()
		m.clampCursor()
		return m, listenForUpdates(m.orch.Updates())

	case opResultMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.errText = ""
			m.notice = msg.notice
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.orch.Close()
			return m, tea.Quit
		}
		switch m.snap.Phase {
		case orchestrator.PhaseLoggedOut:
			return m.updateLogin(msg)
		case orchestrator.PhaseLoggedIn:
			return m.updateMain(msg)
		}
	}
	return m, nil
}

// updateLogin はログイン画面のキー入力を処理する。
func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.emailInput.Focus()
			m.passwordInput.Blur()
		} else {
			m.emailInput.Blur()
			m.passwordInput.Focus()
		}
		return m, nil

	case tea.KeyEnter:
		email := strings.TrimSpace(m.emailInput.Value())
		password := m.passwordInput.Value()
		if email == "" || password == "" {
			m.errText = "メールアドレスとパスワードを入力してください"
			return m, nil
		}
		m.errText = ""
		orch := m.orch
		if m.signupMode {
			return m, func() tea.Msg {
				if err := orch.SignUp(context.Background(), email, password); err != nil {
					return opResultMsg{err: err}
				}
				return opResultMsg{notice: "確認メールを送信しました。検証後にログインしてください"}
			}
		}
		return m, func() tea.Msg {
			if err := orch.SignIn(context.Background(), email, password); err != nil {
				return opResultMsg{err: err}
			}
			return opResultMsg{notice: "ログインしました"}
		}

	case tea.KeyCtrlS:
		m.signupMode = !m.signupMode
		m.notice = ""
		m.errText = ""
		return m, nil
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

// updateMain はメイン画面のキー入力を処理する。
func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.activeForm == formDate {
		return m.updateDateForm(msg)
	}
	if m.activeForm == formAddSpace {
		return m.updateSpaceForm(msg)
	}

	switch msg.String() {
	case "q":
		m.orch.Close()
		return m, tea.Quit

	case "tab":
		if m.activePane == paneSpaces {
			m.activePane = paneReservations
		} else {
			m.activePane = paneSpaces
		}
		m.cursor = 0
		return m, nil

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.activeLen()-1 {
			m.cursor++
		}
		return m, nil

	case "d":
		m.activeForm = formDate
		m.dateInput.SetValue(m.snap.SelectedDate.String())
		m.dateInput.Focus()
		return m, nil

	case "a":
		// 管理者のみスペースを追加できる
		if !m.snap.Admin {
			return m, nil
		}
		m.activeForm = formAddSpace
		m.spaceFormFocus = 0
		m.nameInput.SetValue("")
		m.capacityInput.SetValue("")
		m.nameInput.Focus()
		m.capacityInput.Blur()
		return m, nil

	case "g":
		orch := m.orch
		return m, func() tea.Msg {
			orch.RefreshSpaces(context.Background())
			orch.RefreshReservations(context.Background())
			return nil
		}

	case "o":
		orch := m.orch
		return m, func() tea.Msg {
			if err := orch.SignOut(context.Background()); err != nil {
				return opResultMsg{err: err}
			}
			return opResultMsg{notice: "ログアウトしました"}
		}

	case "enter", "r":
		if m.activePane != paneSpaces {
			return m, nil
		}
		spaces := m.snap.Spaces.Items
		if m.cursor >= len(spaces) {
			return m, nil
		}
		spaceID := spaces[m.cursor].ID
		orch := m.orch
		return m, func() tea.Msg {
			if err := orch.Reserve(context.Background(), spaceID); err != nil {
				return opResultMsg{err: err}
			}
			return opResultMsg{notice: "予約を作成しました"}
		}
	}
	return m, nil
}

// updateDateForm は日付入力フォームのキー入力を処理する。
func (m Model) updateDateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.activeForm = formNone
		m.dateInput.Blur()
		return m, nil

	case tea.KeyEnter:
		d, err := model.ParseDate(strings.TrimSpace(m.dateInput.Value()))
		if err != nil {
			m.errText = "日付はYYYY-MM-DD形式で入力してください"
			return m, nil
		}
		m.errText = ""
		m.activeForm = formNone
		m.dateInput.Blur()
		m.orch.SelectDate(d)
		return m, nil
	}

	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}

// updateSpaceForm はスペース追加フォームのキー入力を処理する。
func (m Model) updateSpaceForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.activeForm = formNone
		m.nameInput.Blur()
		m.capacityInput.Blur()
		return m, nil

	case tea.KeyTab, tea.KeyShiftTab:
		m.spaceFormFocus = 1 - m.spaceFormFocus
		if m.spaceFormFocus == 0 {
			m.nameInput.Focus()
			m.capacityInput.Blur()
		} else {
			m.nameInput.Blur()
			m.capacityInput.Focus()
		}
		return m, nil

	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		capacity, err := strconv.Atoi(strings.TrimSpace(m.capacityInput.Value()))
		if err != nil {
			m.errText = "定員は数値で入力してください"
			return m, nil
		}
		m.errText = ""
		m.activeForm = formNone
		m.nameInput.Blur()
		m.capacityInput.Blur()
		orch := m.orch
		return m, func() tea.Msg {
			if err := orch.AddSpace(context.Background(), name, capacity); err != nil {
				return opResultMsg{err: err}
			}
			return opResultMsg{notice: "スペースを登録しました"}
		}
	}

	var cmd tea.Cmd
	if m.spaceFormFocus == 0 {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.capacityInput, cmd = m.capacityInput.Update(msg)
	}
	return m, cmd
}

// View はtea.Modelを実装する。
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("RezerveMe"))
	if m.snap.Phase == orchestrator.PhaseLoggedIn && m.snap.Identity != nil {
		b.WriteString("  " + dimStyle.Render(m.snap.Identity.Key))
		if m.snap.Admin {
			b.WriteString("  " + adminBadgeStyle.Render("admin"))
		}
	}
	b.WriteString("\n\n")

	switch m.snap.Phase {
	case orchestrator.PhaseBootstrapping:
		b.WriteString(dimStyle.Render("セッションを確認しています..."))
	case orchestrator.PhaseLoggedOut:
		b.WriteString(m.viewLogin())
	case orchestrator.PhaseLoggedIn:
		b.WriteString(m.viewMain())
	}

	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	} else if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	return b.String()
}

func (m Model) viewLogin() string {
	var b strings.Builder
	if m.signupMode {
		b.WriteString(sectionStyle.Render("新規登録") + "\n\n")
	} else {
		b.WriteString(sectionStyle.Render("ログイン") + "\n\n")
	}
	b.WriteString(m.emailInput.View() + "\n")
	b.WriteString(m.passwordInput.View() + "\n\n")
	b.WriteString(helpStyle.Render("enter: 送信  tab: 移動  ctrl+s: ログイン/登録切替  ctrl+c: 終了"))
	return b.String()
}

func (m Model) viewMain() string {
	if m.activeForm == formDate {
		return sectionStyle.Render("予約日") + "\n\n" +
			m.dateInput.View() + "\n\n" +
			helpStyle.Render("enter: 確定  esc: キャンセル")
	}
	if m.activeForm == formAddSpace {
		return sectionStyle.Render("スペース追加") + "\n\n" +
			m.nameInput.View() + "\n" +
			m.capacityInput.View() + "\n\n" +
			helpStyle.Render("enter: 登録  tab: 移動  esc: キャンセル")
	}

	left := m.viewSpaces()
	right := m.viewReservations()
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)

	help := "r: 予約  d: 日付(" + m.snap.SelectedDate.String() + ")  tab: 切替  g: 再取得  o: ログアウト  q: 終了"
	if m.snap.Admin {
		help = "a: スペース追加  " + help
	}
	return body + "\n\n" + helpStyle.Render(help)
}

func (m Model) viewSpaces() string {
	var b strings.Builder
	title := "スペース"
	if m.activePane == paneSpaces {
		title = "▸ " + title
	}
	b.WriteString(sectionStyle.Render(title) + "\n")
	b.WriteString(m.renderCollectionStatus(m.snap.Spaces.Status, m.snap.Spaces.LastError, len(m.snap.Spaces.Items)))

	for i, space := range m.snap.Spaces.Items {
		line := fmt.Sprintf("%s (定員 %d)", space.Name, space.Capacity)
		if m.snap.ReserveBusy && m.activePane == paneSpaces && i == m.cursor {
			line += " …"
		}
		if m.activePane == paneSpaces && i == m.cursor {
			b.WriteString(selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func (m Model) viewReservations() string {
	var b strings.Builder
	title := "予約"
	if m.activePane == paneReservations {
		title = "▸ " + title
	}
	b.WriteString(sectionStyle.Render(title) + "\n")
	b.WriteString(m.renderCollectionStatus(m.snap.Reservations.Status, m.snap.Reservations.LastError, len(m.snap.Reservations.Items)))

	for i, reservation := range m.snap.Reservations.Items {
		line := fmt.Sprintf("%s  %s", reservation.ReservationDate, m.spaceLabel(reservation.SpaceID))
		if m.activePane == paneReservations && i == m.cursor {
			b.WriteString(selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// renderCollectionStatus はコレクションの取得状態を1行で描画する。
// 一覧が空でない場合のReadyは何も表示しない。
func (m Model) renderCollectionStatus(status collection.Status, lastError error, count int) string {
	switch status {
	case collection.StatusIdle:
		return dimStyle.Render("-") + "\n"
	case collection.StatusLoading:
		return dimStyle.Render("読み込み中...") + "\n"
	case collection.StatusFailed:
		msg := "取得に失敗しました"
		if lastError != nil {
			msg = lastError.Error()
		}
		return errorStyle.Render(msg) + "\n"
	default:
		if count == 0 {
			return dimStyle.Render("(なし)") + "\n"
		}
		return ""
	}
}

// spaceLabel はスペースIDを表示名に解決する。一覧に存在しないIDは
// そのまま数値で表示する。
func (m Model) spaceLabel(spaceID int64) string {
	for _, space := range m.snap.Spaces.Items {
		if space.ID == spaceID {
			return space.Name
		}
	}
	return fmt.Sprintf("ID: %d", spaceID)
}

func (m Model) activeLen() int {
	if m.activePane == paneSpaces {
		return len(m.snap.Spaces.Items)
	}
	return len(m.snap.Reservations.Items)
}

func (m *Model) clampCursor() {
	if n := m.activeLen(); m.cursor >= n {
		if n == 0 {
			m.cursor = 0
		} else {
			m.cursor = n - 1
		}
	}
}
