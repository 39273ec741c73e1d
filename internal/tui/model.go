// Package tui 以 bubbletea 呈現房間頁面
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"letmeask/internal/auth"
	"letmeask/internal/roomview"
)

const (
	toastDuration    = 3 * time.Second
	resubscribeDelay = 2 * time.Second
)

// Authenticator 是登入與登出的動作，*auth.Provider 實作這個介面
type Authenticator interface {
	SignInWithGoogleProvider(ctx context.Context) error
	SignOut(ctx context.Context) error
}

type (
	roomChangedMsg    struct{}
	roomDroppedMsg    struct{}
	resubscribeMsg    struct{}
	mountedMsg        struct{ err error }
	sessionChangedMsg struct{}
	sendResultMsg     struct{ err error }
	authResultMsg     struct{ err error }
	toastMsg          struct {
		text    string
		isError bool
	}
	toastExpiredMsg struct{ id int }
)

type toast struct {
	id      int
	text    string
	isError bool
}

// events 把背景 goroutine 的通知送回 bubbletea 的事件迴圈
type events chan tea.Msg

func (e events) send(msg tea.Msg) {
	select {
	case e <- msg:
	default:
	}
}

func (e events) listen() tea.Cmd {
	return func() tea.Msg {
		return <-e
	}
}

// notifier 將 roomview 的通知轉成 toast
type notifier struct {
	events events
}

func (n notifier) Success(message string) {
	n.events.send(toastMsg{text: message})
}

func (n notifier) Error(message string) {
	n.events.send(toastMsg{text: message, isError: true})
}

// Model 是房間頁面的 bubbletea 模型
type Model struct {
	ctx    context.Context
	view   *roomview.View
	code   *roomview.RoomCode
	auth   Authenticator
	events events

	input       textarea.Model
	toasts      []toast
	nextToastID int
	width       int
}

func newModel(ctx context.Context, view *roomview.View, code *roomview.RoomCode, authenticator Authenticator, ev events) Model {
	input := textarea.New()
	input.Placeholder = "What do you want to ask?"
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.SetWidth(60)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	return Model{
		ctx:    ctx,
		view:   view,
		code:   code,
		auth:   authenticator,
		events: ev,
		input:  input,
		width:  80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.events.listen(), textarea.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(max(20, min(msg.Width-4, 100)))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case roomChangedMsg, sessionChangedMsg:
		return m, m.events.listen()

	case toastMsg:
		return m.addToast(msg.text, msg.isError), tea.Batch(m.events.listen(), m.expireToast())

	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case roomDroppedMsg:
		m = m.addToast("Connection lost, reconnecting", true)
		return m, tea.Batch(m.events.listen(), m.expireToast(), tea.Tick(resubscribeDelay, func(time.Time) tea.Msg {
			return resubscribeMsg{}
		}))

	case resubscribeMsg:
		view, ctx := m.view, m.ctx
		return m, func() tea.Msg {
			return mountedMsg{err: view.Mount(ctx)}
		}

	case mountedMsg:
		if msg.err != nil {
			return m, tea.Tick(resubscribeDelay, func(time.Time) tea.Msg {
				return resubscribeMsg{}
			})
		}
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m = m.addToast("Failed to send question: "+msg.err.Error(), true)
			return m, m.expireToast()
		}
		return m, nil

	case authResultMsg:
		if msg.err != nil {
			m = m.addToast("Authentication failed: "+msg.err.Error(), true)
			return m, m.expireToast()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.view.Unmount()
		return m, tea.Quit

	case "enter":
		return m.submit()

	case "ctrl+j":
		m.input.InsertString("\n")
		m.view.SetNewQuestion(m.input.Value())
		return m, nil

	case "ctrl+y":
		m.code.CopyRoomCodeToClipboard()
		return m, nil

	case "ctrl+l":
		ctx, authenticator := m.ctx, m.auth
		if m.view.State() == roomview.Authenticated {
			return m, func() tea.Msg {
				return authResultMsg{err: authenticator.SignOut(ctx)}
			}
		}
		return m, func() tea.Msg {
			return authResultMsg{err: authenticator.SignInWithGoogleProvider(ctx)}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.view.SetNewQuestion(m.input.Value())
	return m, cmd
}

// submit 對應表單送出：按鍵由這裡處理，不會變成輸入框中的換行
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.view.SetNewQuestion(m.input.Value())

	result, err := m.view.HandleSendNewQuestion(m.ctx)
	switch {
	case errors.Is(err, roomview.ErrEmptyQuestion), errors.Is(err, roomview.ErrNotSignedIn):
		return m, nil
	case err != nil:
		m = m.addToast(err.Error(), true)
		return m, m.expireToast()
	}

	m.input.Reset()
	return m, func() tea.Msg {
		return sendResultMsg{err: <-result}
	}
}

func (m Model) addToast(text string, isError bool) Model {
	m.nextToastID++
	m.toasts = append(m.toasts, toast{id: m.nextToastID, text: text, isError: isError})
	return m
}

func (m Model) expireToast() tea.Cmd {
	id := m.nextToastID
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (m Model) View() string {
	var b strings.Builder

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("Room "+m.view.Title()),
		"  ",
		codeStyle.Render("#"+m.code.Code),
	)
	questions := m.view.Questions()
	if n := len(questions); n > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", countStyle.Render(fmt.Sprintf("%d question(s)", n)))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if session, ok := m.view.Session(); ok {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			nameStyle.Render(session.Name),
			authorStyle.Render(" ("+session.Avatar+")"),
			"   ",
			buttonStyle.Render("Send question"),
		))
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			hintStyle.Render("To send a question, "),
			linkStyle.Render("log in (ctrl+l)"),
			"   ",
			disabledButtonStyle.Render("Send question"),
		))
	}
	b.WriteString("\n\n")

	cardWidth := max(20, min(m.width-2, 100))
	for _, q := range questions {
		b.WriteString(renderQuestion(q, cardWidth))
		b.WriteString("\n")
	}

	for _, t := range m.toasts {
		if t.isError {
			b.WriteString(errorToastStyle.Render(t.text))
		} else {
			b.WriteString(successToastStyle.Render(t.text))
		}
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("enter send • ctrl+j newline • ctrl+y copy code • ctrl+l log in/out • ctrl+c quit"))
	return b.String()
}

func renderQuestion(q roomview.Question, width int) string {
	style := cardStyle
	switch {
	case q.IsAnswered:
		style = answeredCardStyle
	case q.IsHighlighted:
		style = highlightedCardStyle
	}

	footer := authorStyle.Render(q.Author.Name)
	if q.IsAnswered {
		footer += hintStyle.Render("  ✓ answered")
	}
	return style.Width(width).Render(q.Content + "\n" + footer)
}

// sessionListener 讓工作階段變更觸發重繪
func sessionListener(ev events) func(auth.Session, bool) {
	return func(auth.Session, bool) {
		ev.send(sessionChangedMsg{})
	}
}
