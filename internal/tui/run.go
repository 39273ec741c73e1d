package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"letmeask/internal/auth"
	"letmeask/internal/roomview"
)

// Dependencies 是執行房間頁面所需的元件
type Dependencies struct {
	DB        roomview.Database
	Provider  *auth.Provider
	RoomID    string
	Clipboard roomview.Clipboard
	Logger    *slog.Logger

	Input  io.Reader
	Output io.Writer
}

// IsTTY 判斷檔案是否為終端機
func IsTTY(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Run 訂閱房間並執行互動介面，直到用戶離開或 ctx 結束
func Run(ctx context.Context, deps Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ev := make(events, 64)
	n := notifier{events: ev}

	view := roomview.New(deps.DB, deps.Provider, n, deps.RoomID,
		roomview.WithLogger(logger),
		roomview.WithChangeHandler(func() { ev.send(roomChangedMsg{}) }),
		roomview.WithDropHandler(func() { ev.send(roomDroppedMsg{}) }),
	)
	if err := view.Mount(ctx); err != nil {
		return err
	}
	defer view.Unmount()

	stop := deps.Provider.OnChange(sessionListener(ev))
	defer stop()

	code := roomview.NewRoomCode(deps.RoomID, deps.Clipboard, n)
	model := newModel(ctx, view, code, deps.Provider, ev)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if deps.Input != nil {
		opts = append(opts, tea.WithInput(deps.Input))
	}
	if deps.Output != nil {
		opts = append(opts, tea.WithOutput(deps.Output))
	}
	if out, ok := deps.Output.(*os.File); (ok && IsTTY(out)) || (deps.Output == nil && IsTTY(os.Stdout)) {
		opts = append(opts, tea.WithAltScreen())
	}

	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("run room view: %w", err)
	}
	return nil
}
