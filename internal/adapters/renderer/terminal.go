// Package renderer provides display adapters for conversation events.
package renderer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
)

// Palette
var (
	ColorUser   = lipgloss.Color("#20B9B4")
	ColorBot    = lipgloss.Color("#F4D03F")
	ColorNotice = lipgloss.Color("#2C4A54")
	ColorError  = lipgloss.Color("#E74C3C")
)

// Terminal writes events as role-prefixed lines.
// Colors are dropped automatically when w is not a terminal.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer

	user   lipgloss.Style
	bot    lipgloss.Style
	notice lipgloss.Style
	errs   lipgloss.Style
}

// NewTerminal creates a renderer writing to w.
func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		out:    w,
		user:   r.NewStyle().Bold(true).Foreground(ColorUser),
		bot:    r.NewStyle().Bold(true).Foreground(ColorBot),
		notice: r.NewStyle().Italic(true).Foreground(ColorNotice),
		errs:   r.NewStyle().Bold(true).Foreground(ColorError),
	}
}

// Render implements ports.Renderer.
func (t *Terminal) Render(ctx context.Context, event entities.DisplayEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var prefix string
	switch event.Role {
	case entities.RoleUser:
		prefix = t.user.Render("You:")
	case entities.RoleBot:
		prefix = t.bot.Render("Bot:")
	default:
		prefix = t.notice.Render(string(event.Role) + ":")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "%s %s\n", prefix, event.Text)
	return err
}

// Notice prints an out-of-band status line (reload, reset).
func (t *Terminal) Notice(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.notice.Render("· "+text))
}

// Error prints an error line.
func (t *Terminal) Error(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.errs.Render("error: "+err.Error()))
}
