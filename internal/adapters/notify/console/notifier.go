package console

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

var (
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

// Notifier prints user-facing session notices. Writes are serialised since
// sessions report from their own goroutines.
type Notifier struct {
	out    io.Writer
	logger *slog.Logger
	mu     sync.Mutex
}

var _ ports.Notifier = (*Notifier)(nil)

func New(out io.Writer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{out: out, logger: logger}
}

func (n *Notifier) SignedOut(id domain.AccountID) {
	n.logger.Info("account signed out", "account_id", string(id))
	n.println(noticeStyle.Render(fmt.Sprintf("Signed out of %s: the server rejected the saved session. Run chatctl login to sign in again.", id)))
}

func (n *Notifier) Error(id domain.AccountID, err error) {
	n.logger.Warn("session error", "account_id", string(id), "error", err)
	n.println(errorStyle.Render(fmt.Sprintf("%s: %v", id, err)))
}

func (n *Notifier) AccountDisabled(email string) {
	n.logger.Info("account disabled", "email", email)
	n.println(errorStyle.Render(fmt.Sprintf("The account %s is disabled. Contact the server administrator to restore it.", email)))
}

func (n *Notifier) println(line string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	_, _ = fmt.Fprintln(n.out, line)
}
