package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Prompter asks for an MFA answer on the terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

var _ ports.MFAPrompter = Prompter{}

func (p Prompter) Prompt(ctx context.Context, challenge domain.MFAChallenge) (*domain.MFAResponse, error) {
	program := tea.NewProgram(
		newMFAModel(challenge),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
		tea.WithContext(ctx),
	)

	finalModel, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("run mfa prompt: %w", err)
	}

	result, ok := finalModel.(mfaModel)
	if !ok {
		return nil, fmt.Errorf("unexpected final prompt model type %T", finalModel)
	}
	if result.cancelled {
		return nil, nil
	}

	return result.response, nil
}

type mfaModel struct {
	challenge domain.MFAChallenge
	methods   []domain.MFAMethod
	cursor    int
	choosing  bool
	input     textinput.Model
	response  *domain.MFAResponse
	cancelled bool
	done      bool
}

func newMFAModel(challenge domain.MFAChallenge) mfaModel {
	methods := challenge.AllowedMethods
	if len(methods) == 0 {
		methods = []domain.MFAMethod{domain.MFAMethodTOTP}
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 128
	input.PromptStyle = cursorStyle

	m := mfaModel{
		challenge: challenge,
		methods:   methods,
		choosing:  len(methods) > 1,
		input:     input,
	}
	if !m.choosing {
		m.selectMethod()
	}

	return m
}

func (m mfaModel) Init() tea.Cmd {
	if m.choosing {
		return nil
	}
	return textinput.Blink
}

func (m mfaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.cancelled = true
		m.done = true
		return m, tea.Quit
	}

	if m.choosing {
		return m.updateChoice(key)
	}

	if key.Type == tea.KeyEnter {
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		m.response = responseFor(m.method(), value)
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m mfaModel) updateChoice(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.methods)-1 {
			m.cursor++
		}
	case "enter":
		m.choosing = false
		cmd := m.selectMethod()
		return m, cmd
	}

	return m, nil
}

func (m *mfaModel) selectMethod() tea.Cmd {
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	switch m.method() {
	case domain.MFAMethodPassword:
		m.input.Placeholder = "password"
		m.input.EchoMode = textinput.EchoPassword
	case domain.MFAMethodRecovery:
		m.input.Placeholder = "recovery code"
	default:
		m.input.Placeholder = "6-digit code"
		m.input.CharLimit = 6
	}

	return m.input.Focus()
}

func (m mfaModel) method() domain.MFAMethod {
	return m.methods[m.cursor]
}

func (m mfaModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Multi-factor authentication required"))
	b.WriteString("\n")
	if m.challenge.LastErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Attempt %d failed: %v", m.challenge.Attempt-1, m.challenge.LastErr)))
		b.WriteString("\n")
	}

	if m.choosing {
		for i, method := range m.methods {
			marker := "  "
			if i == m.cursor {
				marker = cursorStyle.Render("> ")
			}
			b.WriteString(marker + methodLabel(method) + "\n")
		}
		b.WriteString(hintStyle.Render("enter to choose, esc to cancel"))
		return b.String()
	}

	b.WriteString(methodLabel(m.method()) + "\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter to submit, esc to cancel"))
	return b.String()
}

func methodLabel(method domain.MFAMethod) string {
	switch method {
	case domain.MFAMethodPassword:
		return "Account password"
	case domain.MFAMethodRecovery:
		return "Recovery code"
	case domain.MFAMethodTOTP:
		return "Authenticator app code"
	default:
		return string(method)
	}
}

func responseFor(method domain.MFAMethod, value string) *domain.MFAResponse {
	switch method {
	case domain.MFAMethodPassword:
		return &domain.MFAResponse{Password: value}
	case domain.MFAMethodRecovery:
		return &domain.MFAResponse{RecoveryCode: value}
	default:
		return &domain.MFAResponse{TOTPCode: value}
	}
}
