package status

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/session"
)

type RenderOptions struct {
	// Verbose adds user ids and server feature flags.
	Verbose bool
}

func renderView(status application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Chat Sessions"),
		s.header.Render(fmt.Sprintf("accounts: %d  %s", len(status.Sessions), serverLine(status))),
	}

	if status.ConfigStatus == application.ConfigPending {
		lines = append(lines, s.warning.Render("server configuration unavailable, running degraded"))
	} else if opts.Verbose && status.Server != nil {
		if features := enabledFeatures(status.Server.Features); len(features) > 0 {
			lines = append(lines, s.header.Render("features: "+strings.Join(features, ", ")))
		}
	}

	if len(status.Sessions) == 0 {
		lines = append(lines, s.empty.Render("No accounts signed in."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range status.Sessions {
		lines = append(lines, s.section.Render(renderSession(entry, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(entry application.SessionStatus, opts RenderOptions, s styles) string {
	title := s.account.Render(accountTitle(entry))
	if entry.Active {
		title = s.active.Render("* ") + title + s.active.Render(" (active)")
	} else {
		title = "  " + title
	}

	parts := []string{
		title,
		"  " + s.detail.Render("state: ") + stateStyle(entry.State, s).Render(strings.ToLower(entry.State.String())),
	}
	if !entry.Ready && entry.State == session.StateReady {
		parts = append(parts, "  "+s.warning.Render("not connected, run retry to reconnect"))
	}
	if opts.Verbose && entry.UserID != "" {
		parts = append(parts, "  "+s.detail.Render("user: "+entry.UserID))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func serverLine(status application.Status) string {
	if status.ConfigStatus != application.ConfigReady || status.Server == nil {
		return "server: pending"
	}
	if status.Server.Version == "" {
		return "server: ready"
	}
	return "server: ready v" + strings.TrimPrefix(status.Server.Version, "v")
}

func accountTitle(entry application.SessionStatus) string {
	name := strings.TrimSpace(entry.Name)
	if name == "" || name == string(entry.AccountID) {
		return string(entry.AccountID)
	}
	return fmt.Sprintf("%s (%s)", name, entry.AccountID)
}

func stateStyle(state session.State, s styles) lipgloss.Style {
	switch state {
	case session.StateOnline:
		return s.online
	case session.StateConnecting:
		return s.pending
	case session.StateDisconnected, session.StateOffline:
		return s.offline
	default:
		return s.inactive
	}
}

func enabledFeatures(features map[string]bool) []string {
	var names []string
	for name, enabled := range features {
		if enabled {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
