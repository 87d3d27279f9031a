package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/bnema/chatctl/internal/adapters/cache"
	statusadapter "github.com/bnema/chatctl/internal/adapters/render/status"
	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/domain"
)

const whoamiKey = "whoami"

var consoleCommands = []string{"help", "status", "list", "switch", "logout", "retry", "whoami", "reload", "quit"}

const consoleHelp = `Commands:
  status            show every session
  list              list sessions, * marks the active one
  switch <id>       make <id> the active account
  logout [id]       end the session of <id> or the active account
  retry <id>        log <id> in again after a failed resume
  whoami            show the user behind the active connection
  reload            pick up accounts added or removed elsewhere
  quit              leave the console`

type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

func newLinerReader() lineReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(completeConsoleLine)
	return state
}

func completeConsoleLine(line string) []string {
	var matches []string
	for _, command := range consoleCommands {
		if strings.HasPrefix(command, strings.ToLower(line)) {
			matches = append(matches, command)
		}
	}
	return matches
}

type consoleSession struct {
	ctrl    *application.Controller
	profile *cache.Memory[string]
	render  func(application.Status, statusadapter.RenderOptions) (string, error)
	reader  lineReader
	out     io.Writer
}

func (c *consoleSession) run(ctx context.Context) error {
	for {
		line, err := c.reader.Prompt(c.prompt())
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.reader.AppendHistory(line)

		quit, err := c.execute(ctx, line)
		if err != nil {
			_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (c *consoleSession) prompt() string {
	if current := c.ctrl.Current(); current != "" {
		return string(current) + "> "
	}
	return "chatctl> "
}

func (c *consoleSession) execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "help", "?":
		c.println(consoleHelp)
	case "status":
		rendered, err := c.render(c.ctrl.Status(), statusadapter.RenderOptions{Verbose: true})
		if err != nil {
			return false, fmt.Errorf("render status: %w", err)
		}
		c.println(rendered)
	case "list", "ls":
		sessions := c.ctrl.Sessions()
		if len(sessions) == 0 {
			c.println("no sessions")
		}
		for _, s := range sessions {
			marker := " "
			if s.Active {
				marker = "*"
			}
			c.println(fmt.Sprintf("%s %s\t%s", marker, s.AccountID, s.State))
		}
	case "switch":
		id, err := accountArg(command, args)
		if err != nil {
			return false, err
		}
		if err := c.ctrl.SwitchAccount(ctx, id); err != nil {
			return false, err
		}
		c.println("Active account: " + string(id))
	case "logout":
		if len(args) == 0 {
			if !c.ctrl.LogoutCurrent(ctx) {
				return false, errors.New("no active session")
			}
			c.println("Logged out of the active session")
			return false, nil
		}
		id := domain.AccountID(args[0])
		if !c.ctrl.Logout(ctx, id) {
			return false, fmt.Errorf("logout %s: %w", id, domain.ErrAccountNotFound)
		}
		c.println("Logged out of " + string(id))
	case "retry":
		id, err := accountArg(command, args)
		if err != nil {
			return false, err
		}
		if err := c.ctrl.Retry(ctx, id); err != nil {
			return false, err
		}
		c.println("Reconnecting " + string(id))
	case "whoami":
		who, err := c.whoami(ctx)
		if err != nil {
			return false, err
		}
		c.println(who)
	case "reload":
		result, err := c.ctrl.Reconcile(ctx)
		if err != nil {
			return false, err
		}
		c.println(describeReconcile(result))
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, type help", command)
	}

	return false, nil
}

// whoami is cached per account; switching resets the cache.
func (c *consoleSession) whoami(ctx context.Context) (string, error) {
	return c.profile.Load(ctx, whoamiKey, func(context.Context) (string, error) {
		client := c.ctrl.ActiveClient()
		if client == nil {
			return "", errors.New("no active connection")
		}
		if named, ok := client.(interface{ Username() string }); ok && named.Username() != "" {
			return fmt.Sprintf("%s (%s)", named.Username(), client.UserID()), nil
		}
		return client.UserID(), nil
	})
}

func (c *consoleSession) println(line string) {
	_, _ = fmt.Fprintln(c.out, line)
}

func accountArg(command string, args []string) (domain.AccountID, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s <account-id>", command)
	}
	return domain.AccountID(args[0]), nil
}

func describeReconcile(result application.ReconcileResult) string {
	if result.Empty() {
		return "Accounts unchanged"
	}

	var parts []string
	if len(result.Added) > 0 {
		parts = append(parts, "added "+joinIDs(result.Added))
	}
	if len(result.Removed) > 0 {
		parts = append(parts, "removed "+joinIDs(result.Removed))
	}
	return "Accounts " + strings.Join(parts, ", ")
}

func joinIDs(ids []domain.AccountID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return strings.Join(names, ", ")
}
