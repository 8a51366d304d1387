package chatcmder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/tabula/cmd/tabula/bootstrap"
	"github.com/papercomputeco/tabula/pkg/agent"
)

const chatLongDesc string = `Chat with the agent in the terminal.

Each line you type is one turn. Replies are rendered as markdown when
the output is a terminal. Type "exit" or press Ctrl-D to quit.

Examples:
  tabula chat
  tabula chat -m "how many rows in Checklist"
  tabula chat --session ops-review`

const chatShortDesc string = "Chat with the agent"

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

type chatCommander struct {
	message string
	session string
	plain   bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.message, "message", "m", "", "Send one message, print the reply and exit")
	cmd.Flags().StringVarP(&cmder.session, "session", "s", "", "Session id (default: a new session)")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print replies without markdown rendering")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	cfg, err := bootstrap.LoadConfig(cmd)
	if err != nil {
		return err
	}
	logger := bootstrap.NewStderrLogger(cfg)
	defer logger.Sync()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := app.BuildAgent(); err != nil {
		return err
	}
	defer app.Close()

	session := c.session
	if session == "" {
		session = app.Agent.Sessions().Create().ID
	}

	out := cmd.OutOrStdout()
	r := newRenderer(out, c.plain)

	if c.message != "" {
		return c.turn(cmd, app.Agent, session, c.message, r)
	}

	title := fmt.Sprintf("%s - session %s", cfg.Persona.Name, session)
	fmt.Fprintln(out, titleStyle.Render(title))
	fmt.Fprintln(out, strings.Repeat("─", ansi.StringWidth(title)))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := c.turn(cmd, app.Agent, session, line, r); err != nil {
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
		}
	}
}

func (c *chatCommander) turn(cmd *cobra.Command, a *agent.Agent, session, message string, r *renderer) error {
	reply, err := a.Chat(cmd.Context(), session, message)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), r.render(reply.Content))
	return nil
}

// renderer turns markdown replies into terminal output. It degrades to the
// raw text when the output is not a terminal or rendering fails.
type renderer struct {
	md *glamour.TermRenderer
}

func newRenderer(w io.Writer, plain bool) *renderer {
	f, ok := w.(*os.File)
	if plain || !ok || !term.IsTerminal(int(f.Fd())) {
		return &renderer{}
	}

	width := 80
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && w < width {
		width = w
	}

	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return &renderer{}
	}
	return &renderer{md: md}
}

func (r *renderer) render(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

