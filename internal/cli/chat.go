package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/vroomie/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const welcomeMessage = "Hi there! Just tell me the name of any vehicle and I'll give you all the juicy details."

// Theme holds the color scheme for the chat display.
type Theme struct {
	User   lipgloss.Color
	Bot    lipgloss.Color
	Status lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:   lipgloss.Color("#5FAFD7"), // light blue
	Bot:    lipgloss.Color("#00D787"), // green
	Status: lipgloss.Color("#6C6C6C"), // dim gray
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) botStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Bot).Bold(true)
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status).Italic(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat with conversation history.

The session runs over the server's realtime channel. Lost connections are
retried with exponential backoff; while no channel is available, messages
fall back to the one-shot endpoint (without history).`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("chat requires an interactive terminal, use 'vroomie ask' instead")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// One pending update at most: the TUI redraws from the full snapshot,
	// so coalescing lost signals is fine.
	updates := make(chan struct{}, 1)
	mgr := client.New(
		client.Config{ServerURL: cfg.ServerURL},
		logger,
		client.WithOnUpdate(func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		}),
	)
	defer mgr.Close()

	mgr.Log().AppendBot(welcomeMessage)

	model := newChatModel(mgr, updates)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}

// updateMsg signals that the connection manager changed state or chat log.
type updateMsg struct{}

// chatModel is the bubbletea model for the chat session.
type chatModel struct {
	mgr     *client.Manager
	updates chan struct{}
	input   textinput.Model
	theme   Theme
	width   int
}

func newChatModel(mgr *client.Manager, updates chan struct{}) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about any vehicle..."
	ti.Focus()

	return chatModel{
		mgr:     mgr,
		updates: updates,
		input:   ti,
		theme:   defaultTheme,
		width:   80,
	}
}

// Init connects in the background and starts listening for updates.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			m.mgr.Connect()
			return nil
		},
		m.waitForUpdate(),
	)
}

// waitForUpdate blocks on the manager's update channel.
func (m chatModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		<-m.updates
		return updateMsg{}
	}
}

// sendCmd delivers one query off the UI goroutine.
func (m chatModel) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		m.mgr.Send(context.Background(), content)
		return nil
	}
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.mgr.Close()
			return m, tea.Quit
		case "enter":
			content := strings.TrimSpace(m.input.Value())
			if content == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m, m.sendCmd(content)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case updateMsg:
		return m, m.waitForUpdate()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the transcript, connection status, and input line.
func (m chatModel) View() tea.View {
	var b strings.Builder

	for _, msg := range m.mgr.Log().Messages() {
		switch msg.Type {
		case client.MessageUser:
			b.WriteString(m.theme.userStyle().Render("You: "))
		default:
			b.WriteString(m.theme.botStyle().Render("Vroomie: "))
		}
		b.WriteString(strings.TrimRight(msg.Content, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.hintStyle().Render("Enter to send, Esc to quit"))
	b.WriteString("\n")

	return tea.NewView(b.String())
}

func (m chatModel) statusLine() string {
	status := m.mgr.Status()
	label := fmt.Sprintf("[%s]", status)
	if status == client.StatusFailed {
		return m.theme.errorStyle().Render(label)
	}
	return m.theme.statusStyle().Render(label)
}
