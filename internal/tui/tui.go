// Package tui renders the interactive terminal client: a scrolling
// game log, a sidebar with the seats, and an input line for commands.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/game"
)

// Model represents the Bubble Tea model for the game client
type Model struct {
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	gameLog      []string
	actionResult chan ActionResult
	quitSignal   chan bool
	quitting     bool
	focusedPane  int // 0 = log, 1 = input

	// Display state (event-driven)
	roomCode string
	mySeatID string
	public   game.PublicState
	hand     []card.Card

	// Dimensions
	width       int
	height      int
	initialized bool

	// Test mode
	testMode    bool
	capturedLog []string
}

// ActionResult represents the result of a user command
type ActionResult struct {
	Action   string
	Args     []string
	Continue bool
	Error    error
}

// QuitMsg is a custom message to signal quit
type QuitMsg struct{}

// NewModel creates a new TUI model
func NewModel(logger *log.Logger) *Model {
	return NewModelWithOptions(logger, false)
}

// NewModelWithOptions creates a new TUI model with test mode option
func NewModelWithOptions(logger *log.Logger, testMode bool) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "play <n> [color], draw, one, catch <seat>, start, help"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &Model{
		logger:       logger.WithPrefix("tui"),
		logViewport:  vp,
		actionInput:  ti,
		gameLog:      []string{},
		actionResult: make(chan ActionResult, 1),
		quitSignal:   make(chan bool, 1),
		focusedPane:  1, // Start with input focused
		testMode:     testMode,
		capturedLog:  []string{},
	}
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listenForQuit())
}

// listenForQuit returns a command that listens for quit signals
func (m *Model) listenForQuit() tea.Cmd {
	return func() tea.Msg {
		<-m.quitSignal
		return QuitMsg{}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case QuitMsg:
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.actionResult <- ActionResult{Action: "quit", Continue: false}
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				action := strings.TrimSpace(m.actionInput.Value())
				m.processAction(action)
				m.actionInput.SetValue("")
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd

	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Action pane (bottom, full width)
	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	calculatedActionWidth := max(m.width-2, 1)
	calculatedActionHeight := max(actionHeight-2, 1)

	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(calculatedActionWidth).
		Height(calculatedActionHeight)
	actionPane := actionStyle.Render(actionContent)

	// Sidebar pane (right side of log pane)
	sidebarContent := m.renderSidebarPane()
	calculatedSidebarWidth := max(28, lipgloss.Width(sidebarContent))
	calculatedSidebarHeight := max(m.height-actionHeight-4, 1)

	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedSidebarWidth).
		Height(calculatedSidebarHeight)
	sidebarPane := sidebarStyle.Render(sidebarContent)

	// Log pane (top, fills remaining space)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	calculatedLogWidth := max(m.width-calculatedSidebarWidth-4, 1)
	calculatedLogHeight := max(m.height-actionHeight-4, 1)
	m.logViewport.Width = calculatedLogWidth
	m.logViewport.Height = calculatedLogHeight

	if !m.initialized && calculatedLogWidth > 1 && calculatedLogHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(calculatedLogWidth).
		Height(calculatedLogHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderSidebarPane creates the sidebar content
func (m *Model) renderSidebarPane() string {
	var content strings.Builder

	if m.roomCode == "" {
		content.WriteString(InfoStyle.Render("Not in a room"))
		content.WriteString("\n\n")
		content.WriteString(InfoStyle.Render("create, join <code>, rooms"))
		return content.String()
	}

	content.WriteString(HeaderStyle.Render(fmt.Sprintf(" Room %s ", m.roomCode)))
	content.WriteString("\n")
	content.WriteString(InfoStyle.Render(m.public.Status.String()))
	content.WriteString("\n\n")

	if m.public.TopCard != nil {
		content.WriteString("Top: ")
		content.WriteString(styleFor(*m.public.TopCard).Render(m.public.TopCard.String()))
		content.WriteString("\n")
		if m.public.PendingDrawCount > 0 {
			content.WriteString(WarningStyle.Render(fmt.Sprintf("Pending draw: +%d", m.public.PendingDrawCount)))
			content.WriteString("\n")
		}
		content.WriteString(InfoStyle.Render(fmt.Sprintf("Deck: %d", m.public.DeckSize)))
		content.WriteString("\n\n")
	}

	for _, seat := range m.public.Seats {
		marker := "  "
		if seat.SeatID == m.public.CurrentSeatID {
			marker = "▶ "
		}
		name := seat.Nickname
		if seat.SeatID == m.public.LeaderSeatID {
			name += " ★"
		}
		if seat.SeatID == m.mySeatID {
			name += " (you)"
		}
		line := fmt.Sprintf("%s%s: %d cards, %d pts", marker, name, seat.HandSize, seat.Score)
		if seat.CalledOne {
			line += " ONE!"
		}
		if seat.SeatID == m.public.CurrentSeatID {
			content.WriteString(ActionsStyle.Render(line))
		} else {
			content.WriteString(line)
		}
		content.WriteString("\n")
	}

	return content.String()
}

// renderActionPane renders the hand and input line
func (m *Model) renderActionPane() string {
	var content strings.Builder

	if len(m.hand) > 0 {
		content.WriteString(HandInfoStyle.Render("Hand: "))
		content.WriteString(m.FormatHand())
		content.WriteString("\n")
	}

	isMyTurn := m.mySeatID != "" && m.public.CurrentSeatID == m.mySeatID &&
		m.public.Status == game.StatusPlaying
	if isMyTurn {
		content.WriteString(ActionsStyle.Render("Your turn"))
		content.WriteString("\n")
	}

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(InfoStyle.Render(
			"Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		content.WriteString(InfoStyle.Render(
			"Tab to scroll log • Enter to submit • 'help' for commands • Ctrl+C to quit"))
	}

	return content.String()
}

// FormatHand renders the hand as numbered, colored cards.
func (m *Model) FormatHand() string {
	parts := make([]string, 0, len(m.hand))
	for i, c := range m.hand {
		parts = append(parts, fmt.Sprintf("[%d]%s", i+1, styleFor(c).Render(c.String())))
	}
	return strings.Join(parts, " ")
}

// FormatCard renders one card with its color style.
func (m *Model) FormatCard(c card.Card) string {
	return styleFor(c).Render(c.String())
}

// AddLogEntry adds an entry to the game log
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)

	if m.testMode {
		m.capturedLog = append(m.capturedLog, entry)
		return // Skip UI updates in test mode
	}

	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// SetPublic updates the tracked room state shown in the sidebar.
func (m *Model) SetPublic(state game.PublicState, roomCode, mySeatID string) {
	m.public = state
	m.roomCode = roomCode
	m.mySeatID = mySeatID
}

// SetHand updates the rendered hand.
func (m *Model) SetHand(hand []card.Card) {
	m.hand = hand
}

// Hand returns the currently displayed hand.
func (m *Model) Hand() []card.Card {
	return m.hand
}

// ClearLog clears the game log
func (m *Model) ClearLog() {
	m.gameLog = []string{}
	m.logViewport.SetContent("")
}

// processAction parses a command line into an ActionResult
func (m *Model) processAction(input string) {
	parts := strings.Fields(strings.ToLower(input))

	var action string
	var args []string
	if len(parts) > 0 {
		action = parts[0]
		args = parts[1:]
	}

	m.actionResult <- ActionResult{
		Action:   action,
		Args:     args,
		Continue: true,
	}
}

// WaitForAction waits for user input (for use by the command loop)
func (m *Model) WaitForAction() (string, []string, bool, error) {
	result := <-m.actionResult
	return result.Action, result.Args, result.Continue, result.Error
}

// SendQuitSignal signals the TUI to quit gracefully
func (m *Model) SendQuitSignal() {
	select {
	case m.quitSignal <- true:
	default:
		// Quit signal already sent
	}
}

// GetCapturedLog returns the captured log entries (test mode only)
func (m *Model) GetCapturedLog() []string {
	if !m.testMode {
		return nil
	}
	result := make([]string, len(m.capturedLog))
	copy(result, m.capturedLog)
	return result
}

// InjectAction programmatically injects a command (test mode only)
func (m *Model) InjectAction(action string, args []string) error {
	if !m.testMode {
		return fmt.Errorf("action injection only available in test mode")
	}

	select {
	case m.actionResult <- ActionResult{Action: action, Args: args, Continue: true}:
		return nil
	default:
		return fmt.Errorf("action channel full")
	}
}

// IsTestMode returns whether the TUI is in test mode
func (m *Model) IsTestMode() bool {
	return m.testMode
}
