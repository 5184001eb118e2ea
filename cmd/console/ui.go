package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/interrogation-engine/pkg/chat"
	"github.com/jwebster45206/interrogation-engine/pkg/interrogation"
	"github.com/jwebster45206/interrogation-engine/pkg/question"
	"github.com/jwebster45206/interrogation-engine/pkg/response"
)

const (
	DetectiveName   = "Detective"
	PlaceHolderText = "Ask your question here..."
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	orchestrator *interrogation.Orchestrator
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	// Question waiting on a reply. It is not part of the history until the
	// turn completes.
	pending string
	// Help text, rejections and errors shown below the active conversation.
	notes []string

	// Suspect selection state
	showSuspectModal bool
	selectedSuspect  int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type answerMsg struct {
	turn *interrogation.Turn
	err  error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	confessionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	emotionStyles = map[response.Emotion]lipgloss.Style{
		response.EmotionAngry:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		response.EmotionScared: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		response.EmotionNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	}

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(o *interrogation.Orchestrator) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = question.DefaultMaxLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		orchestrator:     o,
		textarea:         ta,
		chatViewport:     chatVp,
		metaViewport:     metaVp,
		showSuspectModal: true,
	}
}

func writeMetadata(o *interrogation.Orchestrator) string {
	kase := o.Case()
	stats := o.Stats()

	var content strings.Builder
	content.WriteString(titleStyle.Render("CASE FILE") + "\n\n")
	content.WriteString(kase.Title + "\n")
	content.WriteString("Victim: " + kase.Victim + "\n\n")

	content.WriteString("Suspects:\n")
	for _, c := range kase.Characters {
		marker := "  "
		if c.ID == stats.ActiveCharacter {
			marker = "▶ "
		}
		line := marker + c.Name
		if o.Ended(c.ID) {
			line += " (confessed)"
		}
		content.WriteString(line + "\n")
	}
	content.WriteString("\n")

	content.WriteString("State:\n")
	content.WriteString(string(stats.State) + "\n\n")

	content.WriteString("Questions:\n")
	content.WriteString(fmt.Sprintf("%d asked\n\n", stats.TotalQuestions))

	content.WriteString("Time:\n")
	content.WriteString(stats.Duration.Round(time.Second).String() + "\n\n")

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Ask\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /suspects: Switch\n")
	content.WriteString("• /samples: Ideas\n")
	content.WriteString("• /copy: Transcript\n")

	return content.String()
}

// writeChatContent rebuilds the conversation with the active suspect for the
// current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("INTERROGATION ROOM") + "\n\n")

	active := m.orchestrator.ActiveCharacter()
	if active == nil {
		content.WriteString("Choose a suspect to begin.\n\n")
	} else {
		content.WriteString(fmt.Sprintf("%s, %s. %s of %s.\n\n",
			active.Name, active.Background.Occupation, active.Background.Relationship, m.orchestrator.Case().Victim))
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	if active != nil {
		for _, msg := range m.orchestrator.History(active.ID) {
			content.WriteString(formatMessage(msg, active.Name, chatWidth) + "\n\n")
		}
		if m.pending != "" {
			content.WriteString(formatMessage(chat.Message{Type: chat.MessageTypeUser, Content: m.pending}, active.Name, chatWidth) + "\n\n")
		}
		if m.orchestrator.Ended(active.ID) {
			content.WriteString(confessionStyle.Render(active.Name+" has confessed. Case closed.") + "\n\n")
		}
	}

	for _, note := range m.notes {
		content.WriteString(note + "\n\n")
	}

	// If currently loading, add the progress bar
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatMessage(msg chat.Message, characterName string, width int) string {
	if msg.Type == chat.MessageTypeUser {
		prefix := DetectiveName + ": "
		return userStyle.Render(prefix) + wordwrap.String(msg.Content, width-len(prefix))
	}
	prefix := characterName + ": "
	return speakerStyle.Render(prefix) + wordwrap.String(msg.Content, width-len(prefix))
}

// noteText renders an Ask failure for the chat panel.
func noteText(err error) string {
	var verr *interrogation.ValidationError
	if errors.As(err, &verr) && verr.Question != nil {
		return errorStyle.Render(question.Format(*verr.Question))
	}
	var cerr *interrogation.CompletionError
	if errors.As(err, &cerr) && cerr.Timeout() {
		return errorStyle.Render("The suspect took too long to answer. Try again.")
	}
	return errorStyle.Render("Error: " + err.Error())
}

// transcript renders every conversation of the session as plain text.
func transcript(o *interrogation.Orchestrator) string {
	kase := o.Case()
	var sb strings.Builder
	sb.WriteString(kase.Title + "\n")
	sb.WriteString("Victim: " + kase.Victim + "\n")

	for _, c := range kase.Characters {
		history := o.History(c.ID)
		if len(history) == 0 {
			continue
		}
		sb.WriteString("\n== " + c.Name + " ==\n")
		for _, msg := range history {
			speaker := DetectiveName
			if msg.Type == chat.MessageTypeCharacter {
				speaker = c.Name
			}
			sb.WriteString(fmt.Sprintf("[%s] %s: %s\n", msg.Timestamp.Format("15:04:05"), speaker, msg.Content))
		}
		if o.Ended(c.ID) {
			sb.WriteString("-- " + c.Name + " confessed --\n")
		}
	}
	return sb.String()
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	if m.showSuspectModal {
		return m.updateSuspectModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0 // Reset progress animation
			m.pending = input
			m.notes = nil
			m.writeChatContent()

			return m, tea.Batch(m.ask(input), progressTick())
		}

	case answerMsg:
		m.loading = false
		m.pending = ""
		if msg.err != nil {
			m.notes = append(m.notes, noteText(msg.err))
		} else {
			if msg.turn.Downgraded {
				m.notes = append(m.notes, promptStyle.Render(msg.turn.Character.Name+" would rather keep talking."))
			}
			if len(msg.turn.Question.Warnings) > 0 {
				m.notes = append(m.notes, promptStyle.Render(question.Format(question.Processed{Warnings: msg.turn.Question.Warnings})))
			}
			if reply := msg.turn.Reply; reply != nil {
				style, ok := emotionStyles[reply.Emotion]
				if !ok {
					style = emotionStyles[response.EmotionNormal]
				}
				m.notes = append(m.notes, style.Render("("+string(reply.Emotion)+")"))
			}
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()     // Refresh the chat content to update the progress bar
			return m, progressTick() // Continue the animation
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m *ConsoleUI) refresh() {
	m.writeChatContent()
	m.metaViewport.SetContent(writeMetadata(m.orchestrator))
}

func (m ConsoleUI) ask(input string) tea.Cmd {
	return func() tea.Msg {
		turn, err := m.orchestrator.Ask(context.Background(), input)
		return answerMsg{turn: turn, err: err}
	}
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(strings.ToLower(input))
	m.textarea.Reset()
	m.notes = nil

	switch fields[0] {
	case "/help":
		helpText := `Commands:
• /help - Show this help
• /suspects - Choose who to question
• /select <id> - Question a suspect by id
• /samples - Example questions
• /reset - Forget every conversation
• /copy - Copy the transcript to the clipboard
• Ctrl+C - Quit

How to play:
• Ask one clear question at a time
• Compare the suspects' stories and confront them with contradictions
• Only the murderer can confess`
		m.notes = append(m.notes, titleStyle.Render("Help:")+"\n"+helpText)

	case "/suspects":
		m.showSuspectModal = true
		m.textarea.Blur()
		return m, nil

	case "/select":
		if len(fields) < 2 {
			m.notes = append(m.notes, errorStyle.Render("Usage: /select <id>"))
			break
		}
		m.selectSuspect(fields[1])

	case "/samples":
		m.notes = append(m.notes, titleStyle.Render("Try asking:")+"\n• "+strings.Join(question.SampleQuestions(), "\n• "))

	case "/reset":
		if err := m.orchestrator.Reset(); err != nil {
			m.notes = append(m.notes, noteText(err))
		} else {
			m.notes = append(m.notes, promptStyle.Render("All conversations cleared."))
		}

	case "/copy":
		if err := clipboard.WriteAll(transcript(m.orchestrator)); err != nil {
			m.notes = append(m.notes, errorStyle.Render("Failed to copy transcript: "+err.Error()))
		} else {
			m.notes = append(m.notes, promptStyle.Render("Transcript copied to clipboard."))
		}

	default:
		m.notes = append(m.notes, errorStyle.Render("Unknown command "+fields[0]+". Type /help for commands."))
	}

	m.refresh()
	return m, nil
}

func (m *ConsoleUI) selectSuspect(id string) {
	state, err := m.orchestrator.SelectCharacter(id)
	if err != nil {
		m.notes = append(m.notes, noteText(err))
		return
	}
	m.notes = nil
	if state == interrogation.StateEnded {
		m.notes = append(m.notes, promptStyle.Render("This suspect has already confessed."))
	}
}

func (m ConsoleUI) updateSuspectModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	suspects := m.orchestrator.Case().Characters

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEsc:
			if m.orchestrator.ActiveCharacter() == nil {
				m.showQuitModal = true
				return m, nil
			}
			m.showSuspectModal = false
			m.textarea.Focus()
			return m, textarea.Blink
		case tea.KeyUp:
			if m.selectedSuspect > 0 {
				m.selectedSuspect--
			}
		case tea.KeyDown:
			if m.selectedSuspect < len(suspects)-1 {
				m.selectedSuspect++
			}
		case tea.KeyEnter:
			if len(suspects) > 0 {
				m.selectSuspect(suspects[m.selectedSuspect].ID)
				m.showSuspectModal = false
				m.ready = true
				m.refresh()
				m.textarea.Focus() // Ensure textarea gets focus when modal closes
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case answerMsg, progressTickMsg:
		// A turn finished or ticked while the modal was open.
		m.showQuitModal = false
		model, cmd := m.Update(msg)
		next := model.(ConsoleUI)
		next.showQuitModal = true
		return next, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.showSuspectModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Interrogation?"))
	content.WriteString("\n\n")
	content.WriteString("Your conversations will be lost. Use /copy first to keep a transcript.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSuspectModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	kase := m.orchestrator.Case()
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render(kase.Title))
	content.WriteString("\n\n")
	content.WriteString(loadingStyle.Render("Who killed " + kase.Victim + "?"))
	content.WriteString("\n\n")

	for i, c := range kase.Characters {
		label := fmt.Sprintf("%s, %s (%s)", c.Name, c.Background.Occupation, c.Background.Relationship)
		if m.orchestrator.Ended(c.ID) {
			label += " - confessed"
		}
		if i == m.selectedSuspect {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to question, Esc to go back"))

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if m.showSuspectModal {
		return m.renderSuspectModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
