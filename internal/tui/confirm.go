// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	// ConfirmOptions configures the Confirm component.
	ConfirmOptions struct {
		// Title is the question to display.
		Title string
		// Description provides additional context below the title.
		Description string
		// Affirmative is the text for the affirmative option (default: "Yes").
		Affirmative string
		// Negative is the text for the negative option (default: "No").
		Negative string
		// Default is the preselected answer.
		Default bool
		// Config holds common TUI configuration.
		Config Config
	}

	// confirmModel is the Bubble Tea model behind Confirm.
	confirmModel struct {
		title       string
		description string
		affirmative string
		negative    string
		selection   bool
		result      bool
		done        bool
		cancelled   bool
		width       int
	}

	// ConfirmBuilder provides a fluent API for building Confirm prompts.
	ConfirmBuilder struct {
		opts ConfirmOptions
	}
)

// NewConfirmModel creates the confirm model for opts.
func NewConfirmModel(opts ConfirmOptions) *confirmModel {
	affirmative, negative := opts.Affirmative, opts.Negative
	if affirmative == "" {
		affirmative = "Yes"
	}
	if negative == "" {
		negative = "No"
	}
	return &confirmModel{
		title:       opts.Title,
		description: opts.Description,
		affirmative: affirmative,
		negative:    negative,
		selection:   opts.Default,
	}
}

// Init implements tea.Model.
func (m *confirmModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case keyCtrlC, "esc":
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		case "y", "Y":
			m.selection = true
			m.result = true
			m.done = true
			return m, tea.Quit
		case "n", "N":
			m.selection = false
			m.result = false
			m.done = true
			return m, tea.Quit
		case "left", "h":
			m.selection = true
		case "right", "l":
			m.selection = false
		case "up", "down", "tab", "shift+tab":
			m.selection = !m.selection
		case "enter", " ", "space":
			m.result = m.selection
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// View implements tea.Model.
func (m *confirmModel) View() string {
	if m.done {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#7C3AED")).Bold(true).Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Padding(0, 1)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	yesView := inactiveStyle.Render(m.affirmative)
	noView := inactiveStyle.Render(m.negative)
	if m.selection {
		yesView = activeStyle.Render(m.affirmative)
	} else {
		noView = activeStyle.Render(m.negative)
	}

	lines := make([]string, 0, 4)
	if m.title != "" {
		lines = append(lines, titleStyle.Render(m.title))
	}
	if m.description != "" {
		lines = append(lines, descStyle.Render(m.description))
	}
	lines = append(lines,
		yesView+"  "+noView,
		helpStyle.Render("enter submit • y yes • n no • esc cancel"),
	)

	view := strings.Join(lines, "\n")
	if m.width > 0 {
		view = lipgloss.NewStyle().MaxWidth(m.width).Render(view)
	}
	return view + "\n"
}

// IsDone reports whether an answer was given or the prompt was cancelled.
func (m *confirmModel) IsDone() bool {
	return m.done
}

// Cancelled reports whether the prompt was aborted.
func (m *confirmModel) Cancelled() bool {
	return m.cancelled
}

// Result returns the answer, or ErrCancelled.
func (m *confirmModel) Result() (bool, error) {
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.result, nil
}

// Confirm asks a yes/no question. In accessible mode it reads one line:
// "y" and "yes" confirm, "n" and "no" decline, an empty line or end of
// input takes the default.
func Confirm(opts ConfirmOptions) (bool, error) {
	if shouldUseAccessible(opts.Config) {
		return confirmAccessible(opts)
	}

	model := NewConfirmModel(opts)
	p := tea.NewProgram(model,
		tea.WithInput(inputReader(opts.Config)),
		tea.WithOutput(getOutputWriter(opts.Config)),
	)
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	return finalModel.(*confirmModel).Result()
}

func confirmAccessible(opts ConfirmOptions) (bool, error) {
	out := getOutputWriter(opts.Config)
	hint := "y/N"
	if opts.Default {
		hint = "Y/n"
	}

	if opts.Description != "" {
		fmt.Fprintln(out, opts.Description)
	}
	fmt.Fprintf(out, "%s (%s): ", opts.Title, hint)

	line, err := bufio.NewReader(inputReader(opts.Config)).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	fmt.Fprintln(out)

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	case "":
		return opts.Default, nil
	default:
		return false, nil
	}
}

// NewConfirm creates a ConfirmBuilder with process defaults.
func NewConfirm() *ConfirmBuilder {
	return &ConfirmBuilder{opts: ConfirmOptions{Config: DefaultConfig()}}
}

// Title sets the question.
func (b *ConfirmBuilder) Title(title string) *ConfirmBuilder {
	b.opts.Title = title
	return b
}

// Description sets the context line.
func (b *ConfirmBuilder) Description(desc string) *ConfirmBuilder {
	b.opts.Description = desc
	return b
}

// Default sets the preselected answer.
func (b *ConfirmBuilder) Default(value bool) *ConfirmBuilder {
	b.opts.Default = value
	return b
}

// Input sets the answer source.
func (b *ConfirmBuilder) Input(r io.Reader) *ConfirmBuilder {
	b.opts.Config.Input = r
	return b
}

// Output sets the prompt destination.
func (b *ConfirmBuilder) Output(w io.Writer) *ConfirmBuilder {
	b.opts.Config.Output = w
	return b
}

// Accessible forces the line-based mode.
func (b *ConfirmBuilder) Accessible(accessible bool) *ConfirmBuilder {
	b.opts.Config.Accessible = accessible
	return b
}

// Run executes the prompt.
func (b *ConfirmBuilder) Run() (bool, error) {
	return Confirm(b.opts)
}
