package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/wsbump/pkg/bump"
)

// Confirm styles
var (
	confirmSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	confirmNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	confirmDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	confirmMajorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// ConfirmModel - Interactive plan confirmation
// =============================================================================

// ConfirmModel is the bubbletea model asking whether a plan should be
// applied. It shows every change in a table and quits once the user picks
// an answer.
type ConfirmModel struct {
	Changes   []bump.Change
	Apply     bool // Cursor is on "apply"
	Confirmed bool // User chose to apply
	Done      bool
}

// NewConfirmModel creates a confirmation model for the changes of summary.
// The cursor starts on "cancel".
func NewConfirmModel(summary bump.Summary) ConfirmModel {
	changes := make([]bump.Change, 0, len(summary.Stable)+len(summary.Prerelease))
	changes = append(changes, summary.Stable...)
	changes = append(changes, summary.Prerelease...)
	return ConfirmModel{Changes: changes}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc", "n":
		m.Confirmed, m.Done = false, true
		return m, tea.Quit
	case "y":
		m.Confirmed, m.Done = true, true
		return m, tea.Quit
	case "left", "right", "h", "l", "tab":
		m.Apply = !m.Apply
	case "enter":
		m.Confirmed, m.Done = m.Apply, true
		return m, tea.Quit
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.Done {
		return ""
	}
	var b strings.Builder

	rows := make([][]string, len(m.Changes))
	for i, c := range m.Changes {
		rows[i] = []string{c.Package, c.Channel, c.Current + " " + iconArrow + " " + c.Next, c.Magnitude}
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Package", "Channel", "Version", "Change").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < len(m.Changes) && m.Changes[row].Magnitude == "major" {
				return confirmMajorStyle
			}
			return confirmNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")

	apply, cancel := confirmNormalStyle.Render("  apply  "), confirmSelectedStyle.Render("▸ cancel ")
	if m.Apply {
		apply, cancel = confirmSelectedStyle.Render("▸ apply  "), confirmNormalStyle.Render("  cancel ")
	}
	b.WriteString(apply + cancel + "\n")
	b.WriteString(confirmDimStyle.Render("←/→ choose  ⏎ confirm  y apply  n cancel"))
	b.WriteString("\n")
	return b.String()
}

// confirmPlan runs the confirmation prompt and reports whether to apply.
func confirmPlan(summary bump.Summary) (bool, error) {
	final, err := tea.NewProgram(NewConfirmModel(summary)).Run()
	if err != nil {
		return false, err
	}
	fm, ok := final.(ConfirmModel)
	return ok && fm.Confirmed, nil
}
