package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/sync"
)

// maxListedItems caps how many item IDs are shown per side.
const maxListedItems = 5

var reportStyles = struct {
	Title   lipgloss.Style
	Field   lipgloss.Style
	Label   lipgloss.Style
	Side    lipgloss.Style
	Muted   lipgloss.Style
	Summary lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
	Field:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	Label:   lipgloss.NewStyle().Bold(true),
	Side:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Summary: lipgloss.NewStyle().MarginTop(1),
}

// ConflictReport renders data as side-by-side local/remote panels, one pair
// per conflicting field, sized to fit width columns.
func ConflictReport(data *sync.ConflictData, width int) string {
	if data == nil || len(data.Conflicts) == 0 {
		return StatusSuccess("no conflicts")
	}
	if width < 40 {
		width = 40
	}
	panelWidth := (width - 4) / 2

	var b strings.Builder
	b.WriteString(reportStyles.Title.Render(fmt.Sprintf(
		"%d conflict(s) in project %s", len(data.Conflicts), data.ProjectID)))
	b.WriteString("\n")
	b.WriteString(reportStyles.Muted.Render(fmt.Sprintf(
		"local updated %s, remote updated %s",
		formatTime(data.Local.UpdatedAt), formatTime(data.Remote.UpdatedAt))))
	b.WriteString("\n")

	for _, c := range data.Conflicts {
		b.WriteString("\n")
		b.WriteString(reportStyles.Field.Render(c.Key()))
		b.WriteString("\n")
		local := renderSide("Local", c, c.Local, panelWidth)
		remote := renderSide("Remote", c, c.Remote, panelWidth)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, local, remote))
		b.WriteString("\n")
	}

	b.WriteString(reportStyles.Summary.Render(strategyHelp()))
	return b.String()
}

func renderSide(label string, c sync.Conflict, side sync.Side, width int) string {
	inner := width - 4
	var body string
	if c.Field.IsScalar() {
		if side.Value == "" {
			body = reportStyles.Muted.Render("(empty)")
		} else {
			body = wrapText(side.Value, inner)
		}
	} else {
		body = itemList(sideIDs(side), inner)
	}
	content := reportStyles.Label.Render(label) + "\n" + body
	return reportStyles.Side.Width(width).Render(content)
}

func sideIDs(side sync.Side) []string {
	switch {
	case len(side.History) > 0:
		return model.IDs(side.History)
	case len(side.Styling) > 0:
		return model.IDs(side.Styling)
	default:
		return model.IDs(side.Wardrobe)
	}
}

func itemList(ids []string, width int) string {
	if len(ids) == 0 {
		return reportStyles.Muted.Render("(no unique items)")
	}
	var lines []string
	for i, id := range ids {
		if i == maxListedItems {
			lines = append(lines, reportStyles.Muted.Render(
				fmt.Sprintf("… %d more", len(ids)-maxListedItems)))
			break
		}
		lines = append(lines, "• "+truncateText(id, width-2))
	}
	return strings.Join(lines, "\n")
}

func strategyHelp() string {
	var lines []string
	for _, s := range sync.AllStrategies() {
		lines = append(lines, fmt.Sprintf("  %-14s %s", s, s.Description()))
	}
	return "Resolve with `snapsync resolve --strategy <name>`:\n" + strings.Join(lines, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncateText(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	if width <= 3 {
		return text[:width]
	}
	return text[:width-3] + "..."
}

func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(strings.ReplaceAll(text, "\n", " "))
	if len(words) == 0 {
		return ""
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		if line.Len() == 0 {
			line.WriteString(word)
			continue
		}
		if line.Len()+1+len(word) > width {
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
			continue
		}
		line.WriteString(" ")
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
