package tui

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ensigniasec/cleaner-client/internal/store"
)

// resultItem is the list item backing one cleanup candidate.
type resultItem struct {
	Category string
	Path     string
	Size     int64
	Safety   float64
	Selected bool
}

// List item interface methods.
func (it resultItem) Title() string       { return it.Path }
func (it resultItem) Description() string { return it.Category }
func (it resultItem) FilterValue() string { return it.Category + " " + it.Path }

// itemsFor flattens the results of scan into list items, ordered by category.
func itemsFor(scan *store.Scan, selected []string) []list.Item {
	if scan == nil {
		return nil
	}
	var items []list.Item
	for _, name := range slices.Sorted(maps.Keys(scan.Results)) {
		for _, it := range scan.Results[name].Items {
			items = append(items, resultItem{
				Category: name,
				Path:     it.Path,
				Size:     it.Size,
				Safety:   it.SafetyScore,
				Selected: slices.Contains(selected, it.Path),
			})
		}
	}
	return items
}

// resultsDelegate renders resultItem rows with a selection box and right-justified size.
type resultsDelegate struct{}

func (d resultsDelegate) Height() int                             { return 1 }
func (d resultsDelegate) Spacing() int                            { return 0 }
func (d resultsDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d resultsDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(resultItem)
	if !ok {
		return
	}
	leftPrefix := "  "
	lineStyle := lipgloss.NewStyle()
	if index == m.Index() {
		leftPrefix = "> "
		lineStyle = lineStyle.Foreground(lipgloss.Color("69")).Bold(true)
	}
	box := "[ ]"
	if it.Selected {
		box = "[x]"
	}

	category := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(it.Category)
	left := fmt.Sprintf("%s%s %s %s", leftPrefix, box, category, it.Path)
	right := humanize.IBytes(uint64(max(it.Size, 0))) + " " + safetyIcon(it.Safety)

	padding := m.Width() - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	line := left + spaces(padding) + right
	_, _ = fmt.Fprint(w, lineStyle.Render(line))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Width(n).Render("")
}

// safetyIcon grades a safety score in [0,1]; unknown scores render neutral.
func safetyIcon(score float64) string {
	switch {
	case score >= 0.8:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("●")
	case score >= 0.5:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Render("●")
	case score > 0:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("○")
	}
}
