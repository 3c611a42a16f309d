package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ensigniasec/cleaner-client/internal/notify"
	"github.com/ensigniasec/cleaner-client/internal/store"
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	width := m.contentWidth()
	var b strings.Builder
	if m.helpVisible {
		b.WriteString(renderHelp())
		b.WriteString("\n\n")
	}
	b.WriteString(renderHeader())
	b.WriteString("\n")

	status := renderStatusLine(m)
	mode := modeBadge(m)
	pad := width - lipgloss.Width(status) - lipgloss.Width(mode)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(status)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(mode)
	b.WriteString("\n")

	b.WriteString(m.progress.View())
	b.WriteString("\n\n")

	b.WriteString(renderResults(m))

	height := m.height
	if height <= 0 {
		height = defaultHeight
	}
	return pinFooter(b.String(), renderToasts(m.toasts)+renderFooter(m), height)
}

func pinFooter(content string, footer string, totalHeight int) string {
	// Ensure content + footer equals totalHeight by padding content with newlines.
	contentLines := strings.Count(content, "\n")
	footerLines := strings.Count(footer, "\n") + 1
	minSpacing := 1
	needed := totalHeight - (contentLines + footerLines + minSpacing)
	if needed < 0 {
		needed = 0
	}
	var b strings.Builder
	b.WriteString(content)
	b.WriteString(strings.Repeat("\n", minSpacing+needed))
	b.WriteString(footer)
	return b.String()
}

func renderHeader() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("System Cleaner\n")
}

// renderStatusLine summarizes the current scan or cleanup.
func renderStatusLine(m Model) string {
	st := m.state
	switch {
	case !st.Initialized:
		return m.spinner.View() + " Connecting..."
	case st.Cleaning:
		line := m.spinner.View() + " Cleaning"
		if cp := st.CleaningProgress; cp != nil {
			line += fmt.Sprintf(" %d files", cp.FilesProcessed)
			if cp.CurrentFile != "" {
				line += " • " + cp.CurrentFile
			}
		}
		return line
	case st.CurrentScan == nil:
		return "No scan yet"
	}

	cur := st.CurrentScan
	switch cur.Phase {
	case store.PhaseCompleted:
		if st.Scanning {
			return m.spinner.View() + " Loading results..."
		}
		return fmt.Sprintf("Scan #%d: %s files, %s reclaimable • %d selected",
			cur.ID, humanize.Comma(cur.TotalFiles), humanize.IBytes(uint64(max(cur.TotalSize, 0))), len(st.Selected))
	case store.PhaseFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Scan #%d failed: %s", cur.ID, cur.Error))
	case store.PhaseAbandoned:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render(fmt.Sprintf("Scan #%d stopped", cur.ID))
	default:
		elapsed := m.now.Sub(cur.StartedAt).Truncate(time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		return fmt.Sprintf("%s Scanning #%d (%s) %s", m.spinner.View(), cur.ID, cur.Status, elapsed)
	}
}

func modeBadge(m Model) string {
	style := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	if m.createBackup {
		return style.Foreground(lipgloss.Color("46")).Render("BACKUP")
	}
	return style.Foreground(lipgloss.Color("208")).Render("NO BACKUP")
}

func renderResults(m Model) string {
	cur := m.state.CurrentScan
	if cur == nil || len(m.resultsList.Items()) == 0 {
		msg := "Results will appear here once the scan completes."
		if last := m.state.LastCleaning; last != nil {
			msg = fmt.Sprintf("Last cleanup: %s files deleted, %s freed.",
				humanize.Comma(last.FilesDeleted), humanize.IBytes(uint64(max(last.BytesFreed, 0))))
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(msg)
	}
	return m.resultsList.View()
}

func renderToasts(toasts []notify.Toast) string {
	var b strings.Builder
	for _, t := range toasts {
		b.WriteString(toastStyle(t.Level).Render(t.Title))
		if t.Message != "" {
			b.WriteString(": ")
			b.WriteString(t.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func toastStyle(l notify.Level) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	switch l {
	case notify.LevelSuccess:
		return style.Foreground(lipgloss.Color("46"))
	case notify.LevelWarning:
		return style.Foreground(lipgloss.Color("208"))
	case notify.LevelError:
		return style.Foreground(lipgloss.Color("196"))
	default:
		return style.Foreground(lipgloss.Color("69"))
	}
}

func renderFooter(m Model) string {
	keys := []string{"q: quit", "space: select", "a: all", "n: none", "c: clean", "b: backup", "↑/↓: move", "h/?: help"}
	if m.state.Scanning {
		keys = []string{"q: quit", "x: stop scan", "h/?: help"}
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(strings.Join(keys, " • "))
}

func renderHelp() string {
	border := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).Foreground(lipgloss.Color("69"))
	content := []string{
		"Help",
		"",
		"h/?: toggle this help",
		"q/ctrl+c: quit",
		"space: select or deselect the highlighted item",
		"a / n: select all items / clear the selection",
		"c: delete the selected items",
		"b: toggle backups before deleting",
		"x: stop polling the running scan",
	}
	return border.Render(strings.Join(content, "\n"))
}
