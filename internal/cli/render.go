package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/starboard/internal/domain/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	dateCol = lipgloss.NewStyle().Width(12)
	typeCol = lipgloss.NewStyle().Width(8)
	nameCol = lipgloss.NewStyle().Width(24)
	idCol   = lipgloss.NewStyle().Width(38)
	numCol  = lipgloss.NewStyle().Width(7)
)

// RenderBoard draws one month as a list of slots.
func RenderBoard(b model.MonthlyBoard) string {
	var sb strings.Builder
	title := b.Month
	if m, err := model.ParseMonth(b.Month); err == nil {
		title = fmt.Sprintf("%s %d", m.Month, m.Year)
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteByte('\n')

	for _, a := range b.Assignments {
		day := a.Date
		if t, err := time.Parse(time.DateOnly, a.Date); err == nil {
			day = t.Format("Mon Jan 02")
		}
		sb.WriteString("  ")
		sb.WriteString(dateCol.Render(day))
		sb.WriteString(typeCol.Render(string(a.Type)))
		sb.WriteString(slotLabel(a))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func slotLabel(a model.Assignment) string {
	switch {
	case a.Joined:
		return tagStyle.Render("joined service")
	case a.YouthSunday:
		return tagStyle.Render("youth sunday")
	case a.CoordinatorName != "":
		return a.CoordinatorName
	default:
		return dimStyle.Render("unassigned")
	}
}

// RenderBoards draws boards separated by blank lines.
func RenderBoards(boards []model.MonthlyBoard) string {
	if len(boards) == 0 {
		return dimStyle.Render("no boards") + "\n"
	}
	parts := make([]string, 0, len(boards))
	for _, b := range boards {
		parts = append(parts, RenderBoard(b))
	}
	return strings.Join(parts, "\n")
}

// RenderCoordinators draws the roster as a table.
func RenderCoordinators(coords []model.Coordinator) string {
	if len(coords) == 0 {
		return dimStyle.Render("no coordinators") + "\n"
	}
	var sb strings.Builder
	sb.WriteString(dimStyle.Render(idCol.Render("ID") + nameCol.Render("NAME") + numCol.Render("STARS") + "AVAILABLE"))
	sb.WriteByte('\n')
	for _, c := range coords {
		avail := okStyle.Render("yes")
		if !c.Available {
			avail = errStyle.Render("no")
		}
		sb.WriteString(idCol.Render(c.ID))
		sb.WriteString(nameCol.Render(c.Name))
		sb.WriteString(numCol.Render(strconv.Itoa(c.Stars)))
		sb.WriteString(avail)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// RenderSummary reports the counters of a generation run.
func RenderSummary(res GenerationResult) string {
	line := fmt.Sprintf("%s assigned %d, unassigned %d, stars spent %d",
		okStyle.Render("✓"), res.Assigned, res.Unassigned, res.StarsSpent)
	if len(res.Regenerated) > 0 {
		line += "\n  regenerated: " + strings.Join(res.Regenerated, ", ")
	}
	if len(res.Skipped) > 0 {
		line += "\n  " + dimStyle.Render("skipped: "+strings.Join(res.Skipped, ", "))
	}
	return line + "\n"
}
