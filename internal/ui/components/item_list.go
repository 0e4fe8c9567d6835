package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/tracker/pkg/models"
)

var (
	listBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)

	statusStyles = map[models.TaskStatus]lipgloss.Style{
		models.TaskStatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.TaskStatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.TaskStatusNew:        lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}

	statusIcons = map[models.TaskStatus]string{
		models.TaskStatusDone:       "✓",
		models.TaskStatusInProgress: "●",
		models.TaskStatusNew:        "○",
	}
)

const timeLayout = "2006-01-02 15:04"

// ItemList renders work items one per line inside a bordered box, keeping
// the order it was given.
type ItemList struct {
	Title       string
	Placeholder string
	Width       int
	Items       []*models.Task
}

func NewItemList(title string, width int, items []*models.Task) *ItemList {
	return &ItemList{
		Title:       title,
		Placeholder: "Nothing to show yet",
		Width:       width,
		Items:       items,
	}
}

func (l *ItemList) View() string {
	var content string
	if len(l.Items) == 0 {
		content = placeholderStyle.Render(l.Placeholder)
	} else {
		content = l.renderBox()
	}

	if l.Title == "" {
		return content
	}
	return headerStyle.Render(l.Title) + "\n" + content
}

func (l *ItemList) renderBox() string {
	innerWidth := l.Width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}
	nameWidth := innerWidth - 2
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	for _, t := range l.Items {
		icon := statusIcons[t.Status]
		if icon == "" {
			icon = " "
		}
		style := statusStyles[t.Status]

		wrapped := lipgloss.NewStyle().Width(nameWidth).Render(Describe(t))
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, style.Render(icon)+" "+line)
			} else {
				lines = append(lines, "  "+line)
			}
		}
	}

	// Width excludes the border.
	return listBoxStyle.Width(innerWidth + 2).Render(strings.Join(lines, "\n"))
}

// Describe is the one-line summary of an item used by every list view.
func Describe(t *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s %s", t.ID, strings.ToLower(string(t.Kind)), t.Name)
	if t.Kind == models.KindSubTask {
		fmt.Fprintf(&b, " (epic #%d)", t.EpicID)
	}
	if t.Kind == models.KindEpic {
		fmt.Fprintf(&b, " [%d subtasks]", len(t.SubTaskIDs))
	}
	if t.Scheduled() {
		fmt.Fprintf(&b, " %s", t.StartTime.Format(timeLayout))
		if end := t.EndTime(); end != nil {
			fmt.Fprintf(&b, " to %s", end.Format(timeLayout))
		}
	}
	if t.Duration > 0 {
		fmt.Fprintf(&b, " (%s)", t.Duration.Round(time.Minute))
	}
	return b.String()
}
