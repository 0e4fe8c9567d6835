package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nick-dorsch/tracker/pkg/models"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(13)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// StatusSummary shows where the data lives, item counts and the first
// scheduled items.
type StatusSummary struct {
	Backend  string
	Path     string
	Counts   map[models.Kind]int
	ByStatus map[models.TaskStatus]int
	Next     []*models.Task
	// Saved holds per-kind row counts read back from the backend, when it
	// can report them.
	Saved map[models.Kind]int
}

func (s StatusSummary) View() string {
	rows := []struct {
		label string
		value string
	}{
		{"backend", s.Backend},
		{"location", s.Path},
		{"tasks", fmt.Sprint(s.Counts[models.KindTask])},
		{"epics", fmt.Sprint(s.Counts[models.KindEpic])},
		{"subtasks", fmt.Sprint(s.Counts[models.KindSubTask])},
		{"new", fmt.Sprint(s.ByStatus[models.TaskStatusNew])},
		{"in progress", fmt.Sprint(s.ByStatus[models.TaskStatusInProgress])},
		{"done", fmt.Sprint(s.ByStatus[models.TaskStatusDone])},
	}

	if s.Saved != nil {
		total := 0
		for _, n := range s.Saved {
			total += n
		}
		rows = append(rows, struct {
			label string
			value string
		}{"saved rows", fmt.Sprint(total)})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+valueStyle.Render(r.value))
	}
	out := headerStyle.Render("Status") + "\n" + listBoxStyle.Render(strings.Join(lines, "\n"))

	if len(s.Next) > 0 {
		next := make([]string, 0, len(s.Next))
		for _, t := range s.Next {
			next = append(next, "- "+Describe(t))
		}
		out += "\n" + headerStyle.Render("Next up") + "\n" + strings.Join(next, "\n")
	}
	return out
}
