package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/diagramflow/pkg/confidence"
	"github.com/matzehuels/diagramflow/pkg/document"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listLowStyle      = lipgloss.NewStyle().Foreground(colorYellow)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// nodePickerModel is the bubbletea model for interactive node selection,
// ordered from least to most confident.
type nodePickerModel struct {
	entries   []confidence.Entry
	labels    map[string]string
	threshold float64
	cursor    int
	offset    int
	height    int
	selected  string
}

func newNodePickerModel(doc document.Document, ranked []confidence.Entry, threshold float64) nodePickerModel {
	labels := make(map[string]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		labels[n.ID] = n.Label
	}
	return nodePickerModel{
		entries:   ranked,
		labels:    labels,
		threshold: threshold,
		height:    15,
	}
}

func (m nodePickerModel) Init() tea.Cmd {
	return nil
}

func (m nodePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			m.selected = m.entries[m.cursor].NodeID
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 6
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m nodePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Node"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.entries) {
		end = len(m.entries)
	}

	for i := m.offset; i < end; i++ {
		entry := m.entries[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		style := listNormalStyle
		if entry.Score <= m.threshold {
			style = listLowStyle
		}
		if i == m.cursor {
			style = listSelectedStyle
		}

		line := fmt.Sprintf("%-16s %.2f", entry.NodeID, entry.Score)
		if label := m.labels[entry.NodeID]; label != "" {
			line += "  " + listDimStyle.Render(label)
		}
		b.WriteString(cursor + style.Render(line) + "\n")
	}

	if len(m.entries) > m.height {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("%d/%d", m.cursor+1, len(m.entries))))
	}

	return b.String()
}
