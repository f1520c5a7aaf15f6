package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"finboard/internal/grid"
)

// maxPopoverValues caps the listed values; the search narrows the rest.
const maxPopoverValues = 12

// filterPopover is the open column filter: a search box over the
// column's unique values.
type filterPopover struct {
	pop    *grid.Popover
	title  string
	input  textinput.Model
	cursor int
}

func newFilterPopover(pop *grid.Popover, title string) *filterPopover {
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = "search"
	in.CharLimit = 64
	in.Focus()
	return &filterPopover{pop: pop, title: title, input: in}
}

// popoverResult is what a key did to the popover.
type popoverResult int

const (
	popoverOpen popoverResult = iota
	popoverApplied
	popoverClosed
)

func (f *filterPopover) update(msg tea.KeyMsg) (popoverResult, tea.Cmd) {
	visible := f.pop.Visible()
	switch msg.String() {
	case "esc":
		return popoverClosed, nil
	case "enter":
		return popoverApplied, nil
	case "up":
		if f.cursor > 0 {
			f.cursor--
		}
		return popoverOpen, nil
	case "down":
		if f.cursor < len(visible)-1 {
			f.cursor++
		}
		return popoverOpen, nil
	case "tab":
		if f.cursor < len(visible) {
			f.pop.Toggle(visible[f.cursor])
		}
		return popoverOpen, nil
	case "ctrl+a":
		f.pop.SelectAll(!f.pop.AllSelected())
		return popoverOpen, nil
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	f.pop.SetSearch(f.input.Value())
	if n := len(f.pop.Visible()); f.cursor >= n {
		f.cursor = max(n-1, 0)
	}
	return popoverOpen, cmd
}

func (f *filterPopover) view() string {
	var b strings.Builder
	b.WriteString(boldStyle.Render("Filter " + f.title))
	b.WriteString("\n")
	b.WriteString(f.input.View())
	b.WriteString("\n")

	visible := f.pop.Visible()
	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("no matching values"))
	}
	start := 0
	if f.cursor >= maxPopoverValues {
		start = f.cursor - maxPopoverValues + 1
	}
	end := min(start+maxPopoverValues, len(visible))
	for i := start; i < end; i++ {
		v := visible[i]
		mark := "[ ]"
		if f.pop.Selected(v) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, grid.Label(v))
		if i == f.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	if hidden := len(visible) - end; hidden > 0 {
		fmt.Fprintf(&b, "\n%s", dimStyle.Render(fmt.Sprintf("… %d more", hidden)))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab toggle • ctrl+a all • enter apply • esc close"))
	return popoverStyle.Render(b.String())
}
