package adapters

import (
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/charmbracelet/lipgloss"

	"asmwalk/internal/ports"
	"asmwalk/internal/types"
)

// TreeWriterAdapter writes one rendered node per line. With Color set the
// line is styled by status; lipgloss drops the styling when the writer is
// not a terminal.
type TreeWriterAdapter struct {
	Out   io.Writer
	Color bool

	failed    lipgloss.Style
	duplicate lipgloss.Style
	escalated lipgloss.Style
}

func NewTreeWriterAdapter(out io.Writer, color bool) *TreeWriterAdapter {
	renderer := lipgloss.NewRenderer(out)
	return &TreeWriterAdapter{
		Out:       out,
		Color:     color,
		failed:    renderer.NewStyle().Foreground(lipgloss.Color("9")),
		duplicate: renderer.NewStyle().Faint(true),
		escalated: renderer.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	}
}

func (a *TreeWriterAdapter) Emit(line types.TreeLine) error {
	text := line.Text
	if a.Color {
		text = a.style(line)
	}
	if _, err := fmt.Fprintln(a.Out, text); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write tree output").
			WithCause(err)
	}
	return nil
}

func (a *TreeWriterAdapter) style(line types.TreeLine) string {
	switch {
	case line.Status == types.NodeStatusFailed:
		return a.failed.Render(line.Text)
	case line.Status == types.NodeStatusDuplicate:
		return a.duplicate.Render(line.Text)
	case line.Escalated:
		return a.escalated.Render(line.Text)
	default:
		return line.Text
	}
}

// TreeCollector keeps emitted lines in memory.
type TreeCollector struct {
	Lines []types.TreeLine
}

func (c *TreeCollector) Emit(line types.TreeLine) error {
	c.Lines = append(c.Lines, line)
	return nil
}

// Texts returns the rendered text of every collected line.
func (c *TreeCollector) Texts() []string {
	out := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		out = append(out, line.Text)
	}
	return out
}

var (
	_ ports.TreeSinkPort = (*TreeWriterAdapter)(nil)
	_ ports.TreeSinkPort = (*TreeCollector)(nil)
)
