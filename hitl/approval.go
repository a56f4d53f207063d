package hitl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lexcodex/reliquary/framework"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("220")
	colorError   = lipgloss.Color("196")
	colorDim     = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	safeStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	cautionStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	dangerStyle = lipgloss.NewStyle().
			Foreground(colorError)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 2)
)

const tablePreviewRows = 5

// ApprovalGate walks the user through the proposed cleanup, grouped by
// confidence: safe and likely-safe groups get one batch prompt each,
// uncertain items are reviewed one at a time. Unsafe items are never offered.
type ApprovalGate struct {
	In  io.Reader
	Out io.Writer
}

// NewApprovalGate builds a gate on the process terminal.
func NewApprovalGate() *ApprovalGate {
	return &ApprovalGate{In: os.Stdin, Out: os.Stdout}
}

// Review collects a decision for every classification that recommends
// deletion. Keep/review recommendations and unsafe confidence are auto
// rejected without prompting.
func (g *ApprovalGate) Review(classifications []framework.Classification) ([]framework.UserDecision, error) {
	reader := bufio.NewReader(g.In)

	groups := map[framework.Confidence][]framework.Classification{}
	var decisions []framework.UserDecision
	for _, c := range classifications {
		if c.Recommendation != framework.RecommendDelete || c.Confidence == framework.ConfidenceUnsafe {
			decisions = append(decisions, framework.UserDecision{
				Path:           c.Path,
				Classification: c,
				Status:         framework.Rejected,
			})
			continue
		}
		groups[c.Confidence] = append(groups[c.Confidence], c)
	}

	fmt.Fprintln(g.Out, headerStyle.Render("Cleanup proposal"))
	fmt.Fprintln(g.Out)

	if safe := groups[framework.ConfidenceSafe]; len(safe) > 0 {
		batch, err := g.reviewBatch(reader, safe, safeStyle.Render("Safe to delete"))
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, batch...)
	}
	if likely := groups[framework.ConfidenceLikelySafe]; len(likely) > 0 {
		batch, err := g.reviewBatch(reader, likely, cautionStyle.Render("Likely safe to delete"))
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, batch...)
	}
	if uncertain := groups[framework.ConfidenceUncertain]; len(uncertain) > 0 {
		fmt.Fprintln(g.Out, cautionStyle.Render(fmt.Sprintf("Uncertain items (%d), reviewed individually", len(uncertain))))
		for _, c := range uncertain {
			decision, err := g.reviewSingle(reader, c)
			if err != nil {
				return nil, err
			}
			decisions = append(decisions, decision)
		}
	}

	g.printSummary(decisions)
	return decisions, nil
}

// reviewBatch shows a preview table and prompts once for the whole group.
func (g *ApprovalGate) reviewBatch(reader *bufio.Reader, group []framework.Classification, title string) ([]framework.UserDecision, error) {
	fmt.Fprintf(g.Out, "%s (%d items, %.2f GB)\n", title, len(group), totalSavingsGB(group))
	g.printTable(group)

	approved, err := g.prompt(reader, fmt.Sprintf("Delete all %d items? [y/N] ", len(group)))
	if err != nil {
		return nil, err
	}
	status := framework.Rejected
	if approved {
		status = framework.Approved
	}
	decisions := make([]framework.UserDecision, 0, len(group))
	for _, c := range group {
		decisions = append(decisions, framework.UserDecision{Path: c.Path, Classification: c, Status: status})
	}
	return decisions, nil
}

// reviewSingle shows the full reasoning and risks for one item.
func (g *ApprovalGate) reviewSingle(reader *bufio.Reader, c framework.Classification) (framework.UserDecision, error) {
	fmt.Fprintln(g.Out)
	fmt.Fprintf(g.Out, "  %s (%.2f GB)\n", c.Path, c.SavingsGB())
	if c.Reasoning != "" {
		fmt.Fprintf(g.Out, "  %s\n", dimStyle.Render(c.Reasoning))
	}
	for _, risk := range c.Risks {
		fmt.Fprintf(g.Out, "  %s\n", dangerStyle.Render("risk: "+risk))
	}
	approved, err := g.prompt(reader, "Delete? [y/N] ")
	if err != nil {
		return framework.UserDecision{}, err
	}
	status := framework.Rejected
	if approved {
		status = framework.Approved
	}
	return framework.UserDecision{Path: c.Path, Classification: c, Status: status}, nil
}

// printTable previews up to five rows of the group.
func (g *ApprovalGate) printTable(group []framework.Classification) {
	rows := len(group)
	if rows > tablePreviewRows {
		rows = tablePreviewRows
	}
	for i := 0; i < rows; i++ {
		c := group[i]
		kind := c.DirectoryType
		if kind == "" {
			kind = c.FileType
		}
		fmt.Fprintf(g.Out, "  %-50s %10.2f GB  %s\n", truncatePath(c.Path, 50), c.SavingsGB(), dimStyle.Render(kind))
	}
	if len(group) > tablePreviewRows {
		fmt.Fprintln(g.Out, dimStyle.Render(fmt.Sprintf("  ...and %d more", len(group)-tablePreviewRows)))
	}
}

// prompt asks a yes/no question, defaulting to no.
func (g *ApprovalGate) prompt(reader *bufio.Reader, question string) (bool, error) {
	fmt.Fprint(g.Out, question)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (g *ApprovalGate) printSummary(decisions []framework.UserDecision) {
	approved, rejected := 0, 0
	var savings float64
	for _, d := range decisions {
		if d.Status == framework.Approved {
			approved++
			savings += d.Classification.SavingsGB()
		} else {
			rejected++
		}
	}
	summary := fmt.Sprintf("Approved: %d   Rejected: %d   Reclaimable: %.2f GB", approved, rejected, savings)
	fmt.Fprintln(g.Out)
	fmt.Fprintln(g.Out, summaryBoxStyle.Render(summary))
}

func totalSavingsGB(group []framework.Classification) float64 {
	var total float64
	for _, c := range group {
		total += c.SavingsGB()
	}
	return total
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}
