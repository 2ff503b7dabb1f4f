package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danielolaszy/monday-import/internal/importcfg"
	"github.com/danielolaszy/monday-import/internal/importer"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
	labelStyle = lipgloss.NewStyle().Width(12)
)

func renderValidation(w io.Writer, result importcfg.ValidationResult) {
	if result.Valid {
		fmt.Fprintln(w, okStyle.Render("✓ mapping is valid"))
	} else {
		fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("✗ mapping is invalid (%d error(s))", len(result.Errors))))
	}
	for _, d := range result.Errors {
		fmt.Fprintln(w, "  "+errStyle.Render("error")+"   "+d.String())
	}
	for _, d := range result.Warnings {
		fmt.Fprintln(w, "  "+warnStyle.Render("warning")+" "+d.String())
	}
}

func renderResult(w io.Writer, r *importer.Result) {
	mode := "Import"
	if r.DryRun {
		mode = "Dry run"
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s summary (%s, %d rows as %ss)", mode, r.RunID, r.Rows, r.Kind)))

	row := func(label string, planned, created int) {
		value := fmt.Sprintf("%d planned", planned)
		if !r.DryRun {
			value = fmt.Sprintf("%d/%d created", created, planned)
		}
		fmt.Fprintln(w, "  "+labelStyle.Render(label)+value)
	}
	row("items", r.Planned.Items, r.Created.Items)
	row("sub-items", r.Planned.Subitems, r.Created.Subitems)
	row("updates", r.Planned.Comments, r.Created.Comments)
	row("labels", r.Planned.Labels, r.Created.Labels)
	row("links", r.Planned.Links, r.Created.Links)

	var skipped []string
	for _, s := range []struct {
		n    int
		what string
	}{
		{r.Skipped.EmptyRows, "empty rows"},
		{r.Skipped.Subitems, "sub-items of failed parents"},
		{r.Skipped.Updates, "incomplete updates"},
		{r.Skipped.UnmatchedUpdates, "unmatched updates"},
	} {
		if s.n > 0 {
			skipped = append(skipped, fmt.Sprintf("%d %s", s.n, s.what))
		}
	}
	if len(skipped) > 0 {
		fmt.Fprintln(w, "  "+labelStyle.Render("skipped")+mutedStyle.Render(strings.Join(skipped, ", ")))
	}

	for _, warning := range r.Warnings {
		fmt.Fprintln(w, "  "+warnStyle.Render("warning")+" "+warning)
	}
	for _, e := range r.Errors {
		fmt.Fprintln(w, "  "+errStyle.Render("error")+"   "+e.String())
	}

	switch {
	case r.Aborted:
		fmt.Fprintln(w, errStyle.Render("✗ import stopped early"))
	case r.Failed():
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("! finished with %d error(s) in %s", len(r.Errors), r.Duration.Round(time.Millisecond))))
	default:
		fmt.Fprintln(w, okStyle.Render(fmt.Sprintf("✓ finished in %s", r.Duration.Round(time.Millisecond))))
	}
}
