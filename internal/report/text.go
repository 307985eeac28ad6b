package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLocale formats numbers in the text report.
const DefaultLocale = "fr-CH"

// Unit is the density unit printed next to values.
const Unit = "trees/km²"

const dataNote = "Tree counts come from OpenStreetMap contributions and may be incomplete or uneven between municipalities."

// TextOptions controls the text report.
type TextOptions struct {
	// Locale is a BCP 47 tag; empty means DefaultLocale.
	Locale string
}

type textStyles struct {
	title  lipgloss.Style
	label  lipgloss.Style
	header lipgloss.Style
	dim    lipgloss.Style
	cell   func(width int, right bool) lipgloss.Style
	swatch func(color string) lipgloss.Style
}

func newTextStyles(re *lipgloss.Renderer) textStyles {
	accent := lipgloss.Color("#31a354")
	return textStyles{
		title:  re.NewStyle().Bold(true).Foreground(accent),
		label:  re.NewStyle().Bold(true),
		header: re.NewStyle().Bold(true).Underline(true),
		dim:    re.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}),
		cell: func(width int, right bool) lipgloss.Style {
			s := re.NewStyle().Width(width).PaddingRight(1)
			if right {
				s = s.Align(lipgloss.Right)
			}
			return s
		},
		swatch: func(color string) lipgloss.Style {
			return re.NewStyle().Background(lipgloss.Color(color)).SetString("  ")
		},
	}
}

func printer(locale string) (*message.Printer, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, eris.Wrapf(err, "report: locale %q", locale)
	}
	return message.NewPrinter(tag), nil
}

// WriteText writes a human-readable report: the densest municipality, the
// numbered top list, the class breaks and the summary.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	p, err := printer(opts.Locale)
	if err != nil {
		return err
	}
	st := newTextStyles(lipgloss.NewRenderer(w))

	var b strings.Builder
	b.WriteString(st.title.Render("Tree density by municipality"))
	b.WriteString("\n\n")

	b.WriteString(st.label.Render("Highest density:"))
	b.WriteString(p.Sprintf(" %s (%.2f %s)\n\n", r.Max.Municipality.Name, r.Max.Density, Unit))

	b.WriteString(st.label.Render(fmt.Sprintf("Top %d by density:", len(r.Top))))
	b.WriteString("\n")
	writeRankingTable(&b, p, st, r)

	if len(r.Breaks) > 0 {
		b.WriteString("\n")
		b.WriteString(st.label.Render("Classes:"))
		b.WriteString("\n")
		for _, br := range r.Breaks {
			b.WriteString(st.swatch(br.Color).String())
			b.WriteString(p.Sprintf(" %d  %.1f - %.1f\n", br.Class+1, br.From, br.To))
		}
	}

	s := r.Summary
	b.WriteString("\n")
	b.WriteString(st.label.Render("Summary:"))
	b.WriteString(p.Sprintf(" %d municipalities, %d excluded, %d trees over %.2f km² (%.2f %s overall)\n",
		s.Count, s.Excluded, s.TotalTrees, s.TotalAreaKm2, s.OverallDensity, Unit))
	b.WriteString(p.Sprintf("Density min %.2f, median %.2f, mean %.2f, max %.2f, std dev %.2f\n",
		s.MinDensity, s.MedianDensity, s.MeanDensity, s.MaxDensity, s.StdDevDensity))

	if len(r.Excluded) > 0 {
		names := make([]string, len(r.Excluded))
		for i, m := range r.Excluded {
			names[i] = fmt.Sprintf("%s (%s)", m.Name, m.ID)
		}
		b.WriteString(st.dim.Render("Excluded (no usable area): " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}
	if len(r.OrphanCentres) > 0 {
		b.WriteString(st.dim.Render("Centres without municipality: " + strings.Join(r.OrphanCentres, ", ")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(st.dim.Render(dataNote))
	b.WriteString("\n")

	_, err = io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write text")
}

func writeRankingTable(b *strings.Builder, p *message.Printer, st textStyles, r *Report) {
	nameWidth := len("Municipality")
	for _, t := range r.Top {
		nameWidth = max(nameWidth, lipgloss.Width(t.Municipality.Name))
	}
	cols := []struct {
		title string
		width int
		right bool
	}{
		{"#", 4, true},
		{"Municipality", nameWidth + 1, false},
		{"Trees", 10, true},
		{"Area km²", 10, true},
		{"Density", 10, true},
	}

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = st.cell(c.width, c.right).Render(st.header.Render(c.title))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for _, t := range r.Top {
		values := []string{
			p.Sprintf("%d.", t.Rank),
			t.Municipality.Name,
			p.Sprintf("%d", t.Municipality.TreeCount),
			p.Sprintf("%.2f", t.Municipality.AreaKm2),
			p.Sprintf("%.2f", t.Density),
		}
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = st.cell(c.width, c.right).Render(values[i])
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}
}
