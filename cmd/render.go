package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/kilianp07/evrange/core/model"
	"github.com/kilianp07/evrange/pkg/export"
)

const formatText = "text"

var (
	colorNominal  = lipgloss.Color("#22C55E")
	colorCaution  = lipgloss.Color("#EAB308")
	colorCritical = lipgloss.Color("#EF4444")
	colorMuted    = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
)

func severityStyle(s model.Severity) lipgloss.Style {
	switch s {
	case model.SeverityCritical:
		return lipgloss.NewStyle().Foreground(colorCritical).Bold(true)
	case model.SeverityCaution:
		return lipgloss.NewStyle().Foreground(colorCaution)
	default:
		return lipgloss.NewStyle().Foreground(colorNominal)
	}
}

// printEstimate writes est in the requested format. The csv format only
// carries the sensitivity table.
func printEstimate(w io.Writer, format string, est model.Estimate) error {
	switch format {
	case formatText, "":
		return renderEstimate(w, est)
	case export.FormatJSON:
		return export.WriteJSON(w, est)
	case export.FormatCSV:
		return export.WriteSensitivityCSV(w, est.Unit, est.Sensitivity)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func renderEstimate(w io.Writer, est model.Estimate) error {
	ew := &errWriter{w: w}
	ew.printf("%s %s\n", headerStyle.Render(fmt.Sprintf("Estimated range: %.1f %s", est.Range, est.Unit)), labelStyle.Render("("+est.Model+")"))
	if est.EffectiveCapacityKWh > 0 {
		ew.printf("%s %.2f kWh\n", labelStyle.Render("Effective capacity:"), est.EffectiveCapacityKWh)
	}
	if est.Unit == model.Miles {
		ew.printf("%s %.2f mi/kWh\n", labelStyle.Render("Efficiency:"), est.Efficiency)
	}

	if len(est.Impacts) > 0 {
		ew.printf("\n%s\n", headerStyle.Render("Impacts"))
		for _, im := range est.Impacts {
			sev := severityStyle(im.Severity).Render(fmt.Sprintf("%-8s", im.Severity))
			ew.printf("  %-12s %6.3f  -%3.0f%%  %s\n", im.Factor, im.Value, im.ReductionPct, sev)
		}
	} else if len(est.Factors) > 0 {
		ew.printf("\n%s\n", headerStyle.Render("Factors (% range lost)"))
		names := make([]string, 0, len(est.Factors))
		for n := range est.Factors {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ew.printf("  %-22s %6.2f\n", n, est.Factors[n])
		}
	}

	if c := est.Consumption; c != nil {
		ew.printf("\n%s\n", headerStyle.Render("Consumption (kWh/100km)"))
		ew.printf("  driving %.2f  climate %.2f  other %.2f  total %.2f\n", c.Driving, c.Climate, c.Other, c.Total)
	}

	if len(est.Sensitivity) > 0 {
		ew.printf("\n%s\n", headerStyle.Render("Sensitivity"))
		for _, p := range est.Sensitivity {
			ew.printf("  %-18s %8.1f %s\n", p.Label, p.Range, est.Unit)
		}
		ew.printf("  %s %.3f\n", labelStyle.Render("slope:"), est.SensitivitySlope)
	}
	return ew.err
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
