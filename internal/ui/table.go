package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/skalibog/screener/pkg/models"
)

// RenderTable печатает отчет простой таблицей без цветов. maxRows <= 0 снимает ограничение.
func RenderTable(w io.Writer, report *models.Report, maxRows int) error {
	fmt.Fprintf(w, "Прогон %s: стратегия %s, биржа %s, результатов %d, прошли %d, сбоев %d\n",
		report.RunID, report.Strategy, report.Exchange,
		len(report.Results), len(report.Passed()), len(report.Failures))
	if report.Partial {
		fmt.Fprintf(w, "Частичный результат: %v\n", report.Err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSYMBOL\tPASS\tSCORE\tCLOSE\tRETURN%\tSIGNAL\tPATTERNS")

	results := report.Results
	if maxRows > 0 && len(results) > maxRows {
		results = results[:maxRows]
	}
	for i, r := range results {
		pass := "-"
		if r.Passed {
			pass = "+"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			i+1, r.Symbol, pass, r.Score, r.Close, r.Return, signal(r), patternNames(r.Patterns))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range report.Failures {
		fmt.Fprintf(w, "СБОЙ %s [%s]: %v\n", f.Symbol, f.Kind, f.Err)
	}
	return nil
}

// signal короткая характеристика результата для колонки SIGNAL
func signal(r *models.ScreeningResult) string {
	switch {
	case r.Recommendation != "":
		return r.Recommendation
	case r.Breakout != nil:
		return string(r.Breakout.State)
	case r.Structure != nil:
		return string(r.Structure.Regime)
	case r.Movement != nil:
		return string(r.Movement.Direction)
	}
	return "-"
}

func patternNames(matches []models.PatternMatch) string {
	if len(matches) == 0 {
		return "-"
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = string(m.Kind)
	}
	return strings.Join(names, ",")
}
