package arbiter

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// String produces a table listing every node in the result tree with its
// outcome, indented to show the hierarchy.
func (rr *RuleResult) String() string {
	tw := table.NewWriter()
	tw.SetTitle("\nARBITER RESULT SUMMARY\n")
	tw.AppendHeader(table.Row{"\nRule", "\nResult", "Ig-\nnored", "\nKey", "\nOperator", "\nExpected", "\nActual", "\nMessage"})

	for _, row := range rr.resultsToRows(0) {
		tw.AppendRow(row)
	}

	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}

func (rr *RuleResult) label() string {
	if rr.Description != "" {
		return rr.Description
	}
	return string(rr.Kind)
}

// resultsToRows transforms the result tree to a list of rows for
// inclusion in a table.Writer table.
func (rr *RuleResult) resultsToRows(n int) []table.Row {
	indent := strings.Repeat("  ", n)

	expected := rr.Expected
	if len(rr.ExpectedValues) > 0 {
		expected = rr.ExpectedValues
	}

	row := table.Row{
		fmt.Sprintf("%s%s", indent, rr.label()),
		rr.Result.String(),
		yes(rr.Ignored),
		rr.Key,
		string(rr.Operator),
		valueString(expected),
		valueString(rr.Actual),
		rr.Message,
	}

	rows := []table.Row{row}
	if rr.Child != nil {
		rows = append(rows, rr.Child.resultsToRows(n+1)...)
	}
	for _, c := range rr.Results {
		rows = append(rows, c.resultsToRows(n+1)...)
	}
	return rows
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func valueString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
