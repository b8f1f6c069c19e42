package analysis

import (
	"fmt"
	"strings"
)

// Table lays the numeric statistics out like a dataframe describe(): one row
// per entry of Statistics, one column per numeric column. The first header
// cell is empty and the first cell of each row names the statistic.
func (s *Summary) Table() (header []string, rows [][]string) {
	header = make([]string, 0, len(s.Numeric)+1)
	header = append(header, "")
	for _, st := range s.Numeric {
		header = append(header, st.Column)
	}
	rows = make([][]string, 0, len(Statistics))
	for _, name := range Statistics {
		row := make([]string, 0, len(s.Numeric)+1)
		row = append(row, name)
		for _, st := range s.Numeric {
			row = append(row, FormatNumber(st.Value(name)))
		}
		rows = append(rows, row)
	}
	return header, rows
}

// Markdown renders a compact report suitable for a terminal or a standalone doc.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	if s.Sheet != "" {
		b.WriteString(fmt.Sprintf("Sheet: %s\n", s.Sheet))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (numeric %d)\n\n", len(s.Columns), len(s.Numeric)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range s.Columns {
		total := s.Rows
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (missing %.1f%%)", safeName(c.Name), c.Kind, missPct))
		if ts, ok := s.textStats(c.Name); ok && ts.Count > 0 {
			b.WriteString(fmt.Sprintf("; unique %d, top %s (%d)", ts.Unique, safeVal(ts.Top), ts.Freq))
		}
		if ns, ok := s.numericStats(c.Name); ok && ns.OutlierThreshold > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", ns.OutliersCount, ns.OutlierThreshold))
		}
		b.WriteString("\n")
	}

	if len(s.Numeric) > 0 {
		b.WriteString("\n[STATISTICS]\n")
		header, rows := s.Table()
		writeMarkdownTable(&b, header, rows)
	}

	if pairs := s.Corr.TopPairs(10); len(pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(s.Preview) > 0 {
		b.WriteString("\n[HEAD]\n")
		header := make([]string, len(s.Columns))
		for i, c := range s.Columns {
			header[i] = c.Name
		}
		rows := make([][]string, len(s.Preview))
		for i, row := range s.Preview {
			cells := make([]string, len(row))
			for j, v := range row {
				if r := []rune(v); len(r) > 80 {
					v = string(r[:77]) + "..."
				}
				cells[j] = v
			}
			rows[i] = cells
		}
		writeMarkdownTable(&b, header, rows)
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range s.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (s *Summary) numericStats(col string) (NumericStats, bool) {
	for _, st := range s.Numeric {
		if st.Column == col {
			return st, true
		}
	}
	return NumericStats{}, false
}

func (s *Summary) textStats(col string) (TextStats, bool) {
	for _, st := range s.Text {
		if st.Column == col {
			return st, true
		}
	}
	return TextStats{}, false
}

func writeMarkdownTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(h))
	}
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i := range header {
			if i > 0 {
				b.WriteString(" | ")
			}
			if i < len(row) {
				b.WriteString(safeVal(row[i]))
			}
		}
		b.WriteString(" |\n")
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
