package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/GauravPandit27/AI-Data-Analyst/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

func (xlsxParser) Parse(name string, content []byte, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, err
	}
	all, err := cellValues(f, sheet)
	if err != nil {
		return nil, err
	}
	// blank rows are skipped the same way the CSV reader skips blank lines
	rows := make([][]string, 0, len(all))
	for _, r := range all {
		if !blankRow(r) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w", sheet, dataset.ErrNoColumns)
	}

	header := rows[0]
	body := rows[1:]
	// Cells past the header get generated names, like an unlabeled spreadsheet column.
	width := len(header)
	for _, r := range body {
		if len(r) > width {
			width = len(r)
		}
	}
	for len(header) < width {
		header = append(header, "Unnamed: "+strconv.Itoa(len(header)))
	}

	ds, err := dataset.New(name, header, body, opt.Dataset)
	if err != nil {
		return nil, err
	}
	ds.Sheet = sheet
	return ds, nil
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (have: %s)", opt.SheetName, strings.Join(sheets, ", "))
	}
	if opt.SheetIndex > 0 {
		if opt.SheetIndex > len(sheets) {
			return "", fmt.Errorf("sheet index %d out of range (1..%d)", opt.SheetIndex, len(sheets))
		}
		return sheets[opt.SheetIndex-1], nil
	}
	return sheets[0], nil
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellValues reads the sheet as stored numbers rather than display text, so
// "1,234.50" or "25%" arrive as 1234.5 and 0.25. Date-styled serials become
// ISO dates and booleans keep their TRUE/FALSE text.
func cellValues(f *excelize.File, sheet string) ([][]string, error) {
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	shown, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	dateStyle := map[int]bool{}
	for i, row := range raw {
		for j, v := range row {
			var disp string
			if i < len(shown) && j < len(shown[i]) {
				disp = shown[i][j]
			}
			if v == disp {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				continue
			}
			if t, err := f.GetCellType(sheet, cell); err == nil && t == excelize.CellTypeBool {
				row[j] = disp
				continue
			}
			id, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				continue
			}
			isDate, ok := dateStyle[id]
			if !ok {
				st, err := f.GetStyle(id)
				isDate = err == nil && isDateFormat(st)
				dateStyle[id] = isDate
			}
			if !isDate {
				continue
			}
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				row[j] = disp
				continue
			}
			row[j] = formatSerial(serial, date1904)
		}
	}
	return raw, nil
}

func formatSerial(serial float64, date1904 bool) string {
	if serial >= 0 && serial < 1 {
		d := time.Duration(serial*24*float64(time.Hour) + 0.5*float64(time.Second)).Truncate(time.Second)
		return time.Time{}.Add(d).Format("15:04:05")
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return strconv.FormatFloat(serial, 'f', -1, 64)
	}
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// isDateFormat reports whether a number format renders a date or time: the
// built-in ids 14-22, 27-36, 45-47 and 50-58, or a custom code with date tokens.
func isDateFormat(st *excelize.Style) bool {
	if st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return hasDateTokens(*st.CustomNumFmt)
	}
	n := st.NumFmt
	return (n >= 14 && n <= 22) || (n >= 27 && n <= 36) || (n >= 45 && n <= 47) || (n >= 50 && n <= 58)
}

func hasDateTokens(code string) bool {
	// only the first section decides; quoted text, escapes and [Red]/[$-409]
	// tags are ignored, elapsed-time tags like [h] count
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	code = strings.ToLower(code)
	quoted, escaped := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = c != '"'
		case c == '\\':
			escaped = true
		case c == '"':
			quoted = true
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			if tag := code[i+1 : i+end]; tag != "" && strings.Trim(tag, "hms") == "" {
				return true
			}
			i += end
		case strings.IndexByte("ydhms", c) >= 0:
			return true
		}
	}
	return false
}
