// Package importer reads freight item lists from plain text, CSV and
// Excel files. CSV import auto-detects the delimiter and both tabular
// formats map columns by header aliases, case-insensitively.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kittfreight/deeppack/internal/conveyor"
	"github.com/kittfreight/deeppack/internal/freight"
)

// Result holds the outcome of an import: the items that parsed, plus
// per-row errors and warnings. A row that fails to parse is reported
// and skipped; it never aborts the rest of the file.
type Result struct {
	Items    []freight.Item
	Errors   []string
	Warnings []string
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	ID       int
	Width    int
	Height   int
	Depth    int
	Quantity int
	Weight   int
}

// headerAliases maps canonical column names to their accepted aliases
// (all lowercase).
var headerAliases = map[string][]string{
	"id":       {"id", "label", "name", "item", "item id", "sku", "description", "desc"},
	"width":    {"width", "w", "x"},
	"height":   {"height", "h", "y"},
	"depth":    {"depth", "d", "length", "len", "z"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"weight":   {"weight", "wt", "kg", "mass"},
}

// DetectCSVDelimiter determines the most likely CSV delimiter out of
// comma, semicolon, tab and pipe. The delimiter producing the most
// consistent multi-column row shape wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping. It
// returns the mapping and true if a header was detected, or a default
// positional mapping (id, width, height, depth, quantity, weight) and
// false otherwise.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{
		ID:       -1,
		Width:    -1,
		Height:   -1,
		Depth:    -1,
		Quantity: -1,
		Weight:   -1,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "id":
					if mapping.ID == -1 {
						mapping.ID = i
					}
				case "width":
					if mapping.Width == -1 {
						mapping.Width = i
					}
				case "height":
					if mapping.Height == -1 {
						mapping.Height = i
					}
				case "depth":
					if mapping.Depth == -1 {
						mapping.Depth = i
					}
				case "quantity":
					if mapping.Quantity == -1 {
						mapping.Quantity = i
					}
				case "weight":
					if mapping.Weight == -1 {
						mapping.Weight = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{
			ID:       0,
			Width:    1,
			Height:   2,
			Depth:    3,
			Quantity: 4,
			Weight:   5,
		}, false
	}

	return mapping, true
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRow extracts one item (before quantity expansion) from a row.
// Returns the item, the copy count, an error message and a warning.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, itemCount int) (freight.Item, int, string, string) {
	id := getCell(row, mapping.ID)
	if id == "" {
		id = fmt.Sprintf("item-%d", itemCount+1)
	}

	dims := [3]float64{}
	for i, col := range []struct {
		name string
		idx  int
	}{
		{"width", mapping.Width},
		{"height", mapping.Height},
		{"depth", mapping.Depth},
	} {
		raw := getCell(row, col.idx)
		if raw == "" {
			return freight.Item{}, 0, fmt.Sprintf("%s: missing %s value", rowLabel, col.name), ""
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return freight.Item{}, 0, fmt.Sprintf("%s: invalid %s %q", rowLabel, col.name, raw), ""
		}
		if v <= 0 {
			return freight.Item{}, 0, fmt.Sprintf("%s: %s must be positive", rowLabel, col.name), ""
		}
		dims[i] = v
	}

	qty := 1
	if raw := getCell(row, mapping.Quantity); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return freight.Item{}, 0, fmt.Sprintf("%s: invalid quantity %q", rowLabel, raw), ""
		}
		qty = v
	}

	var warning string
	weight := 0.0
	if raw := getCell(row, mapping.Weight); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			warning = fmt.Sprintf("%s: unreadable weight %q, assuming 0", rowLabel, raw)
		} else {
			weight = v
		}
	}

	item := freight.Item{
		ID:     id,
		Size:   freight.Dimensions{Width: dims[0], Height: dims[1], Depth: dims[2]},
		Weight: weight,
	}
	return item, qty, "", warning
}

// ImportCSV imports items from a CSV file, auto-detecting the delimiter.
func ImportCSV(path string) Result {
	result := Result{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot open file: %v", err))
		return result
	}
	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "file is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		result.Warnings = append(result.Warnings, fmt.Sprintf("detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot read CSV: %v", err))
		return result
	}
	if len(records) == 0 {
		result.Errors = append(result.Errors, "file is empty")
		return result
	}

	return importFromRows(records, "line", result.Warnings)
}

// ImportExcel imports items from the first sheet of an .xlsx workbook.
func ImportExcel(path string) Result {
	result := Result{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot open workbook: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "workbook has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot read sheet: %v", err))
		return result
	}
	if len(rows) == 0 {
		result.Errors = append(result.Errors, "sheet is empty")
		return result
	}

	return importFromRows(rows, "row", nil)
}

// ImportText imports items from the whitespace stream format, one
// "w h d" triple per line, blank lines skipped.
func ImportText(r io.Reader) Result {
	result := Result{}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		size, err := conveyor.ParseItemLine(text)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Items = append(result.Items, freight.Item{
			ID: fmt.Sprintf("item-%d", len(result.Items)+1),
			Size: freight.Dimensions{
				Width:  float64(size.W),
				Height: float64(size.H),
				Depth:  float64(size.D),
			},
		})
	}
	if err := scanner.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("cannot read stream: %v", err))
	}
	return result
}

// ImportTextFile imports the whitespace stream format from a file.
func ImportTextFile(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("cannot open file: %v", err)}}
	}
	defer f.Close()
	return ImportText(f)
}

// importFromRows is the shared import path for CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) Result {
	result := Result{Warnings: initialWarnings}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "detected header row, skipping")

		missing := []string{}
		if mapping.Width == -1 {
			missing = append(missing, "width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "height")
		}
		if mapping.Depth == -1 {
			missing = append(missing, "depth")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 4 {
		// No recognized header. If the width column of the first row is
		// not numeric it is probably an unknown header; skip it and keep
		// the positional mapping.
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		item, qty, errMsg, warning := parseRow(row, mapping, rowLabel, len(result.Items))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}

		for c := 0; c < qty; c++ {
			copyItem := item
			if qty > 1 {
				copyItem.ID = fmt.Sprintf("%s-%d", item.ID, c+1)
			}
			result.Items = append(result.Items, copyItem)
		}
	}

	return result
}
