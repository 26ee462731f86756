package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ettle/strcase"

	portal "github.com/goliatone/go-insurance/components/portal"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle    = lipgloss.NewStyle()
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

const columnGap = 2

// renderTable lays rows out in aligned columns under a bold header line.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	line := func(style lipgloss.Style, cells []string) {
		parts := make([]string, len(widths))
		for i, w := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			if i < len(widths)-1 {
				w += columnGap
			}
			parts[i] = style.Width(w).Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, parts...), " "))
		b.WriteByte('\n')
	}
	line(headerStyle, headers)
	for _, row := range rows {
		line(cellStyle, row)
	}
	return b.String()
}

// recordRows turns a list reply into table rows led by the record id.
func recordRows(body any) ([][]string, error) {
	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("insurancectl: expected a record list, got %T", body)
	}
	rows := make([][]string, 0, v.Len())
	for i := range v.Len() {
		record, ok := v.Index(i).Interface().(portal.Record)
		if !ok {
			return nil, fmt.Errorf("insurancectl: %T is not a record", v.Index(i).Interface())
		}
		rows = append(rows, append([]string{record.RecordID()}, record.Cells()...))
	}
	return rows, nil
}

// fieldRows flattens a JSON object into label/value pairs in key order.
// Nested objects are expanded with a dotted label.
func fieldRows(value any) ([][]string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("insurancectl: expected an object, got %T", value)
	}
	var rows [][]string
	appendFields("", fields, &rows)
	return rows, nil
}

func appendFields(prefix string, fields map[string]any, rows *[][]string) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		label := fieldLabel(key)
		if prefix != "" {
			label = prefix + " " + label
		}
		switch v := fields[key].(type) {
		case map[string]any:
			appendFields(label, v, rows)
		case nil:
			*rows = append(*rows, []string{label, ""})
		case bool:
			*rows = append(*rows, []string{label, yesNo(v)})
		default:
			*rows = append(*rows, []string{label, fmt.Sprint(v)})
		}
	}
}

func fieldLabel(key string) string {
	if key == "_id" {
		return "ID"
	}
	return strcase.ToCase(key, strcase.TitleCase, ' ')
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func printRecord(value any) error {
	rows, err := fieldRows(value)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, renderTable([]string{"Field", "Value"}, rows))
	return nil
}
