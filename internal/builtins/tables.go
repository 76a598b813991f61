package builtins

import (
	"encoding/csv"
	"strings"

	"github.com/bramblecask/macroproc/internal/engine"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// parseRows splits a function-macro payload into rows (newline-separated)
// and cells (comma-separated), the row/cell convention the table(), csv()
// and tableyaml() built-ins share.
func parseRows(payload string) [][]string {
	lines := strings.Split(strings.TrimRight(payload, "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		cells := strings.Split(l, ",")
		for i, c := range cells {
			cells[i] = strings.TrimSpace(c)
		}
		rows = append(rows, cells)
	}
	return rows
}

func registerTables(mm *engine.MacroMap) {
	// table(header_row\ndata_row\n...) renders an aligned text table using
	// lipgloss column styles, the same core API the Logger already uses for
	// colorized output (SPEC_FULL §3's lipgloss wiring), padding each
	// column to its widest cell via Style.Width/Render.
	mm.InsertFunction("table", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		rows := parseRows(args)
		if len(rows) == 0 {
			return "", true, nil
		}
		cols := len(rows[0])
		widths := make([]int, cols)
		for _, r := range rows {
			for i, c := range r {
				if i < cols && len(c) > widths[i] {
					widths[i] = len(c)
				}
			}
		}
		styles := make([]lipgloss.Style, cols)
		for i, w := range widths {
			styles[i] = lipgloss.NewStyle().Width(w)
		}
		var b strings.Builder
		for ri, r := range rows {
			cells := make([]string, cols)
			for i := 0; i < cols; i++ {
				cell := ""
				if i < len(r) {
					cell = r[i]
				}
				cells[i] = styles[i].Render(cell)
			}
			b.WriteString(strings.Join(cells, "  "))
			if ri == 0 {
				b.WriteString("\n")
				for i, w := range widths {
					if i > 0 {
						b.WriteString("  ")
					}
					b.WriteString(strings.Repeat("-", w))
				}
			}
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n"), true, nil
	})

	// csv(header_row\ndata_row\n...) re-encodes the same row convention as
	// strict RFC 4180 CSV (encoding/csv is the standard library — no pack
	// example ships a CSV library, see DESIGN.md).
	mm.InsertFunction("csv", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		rows := parseRows(args)
		var b strings.Builder
		w := csv.NewWriter(&b)
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return "", false, engine.NewError(engine.KindIO, "csv encode failed: %v", err)
			}
		}
		w.Flush()
		return strings.TrimRight(b.String(), "\n"), true, nil
	})

	// tableyaml(header_row\ndata_row\n...) emits the rows as a YAML list of
	// maps keyed by the header row, wiring gopkg.in/yaml.v3 per SPEC_FULL §3.
	mm.InsertFunction("tableyaml", func(args string, level int, proc *engine.Processor) (string, bool, error) {
		rows := parseRows(args)
		if len(rows) == 0 {
			return "[]", true, nil
		}
		header := rows[0]
		var out []map[string]string
		for _, r := range rows[1:] {
			rec := make(map[string]string, len(header))
			for i, h := range header {
				if i < len(r) {
					rec[h] = r[i]
				}
			}
			out = append(out, rec)
		}
		blob, err := yaml.Marshal(out)
		if err != nil {
			return "", false, engine.NewError(engine.KindIO, "tableyaml encode failed: %v", err)
		}
		return strings.TrimRight(string(blob), "\n"), true, nil
	})
}
