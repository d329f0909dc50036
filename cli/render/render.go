// Package render formats command output for the documind CLI.
//
// Format selection:
//   - --format always wins; invalid formats are errors
//   - otherwise a TTY gets table and anything else gets json
//
// --no-color only affects table output.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ronit111/documind/cli/tui"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string. Empty returns "" so the caller can
// pick the default.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Table is implemented by values that lay out their own table.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Renderer writes values in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer for the app's writer (stdout unless the
// app says otherwise) from the --format and --no-color flags.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}
	if format == "" {
		format = FormatJSON
		if f, ok := out.(*os.File); ok && IsTTY(f) {
			format = FormatTable
		}
	}
	return New(format, c.Bool("no-color"), out), nil
}

// New creates a renderer writing to out.
func New(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the output format.
func (r *Renderer) Format() Format {
	return r.format
}

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderTable(data any) error {
	if t, ok := data.(Table); ok {
		return r.writeGrid(t.Header(), t.Rows())
	}

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			_, err := fmt.Fprintln(r.out, "(none)")
			return err
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return r.renderSlice(v)
	case reflect.Struct:
		return r.renderPairs(structPairs(v))
	case reflect.Map:
		return r.renderPairs(mapPairs(v))
	default:
		_, err := fmt.Fprintf(r.out, "%v\n", data)
		return err
	}
}

func (r *Renderer) renderSlice(v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}
	first := indirect(v.Index(0))
	if first.Kind() != reflect.Struct {
		for i := range v.Len() {
			if _, err := fmt.Fprintln(r.out, formatValue(v.Index(i))); err != nil {
				return err
			}
		}
		return nil
	}

	var header []string
	for _, p := range structPairs(first) {
		header = append(header, p[0])
	}
	rows := make([][]string, 0, v.Len())
	for i := range v.Len() {
		var row []string
		for _, p := range structPairs(indirect(v.Index(i))) {
			row = append(row, p[1])
		}
		rows = append(rows, row)
	}
	return r.writeGrid(header, rows)
}

func (r *Renderer) writeGrid(header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// style after alignment so escape codes do not skew column widths
	head, body, _ := strings.Cut(buf.String(), "\n")
	if !r.noColor {
		head = tui.HeaderStyle.Render(head)
	}
	_, err := fmt.Fprintf(r.out, "%s\n%s", head, body)
	return err
}

func (r *Renderer) renderPairs(pairs [][2]string) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, p := range pairs {
		label := p[0] + ":"
		if !r.noColor {
			label = tui.LabelStyle.UnsetWidth().Render(label)
		}
		fmt.Fprintf(w, "%s\t%s\n", label, p[1])
	}
	return w.Flush()
}

func structPairs(v reflect.Value) [][2]string {
	t := v.Type()
	var pairs [][2]string
	for i := range t.NumField() {
		f := t.Field(i)
		name, skip := fieldName(f)
		if skip {
			continue
		}
		pairs = append(pairs, [2]string{name, formatValue(v.Field(i))})
	}
	return pairs
}

func mapPairs(v reflect.Value) [][2]string {
	pairs := make([][2]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		pairs = append(pairs, [2]string{fmt.Sprint(iter.Key().Interface()), formatValue(iter.Value())})
	}
	slices.SortFunc(pairs, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
	return pairs
}

// fieldName prefers the json tag name. Unexported and json:"-" fields are skipped.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", true
	}
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return "", true
	case "":
		return strings.ToLower(f.Name), false
	default:
		return name, false
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

func formatValue(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if s, ok := v.Interface().(fmt.Stringer); ok && !(v.Kind() == reflect.Pointer && v.IsNil()) {
		return s.String()
	}
	v = indirect(v)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		return ""
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// IsTTY reports whether f is a character device.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
