package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.yaml.in/yaml/v3"
)

// Fields is an ordered list of key/value pairs, such as a status reply.
// JSON and YAML render it as an object that keeps the order.
type Fields [][2]string

// Get returns the value of key.
func (f Fields) Get(key string) (string, bool) {
	for _, kv := range f {
		if kv[0] == key {
			return kv[1], true
		}
	}
	return "", false
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, kv := range f {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(kv[0])
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv[1])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (f Fields) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv[0]},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv[1]},
		)
	}
	return node, nil
}

// Table is a list of rows under named columns. JSON and YAML render it as a
// list of objects keyed by the lower-cased header.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow adds a row of cells.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders sets the table headers.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}

func (t *Table) records() []Fields {
	out := make([]Fields, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(Fields, 0, len(t.Headers))
		for i, h := range t.Headers {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			rec = append(rec, [2]string{strings.ToLower(h), cell})
		}
		out = append(out, rec)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.records())
}

// MarshalYAML implements yaml.Marshaler.
func (t *Table) MarshalYAML() (any, error) {
	return t.records(), nil
}

// Render writes the table with aligned columns.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without the header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// TableFormatter formats data as aligned text.
type TableFormatter struct {
	NoHeaders bool
}

// Format renders a *Table as columns and Fields as "key  value" lines.
// Anything else is printed with %v.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch d := data.(type) {
	case nil:
		return nil
	case *Table:
		return d.RenderWithOptions(w, f.NoHeaders)
	case Fields:
		t := &Table{}
		for _, kv := range d {
			t.AddRow(kv[0]+":", kv[1])
		}
		return t.RenderWithOptions(w, true)
	default:
		_, err := fmt.Fprintln(w, d)
		return err
	}
}
