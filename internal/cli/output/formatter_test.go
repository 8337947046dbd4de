package output

import (
	"bytes"
	"testing"
)

func sampleTable() *Table {
	t := &Table{}
	t.SetHeaders("METHOD", "PATH", "TYPE")
	t.AddRow("GET", "/calculate", "text/html")
	t.AddRow("POST", "/greet", "text/html")
	return t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "json", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatters(t *testing.T) {
	fields := Fields{{"running", "true"}, {"uptime", "5s"}}

	tests := []struct {
		name   string
		format Format
		data   any
		want   string
	}{
		{
			name:   "table of fields",
			format: FormatTable,
			data:   fields,
			want:   "running:  true\nuptime:   5s\n",
		},
		{
			name:   "table",
			format: FormatTable,
			data:   sampleTable(),
			want:   "METHOD  PATH        TYPE\nGET     /calculate  text/html\nPOST    /greet      text/html\n",
		},
		{
			name:   "json fields keep order",
			format: FormatJSON,
			data:   fields,
			want:   "{\n  \"running\": \"true\",\n  \"uptime\": \"5s\"\n}\n",
		},
		{
			name:   "json table",
			format: FormatJSON,
			data:   sampleTable(),
			want: "[\n  {\n    \"method\": \"GET\",\n    \"path\": \"/calculate\",\n    \"type\": \"text/html\"\n  },\n" +
				"  {\n    \"method\": \"POST\",\n    \"path\": \"/greet\",\n    \"type\": \"text/html\"\n  }\n]\n",
		},
		{
			name:   "yaml fields keep order",
			format: FormatYAML,
			data:   fields,
			want:   "running: \"true\"\nuptime: 5s\n",
		},
		{
			name:   "yaml table",
			format: FormatYAML,
			data:   sampleTable(),
			want:   "- method: GET\n  path: /calculate\n  type: text/html\n- method: POST\n  path: /greet\n  type: text/html\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewFormatter(tt.format).Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Format() =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{NoHeaders: true}
	if err := f.Format(&buf, sampleTable()); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("METHOD")) {
		t.Errorf("header printed: %q", buf.String())
	}
}

func TestFields_Get(t *testing.T) {
	f := Fields{{"a", "1"}, {"b", "2"}}
	if v, ok := f.Get("b"); !ok || v != "2" {
		t.Errorf("Get(b) = %q, %v", v, ok)
	}
	if _, ok := f.Get("c"); ok {
		t.Error("Get(c) found a value")
	}
}
