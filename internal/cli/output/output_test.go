package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type sample struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func (s sample) Table() *Table {
	t := NewTable("KEY", "VALUE")
	t.AddRow(s.Key, s.Value)
	return t
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"", FormatTable, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "*output.JSONFormatter"},
		{FormatYAML, "*output.YAMLFormatter"},
		{FormatTable, "*output.TableFormatter"},
		{"unknown", "*output.TableFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got := NewFormatter(tt.format)
			if name := typeName(got); name != tt.want {
				t.Errorf("NewFormatter(%q) = %s, want %s", tt.format, name, tt.want)
			}
		})
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *JSONFormatter:
		return "*output.JSONFormatter"
	case *YAMLFormatter:
		return "*output.YAMLFormatter"
	case *TableFormatter:
		return "*output.TableFormatter"
	default:
		return "unknown"
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONFormatter{}).Format(&buf, sample{Key: "a", Value: "1"}); err != nil {
		t.Fatal(err)
	}

	var got sample
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Key != "a" || got.Value != "1" {
		t.Errorf("decoded %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{
		"keys":  []string{"a", "b"},
		"total": 2,
	}
	if err := (&YAMLFormatter{}).Format(&buf, data); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Keys  []string `yaml:"keys"`
		Total int      `yaml:"total"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, buf.String())
	}
	if got.Total != 2 || len(got.Keys) != 2 {
		t.Errorf("decoded %+v", got)
	}
	if strings.Contains(buf.String(), "\t") {
		t.Errorf("YAML output should not contain tabs:\n%s", buf.String())
	}
}

func TestTableFormatter(t *testing.T) {
	tests := []struct {
		name      string
		data      any
		noHeaders bool
		want      []string
		notWant   []string
	}{
		{
			name: "table pointer",
			data: &Table{Headers: []string{"NAME", "VALUE"}, Rows: [][]string{{"key1", "value1"}}},
			want: []string{"NAME", "key1", "value1"},
		},
		{
			name: "table value",
			data: Table{Headers: []string{"COL"}, Rows: [][]string{{"data"}}},
			want: []string{"COL", "data"},
		},
		{
			name: "tabular",
			data: sample{Key: "k", Value: "v"},
			want: []string{"KEY", "VALUE", "k", "v"},
		},
		{
			name:      "no headers",
			data:      sample{Key: "k", Value: "v"},
			noHeaders: true,
			want:      []string{"k"},
			notWant:   []string{"KEY"},
		},
		{
			name: "fallback to json",
			data: map[string]int{"n": 1},
			want: []string{`"n": 1`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := &TableFormatter{NoHeaders: tt.noHeaders}
			if err := f.Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestTable_Alignment(t *testing.T) {
	tbl := NewTable("KEY", "VALUE")
	tbl.AddRow("a", "1")
	tbl.AddRow("longer-key", "multi\nline")
	tbl.AddRow("empty", "")

	var buf bytes.Buffer
	if err := tbl.Render(&buf); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	col := strings.Index(lines[0], "VALUE")
	if strings.Index(lines[1], "1") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
	if !strings.Contains(lines[2], "multi line") {
		t.Errorf("newline in cell should be flattened: %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "-") {
		t.Errorf("empty cell should render as '-': %q", lines[3])
	}
}
