package output

import (
	"encoding/json"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// TableRenderer is implemented by results that can render as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data as a borderless, left-aligned table.
func PrintTable(w io.Writer, data TableRenderer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader(data.Headers())
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(data.Rows())
	table.Render()
	return nil
}

// TableData is an ad-hoc TableRenderer.
type TableData struct {
	headers []string
	rows    [][]string
}

// NewTableData creates a TableData with the given headers.
func NewTableData(headers ...string) *TableData {
	return &TableData{headers: headers, rows: [][]string{}}
}

// AddRow appends a row.
func (t *TableData) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *TableData) Headers() []string { return t.headers }
func (t *TableData) Rows() [][]string  { return t.rows }

// KeyValues is an ordered list of fields. It renders as a two-column
// FIELD/VALUE table and as a JSON or YAML mapping that keeps insertion order.
type KeyValues struct {
	keys   []string
	values map[string]string
}

// NewKeyValues creates an empty KeyValues.
func NewKeyValues() *KeyValues {
	return &KeyValues{values: make(map[string]string)}
}

// Set adds or replaces a field. New keys are appended.
func (kv *KeyValues) Set(key, value string) *KeyValues {
	if _, ok := kv.values[key]; !ok {
		kv.keys = append(kv.keys, key)
	}
	kv.values[key] = value
	return kv
}

// Get returns the value of key.
func (kv *KeyValues) Get(key string) (string, bool) {
	v, ok := kv.values[key]
	return v, ok
}

func (kv *KeyValues) Headers() []string { return []string{"Field", "Value"} }

func (kv *KeyValues) Rows() [][]string {
	rows := make([][]string, 0, len(kv.keys))
	for _, k := range kv.keys {
		rows = append(rows, []string{k, kv.values[k]})
	}
	return rows
}

// MarshalYAML emits an ordered mapping node.
func (kv *KeyValues) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range kv.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.values[k], Style: yaml.DoubleQuotedStyle},
		)
	}
	return node, nil
}

// MarshalJSON emits an object with keys in insertion order.
func (kv *KeyValues) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range kv.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(kv.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
