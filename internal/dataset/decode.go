package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset and batch files are YAML (or JSON, which YAML accepts):
//
//	node:
//	  - {id: 1, u_rated: 10.5e3}
//	line:
//	  - {id: 5, from_node: 1, to_node: 2, from_status: 1}
//
// A batch maps each component either to a list of scenarios (dense form),
// each scenario a list of partial rows:
//
//	line:
//	  - [{id: 5, from_status: 0}]
//	  - [{id: 6, from_status: 0}]
//
// or to the sparse form with scenario offsets into a flat row list:
//
//	line:
//	  indptr: [0, 1, 2]
//	  data: [{id: 5, from_status: 0}, {id: 6, from_status: 0}]
//
// Integer scalars decode to Int, real scalars (including .nan) to Float.

// DecodeError reports a malformed dataset or batch document.
type DecodeError struct {
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func decodeErrorf(n *yaml.Node, format string, args ...any) *DecodeError {
	line := 0
	if n != nil {
		line = n.Line
	}
	return &DecodeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// DecodeDataset parses a dataset document.
func DecodeDataset(r io.Reader) (Dataset, error) {
	root, err := decodeRoot(r)
	if err != nil {
		return nil, err
	}
	return DecodeDatasetNode(root)
}

// DecodeBatch parses a batch document in dense or sparse form.
func DecodeBatch(r io.Reader) (Batch, error) {
	root, err := decodeRoot(r)
	if err != nil {
		return nil, err
	}
	return DecodeBatchNode(root)
}

// ReadDatasetFile parses a dataset file.
func ReadDatasetFile(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := DecodeDataset(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadBatchFile parses a batch file.
func ReadBatchFile(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	b, err := DecodeBatch(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// decodeRoot returns the top-level mapping, or nil for an empty document.
func decodeRoot(r io.Reader) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, decodeErrorf(root, "top level must be a mapping of component names")
	}
	return root, nil
}

// DecodeDatasetNode converts an already parsed YAML mapping, such as an
// embedded block of a conformance case, into a Dataset.
func DecodeDatasetNode(n *yaml.Node) (Dataset, error) {
	ds := make(Dataset)
	if n == nil || n.Kind == 0 {
		return ds, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, decodeErrorf(n, "dataset must be a mapping of component names")
	}
	err := eachEntry(n, func(component string, v *yaml.Node) error {
		rows, err := decodeRows(v)
		if err != nil {
			return fmt.Errorf("component %q: %w", component, err)
		}
		ds[component] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// DecodeBatchNode converts an already parsed YAML mapping into a Batch.
func DecodeBatchNode(n *yaml.Node) (Batch, error) {
	b := make(Batch)
	if n == nil || n.Kind == 0 {
		return b, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, decodeErrorf(n, "batch must be a mapping of component names")
	}
	err := eachEntry(n, func(component string, v *yaml.Node) error {
		scenarios, err := decodeScenarios(component, v)
		if err != nil {
			return fmt.Errorf("component %q: %w", component, err)
		}
		b[component] = scenarios
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func eachEntry(m *yaml.Node, fn func(key string, v *yaml.Node) error) error {
	seen := make(map[string]bool, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return decodeErrorf(k, "mapping key must be a scalar")
		}
		if seen[k.Value] {
			return decodeErrorf(k, "duplicate key %q", k.Value)
		}
		seen[k.Value] = true
		if err := fn(k.Value, v); err != nil {
			return err
		}
	}
	return nil
}

func decodeScenarios(component string, n *yaml.Node) ([][]Row, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		scenarios := make([][]Row, len(n.Content))
		for i, s := range n.Content {
			rows, err := decodeRows(s)
			if err != nil {
				return nil, fmt.Errorf("scenario %d: %w", i, err)
			}
			scenarios[i] = rows
		}
		return scenarios, nil

	case yaml.MappingNode:
		var sparse SparseBatch
		err := eachEntry(n, func(key string, v *yaml.Node) error {
			switch key {
			case "indptr":
				if err := v.Decode(&sparse.Indptr); err != nil {
					return decodeErrorf(v, "indptr: %v", err)
				}
			case "data":
				rows, err := decodeRows(v)
				if err != nil {
					return fmt.Errorf("data: %w", err)
				}
				sparse.Data = rows
			default:
				return decodeErrorf(v, "unexpected key %q in sparse batch (want indptr, data)", key)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return sparse.Dense(component)

	default:
		return nil, decodeErrorf(n, "batch entry must be a list of scenarios or an indptr/data mapping")
	}
}

func decodeRows(n *yaml.Node) ([]Row, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, decodeErrorf(n, "expected a list of records")
	}
	rows := make([]Row, len(n.Content))
	for i, rn := range n.Content {
		row, err := decodeRow(rn)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = row
	}
	return rows, nil
}

func decodeRow(n *yaml.Node) (Row, error) {
	if n.Kind != yaml.MappingNode {
		return nil, decodeErrorf(n, "record must be a mapping of field names")
	}
	row := make(Row, len(n.Content)/2)
	err := eachEntry(n, func(field string, v *yaml.Node) error {
		val, err := decodeValue(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
		row[field] = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func decodeValue(n *yaml.Node) (Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, decodeErrorf(n, "value must be a scalar")
	}
	switch n.ShortTag() {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, decodeErrorf(n, "integer %q: %v", n.Value, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, decodeErrorf(n, "number %q: %v", n.Value, err)
		}
		return Float(f), nil
	default:
		return nil, decodeErrorf(n, "value %q is not a number", n.Value)
	}
}
