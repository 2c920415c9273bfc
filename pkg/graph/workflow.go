package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/parley/pkg/domain"
)

// ID is a node identifier that may be written as a number or a string.
type ID string

// UnmarshalJSON accepts both 7 and "7".
func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("node id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (id *ID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: node id must be a scalar", value.Line)
	}
	*id = ID(value.Value)
	return nil
}

// Connection points at the node on the other end of an edge.
type Connection struct {
	Node ID `json:"node" yaml:"node"`
}

// Slot is one input or output port of a node.
type Slot struct {
	Connections []Connection `json:"connections" yaml:"connections"`
}

// Record is a node as the workflow document stores it.
type Record struct {
	ID      ID              `json:"id" yaml:"id"`
	Name    string          `json:"name" yaml:"name"`
	Class   string          `json:"class" yaml:"class"`
	Data    map[string]any  `json:"data" yaml:"data"`
	Inputs  map[string]Slot `json:"inputs" yaml:"inputs"`
	Outputs map[string]Slot `json:"outputs" yaml:"outputs"`
	PosX    float64         `json:"pos_x" yaml:"pos_x"`
	PosY    float64         `json:"pos_y" yaml:"pos_y"`
}

// Document is a parsed workflow: node records keyed by id.
type Document struct {
	Nodes map[string]Record
}

type module struct {
	Data map[string]Record `json:"data" yaml:"data"`
}

type envelope struct {
	Drawflow map[string]module `json:"drawflow" yaml:"drawflow"`
}

// ParseDocument decodes a workflow document. Content starting with '{' is
// read as JSON, anything else as YAML.
func ParseDocument(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &domain.ConfigError{Reason: "empty workflow document"}
	}

	unmarshal := yaml.Unmarshal
	if trimmed[0] == '{' {
		unmarshal = json.Unmarshal
	}

	var env envelope
	if err := unmarshal(trimmed, &env); err != nil {
		return nil, &domain.ConfigError{Reason: "malformed workflow document", Err: err}
	}
	if len(env.Drawflow) > 0 {
		return fromModules(env.Drawflow)
	}

	var nodes map[string]Record
	if err := unmarshal(trimmed, &nodes); err != nil {
		return nil, &domain.ConfigError{Reason: "malformed workflow document", Err: err}
	}
	return normalize(nodes)
}

func fromModules(modules map[string]module) (*Document, error) {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := make(map[string]Record)
	for _, name := range names {
		for key, rec := range modules[name].Data {
			if _, dup := merged[key]; dup {
				return nil, &domain.ConfigError{NodeID: key, Reason: "node id used in more than one module"}
			}
			merged[key] = rec
		}
	}
	return normalize(merged)
}

// normalize makes the record id authoritative, falling back to the map key.
func normalize(in map[string]Record) (*Document, error) {
	if len(in) == 0 {
		return nil, &domain.ConfigError{Reason: "workflow has no nodes"}
	}
	out := make(map[string]Record, len(in))
	for key, rec := range in {
		if rec.ID == "" {
			rec.ID = ID(key)
		}
		id := string(rec.ID)
		if _, dup := out[id]; dup {
			return nil, &domain.ConfigError{NodeID: id, Reason: "duplicate node id"}
		}
		if rec.Class == "" {
			return nil, &domain.ConfigError{NodeID: id, Reason: "node has no class"}
		}
		out[id] = rec
	}
	return &Document{Nodes: out}, nil
}

// IDs returns the node ids in a stable order: numeric ids first by value, then the rest lexically.
func (d *Document) IDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

// endpoints flattens the connections of every slot, slots in name order
// with numeric suffixes compared as numbers (output_2 before output_10).
func endpoints(slots map[string]Slot) []string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return slotLess(names[i], names[j]) })

	var out []string
	for _, name := range names {
		for _, c := range slots[name].Connections {
			out = append(out, string(c.Node))
		}
	}
	return out
}

func slotLess(a, b string) bool {
	pa, na, okA := splitSlot(a)
	pb, nb, okB := splitSlot(b)
	if okA && okB && pa == pb && na != nb {
		return na < nb
	}
	return a < b
}

func splitSlot(name string) (string, int, bool) {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}
