package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoValidABI is returned when a document matches none of the known shapes.
var ErrNoValidABI = errors.New("no valid ABI found in document")

// Shape identifies how a facet ABI document is laid out on disk.
type Shape int

const (
	// ShapeFlat is a top-level array already in final form (or {"abi": [...]}).
	ShapeFlat Shape = iota + 1
	// ShapeContractsMap is {"contracts": {"<Facet>": {"abi": [...]}}}.
	ShapeContractsMap
	// ShapeAbiMap is {"abiMap": {"<Facet>": [...]}}.
	ShapeAbiMap
)

func (s Shape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeContractsMap:
		return "contracts"
	case ShapeAbiMap:
		return "abiMap"
	}
	return "unknown"
}

// Facet is one facet's ABI entries, kept as raw JSON so merged output
// reproduces them exactly.
type Facet struct {
	Name    string
	Entries []json.RawMessage
}

// Document is a facet ABI document normalised at load time.
type Document struct {
	Shape  Shape
	Facets []Facet
}

// ParseDocument detects the document shape and extracts its facets in
// document order.
func ParseDocument(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoValidABI
	}
	if trimmed[0] == '[' {
		entries, err := entryList(trimmed)
		if err != nil {
			return nil, errors.Wrap(ErrNoValidABI, err.Error())
		}
		return &Document{Shape: ShapeFlat, Facets: []Facet{{Entries: entries}}}, nil
	}

	top, err := orderedObject(trimmed)
	if err != nil {
		return nil, errors.Wrap(ErrNoValidABI, err.Error())
	}
	if raw, ok := top.get("contracts"); ok {
		if facets := contractsFacets(raw); len(facets) > 0 {
			return &Document{Shape: ShapeContractsMap, Facets: facets}, nil
		}
	}
	if raw, ok := top.get("abiMap"); ok {
		if facets := abiMapFacets(raw); len(facets) > 0 {
			return &Document{Shape: ShapeAbiMap, Facets: facets}, nil
		}
	}
	if raw, ok := top.get("abi"); ok {
		if entries, err := entryList(raw); err == nil {
			return &Document{Shape: ShapeFlat, Facets: []Facet{{Entries: entries}}}, nil
		}
	}
	return nil, ErrNoValidABI
}

func contractsFacets(raw json.RawMessage) []Facet {
	contracts, err := orderedObject(raw)
	if err != nil {
		return nil
	}
	var facets []Facet
	for _, c := range contracts {
		body, err := orderedObject(c.value)
		if err != nil {
			continue
		}
		abiRaw, ok := body.get("abi")
		if !ok {
			continue
		}
		entries, err := entryList(abiRaw)
		if err != nil {
			continue
		}
		facets = append(facets, Facet{Name: c.key, Entries: entries})
	}
	return facets
}

func abiMapFacets(raw json.RawMessage) []Facet {
	m, err := orderedObject(raw)
	if err != nil {
		return nil
	}
	var facets []Facet
	for _, f := range m {
		entries, err := entryList(f.value)
		if err != nil {
			continue
		}
		facets = append(facets, Facet{Name: f.key, Entries: entries})
	}
	return facets
}

func entryList(raw json.RawMessage) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type abiParam struct {
	Type       string     `json:"type"`
	Components []abiParam `json:"components"`
}

type abiEntry struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Inputs []abiParam `json:"inputs"`
}

// Merge concatenates facet entries, dropping constructors and any entry whose
// signature was already seen. Functions key on name(types), events on
// event_name(types), everything else on its type plus compact JSON.
func Merge(facets []Facet) ([]json.RawMessage, error) {
	seen := make(map[string]struct{})
	var merged []json.RawMessage
	for _, f := range facets {
		for i, raw := range f.Entries {
			var compact bytes.Buffer
			if err := json.Compact(&compact, raw); err != nil {
				return nil, errors.Wrapf(err, "facet %q entry %d", f.Name, i)
			}
			var e abiEntry
			if err := json.Unmarshal(compact.Bytes(), &e); err != nil {
				return nil, errors.Wrapf(err, "facet %q entry %d", f.Name, i)
			}
			if e.Type == "" {
				e.Type = "function"
			}
			if e.Type == "constructor" {
				continue
			}
			sig := entrySignature(e, compact.Bytes())
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			merged = append(merged, json.RawMessage(compact.Bytes()))
		}
	}
	if len(merged) == 0 {
		return nil, ErrNoValidABI
	}
	return merged, nil
}

// MergeDocument parses a document in any supported shape and returns the
// merged ABI array as JSON.
func MergeDocument(data []byte) ([]byte, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	merged, err := Merge(doc.Facets)
	if err != nil {
		return nil, err
	}
	// entries are already compact; joining them avoids re-escaping
	out := make([][]byte, len(merged))
	for i, e := range merged {
		out[i] = e
	}
	return append(append([]byte{'['}, bytes.Join(out, []byte{','})...), ']'), nil
}

func entrySignature(e abiEntry, compact []byte) string {
	switch e.Type {
	case "function":
		return e.Name + "(" + paramTypes(e.Inputs) + ")"
	case "event":
		return "event_" + e.Name + "(" + paramTypes(e.Inputs) + ")"
	}
	return e.Type + "_" + string(compact)
}

func paramTypes(params []abiParam) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = canonicalType(p)
	}
	return strings.Join(types, ",")
}

// canonicalType expands tuples to their component types, keeping any array suffix.
func canonicalType(p abiParam) string {
	if strings.HasPrefix(p.Type, "tuple") {
		return "(" + paramTypes(p.Components) + ")" + strings.TrimPrefix(p.Type, "tuple")
	}
	return p.Type
}

type member struct {
	key   string
	value json.RawMessage
}

// object is a JSON object with its keys in document order.
type object []member

func (o object) get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

func orderedObject(raw json.RawMessage) (object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var obj object
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		obj = append(obj, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}
