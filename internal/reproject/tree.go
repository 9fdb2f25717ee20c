package reproject

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Kind is the closed set of coordinate tree node kinds.
type Kind uint8

const (
	// KindOpaque is any value that is neither a coordinate pair nor a list,
	// e.g. a one-element array or a stray string. It is carried through as-is.
	KindOpaque Kind = iota
	// KindPair is a coordinate position: two or more numbers.
	KindPair
	// KindList is an array of nested nodes.
	KindList
)

// Node is one level of a GeoJSON "coordinates" member.
type Node struct {
	kind     Kind
	position []float64
	children []Node
	raw      json.RawMessage
}

// Pair builds a coordinate position node. Values past the second (elevation,
// measure) are kept but never transformed.
func Pair(x, y float64, extra ...float64) Node {
	pos := make([]float64, 0, 2+len(extra))
	pos = append(pos, x, y)
	pos = append(pos, extra...)
	return Node{kind: KindPair, position: pos}
}

// List builds a nested node.
func List(children ...Node) Node {
	return Node{kind: KindList, children: children}
}

// Kind reports the node kind.
func (n Node) Kind() Kind { return n.kind }

// Position returns the coordinate values of a pair node, nil otherwise.
func (n Node) Position() []float64 { return n.position }

// Children returns the nested nodes of a list node, nil otherwise.
func (n Node) Children() []Node { return n.children }

// IsZero reports whether the node was never populated (absent coordinates).
func (n Node) IsZero() bool {
	return n.kind == KindOpaque && len(n.raw) == 0
}

// Depth is the nesting depth: 0 for a pair, 1 for a list of pairs, and so on.
// Opaque leaves count as 0.
func (n Node) Depth() int {
	if n.kind != KindList {
		return 0
	}
	d := 0
	for _, c := range n.children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// Count returns the number of coordinate pairs in the tree.
func (n Node) Count() int {
	switch n.kind {
	case KindPair:
		return 1
	case KindList:
		total := 0
		for _, c := range n.children {
			total += c.Count()
		}
		return total
	default:
		return 0
	}
}

// UnmarshalJSON classifies an arbitrary JSON value into the node kinds.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*n = Node{kind: KindOpaque, raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return eris.Wrap(err, "reproject: decode coordinates")
	}

	if len(elems) > 0 && isNumber(elems[0]) {
		pos := make([]float64, 0, len(elems))
		for _, e := range elems {
			var v float64
			if !isNumber(e) || json.Unmarshal(e, &v) != nil {
				pos = nil
				break
			}
			pos = append(pos, v)
		}
		if len(pos) >= 2 {
			*n = Node{kind: KindPair, position: pos}
		} else {
			*n = Node{kind: KindOpaque, raw: append(json.RawMessage(nil), trimmed...)}
		}
		return nil
	}

	children := make([]Node, len(elems))
	for i, e := range elems {
		if err := children[i].UnmarshalJSON(e); err != nil {
			return err
		}
	}
	*n = Node{kind: KindList, children: children}
	return nil
}

// MarshalJSON writes the node back in GeoJSON array form.
func (n Node) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case KindPair:
		return json.Marshal(n.position)
	case KindList:
		children := n.children
		if children == nil {
			children = []Node{}
		}
		return json.Marshal(children)
	default:
		if len(n.raw) == 0 {
			return []byte("null"), nil
		}
		return n.raw, nil
	}
}

func isNumber(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return false
	}
	c := t[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// Walk returns a new tree with fn applied to the first two values of every
// coordinate pair. The shape of the tree is preserved; opaque leaves are
// copied unchanged.
func Walk(n Node, fn func(x, y float64) (float64, float64)) Node {
	switch n.kind {
	case KindPair:
		pos := make([]float64, len(n.position))
		copy(pos, n.position)
		pos[0], pos[1] = fn(n.position[0], n.position[1])
		return Node{kind: KindPair, position: pos}
	case KindList:
		children := make([]Node, len(n.children))
		for i, c := range n.children {
			children[i] = Walk(c, fn)
		}
		return Node{kind: KindList, children: children}
	default:
		return n
	}
}

// Geometry reprojects every coordinate pair of a tree from this zone into
// geodetic longitude/latitude.
func (z Zone) Geometry(n Node) Node {
	return Walk(n, z.ToGeodetic)
}
