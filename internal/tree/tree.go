package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotObject is returned by Parse when the top-level value is not an object.
var ErrNotObject = errors.New("JSON value is not an object")

// Node is a JSON object that remembers the order its keys were first
// inserted. Values are *Node, []any, string, bool, nil, json.Number or any
// Go number.
type Node struct {
	fields *orderedmap.OrderedMap[string, any]
}

// New returns an empty node.
func New() *Node {
	return &Node{fields: orderedmap.New[string, any]()}
}

// Len returns the number of keys.
func (n *Node) Len() int {
	return n.fields.Len()
}

// Keys returns the keys in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, n.fields.Len())
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (n *Node) Get(key string) (any, bool) {
	return n.fields.Get(key)
}

// Put stores value under key. Overwriting keeps the key's position.
func (n *Node) Put(key string, value any) {
	n.fields.Set(key, value)
}

// Remove deletes key and reports whether it was present.
func (n *Node) Remove(key string) bool {
	_, ok := n.fields.Delete(key)
	return ok
}

// Clone returns a deep copy. Nested nodes and slices are copied; leaf values
// are shared.
func (n *Node) Clone() *Node {
	out := &Node{fields: orderedmap.New[string, any](orderedmap.WithCapacity[string, any](n.fields.Len()))}
	for pair := n.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.fields.Set(pair.Key, cloneValue(pair.Value))
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Node:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// GetOrInsert walks path from root and returns the value at its end. Missing
// intermediate nodes are created, and def is stored at the end of the path
// when nothing is there yet. A non-object value in the middle of the path is
// replaced by a new node.
func GetOrInsert(root *Node, path []string, def any) any {
	if len(path) == 0 {
		return root
	}
	parent := walkCreate(root, path[:len(path)-1])
	last := path[len(path)-1]
	if v, ok := parent.Get(last); ok {
		return v
	}
	parent.Put(last, def)
	return def
}

// SetPath stores value at path, creating intermediate nodes.
func SetPath(root *Node, path []string, value any) {
	if len(path) == 0 {
		return
	}
	walkCreate(root, path[:len(path)-1]).Put(path[len(path)-1], value)
}

// GetPath returns the value at path.
func GetPath(root *Node, path []string) (any, bool) {
	var cur any = root
	for _, key := range path {
		n, ok := cur.(*Node)
		if !ok {
			return nil, false
		}
		if cur, ok = n.Get(key); !ok {
			return nil, false
		}
	}
	return cur, true
}

// Depth returns how many leading keys of path already lead to objects.
func Depth(root *Node, path []string) int {
	cur := root
	for i, key := range path {
		v, _ := cur.Get(key)
		next, ok := v.(*Node)
		if !ok {
			return i
		}
		cur = next
	}
	return len(path)
}

// DeletePath removes the value at path. Ancestors left empty by the removal
// are removed too, except the first keep ones. Pass the Depth of the
// parent path taken before the value was inserted to drop only the objects
// that insertion created.
func DeletePath(root *Node, path []string, keep int) bool {
	if len(path) == 0 {
		return false
	}
	parents := make([]*Node, 0, len(path))
	cur := root
	for _, key := range path[:len(path)-1] {
		v, ok := cur.Get(key)
		if !ok {
			return false
		}
		next, ok := v.(*Node)
		if !ok {
			return false
		}
		parents = append(parents, cur)
		cur = next
	}
	if !cur.Remove(path[len(path)-1]) {
		return false
	}

	for i := len(parents) - 1; i >= keep && cur.Len() == 0; i-- {
		parents[i].Remove(path[i])
		cur = parents[i]
	}
	return true
}

// Merge copies every field of src into dst, in src's order. Existing fields
// are overwritten in place.
func Merge(dst, src *Node) {
	for pair := src.fields.Oldest(); pair != nil; pair = pair.Next() {
		dst.Put(pair.Key, pair.Value)
	}
}

func walkCreate(root *Node, path []string) *Node {
	cur := root
	for _, key := range path {
		v, ok := cur.Get(key)
		next, isNode := v.(*Node)
		if !ok || !isNode {
			next = New()
			cur.Put(key, next)
		}
		cur = next
	}
	return cur
}

// Parse decodes a JSON object, keeping key order at every depth. Numbers are
// kept as json.Number so they serialize exactly as written.
func Parse(data []byte) (*Node, error) {
	var syntax any
	if err := json.Unmarshal(data, &syntax); err != nil {
		return nil, err
	}
	v, err := parseRaw(bytes.TrimSpace(data))
	if err != nil {
		return nil, err
	}
	n, ok := v.(*Node)
	if !ok {
		return nil, ErrNotObject
	}
	return n, nil
}

// parseRaw decodes one valid JSON value. Objects go through an ordered map
// of raw members so nested objects keep their order too.
func parseRaw(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty JSON value")
	}
	switch raw[0] {
	case '{':
		members := orderedmap.New[string, json.RawMessage]()
		if err := members.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		n := &Node{fields: orderedmap.New[string, any](orderedmap.WithCapacity[string, any](members.Len()))}
		for pair := members.Oldest(); pair != nil; pair = pair.Next() {
			v, err := parseRaw(bytes.TrimSpace(pair.Value))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pair.Key, err)
			}
			n.Put(pair.Key, v)
		}
		return n, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, err
		}
		arr := make([]any, len(elems))
		for i, elem := range elems {
			v, err := parseRaw(bytes.TrimSpace(elem))
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
