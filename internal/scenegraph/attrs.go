package scenegraph

import (
	"fmt"
	"math"
)

// Attribute values come back from JSON as float64, bool, string or []any;
// values set in memory keep their Go types. The accessors accept both.

func (n *Node) Int(attr string) (int, error) {
	v, ok := n.Attrs[attr]
	if !ok {
		return 0, fmt.Errorf("%s.%s: attribute missing", n.Name, attr)
	}
	i, ok := toInt(v)
	if !ok {
		return 0, fmt.Errorf("%s.%s: expected integer, got %T", n.Name, attr, v)
	}
	return i, nil
}

func (n *Node) String(attr string) (string, error) {
	v, ok := n.Attrs[attr]
	if !ok {
		return "", fmt.Errorf("%s.%s: attribute missing", n.Name, attr)
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s.%s: expected string, got %T", n.Name, attr, v)
	}
	return s, nil
}

func (n *Node) Bool(attr string) (bool, error) {
	v, ok := n.Attrs[attr]
	if !ok {
		return false, fmt.Errorf("%s.%s: attribute missing", n.Name, attr)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s.%s: expected bool, got %T", n.Name, attr, v)
	}
	return b, nil
}

func (n *Node) IntArray(attr string) ([]int, error) {
	items, err := n.array(attr)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		v, ok := toInt(item)
		if !ok {
			return nil, fmt.Errorf("%s.%s[%d]: expected integer, got %T", n.Name, attr, i, item)
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *Node) BoolArray(attr string) ([]bool, error) {
	items, err := n.array(attr)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, len(items))
	for i, item := range items {
		v, ok := item.(bool)
		if !ok {
			return nil, fmt.Errorf("%s.%s[%d]: expected bool, got %T", n.Name, attr, i, item)
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *Node) StringArray(attr string) ([]string, error) {
	items, err := n.array(attr)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		v, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s.%s[%d]: expected string, got %T", n.Name, attr, i, item)
		}
		out = append(out, v)
	}
	return out, nil
}

func (n *Node) array(attr string) ([]any, error) {
	v, ok := n.Attrs[attr]
	if !ok {
		return nil, fmt.Errorf("%s.%s: attribute missing", n.Name, attr)
	}
	switch arr := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return arr, nil
	case []string:
		out := make([]any, len(arr))
		for i := range arr {
			out[i] = arr[i]
		}
		return out, nil
	case []bool:
		out := make([]any, len(arr))
		for i := range arr {
			out[i] = arr[i]
		}
		return out, nil
	case []int:
		out := make([]any, len(arr))
		for i := range arr {
			out[i] = arr[i]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s.%s: expected array, got %T", n.Name, attr, v)
	}
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	default:
		return 0, false
	}
}
