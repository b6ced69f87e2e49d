// Package scenegraph reads and writes the host document: a flat list of named
// scene nodes, each carrying typed attributes. The host export hook writes
// render globals and render-layer nodes into it; the settings store keeps its
// own custom node alongside them.
package scenegraph

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"smedge-submit/internal/fsstore"
)

const documentSchemaVersion = 1

// DocumentSuffix is appended to a scene path to find its host document.
const DocumentSuffix = ".nodes.json"

type Node struct {
	Name  string         `json:"name"`
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type Document struct {
	SchemaVersion int    `json:"schema_version"`
	Scene         string `json:"scene,omitempty"`
	Nodes         []Node `json:"nodes"`

	path string
}

// PathForScene returns the default host document path for a scene file.
func PathForScene(scenePath string) string {
	return scenePath + DocumentSuffix
}

func New(path string) *Document {
	return &Document{SchemaVersion: documentSchemaVersion, Nodes: []Node{}, path: path}
}

// Open loads the document at path. A missing file is reported with an error
// matching os.ErrNotExist.
func Open(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("host document path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open host document %s: %w", path, err)
	}
	doc := New(path)
	if err := fsstore.ReadJSON(path, doc); err != nil {
		return nil, err
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	doc.path = path
	return doc, nil
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Save() error {
	if strings.TrimSpace(d.path) == "" {
		return errors.New("host document has no path")
	}
	if d.SchemaVersion == 0 {
		d.SchemaVersion = documentSchemaVersion
	}
	return fsstore.WriteJSON(d.path, d)
}

// Node returns the node with the given name.
func (d *Document) Node(name string) (*Node, bool) {
	for i := range d.Nodes {
		if d.Nodes[i].Name == name {
			return &d.Nodes[i], true
		}
	}
	return nil, false
}

// EnsureNode returns the named node, creating it with nodeType if absent.
// The returned pointer is only valid until the next EnsureNode call.
func (d *Document) EnsureNode(name, nodeType string) *Node {
	if n, ok := d.Node(name); ok {
		return n
	}
	d.Nodes = append(d.Nodes, Node{Name: name, Type: nodeType, Attrs: map[string]any{}})
	return &d.Nodes[len(d.Nodes)-1]
}

// NodesOfType returns matching nodes in document order.
func (d *Document) NodesOfType(nodeType string) []Node {
	out := []Node{}
	for _, n := range d.Nodes {
		if n.Type == nodeType {
			out = append(out, n)
		}
	}
	return out
}

// Attr resolves a "node.attribute" plug.
func (d *Document) Attr(plug string) (any, bool) {
	nodeName, attr, ok := strings.Cut(plug, ".")
	if !ok {
		return nil, false
	}
	n, ok := d.Node(nodeName)
	if !ok {
		return nil, false
	}
	v, ok := n.Attrs[attr]
	return v, ok
}

func (n *Node) Set(attr string, v any) {
	if n.Attrs == nil {
		n.Attrs = map[string]any{}
	}
	n.Attrs[attr] = v
}

func (n *Node) Has(attr string) bool {
	_, ok := n.Attrs[attr]
	return ok
}
