package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// node is a schema-free XML element tree. Supplier feeds follow no
// shared layout, so parsing stays generic and field mapping happens
// afterwards by element name.
type node struct {
	XMLName  xml.Name
	Content  string `xml:",chardata"`
	Children []node `xml:",any"`
}

func (n *node) name() string {
	return strings.ToLower(n.XMLName.Local)
}

func (n *node) text() string {
	return strings.TrimSpace(n.Content)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(body []byte) []byte {
	return bytes.TrimPrefix(body, utf8BOM)
}

func parseDocument(body []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(stripBOM(body)))
	// Supplier feeds routinely declare legacy encodings and carry minor
	// well-formedness defects.
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var root node
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing feed XML: %w", err)
	}
	return &root, nil
}

// containerPaths are tried in order against the document root. Each path
// is relative to the root element.
var containerPaths = [][]string{
	{"products", "product"},
	{"product"},
	{"items", "item"},
	{"item"},
	{"store", "products", "product"},
	{"catalog", "products", "product"},
}

// findItems locates the repeating product elements. Known layouts are
// tried first, then any direct or once-nested child name that repeats.
func findItems(root *node) ([]node, string) {
	for _, path := range containerPaths {
		if items := childrenAtPath(root, path); len(items) > 0 {
			return items, strings.Join(path, "/")
		}
	}

	if items, name := repeatingChildren(root); len(items) > 1 {
		return items, name
	}
	for i := range root.Children {
		if items, name := repeatingChildren(&root.Children[i]); len(items) > 1 {
			return items, root.Children[i].name() + "/" + name
		}
	}
	return nil, ""
}

func childrenAtPath(root *node, path []string) []node {
	parents := []node{*root}
	for _, segment := range path[:len(path)-1] {
		var next []node
		for i := range parents {
			for _, child := range parents[i].Children {
				if child.name() == segment {
					next = append(next, child)
				}
			}
		}
		parents = next
	}

	leaf := path[len(path)-1]
	var items []node
	for i := range parents {
		for _, child := range parents[i].Children {
			if child.name() == leaf {
				items = append(items, child)
			}
		}
	}
	return items
}

func repeatingChildren(parent *node) ([]node, string) {
	counts := map[string]int{}
	for _, child := range parent.Children {
		counts[child.name()]++
	}

	best := ""
	for name, count := range counts {
		if count > 1 && (best == "" || count > counts[best]) {
			best = name
		}
	}
	if best == "" {
		return nil, ""
	}

	var items []node
	for _, child := range parent.Children {
		if child.name() == best {
			items = append(items, child)
		}
	}
	return items, best
}
