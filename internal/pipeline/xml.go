package pipeline

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// element is one node of the parsed input document. The tree keeps enough
// structure for the fallback field lookups and can re-serialize any
// fragment for the raw_data audit copy.
type element struct {
	name     string
	attrs    map[string]string
	text     string
	children []*element
}

// parseDocument parses the whole XML document into an element tree.
// Any structural error is fatal for the batch.
func parseDocument(data []byte) (*element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *element
	var stack []*element

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &element{
				name:  t.Name.Local,
				attrs: make(map[string]string, len(t.Attr)),
			}
			for _, attr := range t.Attr {
				node.attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			} else if root == nil {
				root = node
			} else {
				return nil, errors.New("parse xml: multiple root elements")
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.text += string(t)
			}
		}
	}

	if root == nil {
		return nil, errors.New("parse xml: no root element")
	}
	return root, nil
}

// descendants collects, depth-first, every element below n (n excluded)
// for which match returns true.
func (n *element) descendants(match func(*element) bool) []*element {
	var out []*element
	var walk func(*element)
	walk = func(node *element) {
		for _, child := range node.children {
			if match(child) {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(n)
	return out
}

// childNamed returns the first direct child with exactly this tag name.
func (n *element) childNamed(name string) *element {
	for _, child := range n.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

// childNamedFold returns the first direct child whose tag name matches
// case-insensitively.
func (n *element) childNamedFold(name string) *element {
	for _, child := range n.children {
		if strings.EqualFold(child.name, name) {
			return child
		}
	}
	return nil
}

// render re-serializes the fragment, attributes in sorted order so the
// output is stable across runs.
func (n *element) render() string {
	var sb strings.Builder
	n.renderTo(&sb)
	return sb.String()
}

func (n *element) renderTo(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(n.name)

	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteString(`="`)
		_ = xml.EscapeText(sb, []byte(n.attrs[k]))
		sb.WriteByte('"')
	}

	if len(n.children) == 0 && strings.TrimSpace(n.text) == "" {
		sb.WriteString("/>")
		return
	}

	sb.WriteByte('>')
	_ = xml.EscapeText(sb, []byte(n.text))
	for _, child := range n.children {
		child.renderTo(sb)
	}
	sb.WriteString("</")
	sb.WriteString(n.name)
	sb.WriteByte('>')
}
