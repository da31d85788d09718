package outlinefile

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// yamlNode accepts both the flat form written by WriteYAML and a nested
// form with children.
type yamlNode struct {
	Title    string     `yaml:"title"`
	Level    int        `yaml:"level"`
	Page     int        `yaml:"page"`
	Pages    []int      `yaml:"pages"`
	Children []yamlNode `yaml:"children"`
}

// YAMLParser reads a list of bookmarks.
type YAMLParser struct{}

func (p *YAMLParser) Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error) {
	var nodes []yamlNode
	if err := yaml.NewDecoder(r).Decode(&nodes); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var out []bookmark.Bookmark
	var walk func(nodes []yamlNode, depth int)
	walk = func(nodes []yamlNode, depth int) {
		for _, n := range nodes {
			level := n.Level
			if level <= 0 {
				level = depth
			}
			if len(n.Pages) > 0 {
				out = append(out, bookmark.New(level, n.Title, n.Pages))
			} else {
				out = append(out, withPage(level, n.Title, n.Page))
			}
			walk(n.Children, level+1)
		}
	}
	walk(nodes, 1)
	return out, nil
}

// WriteYAML writes list in the flat form YAMLParser reads back.
func WriteYAML(w io.Writer, list []bookmark.Bookmark) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if list == nil {
		list = []bookmark.Bookmark{}
	}
	if err := enc.Encode(list); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
