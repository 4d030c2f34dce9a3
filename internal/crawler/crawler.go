package crawler

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Crawler finds extractor documents under a directory.
type Crawler struct {
	ignored    []string
	extensions []string
}

// NewCrawler creates a crawler that skips VCS, vendor and test fixture directories.
func NewCrawler() *Crawler {
	return &Crawler{
		ignored:    []string{".git", "vendor", "node_modules", "testdata"},
		extensions: []string{".yaml", ".yml", ".json"},
	}
}

// Ignore adds directory names to skip.
func (c *Crawler) Ignore(names ...string) *Crawler {
	c.ignored = append(c.ignored, names...)
	return c
}

// ScanDocuments walks root in lexical order and calls onDocument for every
// document file. An error from the callback stops the walk.
func (c *Crawler) ScanDocuments(root string, onDocument func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !c.isDocument(d.Name()) {
			return nil
		}
		return onDocument(path)
	})
}

func (c *Crawler) isDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
