package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Resolver looks up datasets by name.
type Resolver interface {
	Lookup(ctx context.Context, name string) (Dataset, error)
}

// Catalog is a set of datasets read from a YAML file:
//
//	root: testdata
//	datasets:
//	  - name: twitter
//	    path: twitter/twitter.json
//	    source: twitter.json.gz
//	    checksum: c5b2...
//	  - name: crossref
//	    path: crossref/crossref0.jsonl
//	    source: crossref0.jsonl.zst
//	    checksum: 9f1e...
//	    corpus: true
type Catalog struct {
	// Root is the local directory datasets are fetched into.
	Root     string    `yaml:"root"`
	Datasets []Dataset `yaml:"datasets"`
}

// LoadCatalog reads and validates the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog. Unknown keys are
// rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every dataset and rejects duplicate names.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Datasets))
	for _, ds := range c.Datasets {
		if err := ds.Validate(); err != nil {
			return err
		}
		if _, ok := seen[ds.Name]; ok {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidDataset, ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}
	return nil
}

// Lookup returns the dataset called name.
func (c *Catalog) Lookup(_ context.Context, name string) (Dataset, error) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, nil
		}
	}
	return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
}

// Names returns the dataset names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		names = append(names, ds.Name)
	}
	sort.Strings(names)
	return names
}
