// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog supplies the datasets to query and the lookup table that
// maps each dataset name to the load call identifying it in its ecosystem
// (load_iris for scikit-learn, data(mtcars) for R).
//
// A catalog groups datasets into ecosystems. Each ecosystem carries a query
// template with the scope qualifier (import path, file extension) and a
// call template; a dataset may override its call. Catalogs are YAML; a
// default catalog is embedded in the binary.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/dataset-popularity/pkg/types"
)

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is the on-disk dataset catalog.
type Catalog struct {
	Ecosystems []Ecosystem `yaml:"ecosystems"`

	// dir resolves relative datasets_file paths.
	dir string
}

// Ecosystem is a group of datasets sharing one query template and one report.
type Ecosystem struct {
	Name string `yaml:"name"`

	// Output is the report file name (default <name>_datasets_counts.csv).
	Output string `yaml:"output,omitempty"`

	// Query renders the code search string from .Name and .Call.
	Query string `yaml:"query"`

	// Call renders the default load call from .Name. Empty means the
	// dataset name itself is the call.
	Call string `yaml:"call,omitempty"`

	Datasets []Dataset `yaml:"datasets,omitempty"`

	// DatasetsFile is a JSON array of names that replaces Datasets. It is
	// the format written by the registry export.
	DatasetsFile string `yaml:"datasets_file,omitempty"`

	// SkipNonIdentifiers marks names containing whitespace or a dot as not
	// queried; they are reported with the sentinel.
	SkipNonIdentifiers bool `yaml:"skip_non_identifiers,omitempty"`

	queryTmpl *template.Template
	callTmpl  *template.Template
}

// Dataset is one catalog entry. In YAML it is either a bare name or a
// mapping with name and call.
type Dataset struct {
	Name string `yaml:"name"`
	Call string `yaml:"call,omitempty"`
}

// UnmarshalYAML accepts both `- iris` and `- {name: iris, call: load_iris}`.
func (d *Dataset) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Name = value.Value
		return nil
	}
	type plain Dataset
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = Dataset(p)
	return nil
}

// Query is one rendered code search request.
type Query struct {
	Dataset   string
	Ecosystem string
	Text      string

	// Skip, when set, says why the dataset is not sent. The dataset still
	// gets a report row, carrying the failure sentinel.
	Skip string
}

// SkipNotIdentifier is the Skip reason for names held back by
// skip_non_identifiers.
const SkipNotIdentifier = "not an identifier"


// Batch is the ordered work for one ecosystem.
type Batch struct {
	Ecosystem string
	Output    string
	Queries   []Query

	// Skipped lists names marked SkipNotIdentifier. They remain in Queries
	// at their input position.
	Skipped []string
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return parse(defaultCatalog, ".")
}

// Load reads a catalog file. Relative datasets_file paths resolve against
// the catalog's directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapConfig("reading catalog", err)
	}
	return parse(data, filepath.Dir(path))
}

func parse(data []byte, dir string) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, types.WrapConfig("parsing catalog", err)
	}
	c.dir = dir
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Ecosystems) == 0 {
		return types.Configf("catalog defines no ecosystems")
	}
	seen := make(map[string]bool)
	outputs := make(map[string]string)
	for i := range c.Ecosystems {
		e := &c.Ecosystems[i]
		if e.Name == "" {
			return types.Configf("ecosystem #%d has no name", i+1)
		}
		if seen[e.Name] {
			return types.Configf("duplicate ecosystem %q", e.Name)
		}
		seen[e.Name] = true

		if e.Query == "" {
			return types.Configf("ecosystem %q has no query template", e.Name)
		}
		if len(e.Datasets) == 0 && e.DatasetsFile == "" {
			return types.Configf("ecosystem %q lists no datasets", e.Name)
		}
		for _, d := range e.Datasets {
			if strings.TrimSpace(d.Name) == "" {
				return types.Configf("ecosystem %q has a dataset without a name", e.Name)
			}
		}

		var err error
		if e.queryTmpl, err = template.New(e.Name + ".query").Option("missingkey=error").Parse(e.Query); err != nil {
			return types.WrapConfig(fmt.Sprintf("ecosystem %q query template", e.Name), err)
		}
		if e.Call != "" {
			if e.callTmpl, err = template.New(e.Name + ".call").Option("missingkey=error").Parse(e.Call); err != nil {
				return types.WrapConfig(fmt.Sprintf("ecosystem %q call template", e.Name), err)
			}
		}
		if e.Output == "" {
			e.Output = e.Name + "_datasets_counts.csv"
		}
		out := filepath.Clean(e.Output)
		if other, ok := outputs[out]; ok {
			return types.Configf("ecosystems %q and %q both write %s", other, e.Name, e.Output)
		}
		outputs[out] = e.Name
	}
	return nil
}

// Names returns the ecosystem names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Ecosystems))
	for i, e := range c.Ecosystems {
		names[i] = e.Name
	}
	return names
}

// Batches renders the queries of every ecosystem, or only of the ecosystem
// named by filter when it is not empty. Query order follows dataset order.
func (c *Catalog) Batches(filter string) ([]Batch, error) {
	var batches []Batch
	for i := range c.Ecosystems {
		e := &c.Ecosystems[i]
		if filter != "" && e.Name != filter {
			continue
		}
		b, err := c.batch(e)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if filter != "" && len(batches) == 0 {
		return nil, types.Configf("unknown ecosystem %q (catalog has %s)", filter, strings.Join(c.Names(), ", "))
	}
	return batches, nil
}

func (c *Catalog) batch(e *Ecosystem) (Batch, error) {
	datasets := e.Datasets
	if e.DatasetsFile != "" {
		names, err := c.readDatasetsFile(e.DatasetsFile)
		if err != nil {
			return Batch{}, types.WrapConfig(fmt.Sprintf("ecosystem %q datasets_file", e.Name), err)
		}
		datasets = make([]Dataset, len(names))
		for i, n := range names {
			datasets[i] = Dataset{Name: n}
		}
	}

	b := Batch{Ecosystem: e.Name, Output: e.Output}
	for _, d := range datasets {
		if e.SkipNonIdentifiers && !isIdentifier(d.Name) {
			b.Skipped = append(b.Skipped, d.Name)
			b.Queries = append(b.Queries, Query{Dataset: d.Name, Ecosystem: e.Name, Skip: SkipNotIdentifier})
			continue
		}
		text, err := e.render(d)
		if err != nil {
			return Batch{}, types.WrapConfig(fmt.Sprintf("rendering query for %s/%s", e.Name, d.Name), err)
		}
		b.Queries = append(b.Queries, Query{Dataset: d.Name, Ecosystem: e.Name, Text: text})
	}
	return b, nil
}

func (c *Catalog) readDatasetsFile(name string) ([]string, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s lists no datasets", path)
	}
	return names, nil
}

// render produces the search string for one dataset.
func (e *Ecosystem) render(d Dataset) (string, error) {
	call := d.Call
	if call == "" {
		call = d.Name
		if e.callTmpl != nil {
			var buf bytes.Buffer
			if err := e.callTmpl.Execute(&buf, map[string]string{"Name": d.Name}); err != nil {
				return "", err
			}
			call = buf.String()
		}
	}

	var buf bytes.Buffer
	if err := e.queryTmpl.Execute(&buf, map[string]string{"Name": d.Name, "Call": call}); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// isIdentifier rejects names that cannot appear bare inside a load call.
func isIdentifier(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t.")
}
