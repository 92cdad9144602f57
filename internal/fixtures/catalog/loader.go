// Package catalog loads the goal category and budget template reference data.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amirasaad/finplan/pkg/domain/budget"
	"github.com/amirasaad/finplan/pkg/domain/goal"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML string

// Catalog is the parsed reference data.
type Catalog struct {
	Goals     *goal.Catalog
	Templates *budget.Catalog
}

type document struct {
	GoalCategories  []goal.CategoryDef `yaml:"goal_categories"`
	BudgetTemplates []budget.Template  `yaml:"budget_templates"`
}

// Load reads the catalog from path, or the embedded copy when path is empty.
func Load(path string) (*Catalog, error) {
	var r io.Reader
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	} else {
		r = strings.NewReader(catalogYAML)
	}
	return parse(r)
}

// MustLoadEmbedded returns the embedded catalog and panics if it is invalid.
func MustLoadEmbedded() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func parse(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	goals, err := goal.NewCatalog(doc.GoalCategories)
	if err != nil {
		return nil, err
	}
	templates, err := budget.NewCatalog(doc.BudgetTemplates)
	if err != nil {
		return nil, err
	}
	return &Catalog{Goals: goals, Templates: templates}, nil
}
