// Package catalog holds the numbered table of command templates a batch is
// selected from.
//
// A Catalog is immutable once constructed. Callers build one (Default, New
// or Load) and pass it by reference to the builder; tests can inject a small
// fake table the same way.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/3leaps/gobatch/pkg/cmdline"
)

// IDWidth is the zero-padded width of catalog ids ("0001").
const IDWidth = 4

// Params are the external values substituted into templates.
type Params struct {
	// Dataset is the dataset file path passed to the analysis tool.
	Dataset string

	// ToolPath is the tool installation path (the WEKA jar in the default
	// catalog).
	ToolPath string
}

func (p Params) validate() error {
	fields := []struct{ name, v string }{{"dataset", p.Dataset}, {"tool", p.ToolPath}}
	for _, f := range fields {
		name, v := f.name, f.v
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s path is required", name)
		}
		if strings.ContainsAny(v, "\"\r\n") {
			return fmt.Errorf("%s path %q must not contain quotes or newlines", name, v)
		}
	}
	return nil
}

// LookupError reports a selected id that is not in the catalog.
type LookupError struct {
	ID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("command %s is not in the catalog", e.ID)
}

// Catalog maps zero-padded ids to compiled command templates.
type Catalog struct {
	entries map[string]*Template
	ids     []string
}

// FormatID zero-pads n to IDWidth digits.
func FormatID(n int) string {
	return fmt.Sprintf("%0*d", IDWidth, n)
}

// New compiles a catalog from id -> template text.
//
// Ids must be exactly IDWidth decimal digits and >= 1.
func New(entries map[string]string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog has no entries")
	}

	c := &Catalog{
		entries: make(map[string]*Template, len(entries)),
		ids:     make([]string, 0, len(entries)),
	}
	for id, text := range entries {
		if err := validateID(id); err != nil {
			return nil, err
		}
		tpl, err := CompileTemplate(text)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", id, err)
		}
		c.entries[id] = tpl
		c.ids = append(c.ids, id)
	}
	sort.Strings(c.ids)
	return c, nil
}

func validateID(id string) error {
	if len(id) != IDWidth {
		return fmt.Errorf("catalog id %q must be %d digits", id, IDWidth)
	}
	n, err := strconv.Atoi(id)
	if err != nil || strings.ContainsAny(id, "+-") {
		return fmt.Errorf("catalog id %q is not numeric", id)
	}
	if n < 1 {
		return fmt.Errorf("catalog id %q must be >= %s", id, FormatID(1))
	}
	return nil
}

// IDs returns the catalog ids in ascending order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.ids)
}

// Template returns the compiled template for id.
func (c *Catalog) Template(id string) (*Template, bool) {
	tpl, ok := c.entries[id]
	return tpl, ok
}

// Render materializes the command for id.
func (c *Catalog) Render(id string, p Params) (string, error) {
	tpl, ok := c.entries[id]
	if !ok {
		return "", &LookupError{ID: id}
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	return tpl.render(p), nil
}

// Resolve renders the commands for ids, in the order given.
//
// Every id is checked before anything is rendered; the first missing id is
// reported as a *LookupError.
func (c *Catalog) Resolve(ids []int, p Params) ([]string, error) {
	keys := make([]string, len(ids))
	for i, n := range ids {
		keys[i] = FormatID(n)
		if _, ok := c.entries[keys[i]]; !ok {
			return nil, &LookupError{ID: keys[i]}
		}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = c.entries[key].render(p)
	}
	return out, nil
}

var sampleParams = Params{Dataset: "/sample/dataset.arff", ToolPath: "/sample/tool.jar"}

// LogFile returns the run log name the rendered command for id appends to.
// Zero Params render with sample paths.
func (c *Catalog) LogFile(id string, p Params) (string, error) {
	tpl, ok := c.entries[id]
	if !ok {
		return "", &LookupError{ID: id}
	}
	if p == (Params{}) {
		p = sampleParams
	}
	if err := p.validate(); err != nil {
		return "", err
	}
	name, err := cmdline.LogFileName(tpl.render(p))
	if err != nil {
		return "", fmt.Errorf("catalog entry %s: %w", id, err)
	}
	return name, nil
}

// Validate renders every template with sample paths and checks the result
// can be split into arguments and labelled for run logs.
//
// It reports the first entry that would break log grouping.
func (c *Catalog) Validate() error {
	for _, id := range c.ids {
		line := c.entries[id].render(sampleParams)
		if _, err := cmdline.Split(line); err != nil {
			return fmt.Errorf("catalog entry %s: %w", id, err)
		}
		if _, err := cmdline.Derive(line); err != nil {
			return fmt.Errorf("catalog entry %s: %w", id, err)
		}
		if _, err := c.LogFile(id, sampleParams); err != nil {
			return err
		}
	}
	return nil
}
