package models

// Package is a predefined cleaning duration offered on the package screen.
type Package struct {
	Hours int    `yaml:"hours" json:"hours"`
	Hint  string `yaml:"hint" json:"hint"`
}

// CatalogEntry maps a backend service id to its category and display data.
// Tier separates price levels of one category that the backend keeps as
// distinct services, e.g. air conditioners under and from 2HP.
type CatalogEntry struct {
	ID       string          `yaml:"id" json:"id"`
	Name     string          `yaml:"name" json:"name"`
	Category ServiceCategory `yaml:"category" json:"category"`
	Tier     string          `yaml:"tier" json:"tier,omitempty"`
	Hint     string          `yaml:"hint" json:"hint,omitempty"`
	Packages []Package       `yaml:"packages" json:"packages,omitempty"`
}

type Catalog struct {
	entries map[string]CatalogEntry
	ordered []CatalogEntry
}

func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{entries: make(map[string]CatalogEntry, len(entries))}
	for _, e := range entries {
		c.entries[e.ID] = e
	}
	c.ordered = append(c.ordered, entries...)
	return c
}

func (c *Catalog) Lookup(id string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	e, ok := c.entries[id]
	return e, ok
}

// Name returns the display name of a service or its id when unknown.
func (c *Catalog) Name(id string) string {
	if e, ok := c.Lookup(id); ok && e.Name != "" {
		return e.Name
	}
	return id
}

// Tiers returns the entries of one category in catalog order.
func (c *Catalog) Tiers(category ServiceCategory) []CatalogEntry {
	if c == nil {
		return nil
	}
	var out []CatalogEntry
	for _, e := range c.ordered {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) Entries() []CatalogEntry {
	if c == nil {
		return nil
	}
	return append([]CatalogEntry(nil), c.ordered...)
}
