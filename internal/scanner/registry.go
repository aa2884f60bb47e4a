package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cuongbtq/content-i18n/internal/config"
	"github.com/cuongbtq/content-i18n/internal/domain"
)

var identifierRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FieldAccessor reads one translatable field out of a content record
type FieldAccessor struct {
	Name   string
	Column string
}

// Extract returns the trimmed value of the field, and false when the field is
// missing or blank.
func (a FieldAccessor) Extract(rec domain.Record) (string, bool) {
	v, ok := rec.Field(a.Name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// ContentType describes where a translatable content type lives and which of
// its fields are translated.
type ContentType struct {
	Name         string
	Table        string
	IDColumn     string
	ActiveFilter string // SQL predicate selecting eligible rows, e.g. "is_published = true"
	OrderBy      string
	Priority     int
	Fields       []FieldAccessor
}

// FieldNames returns the logical field names in registry order
func (ct ContentType) FieldNames() []string {
	names := make([]string, len(ct.Fields))
	for i, f := range ct.Fields {
		names[i] = f.Name
	}
	return names
}

// Registry is the static contentType -> fields mapping built at startup
type Registry struct {
	types  []ContentType
	byName map[string]int
}

// NewRegistry validates and indexes the given content types. Order is kept.
func NewRegistry(types ...ContentType) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(types))}

	for _, ct := range types {
		if ct.Name == "" {
			return nil, fmt.Errorf("content type name is required")
		}
		if _, dup := r.byName[ct.Name]; dup {
			return nil, fmt.Errorf("content type %s registered twice", ct.Name)
		}
		if ct.IDColumn == "" {
			ct.IDColumn = "id"
		}
		if ct.OrderBy == "" {
			ct.OrderBy = ct.IDColumn
		}
		for _, ident := range []string{ct.Table, ct.IDColumn, ct.OrderBy} {
			if !identifierRE.MatchString(ident) {
				return nil, fmt.Errorf("content type %s: invalid identifier %q", ct.Name, ident)
			}
		}
		if len(ct.Fields) == 0 {
			return nil, fmt.Errorf("content type %s has no fields", ct.Name)
		}
		ct.Fields = append([]FieldAccessor(nil), ct.Fields...)
		seen := make(map[string]bool, len(ct.Fields))
		for i, f := range ct.Fields {
			if f.Column == "" {
				f.Column = f.Name
				ct.Fields[i] = f
			}
			if !identifierRE.MatchString(f.Column) {
				return nil, fmt.Errorf("content type %s: invalid column %q", ct.Name, f.Column)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("content type %s: field %s registered twice", ct.Name, f.Name)
			}
			seen[f.Name] = true
		}

		r.byName[ct.Name] = len(r.types)
		r.types = append(r.types, ct)
	}

	return r, nil
}

// RegistryFromConfig builds the registry from configuration, falling back to
// the built-in content types when none are configured.
func RegistryFromConfig(cfgs []config.ContentTypeConfig) (*Registry, error) {
	if len(cfgs) == 0 {
		return DefaultRegistry(), nil
	}

	types := make([]ContentType, 0, len(cfgs))
	for _, c := range cfgs {
		fields := make([]FieldAccessor, 0, len(c.Fields))
		for _, f := range c.Fields {
			fields = append(fields, FieldAccessor{Name: f.Name, Column: f.Column})
		}
		types = append(types, ContentType{
			Name:         c.Name,
			Table:        c.Table,
			IDColumn:     c.IDColumn,
			ActiveFilter: c.ActiveFilter,
			OrderBy:      c.OrderBy,
			Priority:     c.Priority,
			Fields:       fields,
		})
	}

	return NewRegistry(types...)
}

// DefaultRegistry returns the built-in content types
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		ContentType{
			Name:         "page",
			Table:        "pages",
			ActiveFilter: "is_published = true",
			Priority:     100,
			Fields: []FieldAccessor{
				{Name: "title"},
				{Name: "subtitle"},
				{Name: "body"},
				{Name: "meta_title"},
				{Name: "meta_description"},
			},
		},
		ContentType{
			Name:     "site_settings",
			Table:    "site_settings",
			Priority: 90,
			Fields: []FieldAccessor{
				{Name: "tagline"},
				{Name: "footer_text"},
				{Name: "cookie_banner_text"},
			},
		},
		ContentType{
			Name:         "faq",
			Table:        "faqs",
			ActiveFilter: "is_active = true",
			OrderBy:      "sort_order",
			Priority:     80,
			Fields: []FieldAccessor{
				{Name: "question"},
				{Name: "answer"},
			},
		},
		ContentType{
			Name:         "job_posting",
			Table:        "job_postings",
			ActiveFilter: "is_active = true",
			Priority:     70,
			Fields: []FieldAccessor{
				{Name: "title"},
				{Name: "location"},
				{Name: "description"},
				{Name: "requirements"},
				{Name: "benefits"},
			},
		},
		ContentType{
			Name:         "testimonial",
			Table:        "testimonials",
			ActiveFilter: "is_active = true",
			Priority:     50,
			Fields: []FieldAccessor{
				{Name: "quote"},
				{Name: "author_role"},
			},
		},
	)
	if err != nil {
		panic("default content registry: " + err.Error())
	}
	return r
}

// Types returns the registered content types in registration order
func (r *Registry) Types() []ContentType {
	out := make([]ContentType, len(r.types))
	copy(out, r.types)
	return out
}

// Lookup returns the content type registered under name
func (r *Registry) Lookup(name string) (ContentType, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return ContentType{}, false
	}
	return r.types[idx], true
}
