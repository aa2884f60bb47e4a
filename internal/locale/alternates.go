package locale

import (
	"context"
	"strings"
)

// XDefault is the hreflang value of the language-neutral alternate
const XDefault = "x-default"

// Alternate is one hreflang link
type Alternate struct {
	Hreflang string `json:"hreflang"`
	Href     string `json:"href"`
}

// Alternates returns the hreflang links for path. It is empty when at most
// one language is active; otherwise it has one entry per active language
// followed by x-default.
func (r *Resolver) Alternates(ctx context.Context, path string) ([]Alternate, error) {
	active, err := r.languages.Active(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) <= 1 {
		return []Alternate{}, nil
	}

	canonical := normalizePath(path)
	base := strings.TrimRight(r.cfg.BaseURL, "/")

	out := make([]Alternate, 0, len(active)+1)
	for _, lang := range active {
		href := base + canonical
		if !lang.IsDefault {
			href = base + prefixPath(lang.Code, canonical)
		}
		out = append(out, Alternate{Hreflang: lang.Code, Href: href})
	}
	out = append(out, Alternate{Hreflang: XDefault, Href: base + canonical})

	return out, nil
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

func prefixPath(code, path string) string {
	if path == "/" {
		return "/" + code
	}
	return "/" + code + path
}
