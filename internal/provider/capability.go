package provider

import "strings"

// Capabilities maps a locale code to the machine-translation target code.
// A nil entry marks the locale as unsupported by machine translation; a
// missing entry is treated the same way.
type Capabilities map[string]*string

func code(s string) *string { return &s }

// DefaultCapabilities is the capability table of the DeepL-compatible backend
func DefaultCapabilities() Capabilities {
	return Capabilities{
		"ar": code("AR"),
		"bg": code("BG"),
		"cs": code("CS"),
		"da": code("DA"),
		"de": code("DE"),
		"el": code("EL"),
		"en": code("EN-US"),
		"es": code("ES"),
		"et": code("ET"),
		"fi": code("FI"),
		"fr": code("FR"),
		"hu": code("HU"),
		"id": code("ID"),
		"it": code("IT"),
		"ja": code("JA"),
		"ko": code("KO"),
		"lt": code("LT"),
		"lv": code("LV"),
		"nb": code("NB"),
		"nl": code("NL"),
		"pl": code("PL"),
		"pt": code("PT-PT"),
		"ro": code("RO"),
		"ru": code("RU"),
		"sk": code("SK"),
		"sl": code("SL"),
		"sv": code("SV"),
		"tr": code("TR"),
		"uk": code("UK"),
		"zh": code("ZH"),

		"hy": nil,
		"ka": nil,
		"sq": nil,
		"sr": nil,
		"hr": nil,
		"mk": nil,
		"is": nil,
		"ga": nil,
		"mt": nil,
		"vi": nil,
		"th": nil,
		"hi": nil,
	}
}

// Merge returns a copy of c with overrides applied on top
func (c Capabilities) Merge(overrides Capabilities) Capabilities {
	out := make(Capabilities, len(c)+len(overrides))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		out[normalizeCode(k)] = v
	}
	return out
}

// Lookup returns the machine-translation code for a locale. The exact code is
// tried first, then its base language.
func (c Capabilities) Lookup(locale string) (string, bool) {
	locale = normalizeCode(locale)
	if v, ok := c[locale]; ok {
		return deref(v)
	}
	if base := baseCode(locale); base != locale {
		if v, ok := c[base]; ok {
			return deref(v)
		}
	}
	return "", false
}

func deref(v *string) (string, bool) {
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}

func normalizeCode(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

func baseCode(s string) string {
	s = normalizeCode(s)
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}
