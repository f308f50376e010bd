package groundtruth

import (
	"regexp"
	"slices"
	"strings"

	"github.com/soocke/itemscan/domain/library"
)

var (
	separators    = regexp.MustCompile(`[_-]`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9\s]`)
	spaces        = regexp.MustCompile(`\s+`)
	parenthesised = regexp.MustCompile(`\s*\([^)]*\)`)
	trailingNum   = regexp.MustCompile(`[\s_]+\d*$`)
)

var nameSuffixes = []string{" icon", " img", " image", " item", " weapon", " tome", " char"}

// Normalize lowercases name, turns underscores and hyphens into spaces,
// drops everything else but letters, digits and spaces, and collapses runs
// of whitespace.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = separators.ReplaceAllString(n, " ")
	n = nonAlnum.ReplaceAllString(n, "")
	n = spaces.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// Variants returns the sorted, de-duplicated spellings a name may appear
// under in fixtures and catalogs.
func Variants(name string) []string {
	set := map[string]bool{}
	add := func(v string) {
		v = strings.Trim(v, "_ ")
		if v != "" {
			set[v] = true
		}
	}
	base := Normalize(name)
	add(base)
	for _, suf := range nameSuffixes {
		add(Normalize(strings.ReplaceAll(strings.ToLower(name), suf, "")))
	}
	add(strings.ReplaceAll(base, " ", "_"))
	add(Normalize(parenthesised.ReplaceAllString(name, "")))
	add(Normalize(strings.ReplaceAll(strings.ReplaceAll(name, "'s", "s"), "'", "")))
	add(trailingNum.ReplaceAllString(base, ""))

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Resolver maps fixture names to catalog ids.
type Resolver struct {
	exact    map[string]string
	variants map[string]string
}

// NewResolver indexes the ids and display names of items. When two items
// share a variant the first one in catalog order keeps it.
func NewResolver(items []*library.Item) *Resolver {
	r := &Resolver{exact: map[string]string{}, variants: map[string]string{}}
	for _, it := range items {
		for _, key := range []string{it.ID, it.Name} {
			if n := Normalize(key); n != "" {
				if _, ok := r.exact[n]; !ok {
					r.exact[n] = it.ID
				}
			}
			for _, v := range Variants(key) {
				if _, ok := r.variants[v]; !ok {
					r.variants[v] = it.ID
				}
			}
		}
	}
	return r
}

// Resolve returns the catalog id for name. An exact normalized match wins
// over a variant match.
func (r *Resolver) Resolve(name string) (string, bool) {
	if id, ok := r.exact[Normalize(name)]; ok {
		return id, true
	}
	for _, v := range Variants(name) {
		if id, ok := r.variants[v]; ok {
			return id, true
		}
	}
	return "", false
}
