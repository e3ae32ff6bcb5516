package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
)

var classOrder = map[string]int{
	"stars":         0,
	"planets":       1,
	"dwarf_planets": 2,
	"moons":         3,
	"asteroids":     4,
	"comets":        5,
}

// UnknownClassOrder sorts classes without a fixed rank after the known ones.
const UnknownClassOrder = 100

// ObjClassMatcher extracts the object class from canonical document ids of the
// form <prefix><class>/<key>.
type ObjClassMatcher struct {
	prefix string
	re     *regexp.Regexp
}

// NewObjClassMatcher builds a matcher for a canonical collection prefix.
func NewObjClassMatcher(prefix string) ObjClassMatcher {
	return ObjClassMatcher{
		prefix: prefix,
		re:     regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(.+)/.+$`),
	}
}

// Prefix returns the canonical collection prefix.
func (m ObjClassMatcher) Prefix() string { return m.prefix }

// Match returns the class embedded in a canonical id.
func (m ObjClassMatcher) Match(id string) (string, error) {
	sub := m.re.FindStringSubmatch(id)
	if sub == nil {
		return "", fmt.Errorf("id %q does not belong to a %s* collection", id, m.prefix)
	}
	return sub[1], nil
}

// IsCanonical reports whether id addresses a canonical collection.
func (m ObjClassMatcher) IsCanonical(id string) bool {
	return m.re.MatchString(id)
}

// ClassOrder ranks an object class for display.
func ClassOrder(class string) int {
	if order, ok := classOrder[class]; ok {
		return order
	}
	return UnknownClassOrder
}

// ClassDisplayName renders a class as a plural title, e.g. "dwarf_planets"
// becomes "Dwarf Planets".
func ClassDisplayName(class string) string {
	words := strings.FieldsFunc(class, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
