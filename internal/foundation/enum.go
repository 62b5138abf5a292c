// Package foundation holds small generic helpers shared by the settings and
// task layers.
package foundation

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Normalizer maps loosely written names ("Production ", "JSON") onto a closed
// set of values.
type Normalizer[T comparable] struct {
	values map[string]T
}

// NewNormalizer creates a normalizer from name->value pairs. Names are
// matched case-insensitively with surrounding space ignored.
func NewNormalizer[T comparable](values map[string]T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	for k, v := range values {
		normalized[clean(k)] = v
	}
	return &Normalizer[T]{values: normalized}
}

// Normalize returns the value for raw, or a validation error naming field
// and the accepted names.
func (n *Normalizer[T]) Normalize(field, raw string) (T, error) {
	if v, ok := n.values[clean(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, errors.ValidationError("invalid "+field).
		WithContext("value", raw).
		WithContext("accepted", strings.Join(n.Names(), ", ")).
		Build()
}

// Names returns the accepted names, sorted.
func (n *Normalizer[T]) Names() []string {
	names := make([]string, 0, len(n.values))
	for k := range n.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
