// Package selection holds the set of externally-selectable probe targets the
// user chose to include when polling the external services probe.
//
// An empty Selection means "all available endpoints". Selections are values:
// they are stored in canonical form (sorted, de-duplicated, trimmed) so two
// selections with the same members compare Equal and encode identically.
package selection

import (
	"encoding/json"
	"slices"
	"strings"
)

// Selection is an immutable set of opaque endpoint identifiers.
type Selection struct {
	ids []string
}

// All is the empty selection, meaning every available endpoint.
var All = Selection{}

// New builds a Selection from ids. Blank ids are dropped and duplicates
// collapse.
func New(ids ...string) Selection {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return All
	}
	return Selection{ids: out}
}

// IDs returns the members in sorted order. The slice is a copy.
func (s Selection) IDs() []string {
	return slices.Clone(s.ids)
}

// Len returns the number of selected endpoints.
func (s Selection) Len() int { return len(s.ids) }

// IsAll reports whether the selection is empty, meaning "all endpoints".
func (s Selection) IsAll() bool { return len(s.ids) == 0 }

// Contains reports whether id was explicitly selected.
func (s Selection) Contains(id string) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// Allows reports whether an endpoint should be polled under this selection.
func (s Selection) Allows(id string) bool {
	return s.IsAll() || s.Contains(id)
}

// Equal reports whether both selections have the same members.
func (s Selection) Equal(other Selection) bool {
	return slices.Equal(s.ids, other.ids)
}

func (s Selection) String() string {
	if s.IsAll() {
		return "all"
	}
	return strings.Join(s.ids, ",")
}

// MarshalJSON encodes the selection as a JSON array; All encodes as [].
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON decodes a JSON array of identifiers. null decodes to All.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = New(ids...)
	return nil
}
