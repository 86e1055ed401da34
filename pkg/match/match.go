// Package match associates computed grids with user-supplied room labels.
package match

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
)

// Assignment is the room label given to one grid.
type Assignment struct {
	GridID  string
	Label   string
	Matched bool
}

// Result is the outcome of matching a set of grids against room labels.
type Result struct {
	// Assignments holds one entry per grid, ordered by grid ID.
	Assignments []Assignment
	// Unused lists the labels no grid matched, in input order.
	Unused []string
}

// Label returns the assignment for gridID.
func (r *Result) Label(gridID string) (Assignment, bool) {
	i := sort.Search(len(r.Assignments), func(i int) bool {
		return r.Assignments[i].GridID >= gridID
	})
	if i < len(r.Assignments) && r.Assignments[i].GridID == gridID {
		return r.Assignments[i], true
	}
	return Assignment{}, false
}

// Normalize reduces s to the form used for comparison. Surrounding
// whitespace is always trimmed; the remaining steps follow rules.
func Normalize(s string, rules config.NormalizeRules) string {
	s = strings.TrimSpace(s)
	if rules.CaseFold {
		s = strings.ToLower(s)
	}
	if rules.CollapseSpace {
		s = strings.Join(strings.Fields(s), " ")
	}
	if rules.StripSeparators {
		s = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s)
	}
	return s
}

// Match pairs grids with labels on equality of their normalized forms.
//
// Every grid appears in the result. A grid without a label keeps its raw
// ID as label with Matched false. Each label is used at most once; when
// several grids normalize to the same label, the lowest grid ID takes it.
// Labels that collide after normalization fail with *errs.MatchError.
// The result does not depend on the order of either input.
func Match(gridIDs, labels []string, rules config.NormalizeRules) (*Result, error) {
	byKey, err := index(labels, rules)
	if err != nil {
		return nil, err
	}

	ids := append([]string(nil), gridIDs...)
	sort.Strings(ids)

	res := &Result{Assignments: make([]Assignment, 0, len(ids))}
	used := make(map[string]bool, len(byKey))
	for _, id := range ids {
		key := Normalize(id, rules)
		label, ok := byKey[key]
		if !ok || used[key] {
			res.Assignments = append(res.Assignments, Assignment{GridID: id, Label: id})
			continue
		}
		used[key] = true
		res.Assignments = append(res.Assignments, Assignment{GridID: id, Label: label, Matched: true})
	}

	for _, l := range labels {
		if key := Normalize(l, rules); key == "" || !used[key] {
			res.Unused = append(res.Unused, l)
		}
	}
	return res, nil
}

// index maps normalized keys to their label. Labels that normalize to the
// empty string can never match and are left out.
func index(labels []string, rules config.NormalizeRules) (map[string]string, error) {
	groups := make(map[string][]string, len(labels))
	for _, l := range labels {
		key := Normalize(l, rules)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], l)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	byKey := make(map[string]string, len(groups))
	for _, k := range keys {
		g := groups[k]
		if len(g) > 1 {
			sorted := append([]string(nil), g...)
			sort.Strings(sorted)
			return nil, &errs.MatchError{Normalized: k, Labels: sorted}
		}
		byKey[k] = g[0]
	}
	return byKey, nil
}
