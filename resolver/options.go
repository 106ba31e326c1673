package resolver

import (
	"sort"
	"strings"
	"unicode"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
)

// MaxSuggestions caps the fuzzy candidate list.
const MaxSuggestions = 200

// StopOption is a stop as offered to a user picking an origin or
// destination.
type StopOption struct {
	StopID      string `json:"stop_id"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	SearchText  string `json:"-"`
	RouteCount  int    `json:"route_count"`
}

// DisplayName renders "name – desc (code)", leaving out an empty or
// redundant description and an empty code.
func DisplayName(s gtfs.Stop) string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Desc != "" && !strings.EqualFold(s.Desc, s.Name) {
		b.WriteString(" – ")
		b.WriteString(s.Desc)
	}
	if s.Code != "" {
		b.WriteString(" (")
		b.WriteString(s.Code)
		b.WriteString(")")
	}
	return b.String()
}

// Normalize lower-cases s and collapses every run of characters that are
// not letters or digits into one space.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// BuildOptions derives one option per stop of idx, ordered by stop id.
func BuildOptions(idx *gtfs.Index) []StopOption {
	stops := idx.AllStops()
	out := make([]StopOption, 0, len(stops))
	for _, s := range stops {
		display := DisplayName(s)
		out = append(out, StopOption{
			StopID:      s.ID,
			DisplayName: display,
			Name:        s.Name,
			Code:        s.Code,
			SearchText:  Normalize(strings.Join([]string{s.Name, s.Desc, s.Code, s.ID, display}, " ")),
			RouteCount:  idx.RouteCountForStop(s.ID),
		})
	}
	return out
}

// optionSet is the option list of one index plus its exact-match lookup.
type optionSet struct {
	idx     *gtfs.Index
	options []StopOption
	exact   map[string][]int // lower-cased display name, name, code or id -> options
}

func newOptionSet(idx *gtfs.Index) *optionSet {
	set := &optionSet{idx: idx, options: BuildOptions(idx), exact: map[string][]int{}}
	for i, o := range set.options {
		seen := map[string]bool{}
		for _, k := range []string{o.DisplayName, o.Name, o.Code, o.StopID} {
			k = exactKey(k)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			set.exact[k] = append(set.exact[k], i)
		}
	}
	return set
}

func exactKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// exactMatch returns the option matching text exactly, preferring the stop
// served by the most routes, then the lower stop id.
func (set *optionSet) exactMatch(text string) (StopOption, bool) {
	hits := set.exact[exactKey(text)]
	if len(hits) == 0 {
		return StopOption{}, false
	}
	best := set.options[hits[0]]
	for _, i := range hits[1:] {
		o := set.options[i]
		if o.RouteCount > best.RouteCount || (o.RouteCount == best.RouteCount && o.StopID < best.StopID) {
			best = o
		}
	}
	return best, true
}

// match tiers for fuzzy ranking
const (
	tierDisplayPrefix = iota
	tierNamePrefix
	tierSubstring
	tierNoText
)

// suggest ranks the options whose search text contains every query token.
func (set *optionSet) suggest(query string) []StopOption {
	q := Normalize(query)
	tokens := strings.Fields(q)
	if len(tokens) == 0 {
		return nil
	}

	type ranked struct {
		opt  StopOption
		tier int
	}
	var hits []ranked
	for _, o := range set.options {
		if !containsAll(o.SearchText, tokens) {
			continue
		}
		display, name := Normalize(o.DisplayName), Normalize(o.Name)
		tier := tierNoText
		switch {
		case strings.HasPrefix(display, q):
			tier = tierDisplayPrefix
		case strings.HasPrefix(name, q):
			tier = tierNamePrefix
		case strings.Contains(display, q) || strings.Contains(name, q):
			tier = tierSubstring
		}
		hits = append(hits, ranked{o, tier})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.opt.RouteCount != b.opt.RouteCount {
			return a.opt.RouteCount > b.opt.RouteCount
		}
		if a.opt.DisplayName != b.opt.DisplayName {
			return a.opt.DisplayName < b.opt.DisplayName
		}
		return a.opt.StopID < b.opt.StopID
	})

	if len(hits) > MaxSuggestions {
		hits = hits[:MaxSuggestions]
	}
	out := make([]StopOption, len(hits))
	for i, h := range hits {
		out[i] = h.opt
	}
	return out
}

func containsAll(text string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}
