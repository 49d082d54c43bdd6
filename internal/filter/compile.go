package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-explore/internal/catalog"
)

// Applicability tells whether a filter is declared for a resource.
type Applicability interface {
	Applies(filterID string, r catalog.Resource) bool
}

// Compile builds the filter fragment: one "id=min,max" (slider) or
// "id=value" (toggle) term per active filter applicable to the resource,
// joined by "&" in input order. No surviving filter gives "".
func Compile(defs []Definition, r catalog.Resource, table Applicability) string {
	terms := make([]string, 0, len(defs))
	for _, d := range defs {
		if !d.Active || !table.Applies(d.ID, r) {
			continue
		}
		switch in := d.Input.(type) {
		case Slider:
			terms = append(terms, d.ID+"="+FormatNumber(in.Min)+","+FormatNumber(in.Max))
		case Toggle:
			terms = append(terms, d.ID+"="+strconv.FormatBool(bool(in)))
		}
	}
	return strings.Join(terms, "&")
}

// LcoeFragment concatenates "&key=value" for every entry in order.
func LcoeFragment(p Params) string {
	var b strings.Builder
	for _, e := range p {
		b.WriteByte('&')
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(FormatNumber(e.Value))
	}
	return b.String()
}

// FormatNumber renders v in its shortest round-tripping decimal form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Pair is a parsed key=value term.
type Pair struct {
	Key   string
	Value string
}

// Pairs splits a fragment into its terms. Empty terms, such as those left
// by a leading "&", are skipped; a term without "=" has an empty value.
func Pairs(fragment string) []Pair {
	var out []Pair
	for _, term := range strings.Split(fragment, "&") {
		if term == "" {
			continue
		}
		k, v, _ := strings.Cut(term, "=")
		out = append(out, Pair{Key: k, Value: v})
	}
	return out
}

// Canonical returns the fragment with its terms sorted, so permutations of
// the same filters share one key.
func Canonical(fragment string) string {
	pairs := Pairs(fragment)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Key != pairs[j].Key {
			return pairs[i].Key < pairs[j].Key
		}
		return pairs[i].Value < pairs[j].Value
	})
	terms := make([]string, len(pairs))
	for i, p := range pairs {
		terms[i] = p.Key + "=" + p.Value
	}
	return strings.Join(terms, "&")
}

// Canonical returns the params as sorted "key=value" terms joined by "&".
func (p Params) Canonical() string {
	return Canonical(LcoeFragment(p))
}

// Signature is the order-independent key of a compiled request: the
// canonical filter fragment, weights and LCOE factors.
func Signature(fragment string, weights, lcoe Params) string {
	return Canonical(fragment) + "|" + weights.Canonical() + "|" + lcoe.Canonical()
}
