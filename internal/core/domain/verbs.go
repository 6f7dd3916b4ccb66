package domain

import (
	"strings"
	"unicode"
)

// VerbClass is the intent an utterance's verb signals.
type VerbClass string

const (
	VerbNone      VerbClass = ""
	VerbFilter    VerbClass = "filter"
	VerbSelection VerbClass = "selection"
)

// Filter-like verbs narrow what is visible; selection-like verbs target
// rows without narrowing.
var (
	filterVerbs    = []string{"show", "keep", "include", "exclude", "filter", "only", "hide", "remove"}
	selectionVerbs = []string{"select", "pick", "choose", "highlight", "mark", "identify", "extract"}
)

// DisambiguationGuide is the verb rule stated to the translator.
const DisambiguationGuide = `Verb rule: the verb the user actually wrote decides the tool.
- show, keep, include, exclude, filter, only, hide, remove narrow what is visible: use filter_table.
- select, pick, choose, highlight, mark, identify, extract target rows without hiding others: use select_rows.
When both readings are possible, follow the verb, not the closest meaning.`

// ClassifyUtterance returns the class of the first filter- or selection-like
// verb in text, or VerbNone.
func ClassifyUtterance(text string) VerbClass {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if matchesVerb(w, filterVerbs) {
			return VerbFilter
		}
		if matchesVerb(w, selectionVerbs) {
			return VerbSelection
		}
	}
	return VerbNone
}

var inflections = []string{"", "s", "es", "ed", "d", "ing"}

func matchesVerb(word string, verbs []string) bool {
	for _, v := range verbs {
		stems := []string{v}
		if strings.HasSuffix(v, "e") {
			stems = append(stems, strings.TrimSuffix(v, "e"))
		}
		for _, stem := range stems {
			rest, ok := strings.CutPrefix(word, stem)
			if !ok {
				continue
			}
			for _, suffix := range inflections {
				if rest == suffix {
					return true
				}
			}
		}
	}
	return false
}

// Disambiguate rewrites operations whose kind contradicts the verb class:
// a single-criteria filter under a selection verb becomes selectWhere, and
// selectWhere under a filter verb becomes a filter. Other operations pass
// through unchanged.
func Disambiguate(class VerbClass, ops []Operation) []Operation {
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case FilterOperation:
			if class == VerbSelection && len(o.Filters) == 1 {
				c := o.Filters[0]
				out = append(out, SelectionOperation{Action: SelectWhere, Criteria: &c})
				continue
			}
		case SelectionOperation:
			if class == VerbFilter && o.Action == SelectWhere && o.Criteria != nil {
				out = append(out, FilterOperation{Filters: []Criteria{*o.Criteria}})
				continue
			}
		}
		out = append(out, op)
	}
	return out
}
