package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

// Entities groups everything extracted from a prompt by category. Values
// keep their canonical capitalization so they read well in search queries.
type Entities struct {
	Locations     []string `json:"locations,omitempty"`
	Dates         []string `json:"dates,omitempty"`
	People        []string `json:"people,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Products      []string `json:"products,omitempty"`
	Events        []string `json:"events,omitempty"`
	KeyConcepts   []string `json:"key_concepts,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (e Entities) Empty() bool {
	return len(e.Locations) == 0 && len(e.Dates) == 0 && len(e.People) == 0 &&
		len(e.Organizations) == 0 && len(e.Products) == 0 && len(e.Events) == 0 &&
		len(e.KeyConcepts) == 0
}

// Curated dictionaries, lowercase term → canonical form. A real NER model
// would replace these; the dictionary covers the domains the bundled agents
// are routed for.
var knownLocations = map[string]string{
	"bucharest": "Bucharest",
	"bucuresti": "Bucuresti",
	"romania":   "Romania",
	"cluj":      "Cluj",
	"iasi":      "Iasi",
	"timisoara": "Timisoara",
	"brasov":    "Brasov",
	"halkidiki": "Halkidiki",
	"greece":    "Greece",
	"paris":     "Paris",
	"london":    "London",
	"berlin":    "Berlin",
	"new york":  "New York",
}

var knownOrganizations = map[string]string{
	"linkedin":  "LinkedIn",
	"google":    "Google",
	"facebook":  "Facebook",
	"twitter":   "Twitter",
	"instagram": "Instagram",
	"youtube":   "YouTube",
	"microsoft": "Microsoft",
	"apple":     "Apple",
}

var knownProducts = map[string]string{
	"iphone":   "iPhone",
	"android":  "Android",
	"bitcoin":  "Bitcoin",
	"ciorba":   "ciorba",
	"sarmale":  "sarmale",
	"mamaliga": "mamaliga",
}

var temporalTerms = map[string]string{
	"today":      "today",
	"tomorrow":   "tomorrow",
	"yesterday":  "yesterday",
	"tonight":    "tonight",
	"now":        "now",
	"last week":  "last week",
	"this week":  "this week",
	"last month": "last month",
	"this year":  "this year",
	"weekend":    "weekend",
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// numericDate matches 2024-05-01, 01/05/2024 and similar forms.
var numericDate = regexp.MustCompile(`\b\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4}\b`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"i": true, "me": true, "my": true, "you": true, "your": true, "it": true,
	"its": true, "we": true, "us": true, "our": true, "he": true, "she": true,
	"they": true, "them": true, "this": true, "that": true, "these": true,
	"what": true, "whats": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "can": true, "could": true,
	"will": true, "would": true, "should": true, "do": true, "does": true,
	"did": true, "have": true, "has": true, "had": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true, "about": true,
	"from": true, "into": true, "by": true, "as": true, "not": true, "no": true,
	"so": true, "if": true, "then": true, "there": true, "please": true,
	"tell": true, "let": true, "make": true, "give": true, "get": true,
	"some": true, "any": true, "all": true, "just": true, "also": true,
	"very": true, "really": true, "more": true, "most": true, "am": true,
}

// IsStopWord reports whether w carries no search value on its own.
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}

// ExtractEntities runs the dictionary and regex pass over a prompt. The
// categories people and events stay empty unless a dictionary term matches;
// everything significant that fits no category lands in KeyConcepts.
func ExtractEntities(prompt string) Entities {
	lower := strings.ToLower(prompt)
	var e Entities

	matched := map[string]bool{}
	collect := func(dict map[string]string, dst *[]string) {
		for term, canonical := range dict {
			if containsTerm(lower, term) {
				*dst = append(*dst, canonical)
				matched[term] = true
			}
		}
		// Map iteration order is random; keep extraction deterministic.
		sort.Strings(*dst)
	}
	collect(knownLocations, &e.Locations)
	collect(knownOrganizations, &e.Organizations)
	collect(knownProducts, &e.Products)
	collect(temporalTerms, &e.Dates)

	for _, m := range monthNames {
		if containsTerm(lower, m) {
			e.Dates = append(e.Dates, strings.ToUpper(m[:1])+m[1:])
			matched[m] = true
		}
	}
	e.Dates = append(e.Dates, numericDate.FindAllString(prompt, -1)...)

	for _, w := range Tokenize(lower) {
		if len(w) < 4 || IsStopWord(w) || matched[w] {
			continue
		}
		if !contains(e.KeyConcepts, w) {
			e.KeyConcepts = append(e.KeyConcepts, w)
		}
	}
	return e
}

var wordSplit = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lowercases a prompt and splits it into bare word tokens.
func Tokenize(s string) []string {
	return wordSplit.FindAllString(strings.ToLower(s), -1)
}

// containsTerm matches single words on word boundaries and multi-word terms
// by substring, so "tale" never fires inside "tell" but "last week" still
// matches as a phrase.
func containsTerm(lower, term string) bool {
	if strings.Contains(term, " ") {
		return strings.Contains(lower, term)
	}
	for _, w := range wordSplit.FindAllString(lower, -1) {
		if w == term {
			return true
		}
	}
	return false
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
