package pharmacy

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultSearchLimit = 20

	// lookupCutoff is the minimum similarity ratio for a close-name lookup;
	// availabilityCutoff must be exceeded before a close name decides
	// availability.
	lookupCutoff       = 70
	availabilityCutoff = 75
)

var defaultMedicines = []CatalogEntry{
	{Name: "augmentin", Category: "antibiotic", Generic: "amoxicillin + clavulanic acid", Available: true},
	{Name: "amoxicillin", Category: "antibiotic", Generic: "amoxicillin", Available: true},
	{Name: "azithromycin", Category: "antibiotic", Generic: "azithromycin", Available: true},
	{Name: "ciprofloxacin", Category: "antibiotic", Generic: "ciprofloxacin", Available: true},
	{Name: "cephalexin", Category: "antibiotic", Generic: "cephalexin", Available: true},
	{Name: "doxycycline", Category: "antibiotic", Generic: "doxycycline", Available: true},
	{Name: "clarithromycin", Category: "antibiotic", Generic: "clarithromycin", Available: true},

	{Name: "paracetamol", Category: "analgesic", Generic: "paracetamol", Available: true},
	{Name: "acetaminophen", Category: "analgesic", Generic: "paracetamol", Available: true},
	{Name: "ibuprofen", Category: "nsaid", Generic: "ibuprofen", Available: true},
	{Name: "diclofenac", Category: "nsaid", Generic: "diclofenac", Available: true},
	{Name: "aspirin", Category: "nsaid", Generic: "aspirin", Available: true},
	{Name: "naproxen", Category: "nsaid", Generic: "naproxen", Available: true},

	{Name: "esomeprazole", Category: "ppi", Generic: "esomeprazole", Available: true},
	{Name: "omeprazole", Category: "ppi", Generic: "omeprazole", Available: true},
	{Name: "pantoprazole", Category: "ppi", Generic: "pantoprazole", Available: true},
	{Name: "lansoprazole", Category: "ppi", Generic: "lansoprazole", Available: true},
	{Name: "ranitidine", Category: "h2_blocker", Generic: "ranitidine", Available: false},

	{Name: "cetirizine", Category: "antihistamine", Generic: "cetirizine", Available: true},
	{Name: "loratadine", Category: "antihistamine", Generic: "loratadine", Available: true},
	{Name: "fexofenadine", Category: "antihistamine", Generic: "fexofenadine", Available: true},

	{Name: "gan vi", Category: "ayurvedic", Generic: "herbal supplement", Available: true},
	{Name: "crocin", Category: "analgesic", Generic: "paracetamol", Available: true},
	{Name: "combiflam", Category: "analgesic", Generic: "ibuprofen + paracetamol", Available: true},
	{Name: "dolo", Category: "analgesic", Generic: "paracetamol", Available: true},
	{Name: "volini", Category: "topical", Generic: "topical analgesic", Available: true},

	{Name: "metformin", Category: "antidiabetic", Generic: "metformin", Available: true},
	{Name: "insulin", Category: "antidiabetic", Generic: "insulin", Available: true},
	{Name: "glimepiride", Category: "antidiabetic", Generic: "glimepiride", Available: true},

	{Name: "vitamin d3", Category: "vitamin", Generic: "cholecalciferol", Available: true},
	{Name: "vitamin b12", Category: "vitamin", Generic: "cyanocobalamin", Available: true},
	{Name: "iron", Category: "mineral", Generic: "ferrous sulfate", Available: true},
	{Name: "calcium", Category: "mineral", Generic: "calcium carbonate", Available: true},
}

// Catalog is the read-only medicine list. Keys are lower case; entries are
// returned with title-cased names.
type Catalog struct {
	entries []CatalogEntry
	names   []string
	index   map[string]int
}

func DefaultCatalog() *Catalog {
	return NewCatalog(defaultMedicines)
}

func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if key == "" {
			continue
		}
		e.Name = key
		if i, ok := c.index[key]; ok {
			c.entries[i] = e
			continue
		}
		c.index[key] = len(c.entries)
		c.entries = append(c.entries, e)
		c.names = append(c.names, key)
	}
	return c
}

func (c *Catalog) Len() int { return len(c.entries) }

func (c *Catalog) display(i int) CatalogEntry {
	e := c.entries[i]
	// a Caser keeps state, so one is made per call
	e.Name = cases.Title(language.English).String(e.Name)
	return e
}

// Search returns entries whose name, generic name or category contains
// query, exact name matches first and name matches before the rest. An
// empty query lists the catalog from the start. The second result is the
// number of matches before the limit was applied.
func (c *Catalog) Search(query string, limit int) ([]CatalogEntry, int) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	var hits []int
	for i, e := range c.entries {
		if q == "" || strings.Contains(e.Name, q) ||
			strings.Contains(strings.ToLower(e.Generic), q) ||
			strings.Contains(strings.ToLower(e.Category), q) {
			hits = append(hits, i)
		}
	}
	if q != "" {
		rank := func(i int) int {
			switch name := c.entries[i].Name; {
			case name == q:
				return 0
			case strings.Contains(name, q):
				return 1
			default:
				return 2
			}
		}
		sort.SliceStable(hits, func(a, b int) bool { return rank(hits[a]) < rank(hits[b]) })
	}

	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]CatalogEntry, 0, len(hits))
	for _, i := range hits {
		out = append(out, c.display(i))
	}
	return out, total
}

// Lookup finds a medicine by exact name or, failing that, by the closest
// name scoring at least lookupCutoff. The score is 100 for exact matches.
func (c *Catalog) Lookup(name string) (CatalogEntry, int, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return CatalogEntry{}, 0, ErrNotFound
	}
	if i, ok := c.index[q]; ok {
		return c.display(i), 100, nil
	}
	i, score := c.closest(q)
	if i < 0 || score < lookupCutoff {
		return CatalogEntry{}, score, ErrNotFound
	}
	return c.display(i), score, nil
}

// Available reports stock for a prescribed name. Unknown names count as
// available.
func (c *Catalog) Available(name string) bool {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return true
	}
	if i, ok := c.index[q]; ok {
		return c.entries[i].Available
	}
	if i, score := c.closest(q); i >= 0 && score > availabilityCutoff {
		return c.entries[i].Available
	}
	return true
}

// closest prefers names that contain q's letters in order, which covers
// dropped letters, and otherwise scans the whole catalog by edit distance.
func (c *Catalog) closest(q string) (int, int) {
	ranks := fuzzy.RankFindNormalizedFold(q, c.names)
	sort.Sort(ranks)
	for _, r := range ranks {
		if score := ratio(q, r.Target); score >= lookupCutoff {
			return r.OriginalIndex, score
		}
	}

	best, bestScore := -1, 0
	for i, name := range c.names {
		if score := ratio(q, name); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// ratio is a 0-100 similarity derived from the Levenshtein distance.
func ratio(a, b string) int {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(longest))))
}
