package validate

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"startupscout/internal/types"
)

// Dedup policy: a candidate duplicates a known record only when BOTH the
// normalized name and the normalized website match. A name-only match with a
// differing or blank website is NOT a duplicate (distinct companies share
// names), favoring false negatives over false positives.
//
// Key normalization strips diacritics ("São" == "Sao") and drops a leading
// "www." from the website host. Both apply to the key only; stored records
// keep their original form.

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldName(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func foldWebsite(s string) string {
	w := strings.ToLower(strings.TrimSpace(s))
	if w == "" {
		return ""
	}
	if u, err := url.Parse(w); err == nil && u.Host != "" {
		u.Host = strings.TrimPrefix(u.Host, "www.")
		w = u.String()
	}
	return strings.TrimSuffix(w, "/")
}

// DedupKey is the composite identity used against the known-records snapshot.
type DedupKey struct {
	Name    string
	Website string
}

// KeyFor builds the dedup key for a name/website pair.
func KeyFor(name, website string) DedupKey {
	return DedupKey{Name: foldName(name), Website: foldWebsite(website)}
}

// FindDuplicate returns the known record the candidate collides with, if
// any. A candidate without a website never matches.
func FindDuplicate(name string, website *string, known []types.KnownRecord) (types.KnownRecord, bool) {
	if website == nil || strings.TrimSpace(*website) == "" {
		return types.KnownRecord{}, false
	}
	key := KeyFor(name, *website)
	if key.Name == "" || key.Website == "" {
		return types.KnownRecord{}, false
	}
	for _, k := range known {
		if KeyFor(k.Name, k.Website) == key {
			return k, true
		}
	}
	return types.KnownRecord{}, false
}
