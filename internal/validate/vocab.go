package validate

import "strings"

// Fixed tag vocabularies. Unrecognized tags are dropped silently; the
// downstream sheet only understands these short codes.

// AITechTags is the allowed vocabulary for startup.ai_tech_used.
var AITechTags = []string{"cv", "genai", "nlp", "robotics", "data_science", "recsys"}

// NvidiaStackTags is the allowed vocabulary for startup.nvidia_stack_alignment.
var NvidiaStackTags = []string{"cuda", "tensorrt", "triton", "dgx", "omniverse", "isaac", "riva", "nemo", "nim", "aie"}

// tagAliases maps common free-text phrasings to vocabulary codes. Matching is
// attempted after lowercasing and trimming; a phrase that contains a code or
// an alias as a substring also matches.
var tagAliases = map[string]string{
	"computer vision":             "cv",
	"vision":                      "cv",
	"image recognition":           "cv",
	"generative ai":               "genai",
	"generative":                  "genai",
	"llm":                         "genai",
	"large language model":        "genai",
	"natural language processing": "nlp",
	"natural language":            "nlp",
	"text analytics":              "nlp",
	"robotic":                     "robotics",
	"autonomous robots":           "robotics",
	"data science":                "data_science",
	"analytics":                   "data_science",
	"recommendation":              "recsys",
	"recommender":                 "recsys",
	"tensor rt":                   "tensorrt",
	"triton inference server":     "triton",
	"dgx systems":                 "dgx",
	"isaac sim":                   "isaac",
	"ai enterprise":               "aie",
	"nvidia ai enterprise":        "aie",
}

// countryCodes maps lowercase country names and common aliases to
// ISO-3166-1 alpha-2. LATAM names carry their local spellings since that is
// where the research oracle mostly operates.
var countryCodes = map[string]string{
	"brazil": "BR", "brasil": "BR",
	"mexico": "MX", "méxico": "MX",
	"argentina": "AR",
	"chile":     "CL",
	"colombia":  "CO",
	"peru":      "PE", "perú": "PE",
	"uruguay":  "UY",
	"paraguay": "PY",
	"bolivia":  "BO",
	"ecuador":  "EC",
	"venezuela": "VE",
	"costa rica": "CR",
	"panama":     "PA", "panamá": "PA",
	"guatemala":          "GT",
	"honduras":           "HN",
	"el salvador":        "SV",
	"nicaragua":          "NI",
	"dominican republic": "DO", "república dominicana": "DO",
	"cuba":          "CU",
	"united states": "US", "usa": "US", "united states of america": "US", "estados unidos": "US",
	"canada": "CA", "canadá": "CA",
	"spain": "ES", "españa": "ES",
	"portugal":       "PT",
	"united kingdom": "GB", "uk": "GB", "great britain": "GB",
	"germany":     "DE",
	"france":      "FR",
	"israel":      "IL",
	"india":       "IN",
	"china":       "CN",
	"japan":       "JP",
	"singapore":   "SG",
	"south korea": "KR",
}

// ambiguousCountries are inputs that could mean more than one place; they
// null the field and flag it for human review instead of guessing.
var ambiguousCountries = map[string]bool{
	"america":  true,
	"americas": true,
	"georgia":  true,
	"latam":    true,
	"latin america": true,
	"south america": true,
	"central america": true,
}

// knownAlpha2 is the set of codes already in canonical form; built from the
// alias map so normalization is idempotent for anything we can produce.
var knownAlpha2 = func() map[string]bool {
	set := make(map[string]bool, len(countryCodes))
	for _, code := range countryCodes {
		set[code] = true
	}
	return set
}()

func isVocabTag(tag string, vocab []string) bool {
	for _, v := range vocab {
		if tag == v {
			return true
		}
	}
	return false
}

// matchTag maps one free-text tag to a vocabulary code, or "" if nothing in
// the vocabulary applies.
func matchTag(raw string, vocab []string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return ""
	}
	if isVocabTag(tag, vocab) {
		return tag
	}
	if code, ok := tagAliases[tag]; ok && isVocabTag(code, vocab) {
		return code
	}
	// Substring pass: "CUDA acceleration" carries "cuda"; "uses computer
	// vision" carries an alias.
	for _, v := range vocab {
		if strings.Contains(tag, v) {
			return v
		}
	}
	for alias, code := range tagAliases {
		if strings.Contains(tag, alias) && isVocabTag(code, vocab) {
			return code
		}
	}
	return ""
}
