package validate

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"startupscout/internal/types"
)

// Field normalizers. Each one is a pure transform: it returns the canonical
// value or nil, plus at most one issue. Normalizers never invent values and
// never fail for malformed input.

func warn(field, msg, fix string) *types.Issue {
	is := &types.Issue{Field: field, Severity: types.SeverityWarning, Message: msg}
	if fix != "" {
		is.SuggestedFix = types.Str(fix)
	}
	return is
}

func info(field, msg string) *types.Issue {
	return &types.Issue{Field: field, Severity: types.SeverityInfo, Message: msg}
}

func blocker(field, msg, fix string) *types.Issue {
	is := &types.Issue{Field: field, Severity: types.SeverityBlocker, Message: msg}
	if fix != "" {
		is.SuggestedFix = types.Str(fix)
	}
	return is
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// NormalizeDate converts any human or LLM-produced date string to ISO
// YYYY-MM-DD. Numeric day/month orderings that cannot be disambiguated
// (both parts <= 12) are treated as unparseable rather than guessed.
func NormalizeDate(field, raw string) (*string, *types.Issue) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.Format("2006-01-02")
			return &iso, nil
		}
	}
	if iso, ok := parseNumericDate(s); ok {
		return &iso, nil
	}
	return nil, warn(field, fmt.Sprintf("unparseable date %q", raw),
		"re-check the announcement and supply an ISO YYYY-MM-DD date")
}

// parseNumericDate handles slash/dash numeric triples like 15/06/2024 or
// 06-15-2024. It only accepts orderings where the day position is provable.
func parseNumericDate(s string) (string, bool) {
	sep := "/"
	if !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return "", false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return "", false
		}
		nums[i] = n
	}
	if nums[0] > 1000 {
		// YYYY sep M sep D already covered by layouts when zero-padded;
		// handle unpadded here.
		return buildDate(nums[0], nums[1], nums[2])
	}
	if nums[2] < 1000 {
		return "", false
	}
	a, b, year := nums[0], nums[1], nums[2]
	switch {
	case a > 12 && b <= 12:
		return buildDate(year, b, a) // DD/MM/YYYY
	case b > 12 && a <= 12:
		return buildDate(year, a, b) // MM/DD/YYYY
	default:
		return "", false // ambiguous, never guess
	}
}

func buildDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// NormalizeCountry maps a country name or alias to ISO-3166-1 alpha-2.
// Ambiguous inputs are flagged for human review; unmapped ones get an info
// issue so a reviewer can extend the alias table.
func NormalizeCountry(field, raw string) (*string, *types.Issue) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if len(s) == 2 && knownAlpha2[strings.ToUpper(s)] {
		code := strings.ToUpper(s)
		return &code, nil
	}
	lower := strings.ToLower(s)
	if ambiguousCountries[lower] {
		return nil, warn(field, fmt.Sprintf("ambiguous country %q", raw),
			"confirm the HQ country from the company site or registry")
	}
	if code, ok := countryCodes[lower]; ok {
		return &code, nil
	}
	return nil, info(field, fmt.Sprintf("unmapped country %q", raw))
}

// NormalizeURL requires an absolute http(s) URI and canonicalizes scheme and
// host casing. Relative or malformed URLs come back nil. The https
// preference applies between variants, not here: an http URL on its own is
// kept rather than rewritten to a scheme nobody verified.
func NormalizeURL(field, raw string) (*string, *types.Issue) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || !u.IsAbs() {
		fix := ""
		if err == nil && u.Host == "" && u.Path != "" && !strings.ContainsAny(u.Path, " ") {
			fix = "https://" + strings.TrimPrefix(u.Path, "/")
		}
		return nil, warn(field, fmt.Sprintf("not an absolute URL: %q", raw), fix)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, warn(field, fmt.Sprintf("unsupported URL scheme %q", u.Scheme), "")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" && u.RawQuery == "" && u.Fragment == "" {
		u.Path = ""
	}
	out := u.String()
	return &out, nil
}

var amountSuffixes = []struct {
	suffix string
	mult   float64
}{
	// Longest suffix first so "mm" is not stripped as "m".
	{"billion", 1e9}, {"bn", 1e9}, {"b", 1e9},
	{"million", 1e6}, {"mm", 1e6}, {"m", 1e6},
	{"thousand", 1e3}, {"k", 1e3},
}

// ParseAmount recovers a plain USD number from strings like "5M",
// "$5,000,000" or "US$ 1.2 billion". It returns false when the string is
// not confidently a single dollar amount.
func ParseAmount(raw string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range []string{"us$", "usd", "$", "u$s"} {
		s = strings.ReplaceAll(s, p, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	mult := 1.0
	for _, sfx := range amountSuffixes {
		if strings.HasSuffix(s, sfx.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, sfx.suffix))
			mult = sfx.mult
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n * mult, true
}

// NormalizeAmount validates an already-numeric USD amount.
func NormalizeAmount(field string, raw float64) (*float64, *types.Issue) {
	if raw <= 0 || math.IsInf(raw, 0) || math.IsNaN(raw) {
		return nil, warn(field, fmt.Sprintf("implausible funding amount %v", raw),
			"re-check the round size in USD from the funding announcement")
	}
	return &raw, nil
}

// NormalizeYear validates a founding year. Anything outside a sane window is
// nulled with a warning.
func NormalizeYear(field string, raw int) (*int, *types.Issue) {
	if raw < 1900 || raw > time.Now().Year()+1 {
		return nil, warn(field, fmt.Sprintf("implausible founding year %d", raw), "")
	}
	return &raw, nil
}

// NormalizeTags maps free-text tags onto a fixed vocabulary. Unrecognized
// tags are dropped without an issue; the result is a deduplicated set in
// first-seen order.
func NormalizeTags(raw []string, vocab []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		code := matchTag(r, vocab)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// NormalizeMembership coerces an Inception membership claim onto the
// yes/no/unknown enum. Unknown strings collapse to unknown.
func NormalizeMembership(raw string) types.Membership {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "member", "true":
		return types.MembershipYes
	case "no", "false":
		return types.MembershipNo
	default:
		return types.MembershipUnknown
	}
}
