package validate

import (
	"fmt"
	"net/url"
	"strings"

	"startupscout/internal/types"
)

// Conflict resolution for time-varying funding facts reported by more than
// one source. Precedence, in order:
//
//  1. the mention with the more recent (parseable) date wins;
//  2. among equally recent mentions, a company-operated source outranks a
//     third-party aggregator;
//  3. otherwise the funding fields are nulled with a blocker issue and a
//     suggested re-check query. Never guess.

type mention struct {
	round     *string
	dateISO   *string
	amount    *float64
	source    *string
	official  bool
	dateIssue *types.Issue
}

func sameHost(rawURL, officialHost string) bool {
	if rawURL == "" || officialHost == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.") == officialHost
}

func officialHostOf(website *string) string {
	if website == nil {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(*website))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// resolveFunding collapses funding mentions into the scalar funding fields.
// With zero or one usable mention there is nothing to resolve; the scalar
// fields (normalized separately) stand. The returned issues belong to the
// "funding.last_round_date"/"funding.last_round_amount_usd" fields.
func resolveFunding(f types.FundingInfo, website *string, startupName string) (types.FundingInfo, []types.Issue) {
	if len(f.Mentions) == 0 {
		return f, nil
	}

	officialHost := officialHostOf(website)
	var issues []types.Issue

	obs := make([]mention, 0, len(f.Mentions)+1)
	// The scalar fields, when present, count as one observation sourced from
	// the record itself (credited as official when the record's own fields
	// came from the company site).
	var scalarDateIssue *types.Issue
	if f.LastRoundDate != nil || f.LastRoundAmountUSD != nil {
		iso, dateIssue := normalizeOptionalDate("funding.last_round_date", f.LastRoundDate)
		scalarDateIssue = dateIssue
		obs = append(obs, mention{round: f.LastRound, dateISO: iso, amount: f.LastRoundAmountUSD, dateIssue: dateIssue})
	}
	for _, m := range f.Mentions {
		var iso *string
		var dateIssue *types.Issue
		if m.Date != nil {
			iso, dateIssue = NormalizeDate("funding.last_round_date", *m.Date)
		}
		src := ""
		if m.SourceURL != nil {
			src = *m.SourceURL
		}
		obs = append(obs, mention{
			round:     m.Round,
			dateISO:   iso,
			amount:    m.AmountUSD,
			source:    m.SourceURL,
			official:  sameHost(src, officialHost),
			dateIssue: dateIssue,
		})
	}

	winner, ok := pickWinner(obs)
	if !ok {
		f.LastRound = nil
		f.LastRoundDate = nil
		f.LastRoundAmountUSD = nil
		f.Mentions = nil
		issues = append(issues, *blocker("funding.last_round_date",
			"conflicting funding reports with no resolvable winner",
			fmt.Sprintf("re-check: %q latest funding round date and amount", startupName)))
		return f, issues
	}

	f.LastRound = winner.round
	f.LastRoundDate = winner.dateISO
	f.LastRoundAmountUSD = winner.amount
	f.Mentions = nil

	// A date that was present somewhere but did not survive resolution still
	// owes the verdict an issue.
	if f.LastRoundDate == nil {
		is := winner.dateIssue
		if is == nil {
			is = scalarDateIssue
		}
		if is != nil {
			kept := *is
			kept.SuggestedFix = types.Str(fmt.Sprintf("re-check: %q latest funding round date", startupName))
			issues = append(issues, kept)
		}
	}
	return f, issues
}

// pickWinner applies the precedence order. It fails only when two mentions
// that actually disagree are tied on both recency and authority.
func pickWinner(obs []mention) (mention, bool) {
	if len(obs) == 1 {
		return obs[0], true
	}

	// Level 1: most recent date. Mentions without a parseable date cannot
	// win on recency.
	best := make([]mention, 0, len(obs))
	bestDate := ""
	for _, m := range obs {
		if m.dateISO == nil {
			continue
		}
		switch {
		case *m.dateISO > bestDate:
			bestDate = *m.dateISO
			best = best[:0]
			best = append(best, m)
		case *m.dateISO == bestDate:
			best = append(best, m)
		}
	}
	if len(best) == 0 {
		// No mention carries a date; fall back to authority across all.
		best = obs
	}
	if len(best) == 1 {
		return best[0], true
	}
	if agree(best) {
		return best[0], true
	}

	// Level 2: official source outranks aggregators.
	var official []mention
	for _, m := range best {
		if m.official {
			official = append(official, m)
		}
	}
	if len(official) == 1 {
		return official[0], true
	}
	if len(official) > 1 && agree(official) {
		return official[0], true
	}

	// Level 3: unresolvable.
	return mention{}, false
}

// agree reports whether all mentions carry the same amount and date, in
// which case there is no real conflict.
func agree(ms []mention) bool {
	for _, m := range ms[1:] {
		if !eqFloatPtr(m.amount, ms[0].amount) || !eqStrPtr(m.dateISO, ms[0].dateISO) {
			return false
		}
	}
	return true
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func normalizeOptionalDate(field string, raw *string) (*string, *types.Issue) {
	if raw == nil {
		return nil, nil
	}
	return NormalizeDate(field, *raw)
}
