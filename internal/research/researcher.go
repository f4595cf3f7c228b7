// Package research implements the discovery stage: it asks the research
// oracle for startup names matching an investment thesis, then fetches one
// structured candidate record per name. Everything the oracle returns is
// treated as untrusted text until it survives intake coercion.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"startupscout/internal/oracle"
	"startupscout/internal/types"
	"startupscout/internal/validate"
)

// Config holds configuration for the researcher.
type Config struct {
	// MaxNames caps how many candidate names one discovery round requests.
	MaxNames int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxNames: 10}
}

// Researcher drives the research oracle.
type Researcher struct {
	oracle oracle.Oracle
	cfg    Config
	log    *zap.Logger
}

// New creates a researcher around an oracle client.
func New(o oracle.Oracle, cfg Config, log *zap.Logger) *Researcher {
	if cfg.MaxNames <= 0 {
		cfg.MaxNames = DefaultConfig().MaxNames
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Researcher{oracle: o, cfg: cfg, log: log}
}

const discoverySystem = "You are a startup scouting researcher. " +
	"Answer with strict JSON only, no prose, no markdown fences."

// DiscoverNames asks the oracle for candidate startup names for a thesis.
func (r *Researcher) DiscoverNames(ctx context.Context, thesis string) ([]string, error) {
	prompt := fmt.Sprintf(
		"List up to %d startups with recent funding that match this thesis: %q. "+
			`Return JSON with a "names" list only, e.g. {"names": ["..."]}.`,
		r.cfg.MaxNames, thesis)

	resp, err := r.oracle.CompleteWithSystem(ctx, discoverySystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("discovery query failed: %w", err)
	}

	payload := oracle.ExtractJSON(oracle.CleanJSONResponse(resp))
	if payload == "" {
		return nil, &oracle.TransientError{Err: fmt.Errorf("discovery response carried no JSON")}
	}
	var parsed struct {
		Names []string `json:"names"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, &oracle.TransientError{Err: fmt.Errorf("discovery response not decodable: %w", err)}
	}

	names := make([]string, 0, len(parsed.Names))
	seen := make(map[string]bool)
	for _, n := range parsed.Names {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		names = append(names, n)
		if len(names) == r.cfg.MaxNames {
			break
		}
	}
	r.log.Info("discovered candidate names", zap.Int("count", len(names)))
	return names, nil
}

const candidateSystem = "You are a startup scouting researcher. " +
	"Return canonical facts as strict JSON matching the requested schema. " +
	"Use null for anything you cannot verify; never guess. No markdown fences."

// FetchCandidate asks the oracle for one structured candidate record and
// decodes it defensively. The oracle's intake issues travel with the record
// so the validator can fold them into its verdict.
func (r *Researcher) FetchCandidate(ctx context.Context, name string) (types.CandidateRecord, []types.Issue, error) {
	prompt := fmt.Sprintf(
		"Return canonical facts as JSON for startup %q with this shape: "+
			`{"startup": {"name", "website", "hq_country", "industry", "year_founded", `+
			`"ai_tech_used": [], "nvidia_stack_alignment": []}, `+
			`"funding": {"last_round", "last_round_date", "last_round_amount_usd", `+
			`"lead_investors": [], "other_investors": [], `+
			`"mentions": [{"round", "date", "amount_usd", "source_url"}]}, `+
			`"leadership": {"technical_lead_name", "title", "linkedin_url"}, `+
			`"programs": {"is_inception_member": "yes|no|unknown", "evidence_url", "other_programs": []}, `+
			`"sources": {"primary", "secondary"}}. `+
			"List every funding report you find as a mention with its source URL.",
		name)

	resp, err := r.oracle.CompleteWithSystem(ctx, candidateSystem, prompt)
	if err != nil {
		return types.CandidateRecord{}, nil, fmt.Errorf("candidate query for %q failed: %w", name, err)
	}

	payload := oracle.ExtractJSON(oracle.CleanJSONResponse(resp))
	if payload == "" {
		return types.CandidateRecord{}, nil, &oracle.TransientError{
			Err: fmt.Errorf("candidate response for %q carried no JSON", name)}
	}

	rec, issues, err := validate.DecodeCandidate([]byte(payload))
	if err != nil {
		return types.CandidateRecord{}, nil, &oracle.TransientError{
			Err: fmt.Errorf("candidate response for %q not decodable: %w", name, err)}
	}
	if strings.TrimSpace(rec.Startup.Name) == "" {
		rec.Startup.Name = name
	}
	r.log.Debug("fetched candidate",
		zap.String("name", rec.Startup.Name),
		zap.Int("intake_issues", len(issues)))
	return rec, issues, nil
}
