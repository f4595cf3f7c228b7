package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"startupscout/internal/types"
)

// Statement is one parameterized SQL statement of a write plan.
type Statement struct {
	SQL  string
	Args []any
}

// WritePlan is the ordered, idempotent set of upserts an accepted verdict
// compiles to. Reprocessing the same verdict leaves the database unchanged:
// every statement conflicts on the downstream identity keys — (name,
// website) for startups, (startup, investor, round date) for funding,
// (startup, name, role) for leadership.
type WritePlan struct {
	RunID      string
	Startup    string
	Statements []Statement
}

// BuildPlan compiles an ADD verdict into a write plan. Non-ADD verdicts and
// records violating the add invariants are refused.
func BuildPlan(v types.Verdict, runID string) (*WritePlan, error) {
	if v.Action != types.ActionAdd {
		return nil, fmt.Errorf("cannot build a write plan for action %s", v.Action)
	}
	rec := v.Record
	name := strings.TrimSpace(rec.Startup.Name)
	if name == "" || rec.Sources.Primary == nil {
		return nil, fmt.Errorf("ADD verdict missing startup.name or sources.primary")
	}

	website := ""
	if rec.Startup.Website != nil {
		website = *rec.Startup.Website
	}

	plan := &WritePlan{RunID: runID, Startup: name}

	plan.Statements = append(plan.Statements, Statement{
		SQL: `INSERT INTO startups (name, website, sector, country, founded_year)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name, website) DO UPDATE SET
				sector = COALESCE(excluded.sector, sector),
				country = COALESCE(excluded.country, country),
				founded_year = COALESCE(excluded.founded_year, founded_year)`,
		Args: []any{name, website, strPtr(rec.Startup.Industry), strPtr(rec.Startup.HQCountry), intPtr(rec.Startup.YearFounded)},
	})

	// Later statements locate the startup by its identity key instead of a
	// database id, so the plan stays self-contained.
	startupID := `(SELECT id FROM startups WHERE name = ? AND website = ?)`

	roundDate := ""
	if rec.Funding.LastRoundDate != nil {
		roundDate = *rec.Funding.LastRoundDate
	}
	addInvestor := func(investor string, lead bool) {
		investor = strings.TrimSpace(investor)
		if investor == "" {
			return
		}
		plan.Statements = append(plan.Statements, Statement{
			SQL: `INSERT INTO funding_rounds (startup_id, investor_name, amount, round_date, round_type, is_lead)
				VALUES (` + startupID + `, ?, ?, ?, ?, ?)
				ON CONFLICT(startup_id, investor_name, round_date) DO UPDATE SET
					amount = COALESCE(excluded.amount, amount),
					round_type = COALESCE(excluded.round_type, round_type)`,
			Args: []any{name, website, investor, floatPtr(rec.Funding.LastRoundAmountUSD), roundDate, strPtr(rec.Funding.LastRound), boolInt(lead)},
		})
	}
	for _, inv := range rec.Funding.LeadInvestors {
		addInvestor(inv, true)
	}
	for _, inv := range rec.Funding.OtherInvestors {
		addInvestor(inv, false)
	}

	if rec.Leadership.TechnicalLeadName != nil {
		role := ""
		if rec.Leadership.Title != nil {
			role = *rec.Leadership.Title
		}
		plan.Statements = append(plan.Statements, Statement{
			SQL: `INSERT INTO leadership (startup_id, name, role, linkedin)
				VALUES (` + startupID + `, ?, ?, ?)
				ON CONFLICT(startup_id, name, role) DO UPDATE SET
					linkedin = COALESCE(excluded.linkedin, linkedin)`,
			Args: []any{name, website, *rec.Leadership.TechnicalLeadName, role, strPtr(rec.Leadership.LinkedInURL)},
		})
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verdict for audit: %w", err)
	}
	plan.Statements = append(plan.Statements, Statement{
		SQL:  `INSERT INTO raw_data (run_id, source, data) VALUES (?, ?, ?)`,
		Args: []any{runID, *rec.Sources.Primary, string(raw)},
	})

	return plan, nil
}

func strPtr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
