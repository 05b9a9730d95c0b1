// Package schema describes the sales database to the LLM.
//
// The pipeline works best when the model sees both curated documentation,
// which explains what the tables mean in business terms, and a live
// snapshot of the connected database, which tells it what actually
// exists. Build combines the two into the schema context string that the
// planner and SQL generator prompts embed.
package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/alt-coder/synthio/store"
)

// Documentation is the curated description of the star schema.
const Documentation = `## Database Schema Documentation

### Dimension Tables (Reference Data)

#### hcp_dim (Healthcare Professionals)
Contains a directory of doctors/healthcare providers.
- **hcp_id** (INTEGER): Unique identifier for the doctor
- **full_name** (TEXT): Name of the doctor (e.g., Dr. Blake Garcia)
- **specialty** (TEXT): Medical specialty (Rheumatology, Internal Medicine, Nephrology)
- **tier** (TEXT): Classification tier (A, B, C) - priority/value of the doctor
- **territory_id** (INTEGER): Links to territory_dim

#### account_dim (Accounts/Facilities)
Contains information about hospitals and clinics.
- **account_id** (INTEGER): Unique identifier for the facility
- **name** (TEXT): Name of the hospital or clinic
- **account_type** (TEXT): Type of facility (Hospital, Clinic)
- **address** (TEXT): City and State location
- **territory_id** (INTEGER): Links to territory_dim

#### rep_dim (Sales Representatives)
Contains details about sales representatives.
- **rep_id** (INTEGER): Unique identifier for the sales rep
- **first_name** (TEXT): First name of the representative
- **last_name** (TEXT): Last name of the representative
- **region** (TEXT): Descriptive name of the region (e.g., Territory 1)

#### territory_dim (Territory Structure)
Defines geographical/organizational hierarchies.
- **territory_id** (INTEGER): Unique ID linking to HCPs and Accounts
- **name** (TEXT): Name of the territory
- **geo_type** (TEXT): Area type description (State Cluster, Metro Area)
- **parent_territory_id** (INTEGER): Parent territory for hierarchy

#### date_dim (Calendar/Time)
Master calendar table for time-based analysis.
- **date_id** (INTEGER): Integer representation of date (e.g., 20240801)
- **quarter** (TEXT): Fiscal/calendar quarter (Q1, Q2, Q3, Q4)
- **week_num** (INTEGER): Week number of the year
- **day_of_week** (TEXT): Day name

### Fact Tables (Transactional/Metric Data)

#### fact_rx (Prescription Sales)
Tracks prescription volumes by doctors over time.
- **hcp_id** (INTEGER): Links to hcp_dim - doctor writing the script
- **date_id** (INTEGER): Links to date_dim - when prescription was recorded
- **brand_code** (TEXT): Drug being prescribed (e.g., "GAZYVA")
- **trx_cnt** (INTEGER): Total Prescriptions count
- **nrx_cnt** (INTEGER): New Prescriptions count (new-to-brand)

#### fact_rep_activity (Sales Rep Activities)
Log of interactions between sales reps and doctors/accounts.
- **rep_id** (INTEGER): Links to rep_dim - rep who performed activity
- **hcp_id** (INTEGER): Links to hcp_dim - doctor contacted
- **account_id** (INTEGER): Links to account_dim - facility visited
- **activity_type** (TEXT): Nature of interaction (call, lunch_meeting)
- **status** (TEXT): Outcome (completed, cancelled)
- **duration_min** (INTEGER): Interaction duration in minutes

#### fact_ln_metrics (Patient & Market Metrics)
Aggregated market intelligence data.
- **entity_id** (INTEGER): Links to hcp_dim (when entity_type is 'H')
- **entity_type** (TEXT): Type of entity ('H' for HCP)
- **quarter_id** (TEXT): Time period for the metric (e.g., "2024Q3")
- **ln_patient_cnt** (INTEGER): Count of patients seen by entity
- **est_market_share** (REAL): Estimated market share percentage

#### fact_payor_mix (Insurance/Payor Data)
Breakdown of payment sources for accounts.
- **account_id** (INTEGER): Links to account_dim
- **payor_type** (TEXT): Insurance category (Commercial, Medicare, Medicaid)
- **pct_of_volume** (REAL): Percentage of account's volume from payor type

### Key Relationships
- hcp_dim.territory_id -> territory_dim.territory_id
- account_dim.territory_id -> territory_dim.territory_id
- fact_rx.hcp_id -> hcp_dim.hcp_id
- fact_rx.date_id -> date_dim.date_id
- fact_rep_activity.rep_id -> rep_dim.rep_id
- fact_rep_activity.hcp_id -> hcp_dim.hcp_id
- fact_rep_activity.account_id -> account_dim.account_id
- fact_ln_metrics.entity_id -> hcp_dim.hcp_id (when entity_type='H')
- fact_payor_mix.account_id -> account_dim.account_id
`

// sampleLimit is how many rows of each table the live snapshot shows.
const sampleLimit = 2

// Introspector is the database capability the builder needs.
type Introspector interface {
	TableNames(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) ([]store.Column, error)
	SampleRows(ctx context.Context, table string, limit int) (*store.QueryResult, error)
	RowCount(ctx context.Context, table string) (int64, error)
}

// Build assembles the schema context string: the curated documentation
// followed by a live snapshot of the connected database. Sample rows are
// best effort; a table that cannot be sampled is listed without them.
func Build(ctx context.Context, db Introspector, includeSamples bool) (string, error) {
	var b strings.Builder
	b.WriteString(Documentation)
	b.WriteString("\n### Current Database Tables\n")

	tables, err := db.TableNames(ctx)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}
	sort.Strings(tables)

	for _, table := range tables {
		count, err := db.RowCount(ctx, table)
		if err != nil {
			return "", fmt.Errorf("counting rows in %s: %w", table, err)
		}
		columns, err := db.TableSchema(ctx, table)
		if err != nil {
			return "", fmt.Errorf("describing %s: %w", table, err)
		}

		names := make([]string, len(columns))
		for i, column := range columns {
			names[i] = "`" + column.Name + "`"
		}

		fmt.Fprintf(&b, "\n**%s** (%d rows)\n", table, count)
		b.WriteString("Columns: " + strings.Join(names, ", ") + "\n")

		if !includeSamples {
			continue
		}
		sample, err := db.SampleRows(ctx, table, sampleLimit)
		if err != nil || len(sample.Rows) == 0 {
			continue
		}
		b.WriteString("\nSample data:\n```\n")
		b.WriteString(alignRows(sample))
		b.WriteString("```\n")
	}

	return b.String(), nil
}

// Fingerprint returns a short stable digest of a schema context string.
// Caches key on it so reloading the data or changing the tables
// invalidates old answers.
func Fingerprint(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:8])
}

// Relationships returns the foreign key links between tables.
func Relationships() map[string][]string {
	return map[string][]string{
		"hcp_dim":           {"territory_dim"},
		"account_dim":       {"territory_dim"},
		"fact_rx":           {"hcp_dim", "date_dim"},
		"fact_rep_activity": {"rep_dim", "hcp_dim", "account_dim"},
		"fact_ln_metrics":   {"hcp_dim"},
		"fact_payor_mix":    {"account_dim"},
	}
}

// alignRows renders a query result as fixed-width columns.
func alignRows(result *store.QueryResult) string {
	widths := make([]int, len(result.Columns))
	for i, column := range result.Columns {
		widths[i] = len(column)
	}

	cells := make([][]string, len(result.Rows))
	for r, row := range result.Rows {
		cells[r] = make([]string, len(result.Columns))
		for i, column := range result.Columns {
			text := cellString(row[column])
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	var b strings.Builder
	writeRow := func(row []string) {
		for i, text := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(text)
			} else {
				fmt.Fprintf(&b, "%-*s", widths[i], text)
			}
		}
		b.WriteString("\n")
	}

	writeRow(result.Columns)
	for _, row := range cells {
		writeRow(row)
	}

	return b.String()
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
