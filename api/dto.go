/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the engine's decimal-based domain model from the external
  API contract: quantities cross the wire as plain numbers, and field
  names can evolve without touching the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/allocation-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RunRequest is one complete snapshot of uploaded sources: the four
// usage reports, the rate catalog, and any PM revisions, all as
// already-parsed tabular records.
type RunRequest struct {
	DrivingHistory []map[string]string `json:"driving_history"`
	DailyUsage     []map[string]string `json:"daily_usage"`
	TimeOnSite     []map[string]string `json:"time_on_site"`
	Timecards      []map[string]string `json:"timecards"`
	Catalog        []map[string]string `json:"catalog"`
	Revisions      []RevisionDTO       `json:"revisions"`
}

// RevisionDTO is a manually supplied override for one (job, asset)
// pairing. Omitted fields leave the computed value untouched.
type RevisionDTO struct {
	JobNumber       string   `json:"job_number"`
	AssetID         string   `json:"asset_id"`
	RevisedUnits    *float64 `json:"revised_units,omitempty"`
	RevisedCostCode *string  `json:"revised_cost_code,omitempty"`
}

// ToInput converts the request into the engine's input shape.
func (req *RunRequest) ToInput() engine.Input {
	in := engine.Input{
		DrivingHistory: toRawRows(req.DrivingHistory),
		DailyUsage:     toRawRows(req.DailyUsage),
		TimeOnSite:     toRawRows(req.TimeOnSite),
		Timecards:      toRawRows(req.Timecards),
		Catalog:        toRawRows(req.Catalog),
	}
	for _, rev := range req.Revisions {
		r := engine.PMRevision{
			JobNumber:       rev.JobNumber,
			AssetID:         engine.AssetID(rev.AssetID),
			RevisedCostCode: rev.RevisedCostCode,
		}
		if rev.RevisedUnits != nil {
			d := decimal.NewFromFloat(*rev.RevisedUnits)
			r.RevisedUnits = &d
		}
		in.Revisions = append(in.Revisions, r)
	}
	return in
}

func toRawRows(rows []map[string]string) []engine.RawRow {
	out := make([]engine.RawRow, len(rows))
	for i, row := range rows {
		out[i] = engine.RawRow(row)
	}
	return out
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AllocationRowDTO is one line of the allocation table in API
// responses. Monetary values are rounded to cents for display;
// the store keeps full precision.
type AllocationRowDTO struct {
	AssetID              string   `json:"asset_id"`
	JobReference         string   `json:"job_reference"`
	Driver               string   `json:"driver"`
	Hours                float64  `json:"hours"`
	AssetTotalHours      float64  `json:"asset_total_hours"`
	Units                float64  `json:"units"`
	Rate                 float64  `json:"rate"`
	Amount               float64  `json:"amount"`
	EquipmentDescription string   `json:"equipment_description"`
	Region               string   `json:"region"`
	Division             string   `json:"division"`
	JobNumber            string   `json:"job_number"`
	CostCode             string   `json:"cost_code"`
	RevisionUnits        *float64 `json:"revision_units,omitempty"`
	Note                 string   `json:"note,omitempty"`
}

// RunDTO is a full run: identity, summary counters, and rows.
type RunDTO struct {
	ID        string             `json:"id"`
	CreatedAt string             `json:"created_at"`
	Summary   engine.RunSummary  `json:"summary"`
	Rows      []AllocationRowDTO `json:"rows"`
}

// RunHeaderDTO is the listing view of a run.
type RunHeaderDTO struct {
	ID        string            `json:"id"`
	CreatedAt string            `json:"created_at"`
	Summary   engine.RunSummary `json:"summary"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toRowDTO(row engine.AllocationRow) AllocationRowDTO {
	dto := AllocationRowDTO{
		AssetID:              string(row.AssetID),
		JobReference:         row.JobReference,
		Driver:               row.Driver,
		Hours:                row.Hours.InexactFloat64(),
		AssetTotalHours:      row.AssetTotalHours.InexactFloat64(),
		Units:                row.Units.InexactFloat64(),
		Rate:                 row.Rate.InexactFloat64(),
		Amount:               row.Amount.Round(2).InexactFloat64(),
		EquipmentDescription: row.EquipmentDescription,
		Region:               string(row.Region),
		Division:             string(row.Division),
		JobNumber:            row.JobNumber,
		CostCode:             row.CostCode,
		Note:                 row.Note,
	}
	if row.RevisionUnits != nil {
		v := row.RevisionUnits.InexactFloat64()
		dto.RevisionUnits = &v
	}
	return dto
}

func toRunDTO(run *engine.AllocationRun) RunDTO {
	dto := RunDTO{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		Summary:   run.Summary,
		Rows:      make([]AllocationRowDTO, len(run.Rows)),
	}
	for i, row := range run.Rows {
		dto.Rows[i] = toRowDTO(row)
	}
	return dto
}

func toRunHeaderDTO(h engine.RunHeader) RunHeaderDTO {
	return RunHeaderDTO{
		ID:        h.ID,
		CreatedAt: h.CreatedAt.UTC().Format(time.RFC3339),
		Summary:   h.Summary,
	}
}
