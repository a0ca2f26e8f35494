package api

import (
	"github.com/starford/lexikon/internal/batch"
	"github.com/starford/lexikon/internal/index"
	"github.com/starford/lexikon/internal/register"
	"github.com/starford/lexikon/internal/registerservice"
)

// VolumeSummary is one cataloged volume (aliased from the service layer).
type VolumeSummary = registerservice.VolumeSummary

// VolumeListResponse wraps the catalog listing.
type VolumeListResponse struct {
	Volumes []VolumeSummary `json:"volumes" validate:"required"`
	Total   int             `json:"total" example:"84" validate:"required"`
}

// Record is one register entry in its persisted form.
type Record = register.Record

// VolumeResponse is the persisted register of one volume.
type VolumeResponse struct {
	Volume string            `json:"volume" example:"I,1" validate:"required"`
	Lemmas []register.Record `json:"lemmas" validate:"required"`
}

// RangeListResponse wraps the alphabetic register ranges.
type RangeListResponse struct {
	Ranges []register.Range `json:"ranges" validate:"required"`
}

// LemmaRow is an indexed lemma (aliased from the index layer).
type LemmaRow = index.LemmaRow

// LemmaListResponse wraps lookup results.
type LemmaListResponse struct {
	Lemmas []LemmaRow `json:"lemmas" validate:"required"`
}

// UpdateItem is one record of an update batch.
type UpdateItem = batch.Item

// BatchResponse reports what a batch changed.
type BatchResponse = registerservice.Result

// Issue is one integrity check finding.
type Issue = register.Issue

// CheckResponse wraps integrity check findings.
type CheckResponse struct {
	Issues []Issue `json:"issues" validate:"required"`
	Total  int     `json:"total" example:"0" validate:"required"`
}

func nonNilRows(rows []LemmaRow) []LemmaRow {
	if rows == nil {
		return []LemmaRow{}
	}
	return rows
}
