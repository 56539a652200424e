package handler

import (
	"encoding/json"
	"fmt"
	"strings"

	"eligo/internal/eligibility/models"
	dErrors "eligo/pkg/domain-errors"
)

// BulkCheckRequest is the body of POST /bulk-check. Every item uses the
// payload schema of Type.
type BulkCheckRequest struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// Parse resolves the check type once and decodes every item against its
// schema. Field validation is left to the service so the whole batch is
// judged together.
func (r *BulkCheckRequest) Parse() ([]models.CheckRequest, error) {
	checkType, err := models.ParseCheckType(strings.TrimSpace(r.Type))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	if len(r.Data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "data must contain at least one item")
	}
	reqs := make([]models.CheckRequest, 0, len(r.Data))
	for i, raw := range r.Data {
		req, err := models.DecodeCheckRequest(checkType, raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("item %d: %v", i+1, err))
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// StatusUpdateRequest is the body of PATCH /check/{id}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (r *StatusUpdateRequest) Parse() (models.CheckStatus, error) {
	status, err := models.ParseCheckStatus(strings.TrimSpace(r.Status))
	if err != nil {
		return "", dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return status, nil
}
