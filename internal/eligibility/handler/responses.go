package handler

import (
	"time"

	"github.com/google/uuid"

	"eligo/internal/eligibility/models"
)

// CheckResponse describes one check.
type CheckResponse struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Status    string           `json:"status"`
	GroupID   string           `json:"groupId,omitempty"`
	Sequence  *int             `json:"sequence,omitempty"`
	Subject   *models.Identity `json:"subject,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	Links     CheckLinks       `json:"links"`
}

type CheckLinks struct {
	Self    string `json:"self"`
	Status  string `json:"status"`
	Process string `json:"process"`
}

// FromCheck converts a stored check. The subject is omitted when the stored
// payload cannot be read.
func FromCheck(check *models.EligibilityCheck) CheckResponse {
	self := "/check/" + check.ID.String()
	resp := CheckResponse{
		ID:        check.ID.String(),
		Type:      string(check.Type),
		Status:    string(check.Status),
		Sequence:  check.Sequence,
		CreatedAt: check.CreatedAt,
		UpdatedAt: check.UpdatedAt,
		Links: CheckLinks{
			Self:    self,
			Status:  self + "/status",
			Process: self + "/process",
		},
	}
	if check.GroupID != nil {
		resp.GroupID = check.GroupID.String()
	}
	if req, err := models.DecodeCheckRequest(check.Type, check.Payload); err == nil {
		subject := req.Identity()
		resp.Subject = &subject
	}
	return resp
}

// BulkSubmissionResponse answers POST /bulk-check.
type BulkSubmissionResponse struct {
	GroupID string         `json:"groupId"`
	Items   []BulkItemLink `json:"items"`
	Links   BulkGroupLinks `json:"links"`
}

type BulkItemLink struct {
	ID       string `json:"id"`
	Sequence int    `json:"sequence"`
	Status   string `json:"status"`
}

type BulkGroupLinks struct {
	Progress string `json:"progress"`
	Results  string `json:"results"`
}

func groupLinks(groupID uuid.UUID) BulkGroupLinks {
	base := "/bulk-check/" + groupID.String()
	return BulkGroupLinks{Progress: base + "/progress", Results: base}
}

func FromBulkSubmission(groupID uuid.UUID, checks []*models.EligibilityCheck) BulkSubmissionResponse {
	items := make([]BulkItemLink, 0, len(checks))
	for _, c := range checks {
		item := BulkItemLink{ID: c.ID.String(), Status: string(c.Status)}
		if c.Sequence != nil {
			item.Sequence = *c.Sequence
		}
		items = append(items, item)
	}
	return BulkSubmissionResponse{GroupID: groupID.String(), Items: items, Links: groupLinks(groupID)}
}

// BulkProgressResponse answers GET /bulk-check/{groupId}/progress.
type BulkProgressResponse struct {
	GroupID  string         `json:"groupId"`
	Total    int            `json:"total"`
	Complete int            `json:"complete"`
	Links    BulkGroupLinks `json:"links"`
}

func FromBulkStatus(groupID uuid.UUID, status *models.BulkStatus) BulkProgressResponse {
	return BulkProgressResponse{
		GroupID:  groupID.String(),
		Total:    status.Total,
		Complete: status.Complete,
		Links:    groupLinks(groupID),
	}
}

// BulkResultsResponse answers GET /bulk-check/{groupId}.
type BulkResultsResponse struct {
	Data []BulkResultItem `json:"data"`
}

type BulkResultItem struct {
	ID       string          `json:"id"`
	Sequence int             `json:"sequence"`
	Status   string          `json:"status"`
	Subject  models.Identity `json:"subject"`
}

func FromBulkResults(results []models.BulkResult) BulkResultsResponse {
	data := make([]BulkResultItem, 0, len(results))
	for _, r := range results {
		data = append(data, BulkResultItem{
			ID:       r.CheckID.String(),
			Sequence: r.Sequence,
			Status:   string(r.Status),
			Subject:  r.Identity,
		})
	}
	return BulkResultsResponse{Data: data}
}

// ProcessResponse answers POST /check/{id}/process.
type ProcessResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
