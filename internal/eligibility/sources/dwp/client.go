// Package dwp checks benefit entitlement against the benefits department's
// citizen API: a citizen match followed by a claims lookup.
package dwp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"eligo/internal/eligibility/entitlement"
	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/sources"
	"eligo/pkg/requestcontext"
)

const CheckerID = "dwp_citizen_api"

const maxResponseBytes = 1 << 20

// Evaluator decides entitlement from the claims the API returns.
type Evaluator interface {
	IsEntitled(snapshot entitlement.ClaimsSnapshot) (bool, error)
}

// Checker is the citizen-API benefits-department checker.
type Checker struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	evaluator   Evaluator
	claimMonths int
	logger      *slog.Logger
}

type Option func(*Checker)

func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		ch.httpClient = c
	}
}

func WithAccessToken(token string) Option {
	return func(ch *Checker) {
		ch.accessToken = token
	}
}

// WithClaimWindow sets how many months back the claims query reaches.
func WithClaimWindow(months int) Option {
	return func(ch *Checker) {
		if months > 0 {
			ch.claimMonths = months
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ch *Checker) {
		ch.logger = logger
	}
}

func NewChecker(baseURL string, evaluator Evaluator, opts ...Option) *Checker {
	c := &Checker{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{},
		evaluator:   evaluator,
		claimMonths: 3,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) ID() string            { return CheckerID }
func (c *Checker) Source() models.Source { return models.SourceBenefitsDepartment }

// Check matches the citizen, then evaluates their claims. A failed match is
// parentNotFound; a matched citizen with no claims is notEligible.
func (c *Checker) Check(ctx context.Context, id models.Identity) (models.Outcome, error) {
	guid, found, err := c.matchCitizen(ctx, id)
	if err != nil {
		return models.OutcomeError, err
	}
	if !found {
		return models.OutcomeParentNotFound, nil
	}

	snapshot, found, err := c.claims(ctx, guid)
	if err != nil {
		return models.OutcomeError, err
	}
	if !found {
		return models.OutcomeNotEligible, nil
	}

	entitled, err := c.evaluator.IsEntitled(snapshot)
	if err != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorInvariant, CheckerID, "evaluate claims", err)
	}
	if entitled {
		return models.OutcomeEligible, nil
	}
	return models.OutcomeNotEligible, nil
}

func (c *Checker) matchCitizen(ctx context.Context, id models.Identity) (string, bool, error) {
	body, err := json.Marshal(matchRequest{
		JSONAPI: jsonAPIVersion{Version: "1.0"},
		Data: matchRequestData{
			Type: "Match",
			Attributes: matchAttributes{
				LastName:     sources.SurnamePrefix(id.LastName),
				NinoFragment: NinoFragment(id.NationalInsuranceNumber),
				DateOfBirth:  id.DateOfBirth,
			},
		},
	})
	if err != nil {
		return "", false, sources.NewCheckerError(sources.ErrorInternal, CheckerID, "encode match request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/citizens/match", bytes.NewReader(body))
	if err != nil {
		return "", false, sources.NewCheckerError(sources.ErrorInternal, CheckerID, "build match request", err)
	}
	req.Header.Set("Content-Type", "application/vnd.api+json")

	status, payload, err := c.do(ctx, req)
	if err != nil {
		return "", false, err
	}
	switch status {
	case http.StatusOK:
		var resp matchResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return "", false, sources.NewCheckerError(sources.ErrorBadData, CheckerID, "decode match response", err)
		}
		if resp.Data.ID == "" {
			return "", false, sources.NewCheckerError(sources.ErrorBadData, CheckerID, "match response missing citizen id", nil)
		}
		return resp.Data.ID, true, nil
	case http.StatusNotFound:
		return "", false, nil
	case http.StatusUnprocessableEntity:
		return "", false, sources.NewCheckerError(sources.ErrorContractMismatch, CheckerID, "match request rejected", nil)
	default:
		return "", false, statusError("citizen match", status)
	}
}

func (c *Checker) claims(ctx context.Context, guid string) (entitlement.ClaimsSnapshot, bool, error) {
	now := requestcontext.Now(ctx)
	q := url.Values{}
	q.Set("effectiveFromDate", now.AddDate(0, -c.claimMonths, 0).Format(time.DateOnly))
	q.Set("effectiveToDate", now.Format(time.DateOnly))
	endpoint := fmt.Sprintf("%s/v2/citizens/%s/claims?%s", c.baseURL, url.PathEscape(guid), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entitlement.ClaimsSnapshot{}, false, sources.NewCheckerError(sources.ErrorInternal, CheckerID, "build claims request", err)
	}

	status, payload, err := c.do(ctx, req)
	if err != nil {
		return entitlement.ClaimsSnapshot{}, false, err
	}
	switch status {
	case http.StatusOK:
		var resp claimsResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return entitlement.ClaimsSnapshot{}, false, sources.NewCheckerError(sources.ErrorBadData, CheckerID, "decode claims response", err)
		}
		return resp.snapshot(), true, nil
	case http.StatusNotFound:
		return entitlement.ClaimsSnapshot{}, false, nil
	default:
		return entitlement.ClaimsSnapshot{}, false, statusError("claims", status)
	}
}

func (c *Checker) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		req.Header.Set("Correlation-Id", rid)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, nil, sources.NewCheckerError(sources.ErrorTimeout, CheckerID, "request timed out", err)
		}
		return 0, nil, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, "read response", err)
	}
	c.logger.DebugContext(ctx, "dwp response", "path", req.URL.Path, "status", resp.StatusCode)
	return resp.StatusCode, payload, nil
}

func statusError(call string, status int) error {
	if status >= 500 || status == http.StatusTooManyRequests {
		return sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, fmt.Sprintf("%s returned %d", call, status), nil)
	}
	return sources.NewCheckerError(sources.ErrorContractMismatch, CheckerID, fmt.Sprintf("%s returned %d", call, status), nil)
}

// NinoFragment returns the last four digits of an NI number.
func NinoFragment(nino string) string {
	var digits []rune
	for _, r := range nino {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return string(digits)
}
