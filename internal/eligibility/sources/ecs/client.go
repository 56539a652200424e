// Package ecs checks eligibility through the direct eligibility checking
// service, a SOAP endpoint that answers the whole question in one call.
package ecs

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"eligo/internal/eligibility/models"
	"eligo/internal/eligibility/sources"
)

const CheckerID = "dwp_ecs"

const maxResponseBytes = 1 << 20

type Checker struct {
	endpoint       string
	localAuthority string
	username       string
	password       string
	httpClient     *http.Client
	logger         *slog.Logger
}

type Option func(*Checker)

func WithHTTPClient(c *http.Client) Option {
	return func(ch *Checker) {
		ch.httpClient = c
	}
}

func WithCredentials(username, password string) Option {
	return func(ch *Checker) {
		ch.username = username
		ch.password = password
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ch *Checker) {
		ch.logger = logger
	}
}

func NewChecker(endpoint, localAuthority string, opts ...Option) *Checker {
	c := &Checker{
		endpoint:       endpoint,
		localAuthority: localAuthority,
		httpClient:     &http.Client{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) ID() string            { return CheckerID }
func (c *Checker) Source() models.Source { return models.SourceBenefitsDepartment }

func (c *Checker) Check(ctx context.Context, id models.Identity) (models.Outcome, error) {
	body, err := xml.Marshal(requestEnvelope{
		SoapEnv: soapEnvNS,
		ECS:     ecsNS,
		Body: requestBody{Check: fsmCheck{Request: checkRequest{
			SurName:        strings.ToUpper(id.LastName),
			DateOfBirth:    id.DateOfBirth,
			NiNo:           id.NationalInsuranceNumber,
			NASSNumber:     id.NationalAsylumSeekerServiceNumber,
			LocalAuthority: c.localAuthority,
			ServiceVersion: serviceVersion,
		}}},
	})
	if err != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorInternal, CheckerID, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorInternal, CheckerID, "build request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.OutcomeError, sources.NewCheckerError(sources.ErrorTimeout, CheckerID, "request timed out", err)
		}
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, "read response", err)
	}
	if resp.StatusCode >= 500 && len(bytes.TrimSpace(payload)) == 0 {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(payload, &env); err != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorBadData, CheckerID, "decode response", err)
	}
	if env.Fault != nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorProviderOutage, CheckerID,
			fmt.Sprintf("soap fault %s: %s", env.Fault.Code, env.Fault.String), nil)
	}
	if env.Result == nil {
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorBadData, CheckerID, "empty eligibility result", nil)
	}
	return classify(*env.Result)
}

// classify maps the service's status, error code and qualifier onto an outcome.
func classify(r checkResult) (models.Outcome, error) {
	status := strings.TrimSpace(r.Status)
	errorCode := strings.TrimSpace(r.ErrorCode)
	qualifier := strings.TrimSpace(r.Qualifier)

	switch {
	case status == "1":
		return models.OutcomeEligible, nil
	case status == "0" && errorCode == "0" && qualifier == "":
		return models.OutcomeNotEligible, nil
	case status == "0" && errorCode == "0" && strings.Contains(strings.ToLower(qualifier), "no trace"):
		return models.OutcomeParentNotFound, nil
	default:
		return models.OutcomeError, sources.NewCheckerError(sources.ErrorContractMismatch, CheckerID,
			fmt.Sprintf("unrecognised result status=%q error=%q qualifier=%q", status, errorCode, qualifier), nil)
	}
}
