package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ninoPattern = regexp.MustCompile(`^[A-CEGHJ-PR-TW-Z][A-CEGHJ-NPR-TW-Z][0-9]{6}[A-D]$`)
	nassPattern = regexp.MustCompile(`^[0-9]{2}(0[1-9]|1[0-2])[0-9]{5,6}$`)
)

// Identity is the claimant identity every payload schema carries.
type Identity struct {
	LastName                          string `json:"lastName" validate:"required,max=100"`
	DateOfBirth                       string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	NationalInsuranceNumber           string `json:"nationalInsuranceNumber,omitempty" validate:"omitempty,nino"`
	NationalAsylumSeekerServiceNumber string `json:"nationalAsylumSeekerServiceNumber,omitempty" validate:"omitempty,nass"`
}

// Normalize trims fields and upper-cases the reference numbers.
func (i Identity) Normalize() Identity {
	return Identity{
		LastName:                          strings.TrimSpace(i.LastName),
		DateOfBirth:                       strings.TrimSpace(i.DateOfBirth),
		NationalInsuranceNumber:           strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(i.NationalInsuranceNumber), " ", "")),
		NationalAsylumSeekerServiceNumber: strings.TrimSpace(i.NationalAsylumSeekerServiceNumber),
	}
}

// Payload is implemented by each per-type payload schema.
type Payload interface {
	Subject() Identity
	SequenceNumber() *int
	withIdentity(Identity) Payload
}

type FreeSchoolMealsPayload struct {
	Identity
	Sequence *int `json:"sequence,omitempty" validate:"omitempty,min=1"`
}

type TwoYearOfferPayload struct {
	Identity
	Sequence *int `json:"sequence,omitempty" validate:"omitempty,min=1"`
}

type EarlyYearPupilPremiumPayload struct {
	Identity
	Sequence *int `json:"sequence,omitempty" validate:"omitempty,min=1"`
}

func (p FreeSchoolMealsPayload) Subject() Identity    { return p.Identity }
func (p FreeSchoolMealsPayload) SequenceNumber() *int { return p.Sequence }
func (p FreeSchoolMealsPayload) withIdentity(id Identity) Payload {
	p.Identity = id
	return p
}

func (p TwoYearOfferPayload) Subject() Identity    { return p.Identity }
func (p TwoYearOfferPayload) SequenceNumber() *int { return p.Sequence }
func (p TwoYearOfferPayload) withIdentity(id Identity) Payload {
	p.Identity = id
	return p
}

func (p EarlyYearPupilPremiumPayload) Subject() Identity    { return p.Identity }
func (p EarlyYearPupilPremiumPayload) SequenceNumber() *int { return p.Sequence }
func (p EarlyYearPupilPremiumPayload) withIdentity(id Identity) Payload {
	p.Identity = id
	return p
}

// payloadSchemas maps each check type to its payload decoder.
var payloadSchemas = map[CheckType]func(data []byte) (Payload, error){
	CheckTypeFreeSchoolMeals:       decodeAs[FreeSchoolMealsPayload],
	CheckTypeTwoYearOffer:          decodeAs[TwoYearOfferPayload],
	CheckTypeEarlyYearPupilPremium: decodeAs[EarlyYearPupilPremiumPayload],
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var p T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckRequest is a submission: a check type tag plus the payload for that type.
type CheckRequest struct {
	Type    CheckType
	Payload Payload
}

// NewCheckRequest builds a request from an already typed payload.
func NewCheckRequest(t CheckType, p Payload) CheckRequest {
	return CheckRequest{Type: t, Payload: p}
}

// DecodeCheckRequest resolves the payload schema for t and decodes data into it.
func DecodeCheckRequest(t CheckType, data []byte) (CheckRequest, error) {
	decode, ok := payloadSchemas[t]
	if !ok {
		return CheckRequest{}, fmt.Errorf("unknown check type %q", t)
	}
	p, err := decode(data)
	if err != nil {
		return CheckRequest{}, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return CheckRequest{Type: t, Payload: p}, nil
}

// Identity returns the claimant identity, or the zero value for an empty request.
func (r CheckRequest) Identity() Identity {
	if r.Payload == nil {
		return Identity{}
	}
	return r.Payload.Subject()
}

func (r CheckRequest) Sequence() *int {
	if r.Payload == nil {
		return nil
	}
	return r.Payload.SequenceNumber()
}

// Normalized returns a copy with the identity trimmed and upper-cased.
func (r CheckRequest) Normalized() CheckRequest {
	if r.Payload == nil {
		return r
	}
	return CheckRequest{Type: r.Type, Payload: r.Payload.withIdentity(r.Payload.Subject().Normalize())}
}

// Encode serializes the payload for storage on the check row.
func (r CheckRequest) Encode() ([]byte, error) {
	if r.Payload == nil {
		return nil, fmt.Errorf("empty payload")
	}
	return json.Marshal(r.Payload)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("nino", func(fl validator.FieldLevel) bool {
			return ninoPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("nass", func(fl validator.FieldLevel) bool {
			return nassPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks the request shape. Callers normalize first.
func (r CheckRequest) Validate() error {
	if _, ok := payloadSchemas[r.Type]; !ok {
		return fmt.Errorf("unknown check type %q", r.Type)
	}
	if r.Payload == nil {
		return fmt.Errorf("payload is required")
	}
	if err := requestValidator().Struct(r.Payload); err != nil {
		return describeValidation(err)
	}
	id := r.Payload.Subject()
	switch {
	case id.NationalInsuranceNumber == "" && id.NationalAsylumSeekerServiceNumber == "":
		return errors.New("invalid payload: one of nationalInsuranceNumber or nationalAsylumSeekerServiceNumber is required")
	case id.NationalInsuranceNumber != "" && id.NationalAsylumSeekerServiceNumber != "":
		return errors.New("invalid payload: nationalInsuranceNumber and nationalAsylumSeekerServiceNumber are mutually exclusive")
	}
	return nil
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid payload: %s", strings.Join(msgs, "; "))
}
