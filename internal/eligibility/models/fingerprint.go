package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint is the dedup key for a request: SHA-256 over the upper-cased
// surname, the NI number (or NASS when there is no NI), the date of birth and
// the check type. Two requests with the same fingerprint ask the same question.
func Fingerprint(req CheckRequest) string {
	id := req.Identity()
	ref := id.NationalInsuranceNumber
	if ref == "" {
		ref = id.NationalAsylumSeekerServiceNumber
	}
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(id.LastName)))
	b.WriteString(strings.ToUpper(strings.TrimSpace(ref)))
	b.WriteString(strings.TrimSpace(id.DateOfBirth))
	b.WriteString(string(req.Type))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
