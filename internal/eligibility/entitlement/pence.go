package entitlement

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Pence is a money amount in minor units. Upstream sends decimal pounds; they
// are rounded half-up to the nearest penny on decode so comparisons are exact.
type Pence int64

// ParsePence converts a decimal pound string ("616.67", "-3.5", "12") to pence.
func ParsePence(s string) (Pence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	pounds, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("parse amount %q: invalid fraction", s)
		}
	}
	frac += "000"
	minor, _ := strconv.ParseInt(frac[:2], 10, 64)
	if frac[2] >= '5' {
		minor++
	}
	total := pounds*100 + minor
	if neg {
		total = -total
	}
	return Pence(total), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (p *Pence) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if string(data) == "null" || len(data) == 0 {
		*p = 0
		return nil
	}
	v, err := ParsePence(string(data))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Pence) String() string {
	sign := ""
	v := int64(p)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s£%d.%02d", sign, v/100, v%100)
}
