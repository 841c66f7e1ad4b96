// Package instrument defines the record model shared by the drivers and
// the dataset generator: schema bounds, ISIN shape, and validation.
package instrument

import (
	"fmt"

	"pkt.systems/searchbench/api"
)

// Schema bounds for the bounded fields. The generator stays inside them
// and Validate rejects anything outside.
const (
	ISINLength     = 12
	NameMaxLen     = 80
	LongNameMinLen = 100
	LongNameMaxLen = 200
	MinPrice       = 1.0
	MaxPrice       = 5000.0
)

// SchemaViolation reports a record that breaks a declared field bound.
// It is returned before anything is sent to the backend.
type SchemaViolation struct {
	ISIN   string
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.ISIN == "" {
		return fmt.Sprintf("schema violation: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("schema violation: %s: %s: %s", e.ISIN, e.Field, e.Reason)
}

// Validate checks every bounded field of a record. It is pure: no side
// effects, no backend calls.
func Validate(in api.Instrument) error {
	if err := ValidateISIN(in.ISIN); err != nil {
		return err
	}
	if in.Name == "" {
		return &SchemaViolation{ISIN: in.ISIN, Field: "name", Reason: "empty"}
	}
	if len(in.Name) > NameMaxLen {
		return &SchemaViolation{ISIN: in.ISIN, Field: "name", Reason: fmt.Sprintf("length %d exceeds %d", len(in.Name), NameMaxLen)}
	}
	if len(in.LongName) < LongNameMinLen || len(in.LongName) > LongNameMaxLen {
		return &SchemaViolation{ISIN: in.ISIN, Field: "long_name", Reason: fmt.Sprintf("length %d outside [%d,%d]", len(in.LongName), LongNameMinLen, LongNameMaxLen)}
	}
	return ValidatePrice(in.ISIN, in.Price)
}

// ValidateISIN checks the identifier shape: two uppercase country
// letters, nine alphanumerics, one check digit.
func ValidateISIN(isin string) error {
	if len(isin) != ISINLength {
		return &SchemaViolation{ISIN: isin, Field: "isin", Reason: fmt.Sprintf("length %d, want %d", len(isin), ISINLength)}
	}
	for i := 0; i < 2; i++ {
		if isin[i] < 'A' || isin[i] > 'Z' {
			return &SchemaViolation{ISIN: isin, Field: "isin", Reason: "country code must be two uppercase letters"}
		}
	}
	for i := 2; i < 11; i++ {
		c := isin[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return &SchemaViolation{ISIN: isin, Field: "isin", Reason: "security identifier must be uppercase alphanumeric"}
		}
	}
	if c := isin[11]; c < '0' || c > '9' {
		return &SchemaViolation{ISIN: isin, Field: "isin", Reason: "check digit must be numeric"}
	}
	return nil
}

// ValidatePrice checks the price range shared by seeding and updates.
func ValidatePrice(isin string, price float64) error {
	if price < MinPrice || price > MaxPrice {
		return &SchemaViolation{ISIN: isin, Field: "price", Reason: fmt.Sprintf("%.2f outside [%.2f,%.2f]", price, MinPrice, MaxPrice)}
	}
	return nil
}

// ClampPrice forces a computed price back into the valid range.
func ClampPrice(price float64) float64 {
	if price < MinPrice {
		return MinPrice
	}
	if price > MaxPrice {
		return MaxPrice
	}
	return price
}
