// Package types is Aurum's Type System & Value Conversion layer: the
// logical type vocabulary metadata describes fields with, the
// conversion between a Go value and the driver.Value(s) that represent
// it, and the inference rules applied when a field omits an explicit
// logical type.
package types

import "strings"

// Logical is the vocabulary metadata.FieldDescriptor uses for a
// field's stored representation, independent of the SQL dialect that
// eventually renders it.
type Logical string

const (
	String       Logical = "string"
	Text         Logical = "text"
	Integer      Logical = "integer"
	BigInteger   Logical = "biginteger"
	Float        Logical = "float"
	Decimal      Logical = "decimal"
	Boolean      Logical = "boolean"
	Date         Logical = "date"
	Time         Logical = "time"
	DateTime     Logical = "datetime"
	DateTimeTz   Logical = "datetime-with-timezone"
	JSON         Logical = "json"
	UUID         Logical = "uuid"
	Binary       Logical = "binary"
)

// LengthHeuristic infers a string column's length from the field name,
// per spec.md's "names ending Email -> 255" rules.
func LengthHeuristic(fieldName string) (length int, isText bool) {
	lower := strings.ToLower(fieldName)
	switch {
	case strings.HasSuffix(lower, "email"):
		return 255, false
	case strings.Contains(lower, "url"):
		return 500, false
	case strings.HasSuffix(lower, "code"):
		return 50, false
	case strings.Contains(lower, "description"):
		return 0, true
	default:
		return 255, false
	}
}

// DecimalHeuristic infers precision/scale for decimal-typed fields from
// the field name, per spec.md's "price -> 10/2, rate -> 5/4" rules.
func DecimalHeuristic(fieldName string) (precision, scale int) {
	lower := strings.ToLower(fieldName)
	switch {
	case strings.Contains(lower, "rate"):
		return 5, 4
	case strings.Contains(lower, "price"), strings.Contains(lower, "amount"), strings.Contains(lower, "cost"):
		return 10, 2
	default:
		return 10, 2
	}
}
