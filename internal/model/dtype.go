package model

import (
	"math"
	"time"
)

// Dtype is the element type tag of a column.
//
// The names follow the dtype names data people already read in notebooks
// (int64, float64, object, ...) so that a report produced here can be put
// side by side with one produced by other tabular tooling.
type Dtype string

const (
	// DtypeInt64 is a column of whole numbers.
	DtypeInt64 Dtype = "int64"

	// DtypeFloat64 is a column of floating-point numbers.
	// A column mixing integers and floats is also float64.
	DtypeFloat64 Dtype = "float64"

	// DtypeBool is a column of booleans.
	DtypeBool Dtype = "bool"

	// DtypeString is a column of text.
	DtypeString Dtype = "string"

	// DtypeDatetime is a column of timestamps.
	DtypeDatetime Dtype = "datetime64"

	// DtypeObject is a column whose values do not share a single type,
	// or whose type cannot be determined (for example, every value is missing).
	DtypeObject Dtype = "object"
)

// String returns the dtype name.
func (d Dtype) String() string {
	if d == "" {
		return string(DtypeObject)
	}
	return string(d)
}

// IsMissing reports whether v is an absent value.
// nil and floating-point NaN are missing; everything else is present.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

// kind is the coarse type of a single present value.
type kind int

const (
	kindOther kind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindTime
)

// kindOf classifies a single present value.
func kindOf(v any) kind {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInt
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case string:
		return kindString
	case time.Time:
		return kindTime
	default:
		return kindOther
	}
}

// InferDtype infers the dtype of a column from its present values.
// Missing values are ignored. A column with no present values is object.
func InferDtype(values []any) Dtype {
	seen := make(map[kind]bool)
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		seen[kindOf(v)] = true
	}

	switch {
	case len(seen) == 0:
		return DtypeObject
	case len(seen) == 1:
		for k := range seen {
			return dtypeOfKind(k)
		}
	case len(seen) == 2 && seen[kindInt] && seen[kindFloat]:
		return DtypeFloat64
	}
	return DtypeObject
}

// dtypeOfKind maps a single kind to its dtype.
func dtypeOfKind(k kind) Dtype {
	switch k {
	case kindInt:
		return DtypeInt64
	case kindFloat:
		return DtypeFloat64
	case kindBool:
		return DtypeBool
	case kindString:
		return DtypeString
	case kindTime:
		return DtypeDatetime
	default:
		return DtypeObject
	}
}
