package model

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestInferDtype tests dtype inference over column values.
func TestInferDtype(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		values   []any
		expected Dtype
	}{
		{"ints", []any{1, 2, 3}, DtypeInt64},
		{"ints with nil", []any{1, nil, 3}, DtypeInt64},
		{"floats", []any{1.5, 2.0}, DtypeFloat64},
		{"ints and floats", []any{1, 2.5}, DtypeFloat64},
		{"floats with NaN", []any{1.5, math.NaN()}, DtypeFloat64},
		{"bools", []any{true, false, nil}, DtypeBool},
		{"strings", []any{"a", "b"}, DtypeString},
		{"times", []any{time.Unix(0, 0), nil}, DtypeDatetime},
		{"mixed", []any{1, "a"}, DtypeObject},
		{"all nil", []any{nil, nil}, DtypeObject},
		{"empty", []any{}, DtypeObject},
		{"unknown type", []any{struct{}{}}, DtypeObject},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := InferDtype(tc.values); got != tc.expected {
				t.Errorf("InferDtype(%v) = %q, expected %q", tc.values, got, tc.expected)
			}
		})
	}
}

// TestIsMissing tests the missing value predicate.
func TestIsMissing(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		value    any
		expected bool
	}{
		{"nil", nil, true},
		{"float64 NaN", math.NaN(), true},
		{"float32 NaN", float32(math.NaN()), true},
		{"zero", 0, false},
		{"empty string", "", false},
		{"false", false, false},
		{"infinity", math.Inf(1), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsMissing(tc.value); got != tc.expected {
				t.Errorf("IsMissing(%v) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

// TestDtypeString tests the String method of Dtype.
func TestDtypeString(t *testing.T) {
	t.Parallel()

	if DtypeInt64.String() != "int64" {
		t.Errorf("expected int64, got %q", DtypeInt64.String())
	}
	if Dtype("").String() != "object" {
		t.Errorf("expected empty dtype to print as object, got %q", Dtype("").String())
	}
}

// TestNewFrame tests Frame construction and the Dataset methods.
func TestNewFrame(t *testing.T) {
	t.Parallel()

	t.Run("preserves column order", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrame(
			NewColumn("z", 1, 2),
			NewColumn("a", "x", nil),
			NewColumn("m", nil, nil),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got := f.Columns()
		want := []string{"z", "a", "m"}
		if len(got) != len(want) {
			t.Fatalf("expected %d columns, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("column %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("reports row count and null counts", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrame(
			NewColumn("a", 1, nil, 3),
			NewColumn("b", math.NaN(), 2.0, nil),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if f.Len() != 3 {
			t.Errorf("expected 3 rows, got %d", f.Len())
		}
		if f.NullCount("a") != 1 {
			t.Errorf("expected 1 null in a, got %d", f.NullCount("a"))
		}
		if f.NullCount("b") != 2 {
			t.Errorf("expected 2 nulls in b, got %d", f.NullCount("b"))
		}
		if f.Dtype("b") != DtypeFloat64 {
			t.Errorf("expected float64, got %q", f.Dtype("b"))
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrame(NewColumn("a", 1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.NullCount("nope") != 0 {
			t.Error("expected zero nulls for unknown column")
		}
		if f.Dtype("nope") != DtypeObject {
			t.Error("expected object dtype for unknown column")
		}
	})

	t.Run("typed column keeps declared dtype", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrame(NewTypedColumn("id", DtypeInt64, nil, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Dtype("id") != DtypeInt64 {
			t.Errorf("expected int64, got %q", f.Dtype("id"))
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrame()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Len() != 0 || len(f.Columns()) != 0 {
			t.Error("expected empty frame")
		}
	})

	t.Run("mismatched lengths return ErrColumnLength", func(t *testing.T) {
		t.Parallel()

		_, err := NewFrame(NewColumn("a", 1, 2), NewColumn("b", 1))
		if !errors.Is(err, ErrColumnLength) {
			t.Errorf("expected ErrColumnLength, got %v", err)
		}
	})

	t.Run("duplicate names return ErrDuplicateColumn", func(t *testing.T) {
		t.Parallel()

		_, err := NewFrame(NewColumn("a", 1), NewColumn("a", 2))
		if !errors.Is(err, ErrDuplicateColumn) {
			t.Errorf("expected ErrDuplicateColumn, got %v", err)
		}
	})
}
