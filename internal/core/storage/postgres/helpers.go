package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	v1 "github.com/coverline-io/coverline/internal/api/v1"
)

const dateLayout = "2006-01-02"

// marshalSliceJSON marshals a slice's constraint map and series to JSON.
// Nil constraints produce nil (SQL NULL) rather than the JSON "null" string.
func marshalSliceJSON(slice *v1.Slice) (constraintsJSON, seriesJSON []byte, err error) {
	if len(slice.DimensionConstraints) > 0 {
		constraintsJSON, err = json.Marshal(slice.DimensionConstraints)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal dimension constraints: %w", err)
		}
	}

	seriesJSON, err = json.Marshal(slice.Series)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal series: %w", err)
	}

	return constraintsJSON, seriesJSON, nil
}

// nullDate converts an optional Date to its SQL representation.
func nullDate(d v1.Date) sql.NullTime {
	if d == "" {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time(), Valid: true}
}

func dateFromNull(t sql.NullTime) v1.Date {
	if !t.Valid {
		return ""
	}
	return v1.Date(t.Time.Format(dateLayout))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSliceRow scans a database row into a Slice struct. The signature
// column is carried as raw JSON: legacy rows may not decode into the current
// signature shape, and the resolution engine handles that case itself.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanSliceRow(row scanner) (*v1.Slice, error) {
	var s v1.Slice
	var signatureJSON, constraintsJSON, seriesJSON []byte
	var windowFrom, windowTo sql.NullTime
	var retrievedAt time.Time

	err := row.Scan(
		&s.ID,
		&signatureJSON,
		&constraintsJSON,
		&seriesJSON,
		&retrievedAt,
		&windowFrom,
		&windowTo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan slice row: %w", err)
	}

	s.Signature = json.RawMessage(signatureJSON)
	s.RetrievedAt = retrievedAt
	s.WindowFrom = dateFromNull(windowFrom)
	s.WindowTo = dateFromNull(windowTo)

	if len(constraintsJSON) > 0 {
		if err := json.Unmarshal(constraintsJSON, &s.DimensionConstraints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dimension constraints: %w", err)
		}
	}

	if err := json.Unmarshal(seriesJSON, &s.Series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}

	return &s, nil
}
