package postgres

const (
	querySaveSlice = `
		INSERT INTO slices (
			id, core_hash, signature, dimension_constraints,
			series, retrieved_at, window_from, window_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`

	queryListSlices = `
		SELECT id, signature, dimension_constraints,
		       series, retrieved_at, window_from, window_to
		FROM slices
		WHERE core_hash = $1
		  AND (window_from IS NULL OR window_from <= $3)
		  AND (window_to IS NULL OR window_to >= $2)
		ORDER BY id ASC
	`

	queryListSlicesAfter = `
		SELECT id, signature, dimension_constraints,
		       series, retrieved_at, window_from, window_to
		FROM slices
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`

	queryDeleteSlices = `
		DELETE FROM slices
		WHERE id = ANY($1)
	`
)
