package drivers

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// Postgres runs query through pgx's database/sql-compatible driver
// (grounded on bartekus-stagecraft's raw migration runner, which opens
// *sql.DB via pgx's stdlib adapter rather than the native pgx.Pool API)
// and returns the result rows as a JSON array of objects.
type Postgres struct{}

func (Postgres) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	dsn := config["dsn"]
	if dsn == "" {
		return "", apperrors.NewValidationError("config", "postgres connector requires \"dsn\"", nil)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()

	return queryRowsToJSON(ctx, db, query)
}

// queryRowsToJSON runs query and marshals the result set as a JSON array
// of column-name -> value objects, shared across the database/sql-backed
// drivers (Postgres and the generic SQL driver).
func queryRowsToJSON(ctx context.Context, db *sql.DB, query string) (string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = normalizeSQLValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	b, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// normalizeSQLValue converts driver-specific byte-slice representations
// (common for TEXT/NUMERIC columns) into plain strings so the result
// marshals as readable JSON rather than base64.
func normalizeSQLValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
