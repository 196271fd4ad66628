package drivers

import (
	"context"
	"database/sql"

	apperrors "github.com/santhoshkumr96/orchestapi/pkg/errors"
)

// GenericSQL backs the MYSQL/ORACLE/SQLSERVER connector types. The
// caller supplies the registered database/sql driver name alongside its
// DSN; a deployment wires the concrete driver (e.g. go-sql-driver/mysql)
// by blank-importing it and passing its registered name here.
type GenericSQL struct {
	// DriverName is the database/sql driver name registered by the
	// deployment (e.g. "mysql", "godror", "sqlserver").
	DriverName string
}

func (d GenericSQL) Execute(ctx context.Context, config map[string]string, query string) (string, error) {
	if d.DriverName == "" {
		return "", apperrors.NewValidationError("driver", "GenericSQL requires a DriverName", nil)
	}
	dsn := config["dsn"]
	if dsn == "" {
		return "", apperrors.NewValidationError("config", d.DriverName+" connector requires \"dsn\"", nil)
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()

	return queryRowsToJSON(ctx, db, query)
}
