package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/petcare-bootstrap/internal/migration"
)

// ColumnRequirement is one entry of the schema contract: a column that must
// exist after migration for the service to run correctly.
type ColumnRequirement struct {
	Table  string
	Column string
}

func (r ColumnRequirement) String() string {
	return r.Table + "." + r.Column
}

// DefaultContract lists the columns the petcare API reads at runtime. A
// baseline-stamped database that drifted from head is caught here.
func DefaultContract() []ColumnRequirement {
	return []ColumnRequirement{
		{Table: "app_user", Column: "verification_code"},
		{Table: "app_user", Column: "verification_code_expires_at"},
		{Table: "app_user", Column: "last_login_at"},
		{Table: "pet", Column: "owner_id"},
	}
}

// ContractError reports every missing contract column.
type ContractError struct {
	Missing []ColumnRequirement
}

func (e *ContractError) Error() string {
	names := make([]string, len(e.Missing))
	for i, req := range e.Missing {
		names[i] = req.String()
	}
	return fmt.Sprintf("schema contract violated, missing columns: %s", strings.Join(names, ", "))
}

// VerifySchema checks every contract entry against the database and returns a
// ContractError naming all missing columns, not just the first.
func VerifySchema(ctx context.Context, db *sql.DB, dialect migration.Dialect, contract []ColumnRequirement) error {
	var missing []ColumnRequirement
	for _, req := range contract {
		exists, err := dialect.ColumnExists(ctx, db, req.Table, req.Column)
		if err != nil {
			return fmt.Errorf("verify column %s: %w", req, err)
		}
		if !exists {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &ContractError{Missing: missing}
	}
	return nil
}
