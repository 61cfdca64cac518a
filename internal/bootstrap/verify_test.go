package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/petcare-bootstrap/internal/migration"
	"github.com/example/petcare-bootstrap/internal/testfixtures"
)

func TestVerifySchema(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	ctx := context.Background()
	dialect := migration.NewSQLiteDialect()

	_, err := db.Exec(`
		CREATE TABLE app_user (
			id INTEGER PRIMARY KEY,
			verification_code TEXT,
			verification_code_expires_at TEXT,
			last_login_at TEXT
		)
	`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE pet (id INTEGER PRIMARY KEY, owner_id INTEGER NOT NULL)`)
	require.NoError(t, err)

	assert.NoError(t, VerifySchema(ctx, db, dialect, DefaultContract()))
}

func TestVerifySchema_ReportsAllMissingColumns(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	ctx := context.Background()
	dialect := migration.NewSQLiteDialect()

	// Only part of the expected schema exists.
	_, err := db.Exec(`CREATE TABLE app_user (id INTEGER PRIMARY KEY, last_login_at TEXT)`)
	require.NoError(t, err)

	err = VerifySchema(ctx, db, dialect, DefaultContract())
	var contractErr *ContractError
	require.ErrorAs(t, err, &contractErr)

	missing := make([]string, 0, len(contractErr.Missing))
	for _, req := range contractErr.Missing {
		missing = append(missing, req.String())
	}
	assert.ElementsMatch(t, []string{
		"app_user.verification_code",
		"app_user.verification_code_expires_at",
		"pet.owner_id",
	}, missing)
	assert.Contains(t, err.Error(), "pet.owner_id")
}

func TestVerifySchema_EmptyContract(t *testing.T) {
	db := testfixtures.OpenSQLite(t)
	dialect := migration.NewSQLiteDialect()

	assert.NoError(t, VerifySchema(context.Background(), db, dialect, nil))
}
