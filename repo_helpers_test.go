package jwtauth_test

import (
	"context"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"

	jwtauth "github.com/nhyadav/go-jwtauth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// setupTestDB opens an in-memory SQLite database and applies the embedded
// migrations, so repository tests run against the real schema.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	migrations := jwtauth.GetMigrationsFS()

	var files []string
	err = fs.WalkDir(migrations, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".up.sql") {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	require.NotEmpty(t, files)

	for _, name := range files {
		buf, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)

		for _, stmt := range splitStatements(string(buf)) {
			_, err = db.Exec(stmt)
			require.NoError(t, err, "migration %s", name)
		}
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// splitStatements breaks a migration script into executable statements.
// Comment lines are dropped first so a semicolon inside a comment cannot
// truncate the statement that follows it.
func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		statements = append(statements, stmt)
	}

	return statements
}

func seedUser(t *testing.T, users jwtauth.Users, username, password string) *jwtauth.User {
	t.Helper()

	hash, err := jwtauth.HashPassword(password)
	require.NoError(t, err)

	user, err := users.Register(context.Background(), &jwtauth.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
	})
	require.NoError(t, err)

	return user
}
