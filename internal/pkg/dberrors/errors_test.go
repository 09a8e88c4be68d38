package dberrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "students_login_key"}

	assert.True(t, IsDuplicateConstraintError(dup, "students_login_key"))
	assert.True(t, IsDuplicateConstraintError(fmt.Errorf("insert: %w", dup), "students_login_key"))
	assert.False(t, IsDuplicateConstraintError(dup, "other_key"))
	assert.False(t, IsDuplicateConstraintError(&pgconn.PgError{Code: "23503"}, "students_login_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("boom"), "students_login_key"))
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(errors.New("syntax error")))
	assert.False(t, IsConnectionError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsConnectionError(fmt.Errorf("query: %w", context.DeadlineExceeded)))
}
