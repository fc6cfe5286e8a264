package base

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassifiers(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uq_payments_open"}
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "slots_owner_no_overlap"}
	other := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name      string
		err       error
		notFound  bool
		unique    bool
		exclusion bool
	}{
		{name: "no rows", err: pgx.ErrNoRows, notFound: true},
		{name: "wrapped no rows", err: fmt.Errorf("get slot: %w", pgx.ErrNoRows), notFound: true},
		{name: "unique", err: unique, unique: true},
		{name: "wrapped unique", err: fmt.Errorf("create payment: %w", unique), unique: true},
		{name: "exclusion", err: fmt.Errorf("create slot: %w", exclusion), exclusion: true},
		{name: "foreign key", err: other},
		{name: "plain", err: errors.New("connection reset by peer")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.exclusion, IsExclusionViolation(tt.err))
		})
	}
}
