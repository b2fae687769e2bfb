package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/apperr"
)

func TestFromStore(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   apperr.Kind
		reason string
	}{
		{"record not found", gorm.ErrRecordNotFound, apperr.KindNotFound, apperr.ReasonNotFound},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, apperr.KindDuplicate, apperr.ReasonAlreadyReviewed},
		{"postgres 23505", &pgconn.PgError{Code: "23505"}, apperr.KindDuplicate, apperr.ReasonAlreadyReviewed},
		{"sqlite message", errors.New("UNIQUE constraint failed: reviews.project_id"), apperr.KindDuplicate, apperr.ReasonAlreadyReviewed},
		{"wrapped duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), apperr.KindDuplicate, apperr.ReasonAlreadyReviewed},
		{"connection failure", errors.New("dial tcp: connection refused"), apperr.KindInternal, apperr.ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apperr.FromStore(tt.err, "Project not found", apperr.Duplicate(apperr.ReasonAlreadyReviewed, "already reviewed"))
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.reason, apperr.ReasonOf(err))
		})
	}
}

func TestFromStore_MessagePerBranch(t *testing.T) {
	dup := apperr.Duplicate(apperr.ReasonAlreadyApplied, "You already applied to this project")

	var ae *apperr.Error
	require.ErrorAs(t, apperr.FromStore(gorm.ErrRecordNotFound, "Project not found", dup), &ae)
	assert.Equal(t, apperr.ReasonNotFound, ae.Reason)
	assert.Equal(t, "Project not found", ae.Message)

	require.ErrorAs(t, apperr.FromStore(gorm.ErrDuplicatedKey, "Project not found", dup), &ae)
	assert.Equal(t, apperr.ReasonAlreadyApplied, ae.Reason)
	assert.Equal(t, "You already applied to this project", ae.Message)
	assert.ErrorIs(t, ae, gorm.ErrDuplicatedKey)
	assert.Nil(t, dup.Err, "shared duplicate error is not mutated")

	require.ErrorAs(t, apperr.FromStore(gorm.ErrDuplicatedKey, "x", nil), &ae)
	assert.Equal(t, apperr.ReasonDuplicate, ae.Reason)
}

func TestFromStore_KeepsTaxonomyErrors(t *testing.T) {
	orig := apperr.NotOwner("nope")
	err := apperr.FromStore(fmt.Errorf("tx: %w", orig), "ignored", apperr.Duplicate(apperr.ReasonAlreadyApplied, "ignored"))
	assert.Equal(t, apperr.KindNotOwner, apperr.KindOf(err))
	assert.Nil(t, apperr.FromStore(nil, "", nil))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, apperr.Unauthenticated().Status())
	assert.Equal(t, http.StatusForbidden, apperr.WrongRole("x").Status())
	assert.Equal(t, http.StatusForbidden, apperr.NotOwner("x").Status())
	assert.Equal(t, http.StatusNotFound, apperr.NotFound("x").Status())
	assert.Equal(t, http.StatusConflict, apperr.InvalidState(apperr.ReasonProjectNotOpen, "x").Status())
	assert.Equal(t, http.StatusConflict, apperr.Duplicate(apperr.ReasonAlreadyApplied, "x").Status())
	assert.Equal(t, http.StatusUnprocessableEntity, apperr.Validation(apperr.FieldErrors{}).Status())
	assert.Equal(t, http.StatusInternalServerError, apperr.Internal(errors.New("boom")).Status())
}

func TestIs(t *testing.T) {
	assert.True(t, apperr.Is(apperr.Duplicate(apperr.ReasonAlreadyApplied, "x"), apperr.KindDuplicate))
	assert.False(t, apperr.Is(nil, apperr.KindInternal))
	assert.True(t, apperr.Is(errors.New("plain"), apperr.KindInternal))
}
