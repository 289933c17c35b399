package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesWrappedCopies(t *testing.T) {
	cause := errors.New("row missing")
	err := fmt.Errorf("load: %w", TemplateNotFound.Wrap(cause))

	assert.ErrorIs(t, err, TemplateNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, TemplateInactive)
	assert.Nil(t, TemplateNotFound.Err, "sentinel must not be mutated")
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{PortfolioNotFound, KindNotFound},
		{fmt.Errorf("create: %w", QuotaExceeded), KindConflict},
		{TemplateInactive, KindValidation},
		{Forbidden, KindForbidden},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
}

func TestFrom_WrapsUnknownErrors(t *testing.T) {
	cause := errors.New("connection reset")
	got := From(cause)

	require.NotNil(t, got)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "Internal server error", got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestWithMessageKeepsCode(t *testing.T) {
	err := InvalidInput.WithMessage("name is required")
	assert.ErrorIs(t, err, InvalidInput)
	assert.Equal(t, "name is required", err.Error())
}

func TestCodesCarryHTTPStatusPrefix(t *testing.T) {
	statusByKind := map[Kind]int{
		KindNotFound:     404,
		KindForbidden:    403,
		KindConflict:     409,
		KindValidation:   400,
		KindUnauthorized: 401,
		KindInternal:     500,
	}
	sentinels := []*Error{
		AccountNotFound, PortfolioNotFound, TemplateNotFound, PublicNotFound,
		TemplateInactive, EmptySlug, InvalidInput,
		Unauthorized, Forbidden,
		QuotaExceeded, SlugConflict, DuplicateName, DuplicateEmail, SlugExhausted, DefaultConflict,
		Internal,
	}
	seen := map[int]bool{}
	for _, e := range sentinels {
		assert.Equal(t, statusByKind[e.Kind], e.Code/10, e.Message)
		assert.False(t, seen[e.Code], "duplicate code %d", e.Code)
		seen[e.Code] = true
	}
}
