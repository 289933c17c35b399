package api

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidators_TemplateCategory(t *testing.T) {
	registerValidators()

	type body struct {
		Category *string `binding:"omitempty,template_category"`
	}
	good, bad := "academic", "brutalist"
	assert.NoError(t, binding.Validator.ValidateStruct(body{Category: &good}))
	assert.NoError(t, binding.Validator.ValidateStruct(body{}))
	assert.Error(t, binding.Validator.ValidateStruct(body{Category: &bad}))
}

func TestAddValidators_ReportsFailures(t *testing.T) {
	err := addValidators(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom rules need *validator.Validate")

	assert.NoError(t, addValidators(validator.New()))
}
