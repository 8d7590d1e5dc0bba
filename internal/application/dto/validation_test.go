package dto

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidationMessage(t *testing.T) {
	type input struct {
		PartID string `validate:"required"`
		SKU    string `validate:"max=2"`
	}
	err := validator.New().Struct(input{SKU: "abc"})
	assert.Equal(t, "part_id: required; sku: max=2", ValidationMessage(err))
	assert.Equal(t, "x", ValidationMessage(errors.New("x")))
}

func TestPageRequestClamp(t *testing.T) {
	p := PageRequest{Page: 0, Limit: 0}.Clamp(20, 100)
	assert.Equal(t, PageRequest{Page: 1, Limit: 20}, p)
	assert.Equal(t, 0, p.Offset())

	p = PageRequest{Page: 3, Limit: 500}.Clamp(20, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 200, p.Offset())

	assert.Equal(t, 3, NewPageResponse(PageRequest{Page: 1, Limit: 10}, 25).Pages)
	assert.Equal(t, 0, NewPageResponse(PageRequest{Page: 1, Limit: 10}, 0).Pages)
}
