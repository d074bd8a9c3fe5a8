package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portal/internal/apperr"
)

type sample struct {
	Name string `json:"name" validate:"required"`
	Slug string `json:"slug" validate:"required,slug"`
	URL  string `json:"grant_url" validate:"omitempty,url"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "x", Slug: "My Tool!"})
	require.Error(t, err)

	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "slug", ve.Field)
	assert.Equal(t, "must match [a-z0-9-]+", ve.Reason)
}

func TestStructAcceptsValidSlug(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "x", Slug: "my-tool-2"}))
}

func TestStructRequired(t *testing.T) {
	err := Struct(sample{Slug: "ok"})
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("grant_url", "https://tool.example/r1", "required,url"))

	err := Var("grant_url", "not a url", "required,url")
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "grant_url", ve.Field)
}

type optional struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=10"`
}

func TestStructOptionalPointerRejectsEmpty(t *testing.T) {
	assert.NoError(t, Struct(optional{}))

	name := "ok"
	assert.NoError(t, Struct(optional{Name: &name}))

	empty := ""
	err := Struct(optional{Name: &empty})
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, "must not be empty", ve.Reason)
}
