package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidLogin(t *testing.T) {
	assert.True(t, IsValidLogin("ana.souza"))
	assert.True(t, IsValidLogin("joao_07"))
	assert.False(t, IsValidLogin("ab"))
	assert.False(t, IsValidLogin("Ana"))
	assert.False(t, IsValidLogin("with space"))
	assert.False(t, IsValidLogin(""))
}

func TestIsValidDate(t *testing.T) {
	assert.True(t, IsValidDate(""))
	assert.True(t, IsValidDate("2024-02-29"))
	assert.False(t, IsValidDate("29/02/2024"))
	assert.False(t, IsValidDate("2023-02-29"))
}

func TestRegisterRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterRules(v))

	type request struct {
		Login    string `validate:"required,login"`
		VideoIDs []int  `validate:"dive,videoid"`
		Birth    string `validate:"omitempty,isodate"`
	}

	assert.NoError(t, v.Struct(request{Login: "maria", VideoIDs: []int{101, 102}, Birth: "2010-05-01"}))
	assert.Error(t, v.Struct(request{Login: "Maria!", VideoIDs: []int{101}}))
	assert.Error(t, v.Struct(request{Login: "maria", VideoIDs: []int{101, 0}}))
	assert.Error(t, v.Struct(request{Login: "maria", Birth: "01-05-2010"}))
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterRules(v))

	type request struct {
		VideoIDs []int  `json:"videoIds" validate:"dive,videoid"`
		Birth    string `json:"birthDate,omitempty" validate:"omitempty,isodate"`
		Internal string `json:"-" validate:"required"`
	}

	err := v.Struct(request{VideoIDs: []int{101, 0}, Birth: "yesterday"})
	var fieldErrors validator.ValidationErrors
	require.True(t, errors.As(err, &fieldErrors))

	fields := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		fields = append(fields, fe.Field())
	}
	assert.ElementsMatch(t, []string{"videoIds[1]", "birthDate", "Internal"}, fields)
}
