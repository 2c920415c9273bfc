package handler

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tr := domain.Tracker{
		"name":  "Ana",
		"count": 3.0,
		"ratio": 0.25,
		"empty": nil,
		"flag":  true,
	}

	tests := []struct {
		name string
		tpl  string
		want string
	}{
		{"No Placeholders", "Hello there", "Hello there"},
		{"Single", "Hello {name}!", "Hello Ana!"},
		{"Repeated", "{name} and {name}", "Ana and Ana"},
		{"Integral Float", "You have {count} items", "You have 3 items"},
		{"Fraction", "{ratio}", "0.25"},
		{"Nil Value", "[{empty}]", "[]"},
		{"Bool", "{flag}", "true"},
		{"Escaped Braces", "{{name}} is {name}", "{name} is Ana"},
		{"Unicode Around", "Olá, {name} 👋", "Olá, Ana 👋"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.tpl, tr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_MissingKey(t *testing.T) {
	_, err := Format("Hi {nickname}", domain.Tracker{"name": "Ana"})

	var tplErr *domain.TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, "nickname", tplErr.Key)
	assert.Equal(t, "Hi {nickname}", tplErr.Template)
}

func TestFormat_Unterminated(t *testing.T) {
	_, err := Format("Hi {name", domain.Tracker{"name": "Ana"})
	var tplErr *domain.TemplateError
	assert.ErrorAs(t, err, &tplErr)
}
