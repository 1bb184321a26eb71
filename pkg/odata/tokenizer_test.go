package odata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGlobalFilterTokenizer(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()
	assert.NotNil(t, tokenizer)

	// Deve retornar a mesma instância
	tokenizer2 := GetGlobalFilterTokenizer()
	assert.Same(t, tokenizer, tokenizer2)
}

func TestTokenizer_Tokenize_SimpleComparison(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tokens, err := tokenizer.Tokenize("City eq 'Los Angeles'")
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, FilterTokenIdentifier, tokens[0].Type)
	assert.Equal(t, "City", tokens[0].Value)
	assert.Equal(t, FilterTokenComparison, tokens[1].Type)
	assert.Equal(t, "eq", tokens[1].Value)
	assert.Equal(t, FilterTokenString, tokens[2].Type)
	assert.Equal(t, "Los Angeles", tokens[2].Value)
}

func TestTokenizer_Tokenize_ComparisonOperators(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	for _, operator := range []string{"eq", "ne", "gt", "ge", "lt", "le"} {
		t.Run(operator, func(t *testing.T) {
			tokens, err := tokenizer.Tokenize(operator)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, FilterTokenComparison, tokens[0].Type)
			assert.Equal(t, operator, tokens[0].Value)
		})
	}
}

func TestTokenizer_Tokenize_LogicalOperators(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	for _, operator := range []string{"and", "or", "not"} {
		t.Run(operator, func(t *testing.T) {
			tokens, err := tokenizer.Tokenize(operator)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, FilterTokenLogical, tokens[0].Type)
		})
	}
}

func TestTokenizer_Tokenize_KeywordBeforeIdentifier(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	// "equals" não é a palavra-chave "eq": a fronteira de palavra decide
	tokens, err := tokenizer.Tokenize("equals")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, FilterTokenIdentifier, tokens[0].Type)
	assert.Equal(t, "equals", tokens[0].Value)
}

func TestTokenizer_Tokenize_Numbers(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tests := []struct {
		name  string
		input string
	}{
		{"integer", "500000"},
		{"negative", "-42"},
		{"float", "3.14"},
		{"scientific", "1.5e10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := tokenizer.Tokenize(tt.input)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, FilterTokenNumber, tokens[0].Type)
			assert.Equal(t, tt.input, tokens[0].Value)
		})
	}
}

func TestTokenizer_Tokenize_DateTimeBeforeNumber(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tests := []string{
		"2024-06-30",
		"2024-06-30T10:30:00Z",
		"2024-06-30T10:30:00-03:00",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			tokens, err := tokenizer.Tokenize(input)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, FilterTokenDateTime, tokens[0].Type)
			assert.Equal(t, input, tokens[0].Value)
		})
	}
}

func TestTokenizer_Tokenize_StringEscaping(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	// '' dentro da string vira uma aspa simples literal
	tokens, err := tokenizer.Tokenize("'O''Brien'")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, FilterTokenString, tokens[0].Type)
	assert.Equal(t, "O'Brien", tokens[0].Value)
}

func TestTokenizer_Tokenize_Literals(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	for _, literal := range []string{"null", "true", "false"} {
		t.Run(literal, func(t *testing.T) {
			tokens, err := tokenizer.Tokenize(literal)
			require.NoError(t, err)
			require.Len(t, tokens, 1)
			assert.Equal(t, FilterTokenLiteral, tokens[0].Type)
		})
	}
}

func TestTokenizer_Tokenize_FunctionCall(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tokens, err := tokenizer.Tokenize("contains(City, 'Angeles')")
	require.NoError(t, err)
	require.Len(t, tokens, 6)

	assert.Equal(t, FilterTokenFunction, tokens[0].Type)
	assert.Equal(t, FilterTokenOpenParen, tokens[1].Type)
	assert.Equal(t, FilterTokenIdentifier, tokens[2].Type)
	assert.Equal(t, FilterTokenComma, tokens[3].Type)
	assert.Equal(t, FilterTokenString, tokens[4].Type)
	assert.Equal(t, FilterTokenCloseParen, tokens[5].Type)
}

func TestTokenizer_Tokenize_UnexpectedCharacter(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tests := []struct {
		name  string
		input string
	}{
		{"sql equals", "City = 'x'"},
		{"semicolon", "City; DROP TABLE"},
		{"hash", "#comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tokenizer.Tokenize(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Unexpected character in filter")
		})
	}
}

func TestTokenizer_Tokenize_Empty(t *testing.T) {
	tokenizer := GetGlobalFilterTokenizer()

	tokens, err := tokenizer.Tokenize("")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
