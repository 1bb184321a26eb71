package odata

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// FilterTokenType representa os tipos de tokens aceitos em um $filter
type FilterTokenType int

const (
	FilterTokenIdentifier FilterTokenType = iota + 1
	FilterTokenComparison
	FilterTokenLogical
	FilterTokenFunction
	FilterTokenString
	FilterTokenNumber
	FilterTokenDateTime
	FilterTokenLiteral
	FilterTokenOpenParen
	FilterTokenCloseParen
	FilterTokenComma

	// filterTokenSkip marca padrões consumidos mas não emitidos (whitespace)
	filterTokenSkip FilterTokenType = -1
)

// Token representa um token produzido pelo tokenizer de $filter
type Token struct {
	Type  FilterTokenType
	Value string
}

// Tokenizer tokeniza strings usando uma tabela ordenada de padrões
type Tokenizer struct {
	patterns []tokenPattern
}

// tokenPattern representa um padrão de token
type tokenPattern struct {
	regex     *regexp.Regexp
	tokenType FilterTokenType
}

var (
	globalFilterTokenizer *Tokenizer
	tokenizerOnce         sync.Once
)

// GetGlobalFilterTokenizer retorna o tokenizer singleton para filtros
func GetGlobalFilterTokenizer() *Tokenizer {
	tokenizerOnce.Do(func() {
		globalFilterTokenizer = createFilterTokenizer()
	})
	return globalFilterTokenizer
}

// createFilterTokenizer cria o tokenizer para o subconjunto OData suportado.
// A ordem dos padrões importa: palavras-chave antes de identificadores,
// datetime antes de número.
func createFilterTokenizer() *Tokenizer {
	t := &Tokenizer{}

	// Operadores lógicos
	t.Add(`^(?i)\b(and|or|not)\b`, FilterTokenLogical)

	// Operadores de comparação
	t.Add(`^(?i)\b(eq|ne|gt|ge|lt|le)\b`, FilterTokenComparison)

	// Funções de string
	t.Add(`^(?i)\b(contains|startswith|endswith)\b`, FilterTokenFunction)

	// Literais null/true/false
	t.Add(`^(?i)\b(null|true|false)\b`, FilterTokenLiteral)

	// Parênteses
	t.Add(`^\(`, FilterTokenOpenParen)
	t.Add(`^\)`, FilterTokenCloseParen)

	// Vírgulas
	t.Add(`^,`, FilterTokenComma)

	// DateTime: 2024-06-30, 2024-06-30T10:30:00Z, 2024-06-30T10:30:00-03:00
	t.Add(`^\d{4}-\d{2}-\d{2}[0-9:.TZ+\-]*`, FilterTokenDateTime)

	// Números (int, float, notação científica)
	t.Add(`^-?\d+(\.\d+)?([eE][+-]?\d+)?`, FilterTokenNumber)

	// Strings entre aspas simples; '' representa uma aspa literal
	t.Add(`^'(?:[^']|'')*'`, FilterTokenString)

	// Identificadores (nomes de campos RESO)
	t.Add(`^[a-zA-Z_][a-zA-Z0-9_]*`, FilterTokenIdentifier)

	// Whitespace (ignorado)
	t.Add(`^\s+`, filterTokenSkip)

	return t
}

// Add adiciona um padrão de token ao tokenizer
func (t *Tokenizer) Add(pattern string, tokenType FilterTokenType) {
	t.patterns = append(t.patterns, tokenPattern{
		regex:     regexp.MustCompile(pattern),
		tokenType: tokenType,
	})
}

// Tokenize converte a string de $filter em uma sequência ordenada de tokens.
// O tokenizer é puro: não possui estado externo e falha sem efeito colateral.
func (t *Tokenizer) Tokenize(input string) ([]Token, error) {
	var tokens []Token
	remaining := input

	for len(remaining) > 0 {
		matched := false

		for _, pattern := range t.patterns {
			match := pattern.regex.FindString(remaining)
			if match == "" {
				continue
			}

			if pattern.tokenType != filterTokenSkip {
				tokens = append(tokens, Token{
					Type:  pattern.tokenType,
					Value: normalizeTokenValue(pattern.tokenType, match),
				})
			}
			remaining = remaining[len(match):]
			matched = true
			break
		}

		if !matched {
			return nil, fmt.Errorf("Unexpected character in filter: %q", remaining[:1])
		}
	}

	return tokens, nil
}

// normalizeTokenValue normaliza o valor bruto de um token.
// Strings perdem as aspas externas e têm '' convertido em aspa simples.
func normalizeTokenValue(tokenType FilterTokenType, raw string) string {
	if tokenType != FilterTokenString {
		return raw
	}
	unquoted := raw[1 : len(raw)-1]
	return strings.ReplaceAll(unquoted, "''", "'")
}
