package odata

import (
	"fmt"
	"strconv"
	"strings"
)

// NamedArgs gerencia a alocação sequencial de parâmetros nomeados para um
// fragmento SQL. Os nomes são gerados <prefixo>0, <prefixo>1, … na ordem de
// emissão e os placeholders saem como @<nome> (sintaxe SQL Server).
type NamedArgs struct {
	prefix  string
	params  map[string]interface{}
	counter int
}

// NewNamedArgs cria um alocador de parâmetros com o prefixo dado
func NewNamedArgs(prefix string) *NamedArgs {
	return &NamedArgs{
		prefix: prefix,
		params: make(map[string]interface{}),
	}
}

// Add registra um valor e retorna o placeholder correspondente
func (na *NamedArgs) Add(value interface{}) string {
	name := fmt.Sprintf("%s%d", na.prefix, na.counter)
	na.counter++
	na.params[name] = value
	return "@" + name
}

// Params retorna o mapa nome → valor acumulado
func (na *NamedArgs) Params() map[string]interface{} {
	return na.params
}

// FilterCompiler compila a sequência de tokens de um $filter em um fragmento
// WHERE parametrizado, validando todo identificador contra o field map do
// recurso. Nenhum identificador da requisição chega ao SQL sem passar pelo
// whitelist; nenhum literal chega ao SQL fora de um parâmetro.
type FilterCompiler struct {
	nodeMap    map[string]string
	prepareMap map[string]string
}

// NewFilterCompiler cria um FilterCompiler com os mapas de operadores do
// subconjunto OData suportado
func NewFilterCompiler() *FilterCompiler {
	fc := &FilterCompiler{
		nodeMap:    make(map[string]string),
		prepareMap: make(map[string]string),
	}
	fc.setupMaps()
	return fc
}

// setupMaps configura os mapas de operadores e de preparação de valores
func (fc *FilterCompiler) setupMaps() {
	// Operadores de comparação
	fc.nodeMap["eq"] = "="
	fc.nodeMap["ne"] = "!="
	fc.nodeMap["gt"] = ">"
	fc.nodeMap["ge"] = ">="
	fc.nodeMap["lt"] = "<"
	fc.nodeMap["le"] = "<="

	// Literais (idioma booleano do SQL Server)
	fc.nodeMap["null"] = "NULL"
	fc.nodeMap["true"] = "1"
	fc.nodeMap["false"] = "0"

	// Preparação de valores para funções LIKE
	fc.prepareMap["contains"] = "%%%s%%"
	fc.prepareMap["startswith"] = "%s%%"
	fc.prepareMap["endswith"] = "%%%s"
}

// Compile percorre os tokens linearmente e emite o fragmento WHERE.
// A expansão linear preserva os parênteses do cliente; a precedência
// AND/OR do SQL Server coincide com a do OData, então a estrutura booleana
// resultante é equivalente.
func (fc *FilterCompiler) Compile(tokens []Token, fields *FieldMap) (*SQLFragment, error) {
	args := NewNamedArgs("filter")
	var sb strings.Builder

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch token.Type {
		case FilterTokenIdentifier:
			column, ok := fields.Column(token.Value)
			if !ok {
				return nil, fmt.Errorf("Unknown field: %s", token.Value)
			}
			sb.WriteString(column)

		case FilterTokenComparison:
			operator, ok := fc.nodeMap[strings.ToLower(token.Value)]
			if !ok {
				return nil, fmt.Errorf("Invalid $filter: unsupported operator %q", token.Value)
			}
			sb.WriteString(" " + operator + " ")

		case FilterTokenLogical:
			sb.WriteString(" " + strings.ToUpper(token.Value) + " ")

		case FilterTokenString:
			sb.WriteString(args.Add(token.Value))

		case FilterTokenNumber:
			value, err := parseNumericValue(token.Value)
			if err != nil {
				return nil, fmt.Errorf("Invalid $filter: bad number %q", token.Value)
			}
			sb.WriteString(args.Add(value))

		case FilterTokenDateTime:
			// O texto literal é repassado como parâmetro; o SQL Server
			// converte no tipo da coluna
			sb.WriteString(args.Add(token.Value))

		case FilterTokenLiteral:
			sb.WriteString(fc.nodeMap[strings.ToLower(token.Value)])

		case FilterTokenOpenParen:
			sb.WriteString("(")

		case FilterTokenCloseParen:
			sb.WriteString(")")

		case FilterTokenFunction:
			consumed, err := fc.compileFunction(tokens[i:], fields, args, &sb)
			if err != nil {
				return nil, err
			}
			i += consumed - 1

		case FilterTokenComma:
			return nil, fmt.Errorf("Invalid $filter: unexpected ','")

		default:
			return nil, fmt.Errorf("Invalid $filter: unexpected token %q", token.Value)
		}
	}

	return &SQLFragment{SQL: sb.String(), Params: args.Params()}, nil
}

// compileFunction compila a sequência função '(' identificador ',' string ')'
// em <coluna> LIKE @filterN, com o valor preparado conforme a função.
// Retorna quantos tokens foram consumidos.
func (fc *FilterCompiler) compileFunction(tokens []Token, fields *FieldMap, args *NamedArgs, sb *strings.Builder) (int, error) {
	const functionArity = 6 // função ( identificador , string )

	name := strings.ToLower(tokens[0].Value)
	template, ok := fc.prepareMap[name]
	if !ok {
		return 0, fmt.Errorf("Invalid $filter: unsupported function %q", tokens[0].Value)
	}

	if len(tokens) < functionArity ||
		tokens[1].Type != FilterTokenOpenParen ||
		tokens[2].Type != FilterTokenIdentifier ||
		tokens[3].Type != FilterTokenComma ||
		tokens[4].Type != FilterTokenString ||
		tokens[5].Type != FilterTokenCloseParen {
		return 0, fmt.Errorf("Invalid $filter: malformed %s call", name)
	}

	column, ok := fields.Column(tokens[2].Value)
	if !ok {
		return 0, fmt.Errorf("Unknown field: %s", tokens[2].Value)
	}

	placeholder := args.Add(fmt.Sprintf(template, tokens[4].Value))
	sb.WriteString(column + " LIKE " + placeholder)

	return functionArity, nil
}

// parseNumericValue converte o texto de um número para int64 ou float64
func parseNumericValue(raw string) (interface{}, error) {
	if !strings.ContainsAny(raw, ".eE") {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return value, nil
		}
	}
	return strconv.ParseFloat(raw, 64)
}

// CompileFilter tokeniza e compila uma string de $filter para o recurso dado
func CompileFilter(filter string, fields *FieldMap) (*SQLFragment, error) {
	tokens, err := GetGlobalFilterTokenizer().Tokenize(filter)
	if err != nil {
		return nil, err
	}
	return NewFilterCompiler().Compile(tokens, fields)
}
