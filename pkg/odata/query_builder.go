package odata

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultTop é o tamanho de página aplicado quando o cliente não envia $top
	DefaultTop = 100
	// MaxTop é o teto de $top
	MaxTop = 1000
)

// QueryInput reúne as entradas do builder para um recurso
type QueryInput struct {
	Table     string
	Fields    *FieldMap
	Query     RawQuery
	KeyField  string
	KeyValue  interface{}  // quando presente, vence sobre $filter
	BaseURL   string       // habilita o next link quando não vazio
	BaseWhere *SQLFragment // predicado fixo do recurso, opcional
}

// QueryPlan é o plano de execução sintetizado para uma requisição
type QueryPlan struct {
	DataSQL  string
	CountSQL string // vazio quando $count não foi pedido
	Params   map[string]interface{}
	Top      int
	Skip     int
	// NextLink recebe o total e retorna a URL da próxima página, ou vazio
	// quando skip+top alcança o total. Nil quando BaseURL não foi informada.
	NextLink func(total int64) string
}

// BuildQuery combina filtro, projeção, ordenação e paginação em SQL
// parametrizado. Toda consulta de dados sai com ORDER BY: sem $orderby do
// cliente, a primeira coluna do field map mantém a paginação estável.
func BuildQuery(in QueryInput) (*QueryPlan, error) {
	top := clampTop(in.Query.Get("$top"))
	skip := clampSkip(in.Query.Get("$skip"))
	wantCount := in.Query.Get("$count") == "true"

	columns, err := ParseSelect(in.Query.Get("$select"), in.Fields)
	if err != nil {
		return nil, err
	}

	params := make(map[string]interface{})
	var conditions []string

	if in.BaseWhere != nil && in.BaseWhere.SQL != "" {
		conditions = append(conditions, in.BaseWhere.SQL)
		for name, value := range in.BaseWhere.Params {
			params[name] = value
		}
	}

	if in.KeyValue != nil {
		keyColumn, ok := in.Fields.Column(in.KeyField)
		if !ok {
			return nil, fmt.Errorf("Unknown field: %s", in.KeyField)
		}
		conditions = append(conditions, keyColumn+" = @keyValue")
		params["keyValue"] = in.KeyValue
	} else if filter := in.Query.Get("$filter"); filter != "" {
		fragment, err := CompileFilter(filter, in.Fields)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, fragment.SQL)
		for name, value := range fragment.Params {
			params[name] = value
		}
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy, err := ParseOrderBy(in.Query.Get("$orderby"), in.Fields)
	if err != nil {
		return nil, err
	}
	if orderBy == "" {
		orderBy = in.Fields.FirstColumn() + " ASC"
	}

	plan := &QueryPlan{
		DataSQL: fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY",
			strings.Join(columns, ", "), in.Table, where, orderBy, skip, top),
		Params: params,
		Top:    top,
		Skip:   skip,
	}

	// A contagem usa exatamente o mesmo WHERE e os mesmos parâmetros da
	// consulta de dados
	if wantCount {
		plan.CountSQL = fmt.Sprintf("SELECT COUNT(*) AS total FROM %s%s", in.Table, where)
	}

	if in.BaseURL != "" {
		plan.NextLink = buildNextLink(in.BaseURL, in.Query, top, skip)
	}

	return plan, nil
}

// buildNextLink cria a closure de next link re-propagando as opções que o
// cliente enviou. url.Values.Encode garante o escape do '$' como %24.
func buildNextLink(baseURL string, query RawQuery, top, skip int) func(total int64) string {
	return func(total int64) string {
		if int64(skip+top) >= total {
			return ""
		}

		values := url.Values{}
		values.Set("$top", strconv.Itoa(top))
		values.Set("$skip", strconv.Itoa(skip+top))
		for _, option := range []string{"$select", "$filter", "$orderby", "$count"} {
			if raw := query.Get(option); raw != "" {
				values.Set(option, raw)
			}
		}

		return baseURL + "?" + values.Encode()
	}
}

// clampTop aplica o padrão e os limites de $top: [1,1000], padrão 100
func clampTop(raw string) int {
	top, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || top == 0 {
		top = DefaultTop
	}
	if top < 1 {
		top = 1
	}
	if top > MaxTop {
		top = MaxTop
	}
	return top
}

// clampSkip aplica o piso de $skip: mínimo 0, padrão 0
func clampSkip(raw string) int {
	skip, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || skip < 0 {
		return 0
	}
	return skip
}
