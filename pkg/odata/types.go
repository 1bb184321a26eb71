package odata

import (
	"context"
)

// ODataResponse representa o envelope padrão de uma coleção OData.
// A ordem dos campos segue a ordem exigida do envelope:
// @odata.context, @odata.count, @odata.nextLink, value.
type ODataResponse struct {
	Context  string      `json:"@odata.context,omitempty"`
	Count    *int64      `json:"@odata.count,omitempty"`
	NextLink string      `json:"@odata.nextLink,omitempty"`
	Value    interface{} `json:"value"`
}

// ODataError representa o corpo de erro OData
type ODataError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ODataErrorResponse é o envelope de erro {error:{code,message}}
type ODataErrorResponse struct {
	Error ODataError `json:"error"`
}

// RawQuery carrega as opções de consulta OData cruas extraídas da URL
// ($filter, $select, $orderby, $top, $skip, $count, $expand)
type RawQuery map[string]string

// Get retorna o valor cru de uma opção, ou vazio se ausente
func (q RawQuery) Get(option string) string {
	if q == nil {
		return ""
	}
	return q[option]
}

// SQLFragment é um fragmento de SQL com seus parâmetros nomeados.
// Nenhum literal vindo da requisição aparece no texto SQL: valores vivem
// exclusivamente em Params.
type SQLFragment struct {
	SQL    string
	Params map[string]interface{}
}

// Querier é o contrato do gateway de banco observado pelo núcleo:
// executa um statement parametrizado e devolve linhas não tipadas
// (coluna → valor). O núcleo só observa sucesso ou falha.
type Querier interface {
	Query(ctx context.Context, sqlText string, params map[string]interface{}) ([]map[string]interface{}, error)
}
