package odata

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ExpansionSpec descreve uma navegação permitida de um recurso: de qual
// campo da entidade pai sai a chave estrangeira e contra qual recurso a
// query em lote é feita
type ExpansionSpec struct {
	Name        string            // nome da navegação (ex.: ListAgent)
	LocalField  string            // campo RESO do pai que carrega a FK
	Target      *ResourceMetadata // recurso relacionado
	ParamPrefix string            // prefixo dos parâmetros do IN (ex.: agent)
}

// ResourceMetadata descreve um conjunto de entidades exposto: tabela de
// origem, field map, chave e navegações. Transform é aplicado a cada
// entidade após o reshape (codec de chave, parsing de mídia). ParseKey
// converte a chave do path na chave do backend.
type ResourceMetadata struct {
	Name       string
	Table      string
	Fields     *FieldMap
	KeyField   string
	BaseWhere  *SQLFragment
	Expansions []ExpansionSpec
	Transform  func(entity *OrderedEntity)
	ParseKey   func(raw string) (interface{}, error)
}

// ExpansionNames retorna os nomes das navegações permitidas
func (m *ResourceMetadata) ExpansionNames() []string {
	names := make([]string, 0, len(m.Expansions))
	for _, spec := range m.Expansions {
		names = append(names, spec.Name)
	}
	return names
}

// BaseEntityService é o driver de recurso: orquestra builder, gateway,
// reshape, expansões em lote e o envelope OData para um conjunto de
// entidades
type BaseEntityService struct {
	gateway  Querier
	metadata *ResourceMetadata
	logger   *log.Logger
}

// NewBaseEntityService cria um driver para o recurso descrito pelos metadados
func NewBaseEntityService(gateway Querier, metadata *ResourceMetadata, logger *log.Logger) *BaseEntityService {
	return &BaseEntityService{
		gateway:  gateway,
		metadata: metadata,
		logger:   logger,
	}
}

// GetMetadata retorna os metadados do recurso
func (s *BaseEntityService) GetMetadata() *ResourceMetadata {
	return s.metadata
}

// Query executa uma requisição de coleção: dados e contagem correm em
// paralelo, as linhas são remodeladas para nomes RESO e as expansões pedidas
// são resolvidas com uma única query em lote cada
func (s *BaseEntityService) Query(ctx context.Context, query RawQuery, baseURL, contextBase string) (*ODataResponse, error) {
	expansions, err := ParseExpand(query.Get("$expand"), s.metadata.ExpansionNames())
	if err != nil {
		return nil, err
	}

	plan, err := BuildQuery(QueryInput{
		Table:     s.metadata.Table,
		Fields:    s.metadata.Fields,
		Query:     query,
		KeyField:  s.metadata.KeyField,
		BaseURL:   baseURL,
		BaseWhere: s.metadata.BaseWhere,
	})
	if err != nil {
		return nil, err
	}

	var (
		rows  []map[string]interface{}
		total int64
	)

	// Dados e contagem observam o mesmo WHERE; a ordem entre eles é
	// comutativa, então podem correr em paralelo
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var queryErr error
		rows, queryErr = s.gateway.Query(groupCtx, plan.DataSQL, plan.Params)
		return queryErr
	})
	if plan.CountSQL != "" {
		group.Go(func() error {
			countRows, countErr := s.gateway.Query(groupCtx, plan.CountSQL, plan.Params)
			if countErr != nil {
				return countErr
			}
			total = extractTotal(countRows)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	entities := make([]*OrderedEntity, 0, len(rows))
	for _, row := range rows {
		entity := s.metadata.Fields.Reshape(row)
		if s.metadata.Transform != nil {
			s.metadata.Transform(entity)
		}
		entities = append(entities, entity)
	}

	// Expansões: a segunda query depende das chaves da primeira, portanto é
	// estritamente sequencial em relação a ela
	for _, spec := range s.metadata.Expansions {
		if !containsString(expansions, spec.Name) {
			continue
		}
		if err := s.attachExpansion(ctx, entities, spec); err != nil {
			return nil, err
		}
	}

	response := &ODataResponse{
		Context: contextBase + "/$metadata#" + s.metadata.Name,
		Value:   entities,
	}

	if plan.CountSQL != "" {
		response.Count = &total
		// O next link só existe quando a contagem foi pedida: a closure
		// precisa do total
		if plan.NextLink != nil {
			response.NextLink = plan.NextLink(total)
		}
	}

	return response, nil
}

// Get executa a busca de uma entidade pela chave do path. Aspas simples em
// volta da chave são removidas antes do ParseKey do recurso.
func (s *BaseEntityService) Get(ctx context.Context, rawKey string, query RawQuery, contextBase string) (*OrderedEntity, error) {
	key := stripKeyQuotes(rawKey)

	keyValue, err := s.metadata.ParseKey(key)
	if err != nil {
		// Chave indecifrável: a query nunca é emitida
		return nil, NewNotFoundError(s.metadata.Name, key)
	}

	plan, err := BuildQuery(QueryInput{
		Table:     s.metadata.Table,
		Fields:    s.metadata.Fields,
		Query:     query,
		KeyField:  s.metadata.KeyField,
		KeyValue:  keyValue,
		BaseWhere: s.metadata.BaseWhere,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.gateway.Query(ctx, plan.DataSQL, plan.Params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, NewNotFoundError(s.metadata.Name, key)
	}

	entity := s.metadata.Fields.Reshape(rows[0])
	if s.metadata.Transform != nil {
		s.metadata.Transform(entity)
	}

	expansions, err := ParseExpand(query.Get("$expand"), s.metadata.ExpansionNames())
	if err != nil {
		return nil, err
	}
	parents := []*OrderedEntity{entity}
	for _, spec := range s.metadata.Expansions {
		if !containsString(expansions, spec.Name) {
			continue
		}
		if err := s.attachExpansion(ctx, parents, spec); err != nil {
			return nil, err
		}
	}

	entity.Prepend("@odata.context", contextBase+"/$metadata#"+s.metadata.Name+"/$entity")
	return entity, nil
}

// Count executa somente a consulta de contagem para o recurso
func (s *BaseEntityService) Count(ctx context.Context, query RawQuery) (int64, error) {
	counted := make(RawQuery, len(query)+1)
	for option, raw := range query {
		counted[option] = raw
	}
	counted["$count"] = "true"

	plan, err := BuildQuery(QueryInput{
		Table:     s.metadata.Table,
		Fields:    s.metadata.Fields,
		Query:     counted,
		KeyField:  s.metadata.KeyField,
		BaseWhere: s.metadata.BaseWhere,
	})
	if err != nil {
		return 0, err
	}

	rows, err := s.gateway.Query(ctx, plan.CountSQL, plan.Params)
	if err != nil {
		return 0, err
	}
	return extractTotal(rows), nil
}

// attachExpansion resolve uma navegação com a estratégia de batching em duas
// queries: coleta as FKs distintas não nulas dos pais e faz um único SELECT
// com IN na tabela relacionada. Pais sem correspondência ficam sem a
// propriedade de navegação.
func (s *BaseEntityService) attachExpansion(ctx context.Context, entities []*OrderedEntity, spec ExpansionSpec) error {
	var keys []interface{}
	seen := make(map[string]bool)

	for _, entity := range entities {
		value, exists := entity.Get(spec.LocalField)
		if !exists || value == nil {
			continue
		}
		normalized := fmt.Sprintf("%v", value)
		if !seen[normalized] {
			seen[normalized] = true
			keys = append(keys, value)
		}
	}

	if len(keys) == 0 {
		return nil
	}

	args := NewNamedArgs(spec.ParamPrefix)
	placeholders := make([]string, 0, len(keys))
	for _, key := range keys {
		placeholders = append(placeholders, args.Add(key))
	}

	target := spec.Target
	keyColumn, ok := target.Fields.Column(target.KeyField)
	if !ok {
		return fmt.Errorf("expansion %s: key field %s not mapped", spec.Name, target.KeyField)
	}

	sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(target.Fields.Columns(), ", "), target.Table, keyColumn, strings.Join(placeholders, ", "))

	rows, err := s.gateway.Query(ctx, sqlText, args.Params())
	if err != nil {
		return fmt.Errorf("expansion %s failed: %w", spec.Name, err)
	}

	related := make(map[string]*OrderedEntity, len(rows))
	for _, row := range rows {
		entity := target.Fields.Reshape(row)
		if target.Transform != nil {
			target.Transform(entity)
		}
		if keyValue, exists := entity.Get(target.KeyField); exists {
			related[fmt.Sprintf("%v", keyValue)] = entity
		}
	}

	for _, entity := range entities {
		value, exists := entity.Get(spec.LocalField)
		if !exists || value == nil {
			continue
		}
		if match, found := related[fmt.Sprintf("%v", value)]; found {
			entity.Set(spec.Name, match)
		}
	}

	return nil
}

// extractTotal lê o total da primeira linha de uma consulta COUNT
func extractTotal(rows []map[string]interface{}) int64 {
	if len(rows) == 0 {
		return 0
	}
	switch value := rows[0]["total"].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case int32:
		return int64(value)
	case float64:
		return int64(value)
	default:
		return 0
	}
}

// stripKeyQuotes remove aspas simples em volta da chave do path
func stripKeyQuotes(key string) string {
	if len(key) >= 2 && key[0] == '\'' && key[len(key)-1] == '\'' {
		return key[1 : len(key)-1]
	}
	return key
}

// containsString verifica se a lista contém o valor
func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
