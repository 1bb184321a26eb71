package odata

import (
	"fmt"
)

// FieldMap mantém o mapeamento bijetivo entre nomes RESO expostos e colunas
// do banco, preservando a ordem de declaração. O mapa direto e o reverso são
// derivados de uma única declaração para que nunca divirjam.
type FieldMap struct {
	names   []string
	forward map[string]string
	reverse map[string]string
}

// NewFieldMap cria um FieldMap a partir de pares {nome RESO, coluna}.
// Entra em pânico se um nome ou coluna aparecer duplicado: o mapa precisa ser
// uma bijeção sobre os nomes declarados.
func NewFieldMap(pairs [][2]string) *FieldMap {
	fm := &FieldMap{
		forward: make(map[string]string, len(pairs)),
		reverse: make(map[string]string, len(pairs)),
	}

	for _, pair := range pairs {
		name, column := pair[0], pair[1]
		if _, exists := fm.forward[name]; exists {
			panic(fmt.Sprintf("field map: duplicate field name %q", name))
		}
		if _, exists := fm.reverse[column]; exists {
			panic(fmt.Sprintf("field map: duplicate column %q", column))
		}
		fm.names = append(fm.names, name)
		fm.forward[name] = column
		fm.reverse[column] = name
	}

	return fm
}

// Column retorna a coluna do banco para um nome RESO exposto
func (fm *FieldMap) Column(name string) (string, bool) {
	column, ok := fm.forward[name]
	return column, ok
}

// Field retorna o nome RESO exposto para uma coluna do banco
func (fm *FieldMap) Field(column string) (string, bool) {
	name, ok := fm.reverse[column]
	return name, ok
}

// Has verifica se um nome RESO está declarado no mapa
func (fm *FieldMap) Has(name string) bool {
	_, ok := fm.forward[name]
	return ok
}

// Names retorna os nomes RESO na ordem de declaração
func (fm *FieldMap) Names() []string {
	names := make([]string, len(fm.names))
	copy(names, fm.names)
	return names
}

// Columns retorna as colunas do banco na ordem de declaração
func (fm *FieldMap) Columns() []string {
	columns := make([]string, 0, len(fm.names))
	for _, name := range fm.names {
		columns = append(columns, fm.forward[name])
	}
	return columns
}

// FirstColumn retorna a primeira coluna declarada. É usada como ORDER BY
// padrão para que a paginação seja sempre determinística.
func (fm *FieldMap) FirstColumn() string {
	if len(fm.names) == 0 {
		return ""
	}
	return fm.forward[fm.names[0]]
}

// Len retorna a quantidade de campos declarados
func (fm *FieldMap) Len() int {
	return len(fm.names)
}

// Reshape converte uma linha do banco (coluna → valor) em uma entidade com
// nomes RESO, na ordem de declaração do mapa. Colunas fora do mapa reverso
// são descartadas.
func (fm *FieldMap) Reshape(row map[string]interface{}) *OrderedEntity {
	entity := NewOrderedEntity()
	for _, name := range fm.names {
		column := fm.forward[name]
		if value, exists := row[column]; exists {
			entity.Set(name, value)
		}
	}
	return entity
}
