package odata

import (
	"bytes"
	"encoding/json"
)

// EntityProperty representa uma propriedade nomeada de uma entidade
type EntityProperty struct {
	Name  string
	Value interface{}
}

// OrderedEntity é um objeto JSON que preserva a ordem de inserção das
// propriedades. Respostas OData expõem @odata.context primeiro e os campos
// na ordem do field map, o que um map comum não garante.
type OrderedEntity struct {
	Properties []EntityProperty
	index      map[string]int
}

// NewOrderedEntity cria uma entidade vazia
func NewOrderedEntity() *OrderedEntity {
	return &OrderedEntity{
		index: make(map[string]int),
	}
}

// Set define uma propriedade, preservando a posição original se já existir
func (e *OrderedEntity) Set(name string, value interface{}) {
	if pos, exists := e.index[name]; exists {
		e.Properties[pos].Value = value
		return
	}
	e.index[name] = len(e.Properties)
	e.Properties = append(e.Properties, EntityProperty{Name: name, Value: value})
}

// Get retorna o valor de uma propriedade
func (e *OrderedEntity) Get(name string) (interface{}, bool) {
	if pos, exists := e.index[name]; exists {
		return e.Properties[pos].Value, true
	}
	return nil, false
}

// Delete remove uma propriedade, preservando a ordem das demais
func (e *OrderedEntity) Delete(name string) {
	pos, exists := e.index[name]
	if !exists {
		return
	}
	e.Properties = append(e.Properties[:pos], e.Properties[pos+1:]...)
	delete(e.index, name)
	for i := pos; i < len(e.Properties); i++ {
		e.index[e.Properties[i].Name] = i
	}
}

// Prepend insere uma propriedade na primeira posição
func (e *OrderedEntity) Prepend(name string, value interface{}) {
	e.Delete(name)
	e.Properties = append([]EntityProperty{{Name: name, Value: value}}, e.Properties...)
	e.index[name] = 0
	for i := 1; i < len(e.Properties); i++ {
		e.index[e.Properties[i].Name] = i
	}
}

// MarshalJSON serializa a entidade preservando a ordem das propriedades
func (e *OrderedEntity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, prop := range e.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}

		name, err := json.Marshal(prop.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')

		value, err := json.Marshal(prop.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
