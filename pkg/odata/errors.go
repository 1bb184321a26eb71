package odata

import (
	"fmt"
)

// NotFoundError indica que a chave pedida não existe no backend (ou que a
// chave do path não pôde ser resolvida). O driver de recurso converte este
// erro no envelope 404 localmente.
type NotFoundError struct {
	EntitySet string
	Key       string
}

// Error implementa a interface error
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key '%s' not found", e.EntitySet, e.Key)
}

// NewNotFoundError cria um NotFoundError para um conjunto de entidades
func NewNotFoundError(entitySet, key string) *NotFoundError {
	return &NotFoundError{EntitySet: entitySet, Key: key}
}
