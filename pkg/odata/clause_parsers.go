package odata

import (
	"fmt"
	"strings"
)

// ParseSelect faz o parsing de uma string de $select e retorna as colunas
// do banco correspondentes. Vazio seleciona todas as colunas na ordem de
// declaração do field map.
func ParseSelect(raw string, fields *FieldMap) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return fields.Columns(), nil
	}

	items := strings.Split(raw, ",")
	columns := make([]string, 0, len(items))

	for _, item := range items {
		name := strings.TrimSpace(item)
		column, ok := fields.Column(name)
		if !ok {
			return nil, fmt.Errorf("Invalid field in $select: %s", name)
		}
		columns = append(columns, column)
	}

	return columns, nil
}

// ParseOrderBy faz o parsing de uma string de $orderby e retorna a cláusula
// ORDER BY com colunas do banco. Cada entrada é "<nome> [asc|desc]" com asc
// como padrão. Vazio retorna cláusula vazia (o builder aplica o padrão).
func ParseOrderBy(raw string, fields *FieldMap) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	items := strings.Split(raw, ",")
	clauses := make([]string, 0, len(items))

	for _, item := range items {
		parts := strings.Fields(strings.TrimSpace(item))
		if len(parts) == 0 {
			return "", fmt.Errorf("Invalid field in $orderby: empty entry")
		}

		name := parts[0]
		column, ok := fields.Column(name)
		if !ok {
			return "", fmt.Errorf("Invalid field in $orderby: %s", name)
		}

		direction := "ASC"
		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "asc":
				direction = "ASC"
			case "desc":
				direction = "DESC"
			default:
				return "", fmt.Errorf("Invalid $orderby direction: %s", parts[1])
			}
		}
		if len(parts) > 2 {
			return "", fmt.Errorf("Invalid $orderby entry: %s", item)
		}

		clauses = append(clauses, column+" "+direction)
	}

	return strings.Join(clauses, ", "), nil
}

// ParseExpand faz o parsing de uma string de $expand contra a lista de
// navegações permitidas do recurso
func ParseExpand(raw string, allowed []string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	items := strings.Split(raw, ",")
	expansions := make([]string, 0, len(items))

	for _, item := range items {
		name := strings.TrimSpace(item)
		if !allowedSet[name] {
			return nil, fmt.Errorf("Invalid $expand: %s. Allowed: %s", name, strings.Join(allowed, ", "))
		}
		expansions = append(expansions, name)
	}

	return expansions, nil
}
