package odata

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
)

// setupBaseRoutes configura as rotas base do servidor OData
func (s *Server) setupBaseRoutes() {
	prefix := s.config.RoutePrefix

	// Rota para metadados
	s.router.Get(prefix+"/$metadata", s.handleMetadata)

	// Rota para service document
	s.router.Get(prefix+"/", s.handleServiceDocument)

	// Endpoint de token OAuth2
	if s.auth != nil {
		s.auth.RegisterRoutes(s.router.Group(prefix))
	}

	// Rota para health check
	s.router.Get("/health", s.handleHealth)
}

// setupResourceRoutes configura as rotas de um conjunto de entidades.
// Todas exigem bearer válido.
func (s *Server) setupResourceRoutes(name string) {
	prefix := s.config.RoutePrefix

	if s.auth != nil {
		authMiddleware := s.auth.Middleware()
		s.router.Get(prefix+"/"+name, s.handleCollection, authMiddleware)
		s.router.Get(prefix+"/"+name+"/$count", s.handleCollectionCount, authMiddleware)
		// Padrão wildcard para capturar /odata/Property('123')
		s.router.Get(prefix+"/"+name+"(*)", s.handleEntity, authMiddleware)
		return
	}

	s.router.Get(prefix+"/"+name, s.handleCollection)
	s.router.Get(prefix+"/"+name+"/$count", s.handleCollectionCount)
	s.router.Get(prefix+"/"+name+"(*)", s.handleEntity)
}

// handleServiceDocument lida com GET do documento de serviço
func (s *Server) handleServiceDocument(c fiber.Ctx) error {
	contextBase := s.contextBase(c)

	sets := make([]map[string]string, 0, len(s.order))
	for _, name := range s.order {
		sets = append(sets, map[string]string{
			"name": name,
			"kind": "EntitySet",
			"url":  name,
		})
	}

	return c.JSON(map[string]interface{}{
		"@odata.context": contextBase + "/$metadata",
		"value":          sets,
	})
}

// handleMetadata lida com GET dos metadados CSDL
func (s *Server) handleMetadata(c fiber.Ctx) error {
	c.Set("Content-Type", "application/xml")
	return c.Send(s.metadataXML)
}

// handleHealth responde o estado do servidor e do gateway
func (s *Server) handleHealth(c fiber.Ctx) error {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"resources": len(s.services),
	}
	return c.JSON(health)
}

// handleCollection lida com GET na coleção de um conjunto de entidades
func (s *Server) handleCollection(c fiber.Ctx) error {
	name := s.extractResourceName(c.Path())
	service, exists := s.GetService(name)
	if !exists {
		return s.writeError(c, fiber.StatusNotFound, "NotFound", fmt.Sprintf("Entity set '%s' not found", name))
	}

	query := extractRawQuery(c)
	baseURL := c.BaseURL() + c.Path()

	response, err := service.Query(c.Context(), query, baseURL, s.contextBase(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(response)
}

// handleCollectionCount lida com GET de /<Set>/$count
func (s *Server) handleCollectionCount(c fiber.Ctx) error {
	name := s.extractResourceName(c.Path())
	service, exists := s.GetService(name)
	if !exists {
		return s.writeError(c, fiber.StatusNotFound, "NotFound", fmt.Sprintf("Entity set '%s' not found", name))
	}

	total, err := service.Count(c.Context(), extractRawQuery(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}

	c.Set("Content-Type", "text/plain")
	return c.SendString(fmt.Sprintf("%d", total))
}

// handleEntity lida com GET de uma entidade pela chave do path
func (s *Server) handleEntity(c fiber.Ctx) error {
	path := c.Path()
	name := s.extractResourceName(path)
	service, exists := s.GetService(name)
	if !exists {
		return s.writeError(c, fiber.StatusNotFound, "NotFound", fmt.Sprintf("Entity set '%s' not found", name))
	}

	key, err := extractPathKey(path)
	if err != nil {
		return s.writeError(c, fiber.StatusNotFound, "NotFound", err.Error())
	}

	entity, err := service.Get(c.Context(), key, extractRawQuery(c), s.contextBase(c))
	if err != nil {
		return s.writeServiceError(c, err)
	}

	return c.JSON(entity)
}

// extractResourceName extrai o nome do conjunto de entidades do path
func (s *Server) extractResourceName(path string) string {
	prefix := s.config.RoutePrefix
	path = strings.TrimPrefix(path, prefix)
	path = strings.TrimPrefix(path, "/")

	if idx := strings.Index(path, "("); idx != -1 {
		path = path[:idx]
	}
	path = strings.TrimSuffix(path, "/$count")

	return path
}
