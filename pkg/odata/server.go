package odata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

// ODataVersion é o valor do header OData-Version de todas as respostas
const ODataVersion = "4.0"

// recognizedOptions são as opções de consulta OData aceitas pela superfície
var recognizedOptions = []string{"$filter", "$select", "$orderby", "$top", "$skip", "$count", "$expand"}

// AuthProvider é o contrato de autenticação consumido pelo servidor: um
// middleware que valida o bearer e as rotas do endpoint de token
type AuthProvider interface {
	Middleware() fiber.Handler
	RegisterRoutes(router fiber.Router)
}

// ServerConfig representa as configurações do servidor HTTP
type ServerConfig struct {
	Host            string
	Port            int
	RoutePrefix     string
	EnableCORS      bool
	EnableLogging   bool
	ShutdownTimeout time.Duration
}

// DefaultServerConfig retorna uma configuração padrão do servidor
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "localhost",
		Port:            8080,
		RoutePrefix:     "/odata",
		EnableCORS:      true,
		EnableLogging:   true,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server é a superfície HTTP do serviço OData
type Server struct {
	router      *fiber.App
	config      *ServerConfig
	gateway     Querier
	auth        AuthProvider
	services    map[string]*BaseEntityService
	order       []string
	metadataXML []byte
	logger      *log.Logger
	mu          sync.RWMutex
	running     bool
}

// NewServer cria uma nova instância do servidor OData
func NewServer(config *ServerConfig, gateway Querier, auth AuthProvider) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	logger := log.New(os.Stdout, "[OData] ", log.LstdFlags|log.Lshortfile)

	server := &Server{
		router:   fiber.New(),
		config:   config,
		gateway:  gateway,
		auth:     auth,
		services: make(map[string]*BaseEntityService),
		logger:   logger,
	}

	if config.EnableCORS {
		server.router.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"*"},
			ExposeHeaders: []string{"OData-Version", "Content-Type"},
		}))
	}
	server.router.Use(requestid.New())
	if config.EnableLogging {
		server.router.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${method} ${path} ${status} ${latency} ${locals:requestid}\n",
			Output: os.Stdout,
		}))
	}

	// Recovery sempre ativo
	server.router.Use(recover.New())

	// Toda resposta carrega o header de versão OData
	server.router.Use(func(c fiber.Ctx) error {
		c.Set("OData-Version", ODataVersion)
		return c.Next()
	})

	server.setupBaseRoutes()

	return server
}

// Router expõe o app fiber para montagem de rotas colaboradoras (redirect)
func (s *Server) Router() *fiber.App {
	return s.router
}

// SetMetadataXML define o documento CSDL servido em /$metadata
func (s *Server) SetMetadataXML(doc []byte) {
	s.metadataXML = doc
}

// RegisterResource registra um recurso no servidor e configura suas rotas
func (s *Server) RegisterResource(metadata *ResourceMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	service := NewBaseEntityService(s.gateway, metadata, s.logger)
	s.services[metadata.Name] = service
	s.order = append(s.order, metadata.Name)
	s.setupResourceRoutes(metadata.Name)

	s.logger.Printf("Recurso '%s' registrado (tabela %s)", metadata.Name, metadata.Table)
}

// GetService retorna o driver registrado para um conjunto de entidades
func (s *Server) GetService(name string) (*BaseEntityService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	service, exists := s.services[name]
	return service, exists
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext inicia o servidor com contexto para shutdown graceful
func (s *Server) StartWithContext(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("servidor já está rodando")
	}
	s.running = true
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.mu.Unlock()

	s.logger.Printf("🚀 Servidor OData iniciado em http://%s%s", addr, s.config.RoutePrefix)
	for _, name := range s.order {
		s.logger.Printf("   - %s", name)
	}

	go s.setupGracefulShutdown(ctx)

	return s.router.Listen(addr)
}

// setupGracefulShutdown aguarda cancelamento ou sinal e para o servidor
func (s *Server) setupGracefulShutdown(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Printf("Contexto cancelado, parando servidor...")
	case sig := <-sigChan:
		s.logger.Printf("Sinal recebido: %v, parando servidor...", sig)
	}

	if err := s.Shutdown(); err != nil {
		s.logger.Printf("Erro durante shutdown: %v", err)
	}
}

// Shutdown para o servidor respeitando o timeout configurado
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	return s.router.ShutdownWithTimeout(s.config.ShutdownTimeout)
}

// writeError emite o envelope de erro OData {error:{code,message}}
func (s *Server) writeError(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ODataErrorResponse{
		Error: ODataError{Code: code, Message: message},
	})
}

// writeServiceError converte um erro do núcleo no envelope apropriado:
// NotFound vira 404; todo o resto (parse, backend) vira 500 ServerError,
// comportamento preservado por compatibilidade
func (s *Server) writeServiceError(c fiber.Ctx, err error) error {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return s.writeError(c, fiber.StatusNotFound, "NotFound", notFound.Error())
	}
	return s.writeError(c, fiber.StatusInternalServerError, "ServerError", err.Error())
}

// extractRawQuery copia as opções OData reconhecidas da query string
func extractRawQuery(c fiber.Ctx) RawQuery {
	queries := c.Queries()
	raw := make(RawQuery, len(recognizedOptions))
	for _, option := range recognizedOptions {
		if value, exists := queries[option]; exists && value != "" {
			raw[option] = value
		}
	}
	return raw
}

// contextBase monta a raiz do serviço usada no @odata.context
func (s *Server) contextBase(c fiber.Ctx) string {
	return c.BaseURL() + s.config.RoutePrefix
}

// extractPathKey extrai a chave entre parênteses do path da requisição
func extractPathKey(path string) (string, error) {
	start := strings.Index(path, "(")
	end := strings.LastIndex(path, ")")
	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("invalid key format in path: %s", path)
	}
	return path[start+1 : end], nil
}
