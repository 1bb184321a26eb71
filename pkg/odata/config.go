package odata

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfig representa as configurações carregadas do ambiente (.env)
type EnvConfig struct {
	// Servidor HTTP
	Host            string
	Port            int
	RoutePrefix     string
	BaseURL         string
	EnableCORS      bool
	EnableLogging   bool
	ShutdownTimeout time.Duration

	// OAuth2
	OAuthClientID     string
	OAuthClientSecret string

	// Token store
	TokenStoreDriver   string // postgres | sqlite
	PGConnectionString string
	SQLitePath         string

	// Gateway SQL Server
	MSSQLHost     string
	MSSQLPort     int
	MSSQLUser     string
	MSSQLPassword string
	MSSQLDatabase string

	// Túnel SSH do gateway (opcional)
	SSHHost     string
	SSHPort     int
	SSHUser     string
	SSHPassword string
	SSHKeyFile  string

	// Limites do gateway
	DBRequestTimeout time.Duration
	DBMaxConns       int

	// Serviço do SO
	ServiceName        string
	ServiceDisplayName string
	ServiceDescription string
}

// LoadEnvConfig carrega as configurações do .env (se existir) e do ambiente
func LoadEnvConfig() *EnvConfig {
	// Variáveis já presentes no ambiente não são sobrescritas
	_ = godotenv.Load()

	c := &EnvConfig{}
	c.parseVariables()
	return c
}

// parseVariables preenche as configurações a partir das variáveis de ambiente
func (c *EnvConfig) parseVariables() {
	c.Host = getEnvString("HOST", "0.0.0.0")
	c.Port = getEnvInt("PORT", 8080)
	c.RoutePrefix = getEnvString("ROUTE_PREFIX", "/odata")
	c.BaseURL = getEnvString("BASE_URL", "")
	c.EnableCORS = getEnvBool("ENABLE_CORS", true)
	c.EnableLogging = getEnvBool("ENABLE_LOGGING", true)
	c.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)

	c.OAuthClientID = getEnvString("OAUTH_CLIENT_ID", "")
	c.OAuthClientSecret = getEnvString("OAUTH_CLIENT_SECRET", "")

	c.TokenStoreDriver = getEnvString("TOKEN_STORE_DRIVER", "postgres")
	c.PGConnectionString = getEnvString("PG_CONNECTION_STRING", "")
	c.SQLitePath = getEnvString("SQLITE_PATH", "tokens.db")

	c.MSSQLHost = getEnvString("MSSQL_HOST", "localhost")
	c.MSSQLPort = getEnvInt("MSSQL_PORT", 1433)
	c.MSSQLUser = getEnvString("MSSQL_USER", "")
	c.MSSQLPassword = getEnvString("MSSQL_PASSWORD", "")
	c.MSSQLDatabase = getEnvString("MSSQL_DATABASE", "")

	c.SSHHost = getEnvString("SSH_HOST", "")
	c.SSHPort = getEnvInt("SSH_PORT", 22)
	c.SSHUser = getEnvString("SSH_USER", "")
	c.SSHPassword = getEnvString("SSH_PASSWORD", "")
	c.SSHKeyFile = getEnvString("SSH_KEY_FILE", "")

	c.DBRequestTimeout = getEnvDuration("DB_REQUEST_TIMEOUT", 30*time.Second)
	c.DBMaxConns = getEnvInt("DB_MAX_CONNS", 10)

	c.ServiceName = getEnvString("SERVICE_NAME", "go-reso")
	c.ServiceDisplayName = getEnvString("SERVICE_DISPLAY_NAME", "Go RESO OData Service")
	c.ServiceDescription = getEnvString("SERVICE_DESCRIPTION", "Serviço OData v4 RESO Web API")
}

// ToServerConfig converte a configuração de ambiente para ServerConfig
func (c *EnvConfig) ToServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            c.Host,
		Port:            c.Port,
		RoutePrefix:     c.RoutePrefix,
		EnableCORS:      c.EnableCORS,
		EnableLogging:   c.EnableLogging,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

// PrintLoadedConfig imprime as configurações carregadas para debug
func (c *EnvConfig) PrintLoadedConfig() {
	fmt.Println("📋 Configurações carregadas:")
	fmt.Printf("   Server: %s:%d%s\n", c.Host, c.Port, c.RoutePrefix)
	fmt.Printf("   Backend: %s:%d/%s (tunnel: %v)\n", c.MSSQLHost, c.MSSQLPort, c.MSSQLDatabase, c.SSHHost != "")
	fmt.Printf("   Token store: %s\n", c.TokenStoreDriver)
	fmt.Printf("   Base URL: %s\n", c.BaseURL)
}

// getEnvString retorna uma string do ambiente ou o valor padrão
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retorna um int do ambiente ou o valor padrão
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retorna um bool do ambiente ou o valor padrão
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration retorna uma duração do ambiente ou o valor padrão
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
