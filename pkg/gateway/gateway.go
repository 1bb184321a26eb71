package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
)

// connectWait é o tempo máximo que uma query espera o gateway conectar
const connectWait = 30 * time.Second

// Config representa as configurações do gateway SQL Server
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	RequestTimeout time.Duration
	MaxConns       int
	SSH            *SSHConfig // nil desliga o túnel
}

// Gateway mantém a conexão com o SQL Server remoto, atravessando o túnel SSH
// quando configurado, e reconecta sozinho quando a conexão cai
type Gateway struct {
	config *Config
	logger *log.Logger

	mu        sync.RWMutex
	db        *sqlx.DB
	tunnel    *Tunnel
	connected bool
	closing   bool
}

// New cria um gateway desconectado; Connect estabelece a primeira conexão
func New(config *Config, logger *log.Logger) *Gateway {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 10
	}
	return &Gateway{
		config: config,
		logger: logger,
	}
}

// Connect abre o túnel (quando configurado) e a conexão com o banco
func (g *Gateway) Connect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connectLocked()
}

func (g *Gateway) connectLocked() error {
	host := g.config.Host
	port := g.config.Port

	if g.config.SSH != nil {
		tunnel, err := NewTunnel(g.config.SSH, g.config.Host, g.config.Port, g.logger)
		if err != nil {
			return fmt.Errorf("failed to open SSH tunnel: %w", err)
		}
		g.tunnel = tunnel
		host = "127.0.0.1"
		port = tunnel.LocalPort()
	}

	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		url.QueryEscape(g.config.User), url.QueryEscape(g.config.Password),
		host, port, url.QueryEscape(g.config.Database))

	db, err := sqlx.Open("sqlserver", dsn)
	if err != nil {
		g.closeTunnelLocked()
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(g.config.MaxConns)
	db.SetMaxIdleConns(g.config.MaxConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		g.closeTunnelLocked()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	g.db = db
	g.connected = true
	g.logger.Printf("✅ Conectado ao SQL Server %s/%s", g.config.Host, g.config.Database)
	return nil
}

// Query executa SQL parametrizado e devolve as linhas como mapas
// coluna→valor. Espera até 30s pela conexão; depois disso a requisição falha
// com "Database not connected".
func (g *Gateway) Query(ctx context.Context, sqlText string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if err := g.waitConnected(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	db := g.db
	g.mu.RUnlock()

	queryCtx, cancel := context.WithTimeout(ctx, g.config.RequestTimeout)
	defer cancel()

	args := make([]interface{}, 0, len(params))
	for name, value := range params {
		args = append(args, sql.Named(name, value))
	}

	rows, err := db.QueryxContext(queryCtx, sqlText, args...)
	if err != nil {
		if isTransientError(err) {
			g.scheduleReconnect()
		}
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		for column, value := range row {
			if raw, ok := value.([]byte); ok {
				row[column] = string(raw)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return results, nil
}

// waitConnected bloqueia até a conexão estar disponível, respeitando o
// contexto da requisição e o teto de 30s
func (g *Gateway) waitConnected(ctx context.Context) error {
	deadline := time.Now().Add(connectWait)
	for {
		g.mu.RLock()
		connected := g.connected
		g.mu.RUnlock()
		if connected {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("Database not connected")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// scheduleReconnect derruba a conexão atual e dispara a reconexão com
// back-off em background
func (g *Gateway) scheduleReconnect() {
	g.mu.Lock()
	if !g.connected || g.closing {
		g.mu.Unlock()
		return
	}
	g.connected = false
	if g.db != nil {
		g.db.Close()
		g.db = nil
	}
	g.closeTunnelLocked()
	g.mu.Unlock()

	g.logger.Printf("🔌 Conexão com o banco perdida, reconectando...")

	go func() {
		backoff := time.Second
		for {
			g.mu.Lock()
			if g.closing {
				g.mu.Unlock()
				return
			}
			err := g.connectLocked()
			g.mu.Unlock()
			if err == nil {
				return
			}
			g.logger.Printf("❌ Reconexão falhou: %v (tentando em %s)", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

// Close encerra a conexão e o túnel
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closing = true
	g.connected = false
	if g.db != nil {
		g.db.Close()
		g.db = nil
	}
	g.closeTunnelLocked()
	return nil
}

// Connected informa se o gateway está com conexão ativa
func (g *Gateway) Connected() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connected
}

func (g *Gateway) closeTunnelLocked() {
	if g.tunnel != nil {
		g.tunnel.Close()
		g.tunnel = nil
	}
}

// isTransientError identifica quedas de conexão que merecem reconexão
func isTransientError(err error) bool {
	message := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection reset",
		"broken pipe",
		"connection refused",
		"i/o timeout",
		"use of closed network connection",
		"eof",
	} {
		if strings.Contains(message, fragment) {
			return true
		}
	}
	return false
}
