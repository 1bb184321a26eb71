package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kardianos/service"

	"github.com/fitlcarlos/go-reso/pkg/auth"
	"github.com/fitlcarlos/go-reso/pkg/gateway"
	"github.com/fitlcarlos/go-reso/pkg/mls"
	"github.com/fitlcarlos/go-reso/pkg/odata"
)

// application reúne os colaboradores do serviço e implementa
// service.Interface para rodar como serviço do SO
type application struct {
	config *odata.EnvConfig
	logger *log.Logger
	server *odata.Server
	gw     *gateway.Gateway
	tokens *auth.Service
	store  auth.TokenStore
	cancel context.CancelFunc
}

// Start é chamado pelo gerenciador de serviços
func (a *application) Start(svc service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := a.run(ctx); err != nil {
			a.logger.Printf("❌ Servidor encerrou com erro: %v", err)
		}
	}()
	return nil
}

// Stop é chamado pelo gerenciador de serviços
func (a *application) Stop(svc service.Service) error {
	if a.cancel != nil {
		a.cancel()
	}
	time.Sleep(2 * time.Second)

	if a.tokens != nil {
		a.tokens.StopCleanup()
	}
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.logger.Printf("❌ Erro no shutdown do servidor: %v", err)
		}
	}
	if a.gw != nil {
		a.gw.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	return nil
}

// run conecta os colaboradores e sobe o servidor
func (a *application) run(ctx context.Context) error {
	cfg := a.config

	// Gateway SQL Server: a conexão pode demorar (túnel); as requisições
	// esperam pela conexão em vez de bloquear o boot
	gwConfig := &gateway.Config{
		Host:           cfg.MSSQLHost,
		Port:           cfg.MSSQLPort,
		User:           cfg.MSSQLUser,
		Password:       cfg.MSSQLPassword,
		Database:       cfg.MSSQLDatabase,
		RequestTimeout: cfg.DBRequestTimeout,
		MaxConns:       cfg.DBMaxConns,
	}
	if cfg.SSHHost != "" {
		gwConfig.SSH = &gateway.SSHConfig{
			Host:     cfg.SSHHost,
			Port:     cfg.SSHPort,
			User:     cfg.SSHUser,
			Password: cfg.SSHPassword,
			KeyFile:  cfg.SSHKeyFile,
		}
	}
	a.gw = gateway.New(gwConfig, a.logger)
	go func() {
		if err := a.gw.Connect(); err != nil {
			a.logger.Printf("❌ Conexão inicial com o banco falhou: %v", err)
		}
	}()

	// Token store
	var err error
	switch cfg.TokenStoreDriver {
	case "sqlite":
		a.store, err = auth.NewSQLiteStore(cfg.SQLitePath)
	default:
		a.store, err = auth.NewPostgresStore(ctx, cfg.PGConnectionString)
	}
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	if err := a.store.Init(ctx); err != nil {
		return fmt.Errorf("token store init: %w", err)
	}

	a.tokens = auth.NewService(auth.DefaultConfig(cfg.OAuthClientID, cfg.OAuthClientSecret), a.store, a.logger)
	a.tokens.StartCleanup()

	// Servidor OData com os três recursos RESO
	a.server = odata.NewServer(cfg.ToServerConfig(), a.gw, a.tokens)

	resources := mls.NewResources()
	for _, metadata := range resources.List() {
		a.server.RegisterResource(metadata)
	}
	a.server.SetMetadataXML(mls.BuildMetadataXML(resources))

	// Redirect compartilha o gateway
	redirect := mls.NewRedirectHandler(a.gw, cfg.BaseURL, a.logger)
	redirect.RegisterRoutes(a.server.Router())

	return a.server.StartWithContext(ctx)
}

func main() {
	cfg := odata.LoadEnvConfig()
	logger := log.New(os.Stdout, "[OData] ", log.LstdFlags)
	cfg.PrintLoadedConfig()

	app := &application{config: cfg, logger: logger}

	svcConfig := &service.Config{
		Name:        cfg.ServiceName,
		DisplayName: cfg.ServiceDisplayName,
		Description: cfg.ServiceDescription,
	}

	svc, err := service.New(app, svcConfig)
	if err != nil {
		logger.Fatalf("❌ Erro ao criar serviço: %v", err)
	}

	// Subcomandos de gestão do serviço: install, uninstall, start, stop
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "install", "uninstall", "start", "stop", "restart":
			if err := service.Control(svc, os.Args[1]); err != nil {
				logger.Fatalf("❌ Erro no controle do serviço: %v", err)
			}
			logger.Printf("✅ Comando '%s' executado", os.Args[1])
			return
		}
	}

	if err := svc.Run(); err != nil {
		logger.Fatalf("❌ Erro ao executar serviço: %v", err)
	}
}
