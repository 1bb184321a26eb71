package gateway

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig representa as credenciais do túnel SSH até o host do banco
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string // vazio quando a autenticação é por chave
	KeyFile  string // caminho da chave privada, opcional
}

// Tunnel encaminha um listener local para o endereço remoto do banco através
// de uma sessão SSH
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	logger   *log.Logger

	mu     sync.Mutex
	closed bool
}

// NewTunnel conecta no servidor SSH e começa a encaminhar conexões locais
// para remoteHost:remotePort
func NewTunnel(config *SSHConfig, remoteHost string, remotePort int, logger *log.Logger) (*Tunnel, error) {
	methods, err := authMethods(config)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            config.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", config.Host, config.Port), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial failed: %w", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("local listener failed: %w", err)
	}

	tunnel := &Tunnel{
		client:   client,
		listener: listener,
		logger:   logger,
	}

	remoteAddr := fmt.Sprintf("%s:%d", remoteHost, remotePort)
	go tunnel.accept(remoteAddr)

	logger.Printf("🔐 Túnel SSH ativo: %s -> %s via %s", listener.Addr(), remoteAddr, config.Host)
	return tunnel, nil
}

// authMethods monta os métodos de autenticação a partir da configuração
func authMethods(config *SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if config.KeyFile != "" {
		keyData, err := os.ReadFile(config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if config.Password != "" {
		methods = append(methods, ssh.Password(config.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth method configured")
	}
	return methods, nil
}

// LocalPort retorna a porta local do listener do túnel
func (t *Tunnel) LocalPort() int {
	return t.listener.Addr().(*net.TCPAddr).Port
}

// accept aceita conexões locais e as encaminha pelo canal SSH
func (t *Tunnel) accept(remoteAddr string) {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.logger.Printf("❌ Accept do túnel falhou: %v", err)
			}
			return
		}
		go t.forward(local, remoteAddr)
	}
}

// forward copia bytes entre a conexão local e a remota até uma das pontas
// fechar
func (t *Tunnel) forward(local net.Conn, remoteAddr string) {
	defer local.Close()

	remote, err := t.client.Dial("tcp", remoteAddr)
	if err != nil {
		t.logger.Printf("❌ Dial remoto do túnel falhou: %v", err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go func() {
		io.Copy(remote, local)
		done <- struct{}{}
	}()
	go func() {
		io.Copy(local, remote)
		done <- struct{}{}
	}()
	<-done
}

// Close derruba o listener local e a sessão SSH
func (t *Tunnel) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.listener.Close()
	return t.client.Close()
}
