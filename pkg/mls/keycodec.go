package mls

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
)

// KeyCodec converte chaves do backend em chaves opacas estáveis expostas na
// API. A codificação é determinística: SHA-256 da chave original, primeiros 8
// bytes big-endian com o bit de sinal zerado, renderizados em decimal. A
// decodificação usa uma tabela lateral populada a cada Encode.
type KeyCodec struct {
	mu      sync.RWMutex
	decoded map[string]string // chave codificada -> chave do backend
}

// NewKeyCodec cria um codec vazio
func NewKeyCodec() *KeyCodec {
	return &KeyCodec{
		decoded: make(map[string]string),
	}
}

// Encode gera a forma opaca de uma chave do backend e registra o par na
// tabela de decodificação
func (k *KeyCodec) Encode(backendKey string) string {
	sum := sha256.Sum256([]byte(backendKey))
	value := binary.BigEndian.Uint64(sum[:8])
	value &^= 1 << 63
	encoded := fmt.Sprintf("%d", value)

	k.mu.Lock()
	k.decoded[encoded] = backendKey
	k.mu.Unlock()

	return encoded
}

// Decode resolve uma chave codificada de volta para a chave do backend.
// Retorna false quando a chave nunca foi vista por este processo.
func (k *KeyCodec) Decode(encoded string) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	backendKey, ok := k.decoded[encoded]
	return backendKey, ok
}

// IsEncodedForm verifica se a chave tem a forma de uma chave codificada
// (somente dígitos decimais)
func IsEncodedForm(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
