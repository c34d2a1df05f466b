// Package linkkey deriva a chave canônica usada para agrupar produtos
// que apontam para a mesma URL.
package linkkey

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Size é o tamanho, em caracteres, de uma chave derivada
const Size = sha256.Size * 2

// sentinels são valores de URL gravados por clientes antigos quando a URL não existia
var sentinels = map[string]bool{
	"n/a":       true,
	"undefined": true,
	"null":      true,
	"none":      true,
}

// Derive retorna o digest hexadecimal da URL sem espaços ao redor.
// Nenhuma outra normalização é feita: esquema, barra final e query fazem
// parte da identidade do link.
func Derive(url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// Valid informa se a URL pode ser usada para derivar uma chave
func Valid(url string) bool {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return false
	}
	return !sentinels[strings.ToLower(trimmed)]
}
