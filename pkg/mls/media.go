package mls

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// mediaURLPattern extrai as URLs do blob XML de fotos do backend. O XML não é
// bem formado o suficiente para um parser estrito, então a extração é textual.
var mediaURLPattern = regexp.MustCompile(`(?s)<URL>(.*?)</URL>`)

// MediaItem representa uma mídia de uma listagem no formato RESO
type MediaItem struct {
	MediaKey          string `json:"MediaKey"`
	ResourceRecordKey string `json:"ResourceRecordKey"`
	MediaURL          string `json:"MediaURL"`
	Order             int    `json:"Order"`
}

// ParseMediaXML converte o blob PHOTOXML do backend na lista de mídias da
// listagem. Order é 1-based na ordem de aparição; blob vazio vira lista vazia.
func ParseMediaXML(blob string, resourceRecordKey string) []MediaItem {
	items := []MediaItem{}
	if blob == "" {
		return items
	}

	matches := mediaURLPattern.FindAllStringSubmatch(blob, -1)
	for i, match := range matches {
		mediaURL := match[1]
		items = append(items, MediaItem{
			MediaKey:          mediaKey(mediaURL),
			ResourceRecordKey: resourceRecordKey,
			MediaURL:          mediaURL,
			Order:             i + 1,
		})
	}
	return items
}

// mediaKey deriva uma chave estável da URL da mídia
func mediaKey(mediaURL string) string {
	sum := sha256.Sum256([]byte(mediaURL))
	return hex.EncodeToString(sum[:8])
}
