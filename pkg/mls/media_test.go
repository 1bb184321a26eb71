package mls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaXML_Empty(t *testing.T) {
	items := ParseMediaXML("", "123")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestParseMediaXML_NoURLs(t *testing.T) {
	items := ParseMediaXML("<Photos></Photos>", "123")
	assert.Empty(t, items)
}

func TestParseMediaXML_DocumentOrder(t *testing.T) {
	blob := `<Photos>
		<Photo><URL>https://cdn.example.com/a.jpg</URL></Photo>
		<Photo><URL>https://cdn.example.com/b.jpg</URL></Photo>
		<Photo><URL>https://cdn.example.com/c.jpg</URL></Photo>
	</Photos>`

	items := ParseMediaXML(blob, "987654321")
	require.Len(t, items, 3)

	assert.Equal(t, "https://cdn.example.com/a.jpg", items[0].MediaURL)
	assert.Equal(t, "https://cdn.example.com/b.jpg", items[1].MediaURL)
	assert.Equal(t, "https://cdn.example.com/c.jpg", items[2].MediaURL)

	// Order é 1-based na ordem do documento
	assert.Equal(t, 1, items[0].Order)
	assert.Equal(t, 2, items[1].Order)
	assert.Equal(t, 3, items[2].Order)

	for _, item := range items {
		assert.Equal(t, "987654321", item.ResourceRecordKey)
		assert.Len(t, item.MediaKey, 16)
	}
}

func TestParseMediaXML_StableMediaKey(t *testing.T) {
	blob := "<URL>https://cdn.example.com/a.jpg</URL>"

	first := ParseMediaXML(blob, "1")
	second := ParseMediaXML(blob, "1")
	require.Len(t, first, 1)
	assert.Equal(t, first[0].MediaKey, second[0].MediaKey)
}

func TestParseMediaXML_MultilineURL(t *testing.T) {
	// (?s) permite conteúdo com quebras de linha dentro do elemento
	blob := "<URL>https://cdn.example.com/\nwrapped.jpg</URL>"
	items := ParseMediaXML(blob, "1")
	require.Len(t, items, 1)
	assert.Contains(t, items[0].MediaURL, "wrapped.jpg")
}
