package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWhatsAppEmpty(t *testing.T) {
	assert.Equal(t, "", ToWhatsApp(""))
}

func TestToWhatsAppBoldAndItalic(t *testing.T) {
	out := ToWhatsApp("Ini **penting** dan _dicatat_.")
	assert.Contains(t, out, "*penting*")
	assert.Contains(t, out, "_dicatat_")
	assert.NotContains(t, out, "<")
}

func TestToWhatsAppHeadingBecomesBoldLine(t *testing.T) {
	out := ToWhatsApp("# Ringkasan\n\nisi")
	assert.Contains(t, out, "*Ringkasan*")
	assert.Contains(t, out, "isi")
}

func TestToWhatsAppListBecomesBullets(t *testing.T) {
	out := ToWhatsApp("- satu\n- dua")
	assert.Contains(t, out, "• satu")
	assert.Contains(t, out, "• dua")
}

func TestToWhatsAppInlineCode(t *testing.T) {
	out := ToWhatsApp("jalankan `go version` dulu")
	assert.Contains(t, out, "```go version```")
}

func TestToWhatsAppLinkKeepsTarget(t *testing.T) {
	out := ToWhatsApp("[dokumentasi](https://example.com/docs)")
	assert.Contains(t, out, "dokumentasi (https://example.com/docs)")
}

func TestToWhatsAppUnescapesEntities(t *testing.T) {
	out := ToWhatsApp("a < b & c > d")
	assert.Contains(t, out, "a < b & c > d")
}

func TestToWhatsAppCollapsesBlankRuns(t *testing.T) {
	out := ToWhatsApp("satu\n\n\n\n\ndua")
	assert.NotContains(t, out, "\n\n\n")
}
