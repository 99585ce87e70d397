package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestExtract(t *testing.T) {
	page := `<html><head><title>T</title><style>p{color:red}</style></head>
<body><script>alert(1)</script><h1>Returns</h1><p>Items can be returned within <b>30 days</b>.</p>
<p>See <a href="/faq">the FAQ</a>.</p></body></html>`

	text, err := New().Extract(context.Background(), &domain.Upload{FileName: "p.html", Data: []byte(page)})
	require.NoError(t, err)
	assert.Contains(t, text, "Returns")
	assert.Contains(t, text, "Items can be returned within 30 days.")
	assert.Contains(t, text, "See the FAQ.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_Nil(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestToText(t *testing.T) {
	assert.Equal(t, "hello world", ToText("<div>hello <i>world</i></div>"))
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Contains(t, New().SupportedMIMETypes(), "text/html")
}
