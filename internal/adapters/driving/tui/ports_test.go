package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPorts_Validate(t *testing.T) {
	t.Run("query required", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingQueryService)
	})

	t.Run("nil ports", func(t *testing.T) {
		var p *Ports
		assert.ErrorIs(t, p.Validate(), ErrMissingQueryService)
	})

	t.Run("optional ports may be nil", func(t *testing.T) {
		assert.NoError(t, (&Ports{Query: &mockQueryService{}}).Validate())
	})
}
