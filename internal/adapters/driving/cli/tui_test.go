package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

func TestTUICmd_Use(t *testing.T) {
	assert.Equal(t, "tui", tuiCmd.Use)
	assert.NotNil(t, tuiCmd.Flags().Lookup("title"))
}

func TestLaunchTUI_RequiresQueryService(t *testing.T) {
	SetServices(Services{})

	err := launchTUI(tuiCmd, "", driving.QueryOptions{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create TUI")
}
