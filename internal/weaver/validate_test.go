package weaver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeepmouli/repoweaver/internal/cfg"
)

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(testExecutorConfig()))
}

func TestValidateConfigRejectsUnknownStrategy(t *testing.T) {
	config := testExecutorConfig()
	config.Targets[0].Rules[0].Strategy = "does-not-exist"

	err := ValidateConfig(config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")
}

func TestValidateConfigRejectsUnknownDefaultStrategy(t *testing.T) {
	config := testExecutorConfig()
	config.Targets[0].MergeStrategy = "three-way"

	require.Error(t, ValidateConfig(config))
}

func TestValidateConfigRejectsUnknownCategory(t *testing.T) {
	config := testExecutorConfig()
	config.Targets[0].Rules = []*cfg.Rule{
		{Category: "does-not-exist", Strategy: "skip"},
	}

	require.Error(t, ValidateConfig(config))
}

func TestValidateConfigRejectsUnknownPlugin(t *testing.T) {
	config := testExecutorConfig()
	config.Targets[0].Plugins = []string{"does-not-exist"}

	require.Error(t, ValidateConfig(config))
}
