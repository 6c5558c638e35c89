package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryCanBeBuiltTwice(t *testing.T) {
	require.NotPanics(t, func() { _ = NewRegistry() })
	require.NotPanics(t, func() { _ = NewRegistry() })
}

func TestRegistryGathersCollectors(t *testing.T) {
	r := NewRegistry()
	HubMessages.WithLabelValues("balance").Inc()

	families, err := r.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["portfolio_monitor_hub_messages_total"])
	assert.True(t, names["portfolio_monitor_hub_observers"])
}
