package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"portfolio_monitor/internal/models"
	"portfolio_monitor/internal/modules/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSeeder struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingSeeder) Seed(_ context.Context, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, accountID)
}

func (s *recordingSeeder) seeded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func TestManagerSeedsEveryAccountAndStops(t *testing.T) {
	cfg := &config.Config{
		OKX: config.OKX{
			WSURL:          "ws://127.0.0.1:1/ws",
			PingInterval:   time.Second,
			ReconnectDelay: 20 * time.Millisecond,
		},
		Accounts: []config.Account{
			{ID: "1", Name: "main", APIKey: "k1", SecretKey: "s1", Passphrase: "p1"},
			{ID: "2", Name: "demo", APIKey: "k2", SecretKey: "s2", Passphrase: "p2", Simulated: true},
		},
	}
	seeder := &recordingSeeder{}
	m := NewManager(cfg, &fakeSink{}, seeder)
	require.Equal(t, 2, m.Total())

	m.Start()
	require.Eventually(t, func() bool { return len(seeder.seeded()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"1", "2"}, seeder.seeded())
	assert.Zero(t, m.LiveCount())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))

	for id, s := range m.Sessions() {
		assert.Equal(t, models.ConnStopped, s.State, id)
	}
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(&config.Config{}, &fakeSink{}, nil)
	assert.NoError(t, m.Stop(context.Background()))
	assert.Zero(t, m.Total())
}
