package sweeper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waythor-lab/klock/internal/facade"
	"github.com/waythor-lab/klock/internal/store/memory"
	"github.com/waythor-lab/klock/internal/sweeper"
	"github.com/waythor-lab/klock/internal/types"
)

func TestSweeperEvictsExpiredLeasesOnSchedule(t *testing.T) {
	client := facade.New(memory.New())
	client.RegisterAgent("agent-a", 1)
	result := client.AcquireLease("agent-a", "s1", types.ResourceRef{ResourceType: types.File, Path: "/a.ts"}, types.Mutates, 0)
	require.True(t, result.Success)

	s, err := sweeper.New(client, "1s", nil, nil)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return len(client.ActiveLeases()) == 0
	}, 3*time.Second, 50*time.Millisecond)

	assert.Empty(t, client.ActiveLeases())
}

func TestNewRejectsEmptyInterval(t *testing.T) {
	client := facade.New(memory.New())
	_, err := sweeper.New(client, "", nil, nil)
	assert.Error(t, err)
}
