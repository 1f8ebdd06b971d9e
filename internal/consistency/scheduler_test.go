package consistency

import (
	"testing"

	"github.com/asso-lecture/asso-backend/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Start(t *testing.T) {
	rp := NewRepairer(memory.New().Storage(), nil, nil)

	t.Run("valid schedule", func(t *testing.T) {
		s := NewScheduler(rp, "0 0 3 * * *", nil)
		require.NoError(t, s.Start())
		<-s.Stop().Done()
	})

	t.Run("five-field schedule is rejected", func(t *testing.T) {
		s := NewScheduler(rp, "0 3 * * *", nil)
		assert.Error(t, s.Start())
	})

	t.Run("garbage", func(t *testing.T) {
		s := NewScheduler(rp, "whenever", nil)
		assert.Error(t, s.Start())
	})
}
