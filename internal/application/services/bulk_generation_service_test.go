package services_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/nextbestaction/internal/application/services"
	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	apperrors "github.com/zatekoja/nextbestaction/pkg/errors"
	"go.uber.org/goleak"
)

type stubGenerator struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	fn       func(hcpID string) ([]*entities.Recommendation, error)
}

func (g *stubGenerator) GenerateForHCP(ctx context.Context, hcpID string) ([]*entities.Recommendation, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return g.fn(hcpID)
}

func TestBulkGenerationService_GenerateBulk(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gen := &stubGenerator{fn: func(hcpID string) ([]*entities.Recommendation, error) {
		switch hcpID {
		case "b":
			return nil, apperrors.NewNotFoundError("hcp b not found")
		case "panic":
			panic("unexpected")
		}
		return []*entities.Recommendation{{ID: "rec-" + hcpID, HCPID: hcpID}}, nil
	}}
	svc := services.NewBulkGenerationService(gen, 2)

	result, err := svc.GenerateBulk(context.Background(), []string{"a", "b", "c", "panic", "d", "e"})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Successes)
	assert.Equal(t, 2, result.Failures)
	assert.Len(t, result.Recommendations, 4)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "b", result.Failed[0].HCPID)
	assert.Equal(t, apperrors.ErrorTypeNotFound, result.Failed[0].Kind)
	assert.Equal(t, "panic", result.Failed[1].HCPID)
	assert.Equal(t, apperrors.ErrorTypeInternal, result.Failed[1].Kind)
	assert.LessOrEqual(t, gen.peak.Load(), int32(2))
}

func TestBulkGenerationService_CancelledContextCountsFailures(t *testing.T) {
	gen := &stubGenerator{fn: func(hcpID string) ([]*entities.Recommendation, error) {
		return []*entities.Recommendation{{ID: "rec-" + hcpID}}, nil
	}}
	svc := services.NewBulkGenerationService(gen, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.GenerateBulk(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Successes)
	assert.Equal(t, 3, result.Failures)
}
