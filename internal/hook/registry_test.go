package hook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/hookqueue/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllowListIsIndependentOfListeners(t *testing.T) {
	r := NewRegistry()

	r.Allow("send_email")
	assert.True(t, r.IsQueueable("send_email"))
	assert.False(t, r.HasListener("send_email"))

	r.Register("resize", func(ctx context.Context, prev any) (any, error) { return prev, nil })
	assert.True(t, r.HasListener("resize"))
	assert.False(t, r.IsQueueable("resize"))

	r.Disallow("send_email")
	assert.False(t, r.IsQueueable("send_email"))
}

func TestRegistry_Deregister(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(ctx context.Context, prev any) (any, error) { return 1, nil })
	r.Register("b", func(ctx context.Context, prev any) (any, error) { return 2, nil })

	assert.Equal(t, []string{"a", "b"}, r.Hooks())

	r.Deregister("a")
	assert.False(t, r.HasListener("a"))
	assert.Equal(t, []string{"b"}, r.Hooks())
}

func TestDispatch_ChainsOutputsInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("chain",
		func(ctx context.Context, prev any) (any, error) { return prev.(string) + "a", nil },
		func(ctx context.Context, prev any) (any, error) { return prev.(string) + "b", nil },
	)
	r.Register("chain", func(ctx context.Context, prev any) (any, error) { return prev.(string) + "c", nil })

	out, err := r.Dispatch(context.Background(), "chain", ">")
	require.NoError(t, err)
	assert.Equal(t, ">abc", out)
}

func TestDispatch_NoHandlersReturnsInput(t *testing.T) {
	r := NewRegistry()

	out, err := r.Dispatch(context.Background(), "nothing", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestDispatch_FirstErrorStopsChain(t *testing.T) {
	r := NewRegistry()
	var ranThird bool
	r.Register("fails",
		func(ctx context.Context, prev any) (any, error) { return "ok", nil },
		func(ctx context.Context, prev any) (any, error) { return nil, errors.New("smtp timeout") },
		func(ctx context.Context, prev any) (any, error) { ranThird = true; return nil, nil },
	)

	out, err := r.Dispatch(context.Background(), "fails", nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, models.ErrJobFailed)
	assert.Contains(t, err.Error(), "smtp timeout")
	assert.False(t, ranThird)
}

func TestDispatch_JobErrorPassesThrough(t *testing.T) {
	r := NewRegistry()
	want := models.NewJobError("quota_exceeded", "over quota")
	r.Register("quota", func(ctx context.Context, prev any) (any, error) { return nil, want })

	_, err := r.Dispatch(context.Background(), "quota", nil)
	var je *models.JobError
	require.ErrorAs(t, err, &je)
	assert.NotSame(t, want, je)
	assert.Equal(t, "quota_exceeded", je.Code)
	assert.Equal(t, "over quota", je.Message)
}

func TestDispatch_WrappedJobErrorKeepsHandlerText(t *testing.T) {
	r := NewRegistry()
	r.Register("smtp", func(ctx context.Context, prev any) (any, error) {
		return nil, fmt.Errorf("smtp: %w", models.ErrJobFailed)
	})

	_, err := r.Dispatch(context.Background(), "smtp", nil)
	var je *models.JobError
	require.ErrorAs(t, err, &je)
	assert.Equal(t, models.CodeJobFailed, je.Code)
	assert.Contains(t, je.Message, "smtp")
}

func TestDispatch_PanicBecomesExecutionFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("boom", func(ctx context.Context, prev any) (any, error) { panic("boom") })

	out, err := r.Dispatch(context.Background(), "boom", nil)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, models.ErrJobExecutionFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("h", func(ctx context.Context, prev any) (any, error) { return prev, nil })
			r.Allow("h")
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Dispatch(context.Background(), "h", 1)
			_ = r.IsQueueable("h")
			_ = r.Hooks()
		}()
	}
	wg.Wait()
	assert.True(t, r.HasListener("h"))
}

func TestBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	assert.Equal(t, []string{"clock", "ping"}, r.Hooks())

	out, err := r.Dispatch(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	out, err = r.Dispatch(context.Background(), "clock", nil)
	require.NoError(t, err)
	ts, err := time.Parse(time.RFC3339, out.(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry([]string{"ping", "send_email"})

	assert.True(t, r.IsQueueable("ping"))
	assert.True(t, r.HasListener("ping"))
	assert.True(t, r.IsQueueable("send_email"))
	assert.False(t, r.HasListener("send_email"))
	assert.False(t, r.IsQueueable("clock"))
}
