package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		if attempts < 3 {
			return errors.ErrConnectionLost
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		attempts++
		return errors.ErrConnectionTimeout
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, stderrors.Is(err, errors.ErrMaxRetriesExceeded))
	assert.True(t, stderrors.Is(err, errors.ErrConnectionTimeout))
}

func TestDo_StopsOnDataError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		return errors.Invalidf(errors.ErrMalformedType, "Catalog", "Load", "bad type")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, stderrors.Is(err, errors.ErrMalformedType))
}

func TestDo_StopsOnFatalError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		attempts++
		return errors.Fatalf(errors.ErrConfiguration, "Client", "Connect", "no url")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 2}

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		cancel()
		return errors.ErrConnectionLost
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	value, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.ErrStorageUnavailable
		}
		return "loaded", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "loaded", value)
}

func TestConfig_Normalized(t *testing.T) {
	cfg := Config{}.normalized()
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, cfg.InitialDelay, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
}
