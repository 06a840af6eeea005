package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/agentstation/eventdeck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestTransientFetchError(t *testing.T) {
	t.Run("with status code", func(t *testing.T) {
		err := pkgerrors.NewTransientFetchError("events", http.StatusBadGateway, nil)
		assert.Contains(t, err.Error(), "events")
		assert.Contains(t, err.Error(), "502")
		assert.Contains(t, err.Error(), "Bad Gateway")
		assert.True(t, pkgerrors.IsTransientFetch(err))
	})

	t.Run("with wrapped error", func(t *testing.T) {
		base := errors.New("connection refused")
		err := pkgerrors.NewTransientFetchError("categories", 0, base)
		assert.Equal(t, "fetch categories failed: connection refused", err.Error())
		assert.Equal(t, base, err.Unwrap())
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("loading page: %w", pkgerrors.NewTransientFetchError("events", 500, nil))
		assert.True(t, pkgerrors.IsTransientFetch(err))
		assert.False(t, pkgerrors.IsStorageUnavailable(err))
	})
}

func TestStorageUnavailableError(t *testing.T) {
	t.Run("with key", func(t *testing.T) {
		err := pkgerrors.NewStorageUnavailableError("sqlite", "saved_events", errors.New("disk full"))
		assert.Equal(t, "storage sqlite unavailable for key saved_events: disk full", err.Error())
		assert.True(t, pkgerrors.IsStorageUnavailable(err))
	})

	t.Run("without key", func(t *testing.T) {
		err := pkgerrors.NewStorageUnavailableError("redis", "", errors.New("dial tcp: timeout"))
		assert.NotContains(t, err.Error(), "for key")
	})

	t.Run("wrap helper", func(t *testing.T) {
		assert.Nil(t, pkgerrors.WrapStorage("memory", "k", nil))

		wrapped := pkgerrors.WrapStorage("memory", "k", errors.New("quota exceeded"))
		var target *pkgerrors.StorageUnavailableError
		require.True(t, errors.As(wrapped, &target))
		assert.Equal(t, "memory", target.Backend)
		assert.Equal(t, "k", target.Key)
	})
}

func TestMalformedDataError(t *testing.T) {
	base := errors.New("unexpected end of JSON input")
	err := pkgerrors.NewMalformedDataError("saved_events", base)
	assert.Contains(t, err.Error(), "saved_events")
	assert.True(t, pkgerrors.IsMalformedData(err))
	assert.Equal(t, base, err.Unwrap())
}

func TestSuperseded(t *testing.T) {
	err := fmt.Errorf("results for more: %w", pkgerrors.ErrSuperseded)
	assert.True(t, pkgerrors.IsSuperseded(err))
	assert.False(t, pkgerrors.IsSuperseded(pkgerrors.ErrClosed))
}

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("event", "E1")
	assert.Equal(t, "event with ID E1 not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))

	wrapped := errors.Join(errors.New("failed"), err)
	assert.True(t, pkgerrors.IsNotFound(wrapped))
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("step", 0, "must be at least 1")
		assert.Equal(t, "validation failed for field step: must be at least 1", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "invalid window"}
		assert.Equal(t, "validation failed: invalid window", err.Error())
	})
}

func TestConfigError(t *testing.T) {
	err := pkgerrors.NewConfigError("storage", "unknown backend \"tape\"", nil)
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "tape")
	assert.Nil(t, err.Unwrap())
}

func TestWrapHelpers(t *testing.T) {
	t.Run("WrapIO", func(t *testing.T) {
		err := pkgerrors.WrapIO("open", "/tmp/eventdeck.db", errors.New("permission denied"))
		var ioErr *pkgerrors.IOError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "open", ioErr.Operation)
		assert.Nil(t, pkgerrors.WrapIO("read", "file", nil))
	})

	t.Run("WrapParse", func(t *testing.T) {
		err := pkgerrors.WrapParse("json", "response", errors.New("invalid character"))
		var parseErr *pkgerrors.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "json", parseErr.Format)
		assert.Contains(t, err.Error(), "parse error in json response")
	})

	t.Run("WrapResource", func(t *testing.T) {
		err := pkgerrors.WrapResource("create", "client", "", errors.New("no service"))
		assert.Equal(t, "failed to create client: no service", err.Error())
		assert.Nil(t, pkgerrors.WrapResource("create", "client", "", nil))
	})
}
