package transport

import (
	"io"
	"net/http"

	"github.com/agentstation/eventdeck/pkg/constants"
	"github.com/agentstation/eventdeck/pkg/errors"
	"github.com/agentstation/eventdeck/pkg/logging"
)

// DecodeResponse reads a response body, closing it. Any non-2xx status or
// read failure is a transient fetch error for operation.
func DecodeResponse(resp *http.Response, operation string) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBytes))
	if err != nil {
		return nil, errors.NewTransientFetchError(operation, resp.StatusCode, errors.WrapIO("read", "response body", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewTransientFetchError(operation, resp.StatusCode, nil)
	}

	return body, nil
}
