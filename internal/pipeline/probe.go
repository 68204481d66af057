package pipeline

import (
	"context"
	"io"
	"time"

	"vps-deploy/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// newHTTPProber probes from the controlling machine. A single attempt is
// made and 5xx answers are handed back as a status, not an error.
func newHTTPProber(timeout time.Duration, logger *logging.Logger) Prober {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = timeout
	client.Logger = &probeLogger{logger: logger.Output().With().Str("component", "probe").Logger()}

	return func(ctx context.Context, url string) (int, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
}

// probeLogger adapts zerolog to retryablehttp.LeveledLogger
type probeLogger struct {
	logger zerolog.Logger
}

func (l *probeLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *probeLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l *probeLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *probeLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
