package client

import (
	"context"
	"httprpc/rpcerr"
	"time"

	"github.com/op/go-logging"
)

// retry runs attempt once plus up to retries more times. Only communication
// failures are retried; server failures mean the call reached the server, and
// repeating it could run the method twice.
func retry(ctx context.Context, log *logging.Logger, retries int, baseDelay time.Duration, name string, attempt func() error) error {
	err := attempt()
	for i := 0; i < retries; i++ {
		if err == nil || !rpcerr.IsCommunication(err) {
			return err
		}

		delay := baseDelay * time.Duration(1<<i) // Exponential backoff
		log.Infof("Retry attempt %d for %s in %v due to error: %v", i+1, name, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return rpcerr.Canceled(ctx.Err())
		}
		err = attempt()
	}
	return err
}
