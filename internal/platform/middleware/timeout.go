package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that sets a context deadline on each
// incoming request. Summarization calls block on the model backend, so the
// ceiling here is what ultimately bounds a stuck generation. If the deadline
// is exceeded before the handler completes, the request context is cancelled
// and a 504 Gateway Timeout is returned.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			// Run handler in a goroutine so we can select on the context.
			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					if !c.Response().Committed {
						return echo.NewHTTPError(http.StatusGatewayTimeout,
							"request processing exceeded the allowed time limit")
					}
					return nil
				}
				// Other cancellation reasons, e.g. client disconnect.
				return ctx.Err()
			}
		}
	}
}
