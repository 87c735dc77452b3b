package server

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// APIKeyMiddleware rejects report requests whose X-API-Key header does not
// match secret. With an empty secret every request passes. Rejections are
// logged with the operation they targeted.
func APIKeyMiddleware(secret string, logger *slog.Logger) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		if secret == "" {
			return handler
		}
		return func(ctx context.Context, req any) (any, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return nil, errors.InternalServer(ReasonInternal, "request carries no transport")
			}

			reason := checkAPIKey(tr.RequestHeader().Get(APIKeyHeader), secret)
			if reason == "" {
				return handler(ctx, req)
			}
			logger.Warn("report request rejected", "operation", tr.Operation(), "reason", reason)
			if reason == ReasonMissingAPIKey {
				return nil, errors.Unauthorized(reason, APIKeyHeader+" header is required")
			}
			return nil, errors.Unauthorized(reason, APIKeyHeader+" does not match")
		}
	}
}

// checkAPIKey returns the rejection reason for key, or "" when it matches.
func checkAPIKey(key, secret string) string {
	switch {
	case key == "":
		return ReasonMissingAPIKey
	case subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1:
		return ReasonInvalidAPIKey
	}
	return ""
}
