package mid

import (
	"context"
	"net/http"

	"github.com/ardanlabs/poolchain/business/sys/validate"
	"github.com/ardanlabs/poolchain/business/web/errs"
	"github.com/ardanlabs/poolchain/foundation/web"
	"go.uber.org/zap"
)

// Errors handles errors coming out of the call chain. Trusted errors keep
// their status and message, field errors become a 400 and everything else
// is reported as a 500 without detail.
func Errors(log *zap.SugaredLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			log.Errorw("ERROR", "traceid", web.GetTraceID(ctx), "message", err)

			var er errs.Response
			var status int

			switch {
			case validate.IsFieldErrors(err):
				er = errs.Response{
					Error:  "data validation error",
					Fields: validate.GetFieldErrors(err),
				}
				status = http.StatusBadRequest

			case errs.IsTrusted(err):
				te := errs.GetTrusted(err)
				er = te.Response()
				status = te.Status

			default:
				er = errs.Internal()
				status = http.StatusInternalServerError
			}

			if err := web.Respond(ctx, w, er, status); err != nil {
				return err
			}

			// A shutdown error is passed back to the app so it can stop
			// the service.
			if web.IsShutdown(err) {
				return err
			}

			return nil
		}

		return h
	}

	return m
}
