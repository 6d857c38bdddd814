package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

var (
	errUnauthorized      = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired    = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errSessionClosed     = echo.NewHTTPError(http.StatusUnauthorized, "session closed")
	errNoScope           = echo.NewHTTPError(http.StatusForbidden, "no tenant or academic year selected")
	errHTTPForbidden     = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNotDerived        = echo.NewHTTPError(http.StatusNotFound, "not a derived report")
	errSourceUnavailable = echo.NewHTTPError(http.StatusBadGateway, "grade records unavailable")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if sess, sErr := getContextSession(ctx); sErr == nil {
				args = append(args, sess)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// sessionError maps session errors to their HTTP answer.
func sessionError(err error) error {
	switch err {
	case session.ErrExpired:
		return errSessionExpired
	case session.ErrClosed:
		return errSessionClosed
	case session.ErrNoScope:
		return errNoScope
	case session.ErrInvalidToken, session.ErrNotFound:
		return errUnauthorized
	}
	return err
}
