package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

type sessionApi struct {
	sessions *session.Registry
	store    *nota.Store
	logger   core.Logger
}

func registerSessionAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := sessionApi{
		sessions: deps.Sessions,
		store:    deps.Store,
		logger:   deps.Logger,
	}

	sg := g.Group("/sessions", auth)
	sg.POST("", api.open)
	sg.GET("/current", api.current)
	sg.DELETE("/current", api.close)
}

// Handlers

// open starts loading the session's records so that the first report is served warm.
func (api *sessionApi) open(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if _, err = api.store.Prefetch(sess); err != nil {
		return errors.Wrap(sessionError(err), "prefetching notas")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) current(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) close(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = api.sessions.Close(sess.ID); err != nil && err != session.ErrNotFound {
		return errors.Wrap(err, "closing session")
	}
	return ctx.NoContent(http.StatusNoContent)
}
