package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/relatorio"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

type relatorioApi struct {
	store      *nota.Store
	engine     *relatorio.Engine
	validate   *validator.Validate
	translator ut.Translator
}

func registerRelatorioAPI(g *echo.Group, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := relatorioApi{
		store:      deps.Store,
		engine:     deps.Engine,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// un-authed endpoints
	g.GET("/relatorios", api.catalog)

	// authed endpoints
	ag := g.Group("", auth)
	ag.GET("/relatorios/:slug", api.derive)
	ag.GET("/notas/filtros", api.filtros)
}

// RelatorioRequest is what `GET /v1/relatorios/:slug` is called with.
type RelatorioRequest struct {
	Slug  string `json:"slug" validate:"notblank,slug"`
	Async bool   `json:"async"` // answer right away, with isLoading/isFetching, instead of waiting for the records
	nota.Filter
}

func (r *RelatorioRequest) Bind(ctx echo.Context) error {
	r.Slug = ctx.Param("slug")
	r.Filter = nota.Filter{
		Turma:      ctx.QueryParam("turma"),
		Turno:      ctx.QueryParam("turno"),
		Disciplina: ctx.QueryParam("disciplina"),
	}
	r.Filter.Clean()
	if async := ctx.QueryParam("async"); async != "" {
		v, err := strconv.ParseBool(async)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "async must be a boolean")
		}
		r.Async = v
	}
	return nil
}

func (r RelatorioRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

// Handlers

func (api *relatorioApi) catalog(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, relatorio.Catalog())
}

func (api *relatorioApi) derive(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	var req RelatorioRequest
	if err = req.Bind(ctx); err != nil {
		return err
	}
	if err = req.Validate(api.validate); err != nil {
		return err
	}
	slug := relatorio.Slug(req.Slug)
	if !relatorio.IsDerived(slug) {
		return errNotDerived
	}

	snap, err := api.snapshot(ctx, sess, req.Async)
	if err != nil {
		return err
	}
	res, _ := api.engine.Derive(slug, snap, req.Filter)
	return ctx.JSON(http.StatusOK, res)
}

func (api *relatorioApi) filtros(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}

	snap, err := api.snapshot(ctx, sess, false)
	if err != nil {
		return err
	}
	if snap.IsError() && snap.Version == 0 {
		return &echo.HTTPError{Code: errSourceUnavailable.Code, Message: errSourceUnavailable.Message, Internal: snap.Err}
	}
	return ctx.JSON(http.StatusOK, nota.NewFiltros(snap.Items))
}

func (api *relatorioApi) snapshot(ctx echo.Context, sess session.Session, async bool) (nota.Snapshot, error) {
	var (
		snap nota.Snapshot
		err  error
	)
	if async {
		snap, err = api.store.Prefetch(sess)
	} else {
		snap, err = api.store.Load(ctx.Request().Context(), sess)
	}
	if err != nil {
		if serr := sessionError(err); serr != err {
			return nota.Snapshot{}, serr
		}
		return nota.Snapshot{}, errors.Wrap(err, "loading notas")
	}
	return snap, nil
}
