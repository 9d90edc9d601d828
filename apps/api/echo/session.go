package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

var errSessNotFoundInCtx = errors.New("class session object not found in echo.Context")

type sessionApi struct {
	svc      schedule.ServiceInterface
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc schedule.ServiceInterface,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := sessionApi{
		svc:      svc,
		usrSvc:   usrSvc,
		validate: validate,
	}

	sg := g.Group("/sessions", jwt)

	// collection endpoints
	sg.POST("", api.create, teacherMiddleware())
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", ctxSessionOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.POST("/cancel", api.cancel)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

// create schedules a new class session for the authenticated teacher.
func (api *sessionApi) create(ctx echo.Context) error {
	var data schedule.NewClassSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassSession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	teacher, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.Schedule(ctx.Request().Context(), teacher, data)
	if err != nil {
		return errors.Wrap(err, "scheduling class session")
	}

	ctx.Response().Header().Set(echo.HeaderLocation, "/api/sessions/"+sess.ID)
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.ClassSession{})
	}
	var err error
	if filter.From, err = bindTimeParam(ctx, "from"); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.ClassSession{})
	}
	if filter.To, err = bindTimeParam(ctx, "to"); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.ClassSession{})
	}
	filter.Clean()

	// non-admins only see their own sessions
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin {
		filter.TeacherID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying class sessions")
	}
	if sessions == nil {
		sessions = []schedule.ClassSession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, ok := ctx.Get("object").(schedule.ClassSession)
	if !ok {
		return errors.Wrap(errSessNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) update(ctx echo.Context) error {
	sess, ok := ctx.Get("object").(schedule.ClassSession)
	if !ok {
		return errors.Wrap(errSessNotFoundInCtx, "retrieving object from context")
	}

	var data schedule.UpdateClassSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassSession")
	}
	if err := data.Validate(sess, api.validate); err != nil {
		return err
	}

	sess, err := api.svc.Update(ctx.Request().Context(), sess, data)
	if err != nil {
		return errors.Wrap(err, "updating class session")
	}

	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) cancel(ctx echo.Context) error {
	sess, ok := ctx.Get("object").(schedule.ClassSession)
	if !ok {
		return errors.Wrap(errSessNotFoundInCtx, "retrieving object from context")
	}

	sess, err := api.svc.Cancel(ctx.Request().Context(), sess)
	if err != nil {
		return errors.Wrap(err, "canceling class session")
	}

	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	sess, ok := ctx.Get("object").(schedule.ClassSession)
	if !ok {
		return errors.Wrap(errSessNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "deleting class session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting class sessions")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ctxSessionOrAdminMiddleware loads the class session with the requested ID into
// echo.Context. Only admins and the session's own teacher can see it.
func ctxSessionOrAdminMiddleware(svc schedule.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			sess, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == schedule.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class session by ID")
			}

			if claims.IsAdmin || sess.TeacherID == claims.Subject {
				ctx.Set("object", sess)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
