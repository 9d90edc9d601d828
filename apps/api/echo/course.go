package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

type courseApi struct {
	svc      course.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc course.ServiceInterface, validate *validator.Validate) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)

	// collection endpoints
	cg.GET("/mine", api.queryMine, teacherMiddleware())
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query, adminMiddleware())
	cg.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", ctxCourseMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/teachers", api.assignTeacher, adminMiddleware())
	dg.DELETE("/teachers/:teacherId", api.unassignTeacher, adminMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}

	return ctx.JSON(http.StatusCreated, crs)
}

// queryMine returns the courses assigned to the authenticated teacher.
func (api *courseApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	courses, err := api.svc.QueryByTeacher(ctx.Request().Context(), claims.Subject, []core.DBOrdering{{Field: "code", Ascending: true}})
	if err != nil {
		return errors.Wrap(err, "querying assigned courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, crs, api.validate, api.svc); err != nil {
		return err
	}

	crs, err := api.svc.Update(reqCtx, crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}

	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) assignTeacher(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	var data AssignTeacherRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacherRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.AssignTeacher(ctx.Request().Context(), crs, data.TeacherID)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}

	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) unassignTeacher(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	crs, err := api.svc.UnassignTeacher(ctx.Request().Context(), crs, ctx.Param("teacherId"))
	if err != nil {
		return errors.Wrap(err, "unassigning teacher")
	}

	return ctx.JSON(http.StatusOK, crs)
}

// ctxCourseMiddleware loads the course with the requested ID into echo.Context.
// Only admins and the course's own teachers can see it.
func ctxCourseMiddleware(svc course.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			crs, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}

			if claims.IsAdmin || crs.HasTeacher(claims.Subject) {
				ctx.Set("object", crs)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

type AssignTeacherRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (ar *AssignTeacherRequest) Validate(validate *validator.Validate) error {
	ar.TeacherID = core.CleanString(ar.TeacherID)
	return validate.Struct(ar)
}
