package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

type courseApi struct {
	svc      *course.Service
	userSvc  *user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, roleMiddleware(user.RoleTeacher, user.RoleAdmin))

	// detail endpoints
	dg := cg.Group("/:id", courseObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)

	dg.POST("/enroll", api.enroll, roleMiddleware(user.RoleStudent))
	dg.DELETE("/enroll", api.unenroll, roleMiddleware(user.RoleStudent))
	dg.GET("/students", api.queryStudents)

	dg.GET("/materials", api.queryMaterials)
	dg.POST("/materials", api.addMaterial)
	dg.DELETE("/materials/:mid", api.deleteMaterial)

	dg.GET("/feedback", api.queryFeedback)
	dg.POST("/feedback", api.leaveFeedback, roleMiddleware(user.RoleStudent))
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	// only the course owner (or admin) may delete it
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if crs.Instructor.ID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}

	if err = api.svc.Delete(crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enrollments

func (api *courseApi) enroll(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.svc.Enroll(ctxUsr, crs.ID)
	if err != nil {
		if errors.Cause(err) == course.ErrAlreadyEnrolled {
			return echo.NewHTTPError(http.StatusConflict, course.ErrAlreadyEnrolled.Error())
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Unenroll(ctxUsr, crs.ID); err != nil {
		if errors.Cause(err) == course.ErrNotEnrolled {
			return errHttpNotFound
		}
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryStudents(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	students, err := api.svc.EnrolledStudents(crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrolled students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

// Materials

func (api *courseApi) queryMaterials(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	// materials are for the owner and enrolled students only
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if crs.Instructor.ID != ctxUsr.ID && !ctxUsr.IsAdmin() && !api.svc.IsEnrolled(ctxUsr, crs.ID) {
		return errHttpForbidden
	}

	materials, err := api.svc.Materials(crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if materials == nil {
		materials = []course.Material{}
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *courseApi) addMaterial(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	// only the course owner uploads material
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if crs.Instructor.ID != ctxUsr.ID {
		return errHttpForbidden
	}

	var data course.NewMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mat, err := api.svc.AddMaterial(crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *courseApi) deleteMaterial(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if crs.Instructor.ID != ctxUsr.ID && !ctxUsr.IsAdmin() {
		return errHttpForbidden
	}

	mid, err := strconv.Atoi(ctx.Param("mid"))
	if err != nil {
		return errHttpNotFound
	}
	mat, err := api.svc.GetMaterial(mid)
	if err != nil || mat.CourseID != crs.ID {
		return errHttpNotFound
	}

	if err = api.svc.DeleteMaterial(mat.ID); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Feedback

func (api *courseApi) queryFeedback(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	fbs, err := api.svc.Feedback(crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if fbs == nil {
		fbs = []course.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *courseApi) leaveFeedback(ctx echo.Context) error {
	crs, ok := ctx.Get(contextObjectKey).(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data course.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.LeaveFeedback(ctxUsr, crs.ID, data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotEnrolled {
			return errHttpForbidden
		}
		return errors.Wrap(err, "leaving feedback")
	}
	return ctx.JSON(http.StatusCreated, fb)
}

// courseObjectMiddleware loads the course referenced by the `:id` path param
// into the context.
func courseObjectMiddleware(svc *course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			crs, err := svc.GetByID(id)
			if err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set(contextObjectKey, crs)
			return next(ctx)
		}
	}
}
