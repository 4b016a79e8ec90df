package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core/catalog"
)

type instructorApi struct {
	svc *catalog.Service
}

func registerInstructorAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service) {
	api := instructorApi{svc: svc}

	ig := g.Group("/instructor/courses", jwt, instructorMiddleware)
	ig.GET("", api.queryCourses)
	ig.POST("", api.createCourse)

	// course owner endpoints
	og := ig.Group("/:slug", courseMiddleware(svc), courseOwnerMiddleware)
	og.PATCH("", api.updateCourse)
	og.POST("/lessons", api.addLesson)
	og.POST("/tests", api.createTest)
	og.GET("/tests/:testId/questions", api.queryQuestions)
	og.POST("/tests/:testId/questions", api.addQuestion)
	og.DELETE("/tests/:testId/questions/:questionId", api.deleteQuestion)
}

// Handlers

func (api *instructorApi) queryCourses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var filter catalog.CourseFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CourseFilter")
	}
	if !claims.IsAdmin() {
		filter.InstructorID = claims.Subject
	}

	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *instructorApi) createCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data catalog.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	data.InstructorID = claims.Subject

	course, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *instructorApi) updateCourse(ctx echo.Context) error {
	var data catalog.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	course, err := api.svc.UpdateCourse(ctx.Request().Context(), getContextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *instructorApi) addLesson(ctx echo.Context) error {
	var data catalog.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	lesson, err := api.svc.AddLesson(ctx.Request().Context(), getContextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *instructorApi) createTest(ctx echo.Context) error {
	var data catalog.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	test, err := api.svc.CreateTest(ctx.Request().Context(), getContextCourse(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, test)
}

// queryQuestions returns the questions with their answer key.
func (api *instructorApi) queryQuestions(ctx echo.Context) error {
	questions, err := api.svc.QueryQuestions(ctx.Request().Context(), getContextCourse(ctx).ID, ctx.Param("testId"))
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *instructorApi) addQuestion(ctx echo.Context) error {
	var data catalog.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	question, err := api.svc.AddQuestion(ctx.Request().Context(), getContextCourse(ctx).ID, ctx.Param("testId"), data)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, question)
}

func (api *instructorApi) deleteQuestion(ctx echo.Context) error {
	err := api.svc.DeleteQuestion(ctx.Request().Context(), getContextCourse(ctx).ID, ctx.Param("testId"), ctx.Param("questionId"))
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}
