package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core/assessment"
	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
	"github.com/trezcool/fightlab/core/progress"
)

type learningApi struct {
	catalogSvc     *catalog.Service
	entitlementSvc *entitlement.Service
	assessmentSvc  *assessment.Service
	progressSvc    *progress.Service
}

func registerLearningAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	catalogSvc *catalog.Service,
	entitlementSvc *entitlement.Service,
	assessmentSvc *assessment.Service,
	progressSvc *progress.Service,
) {
	api := learningApi{
		catalogSvc:     catalogSvc,
		entitlementSvc: entitlementSvc,
		assessmentSvc:  assessmentSvc,
		progressSvc:    progressSvc,
	}

	course := courseMiddleware(catalogSvc)

	// lessons: free ones are open to every signed-in user
	lesson := []echo.MiddlewareFunc{jwt, course, api.lessonMiddleware}
	g.GET("/courses/:slug/lessons/:lessonId", api.retrieveLesson, lesson...)
	g.PUT("/courses/:slug/lessons/:lessonId/progress", api.recordProgress, lesson...)
	g.POST("/courses/:slug/lessons/:lessonId/complete", api.completeLesson, lesson...)

	// everything else requires a purchase
	purchased := []echo.MiddlewareFunc{jwt, course, accessMiddleware(entitlementSvc)}
	g.GET("/courses/:slug/progress", api.courseProgress, purchased...)
	g.GET("/courses/:slug/tests", api.queryTests, purchased...)
	g.GET("/courses/:slug/tests/:testId", api.retrieveTest, purchased...)
	g.POST("/courses/:slug/tests/:testId/attempts", api.submitAttempt, purchased...)
	g.GET("/courses/:slug/tests/:testId/attempts", api.queryAttempts, purchased...)
}

const contextLessonKey = "lesson"

// lessonMiddleware loads the :lessonId lesson and checks the user may watch it.
func (api *learningApi) lessonMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		lesson, err := api.catalogSvc.GetLesson(ctx.Request().Context(), getContextCourse(ctx).ID, ctx.Param("lessonId"))
		if err != nil {
			return errors.Wrap(err, "getting lesson")
		}
		if !claims.IsAdmin() {
			ok, err := api.entitlementSvc.CanViewLesson(ctx.Request().Context(), claims.Subject, lesson)
			if err != nil {
				return errors.Wrap(err, "checking lesson access")
			}
			if !ok {
				return errCourseNotPurchase
			}
		}
		ctx.Set(contextLessonKey, lesson)
		return next(ctx)
	}
}

func getContextLesson(ctx echo.Context) catalog.Lesson {
	lesson, _ := ctx.Get(contextLessonKey).(catalog.Lesson)
	return lesson
}

// Handlers

func (api *learningApi) retrieveLesson(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextLesson(ctx))
}

func (api *learningApi) recordProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data progressPayload
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to progressPayload")
	}
	prg, err := api.progressSvc.RecordProgress(ctx.Request().Context(), claims.Subject, getContextLesson(ctx), data.Seconds)
	if err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *learningApi) completeLesson(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prg, err := api.progressSvc.CompleteLesson(ctx.Request().Context(), claims.Subject, getContextLesson(ctx))
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, prg)
}

func (api *learningApi) courseProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	lessons, err := api.catalogSvc.QueryLessons(ctx.Request().Context(), getContextCourse(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	prgs, err := api.progressSvc.QueryCourseProgress(ctx.Request().Context(), claims.Subject, lessons)
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}

	completed := 0
	for _, p := range prgs {
		if p.Completed {
			completed++
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"lessons":   prgs,
		"completed": completed,
		"total":     len(lessons),
	})
}

func (api *learningApi) queryTests(ctx echo.Context) error {
	tests, err := api.catalogSvc.QueryTests(ctx.Request().Context(), getContextCourse(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	return ctx.JSON(http.StatusOK, tests)
}

type testDetail struct {
	catalog.Test
	Questions []catalog.PublicQuestion `json:"questions"`
}

// retrieveTest returns the test with its questions, stripped of the answer key.
func (api *learningApi) retrieveTest(ctx echo.Context) error {
	courseID, testID := getContextCourse(ctx).ID, ctx.Param("testId")
	test, err := api.catalogSvc.GetTest(ctx.Request().Context(), courseID, testID)
	if err != nil {
		return errors.Wrap(err, "getting test")
	}
	questions, err := api.catalogSvc.QueryQuestions(ctx.Request().Context(), courseID, testID)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}

	detail := testDetail{Test: test, Questions: make([]catalog.PublicQuestion, 0, len(questions))}
	for _, q := range questions {
		detail.Questions = append(detail.Questions, q.Public())
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *learningApi) submitAttempt(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data submissionPayload
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to submissionPayload")
	}
	attempt, err := api.assessmentSvc.Submit(
		ctx.Request().Context(), claims.Subject, getContextCourse(ctx).ID, ctx.Param("testId"), assessment.Submission(data.Answers),
	)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, attempt)
}

func (api *learningApi) queryAttempts(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	attempts, err := api.assessmentSvc.QueryAttempts(ctx.Request().Context(), claims.Subject, getContextCourse(ctx).ID, ctx.Param("testId"))
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}
