package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
)

type catalogApi struct {
	svc            *catalog.Service
	entitlementSvc *entitlement.Service
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *catalog.Service, entitlementSvc *entitlement.Service) {
	api := catalogApi{svc: svc, entitlementSvc: entitlementSvc}

	// un-authed endpoints
	g.GET("/courses", api.query)
	g.GET("/courses/:slug", api.retrieve, courseMiddleware(svc))

	// authed endpoints (route-level: a group on /:slug would shadow the public detail route)
	g.GET("/courses/:slug/access", api.access, jwt, courseMiddleware(svc))
	g.GET("/courses/:slug/lessons", api.queryLessons, jwt, courseMiddleware(svc))
}

type lessonSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationSeconds int    `json:"duration_seconds"`
	Order           int    `json:"order"`
	IsFree          bool   `json:"is_free"`
	Locked          bool   `json:"locked"`
}

// Handlers

func (api *catalogApi) query(ctx echo.Context) error {
	var filter catalog.CourseFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to CourseFilter")
	}
	filter.PublishedOnly = true

	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextCourse(ctx))
}

func (api *catalogApi) access(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	ok := claims.IsAdmin()
	if !ok {
		ok, err = api.entitlementSvc.HasAccess(ctx.Request().Context(), claims.Subject, getContextCourse(ctx).ID)
		if err != nil {
			return errors.Wrap(err, "checking course access")
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"has_access": ok})
}

// queryLessons lists the course outline; videos stay hidden, and lessons the user cannot watch are flagged locked.
func (api *catalogApi) queryLessons(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	course := getContextCourse(ctx)

	hasAccess := claims.IsAdmin()
	if !hasAccess {
		hasAccess, err = api.entitlementSvc.HasAccess(ctx.Request().Context(), claims.Subject, course.ID)
		if err != nil {
			return errors.Wrap(err, "checking course access")
		}
	}

	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), course.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	summaries := make([]lessonSummary, 0, len(lessons))
	for _, l := range lessons {
		summaries = append(summaries, lessonSummary{
			ID:              l.ID,
			Title:           l.Title,
			Description:     l.Description,
			DurationSeconds: l.DurationSeconds,
			Order:           l.Order,
			IsFree:          l.IsFree,
			Locked:          !(l.IsFree || hasAccess),
		})
	}
	return ctx.JSON(http.StatusOK, summaries)
}
