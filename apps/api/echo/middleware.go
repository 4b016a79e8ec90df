package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
)

const contextCourseKey = "course"

func instructorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if claims.IsInstructor() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// courseMiddleware loads the course named by the :slug param.
// Unpublished courses are only visible to their instructor and admins.
func courseMiddleware(svc *catalog.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			course, err := svc.GetCourseBySlug(ctx.Request().Context(), ctx.Param("slug"))
			if err != nil {
				return errors.Wrap(err, "getting course")
			}
			if !course.IsPublished {
				claims, _ := getContextClaims(ctx)
				if !(claims.IsAdmin() || course.IsInstructor(claims.Subject)) {
					return catalog.ErrCourseNotFound
				}
			}
			ctx.Set(contextCourseKey, course)
			return next(ctx)
		}
	}
}

func courseOwnerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if course := getContextCourse(ctx); claims.IsAdmin() || course.IsInstructor(claims.Subject) {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// accessMiddleware rejects users who neither bought nor teach the context course.
func accessMiddleware(svc *entitlement.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			ok, err := svc.HasAccess(ctx.Request().Context(), claims.Subject, getContextCourse(ctx).ID)
			if err != nil {
				return errors.Wrap(err, "checking course access")
			}
			if !ok {
				return errCourseNotPurchase
			}
			return next(ctx)
		}
	}
}

func getContextCourse(ctx echo.Context) catalog.Course {
	course, _ := ctx.Get(contextCourseKey).(catalog.Course)
	return course
}
