package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
)

var (
	// errors
	ErrCourseNotFound   = core.NewNotFoundError("course")
	ErrLessonNotFound   = core.NewNotFoundError("lesson")
	ErrTestNotFound     = core.NewNotFoundError("test")
	ErrQuestionNotFound = core.NewNotFoundError("question")
	ErrSlugExists       = errors.New("a course with this slug already exists")

	// NowFunc returns the current time; it is overridden in tests.
	NowFunc = time.Now
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, course Course) (Course, error)
		UpdateCourse(ctx context.Context, course Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		// QueryCourses applies AND operation on available CourseFilter fields.
		// CourseFilter.Search does a case-insensitive match on one of Course.Title or Course.Slug.
		QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering) ([]Course, error)

		CreateLesson(ctx context.Context, lesson Lesson) (Lesson, error)
		GetLesson(ctx context.Context, courseID, id string) (Lesson, error)
		// QueryLessons returns the lessons of a course by order, then creation time, then id.
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)

		CreateTest(ctx context.Context, test Test) (Test, error)
		GetTest(ctx context.Context, courseID, id string) (Test, error)
		QueryTests(ctx context.Context, courseID string) ([]Test, error)

		// CreateQuestion stores the question with its options and accepted answers atomically.
		// When question.Order is negative it is assigned one past the current highest order of the test.
		CreateQuestion(ctx context.Context, question Question) (Question, error)
		// QueryQuestions returns the questions of a test by order, then creation time,
		// with options in stored order.
		QueryQuestions(ctx context.Context, testID string) ([]Question, error)
		DeleteQuestion(ctx context.Context, testID, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, logger: logger}
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if nc.InstructorID == "" {
		return Course{}, core.ErrUnauthenticated
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	now := NowFunc().UTC()
	course, err := svc.repo.CreateCourse(ctx, Course{
		Slug:         nc.Slug,
		Title:        nc.Title,
		Description:  nc.Description,
		Price:        nc.Price,
		Currency:     nc.Currency,
		IsPublished:  nc.IsPublished,
		InstructorID: nc.InstructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Cause(err) == ErrSlugExists {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
	}
	return course, err
}

func (svc *Service) UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	if err := uc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	course, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != nil {
		course.Title = *uc.Title
	}
	if uc.Description != nil {
		course.Description = core.CleanString(*uc.Description)
	}
	if uc.Price != nil {
		course.Price = *uc.Price
	}
	if uc.Currency != nil {
		course.Currency = *uc.Currency
	}
	if uc.IsPublished != nil {
		course.IsPublished = *uc.IsPublished
	}
	course.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, course)
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) GetCourseBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) QueryCourses(ctx context.Context, filter CourseFilter, ordering []core.DBOrdering) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *Service) AddLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Lesson{}, err
	}

	lesson := Lesson{
		CourseID:        courseID,
		Title:           nl.Title,
		Description:     nl.Description,
		VideoURL:        nl.VideoURL,
		DurationSeconds: nl.DurationSeconds,
		IsFree:          nl.IsFree,
		CreatedAt:       NowFunc().UTC(),
	}
	if nl.Order != nil {
		lesson.Order = *nl.Order
	} else {
		lessons, err := svc.repo.QueryLessons(ctx, courseID)
		if err != nil {
			return Lesson{}, err
		}
		lesson.Order = nextOrder(len(lessons), func(i int) int { return lessons[i].Order })
	}
	return svc.repo.CreateLesson(ctx, lesson)
}

func (svc *Service) GetLesson(ctx context.Context, courseID, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, courseID, id)
}

func (svc *Service) QueryLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, courseID)
}

func (svc *Service) CreateTest(ctx context.Context, courseID string, nt NewTest) (Test, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Test{}, err
	}
	if _, err := svc.repo.GetCourseByID(ctx, courseID); err != nil {
		return Test{}, err
	}

	test := Test{
		CourseID:     courseID,
		Title:        nt.Title,
		Description:  nt.Description,
		PassingGrade: DefaultPassingGrade,
		CreatedAt:    NowFunc().UTC(),
	}
	if nt.PassingGrade != nil {
		test.PassingGrade = *nt.PassingGrade
	}
	if nt.Order != nil {
		test.Order = *nt.Order
	} else {
		tests, err := svc.repo.QueryTests(ctx, courseID)
		if err != nil {
			return Test{}, err
		}
		test.Order = nextOrder(len(tests), func(i int) int { return tests[i].Order })
	}
	return svc.repo.CreateTest(ctx, test)
}

func (svc *Service) GetTest(ctx context.Context, courseID, id string) (Test, error) {
	return svc.repo.GetTest(ctx, courseID, id)
}

func (svc *Service) QueryTests(ctx context.Context, courseID string) ([]Test, error) {
	return svc.repo.QueryTests(ctx, courseID)
}

// AddQuestion authors a question on a test; its options keep the order they were given in.
func (svc *Service) AddQuestion(ctx context.Context, courseID, testID string, nq NewQuestion) (Question, error) {
	if err := nq.Validate(svc.validate); err != nil {
		return Question{}, err
	}
	if _, err := svc.repo.GetTest(ctx, courseID, testID); err != nil {
		return Question{}, err
	}

	q := Question{
		TestID:    testID,
		Text:      nq.Text,
		Type:      nq.Type,
		Points:    nq.Points,
		Order:     -1,
		CreatedAt: NowFunc().UTC(),
	}
	if q.Points == 0 {
		q.Points = 1
	}
	if nq.Order != nil {
		q.Order = *nq.Order
	}
	for i, opt := range nq.Options {
		q.Options = append(q.Options, Option{Text: opt.Text, IsCorrect: opt.IsCorrect, Order: i})
	}
	for _, ans := range nq.Answers {
		q.Answers = append(q.Answers, AcceptedAnswer{Text: ans.Text, CaseSensitive: ans.CaseSensitive})
	}

	q, err := svc.repo.CreateQuestion(ctx, q)
	if err != nil {
		return Question{}, err
	}
	svc.logger.Debug(fmt.Sprintf("question %s added to test %s", q.ID, testID))
	return q, nil
}

func (svc *Service) QueryQuestions(ctx context.Context, courseID, testID string) ([]Question, error) {
	if _, err := svc.repo.GetTest(ctx, courseID, testID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuestions(ctx, testID)
}

func (svc *Service) DeleteQuestion(ctx context.Context, courseID, testID, id string) error {
	if _, err := svc.repo.GetTest(ctx, courseID, testID); err != nil {
		return err
	}
	return svc.repo.DeleteQuestion(ctx, testID, id)
}

// nextOrder returns one past the highest order among n items, or 0 when there are none.
func nextOrder(n int, orderAt func(i int) int) int {
	if n == 0 {
		return 0
	}
	max := orderAt(0)
	for i := 1; i < n; i++ {
		if o := orderAt(i); o > max {
			max = o
		}
	}
	return max + 1
}
