package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
	logsvc "github.com/trezcool/fightlab/services/logger"
	inmemdb "github.com/trezcool/fightlab/storage/database/inmem"
)

func newService(t *testing.T) *catalog.Service {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return catalog.NewService(inmemdb.NewCatalogRepository(inmemdb.Open()), validate, logsvc.NewNopLogger())
}

func intPtr(i int) *int { return &i }

func TestService_CreateCourse(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	catalog.NowFunc = func() time.Time { return now }
	defer func() { catalog.NowFunc = time.Now }()

	_, err := svc.CreateCourse(ctx, catalog.NewCourse{Slug: "boxing", Title: "Boxing", Currency: "EUR"})
	assert.Equal(t, core.ErrUnauthenticated, err)

	course, err := svc.CreateCourse(ctx, catalog.NewCourse{
		Slug: " Boxing-101 ", Title: " Boxing  ", Price: 10, Currency: "eur", InstructorID: "coach",
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, "boxing-101", course.Slug)
	assert.Equal(t, "Boxing", course.Title)
	assert.Equal(t, "EUR", course.Currency)
	assert.Equal(t, now, course.CreatedAt)
	assert.True(t, course.IsInstructor("coach"))
	assert.False(t, course.IsInstructor(""))

	_, err = svc.CreateCourse(ctx, catalog.NewCourse{Slug: "boxing-101", Title: "Again", Currency: "EUR", InstructorID: "coach"})
	if vErr, ok := err.(*core.ValidationError); assert.True(t, ok, "%v", err) {
		assert.Equal(t, "slug", vErr.Fields[0].Field)
	}

	invalid := []catalog.NewCourse{
		{Slug: "Boxing 101", Title: "x", Currency: "EUR", InstructorID: "coach"},
		{Slug: "boxing-102", Title: "  ", Currency: "EUR", InstructorID: "coach"},
		{Slug: "boxing-103", Title: "x", Currency: "EURO", InstructorID: "coach"},
		{Slug: "boxing-104", Title: "x", Currency: "EUR", Price: -1, InstructorID: "coach"},
	}
	for _, nc := range invalid {
		_, err = svc.CreateCourse(ctx, nc)
		assert.True(t, core.IsValidationError(err), "%+v", nc)
	}

	got, err := svc.GetCourseBySlug(ctx, "BOXING-101")
	assert.NoError(t, err)
	assert.Equal(t, course, got)

	_, err = svc.GetCourse(ctx, "nope")
	assert.Equal(t, catalog.ErrCourseNotFound, err)
}

func TestService_UpdateCourse(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	course, err := svc.CreateCourse(ctx, catalog.NewCourse{Slug: "judo", Title: "Judo", Price: 20, Currency: "EUR", InstructorID: "sensei"})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	title, price, published := "Judo throws", 25.5, true
	got, err := svc.UpdateCourse(ctx, course.ID, catalog.UpdateCourse{Title: &title, Price: &price, IsPublished: &published})
	assert.NoError(t, err)
	assert.Equal(t, "Judo throws", got.Title)
	assert.Equal(t, 25.5, got.Price)
	assert.True(t, got.IsPublished)
	assert.Equal(t, "judo", got.Slug)
	assert.Equal(t, "EUR", got.Currency)

	blank := " "
	_, err = svc.UpdateCourse(ctx, course.ID, catalog.UpdateCourse{Title: &blank})
	assert.True(t, core.IsValidationError(err))

	_, err = svc.UpdateCourse(ctx, "nope", catalog.UpdateCourse{Title: &title})
	assert.Equal(t, catalog.ErrCourseNotFound, err)

	published = false
	_, _ = svc.UpdateCourse(ctx, course.ID, catalog.UpdateCourse{IsPublished: &published})
	courses, err := svc.QueryCourses(ctx, catalog.CourseFilter{PublishedOnly: true}, nil)
	assert.NoError(t, err)
	assert.Empty(t, courses)
}

func TestService_lessonsAndTests(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	course, _ := svc.CreateCourse(ctx, catalog.NewCourse{Slug: "judo", Title: "Judo", Currency: "EUR", InstructorID: "sensei"})

	l1, err := svc.AddLesson(ctx, course.ID, catalog.NewLesson{Title: "Breakfalls", VideoURL: "https://v.test/1", DurationSeconds: 60})
	assert.NoError(t, err)
	assert.Equal(t, 0, l1.Order)
	l2, err := svc.AddLesson(ctx, course.ID, catalog.NewLesson{Title: "Grips", VideoURL: "https://v.test/2", Order: intPtr(5)})
	assert.NoError(t, err)
	l3, err := svc.AddLesson(ctx, course.ID, catalog.NewLesson{Title: "Throws", VideoURL: "https://v.test/3"})
	assert.NoError(t, err)
	assert.Equal(t, 6, l3.Order)

	_, err = svc.AddLesson(ctx, course.ID, catalog.NewLesson{Title: "No video"})
	assert.True(t, core.IsValidationError(err))
	_, err = svc.AddLesson(ctx, "nope", catalog.NewLesson{Title: "x", VideoURL: "https://v.test/x"})
	assert.Equal(t, catalog.ErrCourseNotFound, err)

	lessons, err := svc.QueryLessons(ctx, course.ID)
	assert.NoError(t, err)
	assert.Equal(t, []catalog.Lesson{l1, l2, l3}, lessons)

	_, err = svc.GetLesson(ctx, "other", l1.ID)
	assert.Equal(t, catalog.ErrLessonNotFound, err)

	test, err := svc.CreateTest(ctx, course.ID, catalog.NewTest{Title: "Quiz"})
	assert.NoError(t, err)
	assert.Equal(t, catalog.DefaultPassingGrade, test.PassingGrade)

	strict, err := svc.CreateTest(ctx, course.ID, catalog.NewTest{Title: "Exam", PassingGrade: intPtr(90)})
	assert.NoError(t, err)
	assert.Equal(t, 90, strict.PassingGrade)
	assert.Equal(t, 1, strict.Order)

	_, err = svc.CreateTest(ctx, course.ID, catalog.NewTest{Title: "Broken", PassingGrade: intPtr(101)})
	assert.True(t, core.IsValidationError(err))

	tests, err := svc.QueryTests(ctx, course.ID)
	assert.NoError(t, err)
	assert.Equal(t, []catalog.Test{test, strict}, tests)
}

func TestService_AddQuestion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	course, _ := svc.CreateCourse(ctx, catalog.NewCourse{Slug: "judo", Title: "Judo", Currency: "EUR", InstructorID: "sensei"})
	test, _ := svc.CreateTest(ctx, course.ID, catalog.NewTest{Title: "Quiz"})

	invalid := []struct {
		name string
		nq   catalog.NewQuestion
	}{
		{name: "unknown type", nq: catalog.NewQuestion{Text: "?", Type: "essay"}},
		{name: "choice without options", nq: catalog.NewQuestion{Text: "?", Type: catalog.MultipleChoice}},
		{name: "no correct option", nq: catalog.NewQuestion{Text: "?", Type: catalog.MultipleChoice, Options: []catalog.NewOption{{Text: "a"}, {Text: "b"}}}},
		{name: "two correct options", nq: catalog.NewQuestion{Text: "?", Type: catalog.TrueFalse, Options: []catalog.NewOption{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}}},
		{name: "short answer without answers", nq: catalog.NewQuestion{Text: "?", Type: catalog.ShortAnswer}},
		{name: "short answer with options", nq: catalog.NewQuestion{Text: "?", Type: catalog.ShortAnswer, Answers: []catalog.NewAnswer{{Text: "a"}}, Options: []catalog.NewOption{{Text: "a", IsCorrect: true}}}},
		{name: "blank text", nq: catalog.NewQuestion{Text: " ", Type: catalog.ShortAnswer, Answers: []catalog.NewAnswer{{Text: "a"}}}},
		{name: "negative points", nq: catalog.NewQuestion{Text: "?", Points: -1, Type: catalog.ShortAnswer, Answers: []catalog.NewAnswer{{Text: "a"}}}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddQuestion(ctx, course.ID, test.ID, tt.nq)
			assert.True(t, core.IsValidationError(err), "%v", err)
		})
	}

	q1, err := svc.AddQuestion(ctx, course.ID, test.ID, catalog.NewQuestion{
		Text: "Which is a throw?", Type: "MULTIPLE_CHOICE", Points: 3,
		Options: []catalog.NewOption{{Text: "Seoi nage", IsCorrect: true}, {Text: "Juji gatame"}},
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, catalog.MultipleChoice, q1.Type)
	assert.Equal(t, 0, q1.Order)
	assert.Equal(t, 0, q1.Options[0].Order)
	assert.Equal(t, 1, q1.Options[1].Order)
	correct, ok := q1.CorrectOption()
	assert.True(t, ok)
	assert.Equal(t, "Seoi nage", correct.Text)

	q2, err := svc.AddQuestion(ctx, course.ID, test.ID, catalog.NewQuestion{
		Text: "Name the mat", Type: catalog.ShortAnswer, Answers: []catalog.NewAnswer{{Text: "tatami"}},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, q2.Points)
	assert.Equal(t, 1, q2.Order)

	public := q1.Public()
	assert.Equal(t, q1.ID, public.ID)
	assert.Len(t, public.Options, 2)

	_, err = svc.QueryQuestions(ctx, "other-course", test.ID)
	assert.Equal(t, catalog.ErrTestNotFound, err)

	assert.NoError(t, svc.DeleteQuestion(ctx, course.ID, test.ID, q1.ID))
	assert.Equal(t, catalog.ErrQuestionNotFound, svc.DeleteQuestion(ctx, course.ID, test.ID, q1.ID))

	questions, err := svc.QueryQuestions(ctx, course.ID, test.ID)
	assert.NoError(t, err)
	if assert.Len(t, questions, 1) {
		assert.Equal(t, q2.ID, questions[0].ID)
	}
}
