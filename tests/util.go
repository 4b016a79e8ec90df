package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/core/entitlement"
	"github.com/trezcool/fightlab/storage/database"
)

// DatabaseURLEnv names the variable holding the postgres url used by integration tests.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// OpenDB connects to and migrates the integration test database; the test is skipped when none is configured.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv(DatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}
	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	q := `TRUNCATE user_progress, user_test_attempts, purchases,
		test_question_answers, test_question_options, test_questions, course_tests, course_lessons, courses CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateCourse(
	t *testing.T,
	repo catalog.Repository,
	slug, instructorID string,
	price float64,
	published bool,
	createdAt ...time.Time,
) catalog.Course {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	course, err := repo.CreateCourse(context.Background(), catalog.Course{
		Slug:         slug,
		Title:        "Course " + slug,
		Description:  "About " + slug,
		Price:        price,
		Currency:     "EUR",
		IsPublished:  published,
		InstructorID: instructorID,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}

func CreateLesson(t *testing.T, repo catalog.Repository, courseID, title string, order, duration int, free bool) catalog.Lesson {
	t.Helper()
	lesson, err := repo.CreateLesson(context.Background(), catalog.Lesson{
		CourseID:        courseID,
		Title:           title,
		VideoURL:        "https://videos.example.com/" + title,
		DurationSeconds: duration,
		Order:           order,
		IsFree:          free,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lesson
}

func CreateTest(t *testing.T, repo catalog.Repository, courseID, title string, passingGrade int) catalog.Test {
	t.Helper()
	test, err := repo.CreateTest(context.Background(), catalog.Test{
		CourseID:     courseID,
		Title:        title,
		PassingGrade: passingGrade,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return test
}

// CreateChoiceQuestion adds a multiple choice question; options[correct] is the right one.
func CreateChoiceQuestion(t *testing.T, repo catalog.Repository, testID, text string, points, correct int, options ...string) catalog.Question {
	t.Helper()
	opts := make([]catalog.Option, 0, len(options))
	for i, o := range options {
		opts = append(opts, catalog.Option{Text: o, IsCorrect: i == correct, Order: i})
	}
	return createQuestion(t, repo, catalog.Question{
		TestID:  testID,
		Text:    text,
		Type:    catalog.MultipleChoice,
		Points:  points,
		Order:   -1,
		Options: opts,
	})
}

func CreateShortAnswerQuestion(t *testing.T, repo catalog.Repository, testID, text string, points int, caseSensitive bool, answers ...string) catalog.Question {
	t.Helper()
	accepted := make([]catalog.AcceptedAnswer, 0, len(answers))
	for _, a := range answers {
		accepted = append(accepted, catalog.AcceptedAnswer{Text: a, CaseSensitive: caseSensitive})
	}
	return createQuestion(t, repo, catalog.Question{
		TestID:  testID,
		Text:    text,
		Type:    catalog.ShortAnswer,
		Points:  points,
		Order:   -1,
		Answers: accepted,
	})
}

func createQuestion(t *testing.T, repo catalog.Repository, q catalog.Question) catalog.Question {
	t.Helper()
	q.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	question, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return question
}

func CreatePurchase(
	t *testing.T,
	repo entitlement.Repository,
	userID, courseID, orderID string,
	amount float64,
	status entitlement.Status,
) entitlement.Purchase {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	purchase, err := repo.CreatePurchase(context.Background(), entitlement.Purchase{
		UserID:          userID,
		CourseID:        courseID,
		ExternalOrderID: orderID,
		CustomerEmail:   userID + "@test.io",
		Amount:          amount,
		Currency:        "EUR",
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreatePurchase() failed: %v", err)
	}
	return purchase
}
