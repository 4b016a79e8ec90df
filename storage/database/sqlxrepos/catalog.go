package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
)

var courseOrderColumns = map[string]string{
	"title":      "title",
	"slug":       "slug",
	"price":      "price",
	"created_at": "created_at",
}

type (
	courseRow struct {
		ID           string    `db:"id"`
		Slug         string    `db:"slug"`
		Title        string    `db:"title"`
		Description  string    `db:"description"`
		Price        float64   `db:"price"`
		Currency     string    `db:"currency"`
		IsPublished  bool      `db:"is_published"`
		InstructorID string    `db:"instructor_id"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
	}

	lessonRow struct {
		ID              string    `db:"id"`
		CourseID        string    `db:"course_id"`
		Title           string    `db:"title"`
		Description     string    `db:"description"`
		VideoURL        string    `db:"video_url"`
		DurationSeconds int       `db:"duration_seconds"`
		Order           int       `db:"order"`
		IsFree          bool      `db:"is_free"`
		CreatedAt       time.Time `db:"created_at"`
	}

	testRow struct {
		ID           string    `db:"id"`
		CourseID     string    `db:"course_id"`
		Title        string    `db:"title"`
		Description  string    `db:"description"`
		PassingGrade int       `db:"passing_grade"`
		Order        int       `db:"order"`
		CreatedAt    time.Time `db:"created_at"`
	}

	questionRow struct {
		ID        string    `db:"id"`
		TestID    string    `db:"test_id"`
		Text      string    `db:"question"`
		Type      string    `db:"question_type"`
		Points    int       `db:"points"`
		Order     int       `db:"order"`
		CreatedAt time.Time `db:"created_at"`
	}

	optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"option_text"`
		IsCorrect  bool   `db:"is_correct"`
		Order      int    `db:"order"`
	}

	answerRow struct {
		ID            string `db:"id"`
		QuestionID    string `db:"question_id"`
		Text          string `db:"answer_text"`
		CaseSensitive bool   `db:"is_case_sensitive"`
	}
)

func (r courseRow) unbox() catalog.Course {
	return catalog.Course{
		ID:           r.ID,
		Slug:         r.Slug,
		Title:        r.Title,
		Description:  r.Description,
		Price:        r.Price,
		Currency:     strings.TrimSpace(r.Currency),
		IsPublished:  r.IsPublished,
		InstructorID: r.InstructorID,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r lessonRow) unbox() catalog.Lesson {
	return catalog.Lesson{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		Description:     r.Description,
		VideoURL:        r.VideoURL,
		DurationSeconds: r.DurationSeconds,
		Order:           r.Order,
		IsFree:          r.IsFree,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func (r testRow) unbox() catalog.Test {
	return catalog.Test{
		ID:           r.ID,
		CourseID:     r.CourseID,
		Title:        r.Title,
		Description:  r.Description,
		PassingGrade: r.PassingGrade,
		Order:        r.Order,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func (r questionRow) unbox() catalog.Question {
	return catalog.Question{
		ID:        r.ID,
		TestID:    r.TestID,
		Text:      r.Text,
		Type:      catalog.QuestionType(r.Type),
		Points:    r.Points,
		Order:     r.Order,
		Options:   []catalog.Option{},
		Answers:   []catalog.AcceptedAnswer{},
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db core.DB) *catalogRepository {
	return &catalogRepository{db: db}
}

func (repo catalogRepository) CreateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	course.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO courses (id, slug, title, description, price, currency, is_published, instructor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		course.ID, course.Slug, course.Title, course.Description, course.Price, course.Currency,
		course.IsPublished, course.InstructorID, course.CreatedAt, course.UpdatedAt,
	)
	if isUniqueViolation(err, "courses_slug_key") {
		return catalog.Course{}, catalog.ErrSlugExists
	}
	if err != nil {
		return catalog.Course{}, errors.Wrap(err, "inserting course")
	}
	return course, nil
}

func (repo catalogRepository) UpdateCourse(ctx context.Context, course catalog.Course) (catalog.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE courses
		SET title = $2, description = $3, price = $4, currency = $5, is_published = $6, updated_at = $7
		WHERE id = $1
		RETURNING *`,
		course.ID, course.Title, course.Description, course.Price, course.Currency, course.IsPublished, course.UpdatedAt,
	)
	if err != nil {
		return catalog.Course{}, trapNoRowsErr(err, catalog.ErrCourseNotFound, "updating course")
	}
	return row.unbox(), nil
}

func (repo catalogRepository) GetCourseByID(ctx context.Context, id string) (catalog.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		return catalog.Course{}, trapNoRowsErr(err, catalog.ErrCourseNotFound, "getting course")
	}
	return row.unbox(), nil
}

func (repo catalogRepository) GetCourseBySlug(ctx context.Context, slug string) (catalog.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE slug = $1`, slug); err != nil {
		return catalog.Course{}, trapNoRowsErr(err, catalog.ErrCourseNotFound, "getting course by slug")
	}
	return row.unbox(), nil
}

func (repo catalogRepository) QueryCourses(ctx context.Context, filter catalog.CourseFilter, ordering []core.DBOrdering) ([]catalog.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.PublishedOnly {
		where = append(where, "is_published")
	}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		where = append(where, fmt.Sprintf("instructor_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR slug ILIKE $%d)", len(args), len(args)))
	}

	q := "SELECT * FROM courses"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderBy(ordering, courseOrderColumns, "created_at DESC") + ", id"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]catalog.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unbox())
	}
	return courses, nil
}

func (repo catalogRepository) CreateLesson(ctx context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	lesson.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course_lessons (id, course_id, title, description, video_url, duration_seconds, "order", is_free, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		lesson.ID, lesson.CourseID, lesson.Title, lesson.Description, lesson.VideoURL,
		lesson.DurationSeconds, lesson.Order, lesson.IsFree, lesson.CreatedAt,
	)
	if err != nil {
		return catalog.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lesson, nil
}

func (repo catalogRepository) GetLesson(ctx context.Context, courseID, id string) (catalog.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	var row lessonRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course_lessons WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return catalog.Lesson{}, trapNoRowsErr(err, catalog.ErrLessonNotFound, "getting lesson")
	}
	return row.unbox(), nil
}

func (repo catalogRepository) QueryLessons(ctx context.Context, courseID string) ([]catalog.Lesson, error) {
	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM course_lessons WHERE course_id = $1 ORDER BY "order", created_at, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	lessons := make([]catalog.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.unbox())
	}
	return lessons, nil
}

func (repo catalogRepository) CreateTest(ctx context.Context, test catalog.Test) (catalog.Test, error) {
	test.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course_tests (id, course_id, title, description, passing_grade, "order", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		test.ID, test.CourseID, test.Title, test.Description, test.PassingGrade, test.Order, test.CreatedAt,
	)
	if err != nil {
		return catalog.Test{}, errors.Wrap(err, "inserting test")
	}
	return test, nil
}

func (repo catalogRepository) GetTest(ctx context.Context, courseID, id string) (catalog.Test, error) {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.Test{}, catalog.ErrTestNotFound
	}
	var row testRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course_tests WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return catalog.Test{}, trapNoRowsErr(err, catalog.ErrTestNotFound, "getting test")
	}
	return row.unbox(), nil
}

func (repo catalogRepository) QueryTests(ctx context.Context, courseID string) ([]catalog.Test, error) {
	var rows []testRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM course_tests WHERE course_id = $1 ORDER BY "order", created_at, id`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting tests")
	}
	tests := make([]catalog.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.unbox())
	}
	return tests, nil
}

func (repo catalogRepository) CreateQuestion(ctx context.Context, question catalog.Question) (catalog.Question, error) {
	err := inTx(ctx, repo.db, func(tx core.DBTransactor) error {
		if question.Order < 0 {
			// lock the test row so concurrent authors do not compute the same order
			if _, err := tx.ExecContext(ctx, `SELECT id FROM course_tests WHERE id = $1 FOR UPDATE`, question.TestID); err != nil {
				return errors.Wrap(err, "locking test")
			}
			if err := tx.QueryRowxContext(ctx,
				`SELECT COALESCE(MAX("order") + 1, 0) FROM test_questions WHERE test_id = $1`, question.TestID,
			).Scan(&question.Order); err != nil {
				return errors.Wrap(err, "computing question order")
			}
		}

		question.ID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO test_questions (id, test_id, question, question_type, points, "order", created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			question.ID, question.TestID, question.Text, string(question.Type), question.Points, question.Order, question.CreatedAt,
		); err != nil {
			return errors.Wrap(err, "inserting question")
		}

		for i := range question.Options {
			opt := &question.Options[i]
			opt.ID = uuid.New().String()
			opt.QuestionID = question.ID
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO test_question_options (id, question_id, option_text, is_correct, "order", created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				opt.ID, opt.QuestionID, opt.Text, opt.IsCorrect, opt.Order, question.CreatedAt,
			); err != nil {
				return errors.Wrap(err, "inserting question option")
			}
		}

		// answers have no order column; staggered timestamps keep them in insertion order
		for i := range question.Answers {
			ans := &question.Answers[i]
			ans.ID = uuid.New().String()
			ans.QuestionID = question.ID
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO test_question_answers (id, question_id, answer_text, is_case_sensitive, created_at)
				VALUES ($1, $2, $3, $4, $5)`,
				ans.ID, ans.QuestionID, ans.Text, ans.CaseSensitive, question.CreatedAt.Add(time.Duration(i)*time.Microsecond),
			); err != nil {
				return errors.Wrap(err, "inserting accepted answer")
			}
		}
		return nil
	})
	if err != nil {
		return catalog.Question{}, err
	}
	return question, nil
}

func (repo catalogRepository) QueryQuestions(ctx context.Context, testID string) ([]catalog.Question, error) {
	db := repo.db

	var qRows []questionRow
	err := db.SelectContext(ctx, &qRows, `
		SELECT id, test_id, question, question_type, points, "order", created_at
		FROM test_questions WHERE test_id = $1 ORDER BY "order", created_at, id`, testID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}
	if len(qRows) == 0 {
		return []catalog.Question{}, nil
	}

	ids := make([]string, 0, len(qRows))
	index := make(map[string]int, len(qRows))
	questions := make([]catalog.Question, 0, len(qRows))
	for i, r := range qRows {
		ids = append(ids, r.ID)
		index[r.ID] = i
		questions = append(questions, r.unbox())
	}

	q, args, err := sqlx.In(`
		SELECT id, question_id, option_text, is_correct, "order"
		FROM test_question_options WHERE question_id IN (?) ORDER BY "order", created_at, id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building options query")
	}
	var oRows []optionRow
	if err = db.SelectContext(ctx, &oRows, db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting question options")
	}
	for _, r := range oRows {
		i := index[r.QuestionID]
		questions[i].Options = append(questions[i].Options, catalog.Option(r))
	}

	q, args, err = sqlx.In(`
		SELECT id, question_id, answer_text, is_case_sensitive
		FROM test_question_answers WHERE question_id IN (?) ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building answers query")
	}
	var aRows []answerRow
	if err = db.SelectContext(ctx, &aRows, db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting accepted answers")
	}
	for _, r := range aRows {
		i := index[r.QuestionID]
		questions[i].Answers = append(questions[i].Answers, catalog.AcceptedAnswer(r))
	}
	return questions, nil
}

func (repo catalogRepository) DeleteQuestion(ctx context.Context, testID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return catalog.ErrQuestionNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM test_questions WHERE id = $1 AND test_id = $2`, id, testID)
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting question")
	}
	if n == 0 {
		return catalog.ErrQuestionNotFound
	}
	return nil
}
