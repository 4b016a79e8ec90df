package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/fightlab/core"
	"github.com/trezcool/fightlab/core/catalog"
)

type catalogRepository struct {
	db *catalogTables
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.catalog}
}

func (repo *catalogRepository) CreateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.courses {
		if c.Slug == course.Slug {
			return catalog.Course{}, catalog.ErrSlugExists
		}
	}
	course.ID = uuid.New().String()
	repo.db.courses[course.ID] = &course
	return course, nil
}

func (repo *catalogRepository) UpdateCourse(_ context.Context, course catalog.Course) (catalog.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[course.ID]
	if !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	course.Slug = orig.Slug
	course.InstructorID = orig.InstructorID
	course.CreatedAt = orig.CreatedAt
	*orig = course
	return course, nil
}

func (repo *catalogRepository) GetCourseByID(_ context.Context, id string) (catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) GetCourseBySlug(_ context.Context, slug string) (catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.courses {
		if c.Slug == slug {
			return *c, nil
		}
	}
	return catalog.Course{}, catalog.ErrCourseNotFound
}

func (repo *catalogRepository) QueryCourses(_ context.Context, filter catalog.CourseFilter, ordering []core.DBOrdering) ([]catalog.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]catalog.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.PublishedOnly && !c.IsPublished {
			continue
		}
		if filter.InstructorID != "" && c.InstructorID != filter.InstructorID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) && !strings.Contains(c.Slug, search) {
			continue
		}
		courses = append(courses, *c)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareCourses(courses[i], courses[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func compareCourses(a, b catalog.Course, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "slug":
		return strings.Compare(a.Slug, b.Slug)
	case "price":
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func (repo *catalogRepository) CreateLesson(_ context.Context, lesson catalog.Lesson) (catalog.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[lesson.CourseID]; !ok {
		return catalog.Lesson{}, catalog.ErrCourseNotFound
	}
	lesson.ID = uuid.New().String()
	repo.db.lessons[lesson.ID] = &lesson
	return lesson, nil
}

func (repo *catalogRepository) GetLesson(_ context.Context, courseID, id string) (catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.lessons[id]; ok && l.CourseID == courseID {
		return *l, nil
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

func (repo *catalogRepository) QueryLessons(_ context.Context, courseID string) ([]catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]catalog.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return lessons, nil
}

func (repo *catalogRepository) CreateTest(_ context.Context, test catalog.Test) (catalog.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[test.CourseID]; !ok {
		return catalog.Test{}, catalog.ErrCourseNotFound
	}
	test.ID = uuid.New().String()
	repo.db.tests[test.ID] = &test
	return test, nil
}

func (repo *catalogRepository) GetTest(_ context.Context, courseID, id string) (catalog.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tests[id]; ok && t.CourseID == courseID {
		return *t, nil
	}
	return catalog.Test{}, catalog.ErrTestNotFound
}

func (repo *catalogRepository) QueryTests(_ context.Context, courseID string) ([]catalog.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tests := make([]catalog.Test, 0)
	for _, t := range repo.db.tests {
		if t.CourseID == courseID {
			tests = append(tests, *t)
		}
	}
	sort.Slice(tests, func(i, j int) bool {
		a, b := tests[i], tests[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return tests, nil
}

func (repo *catalogRepository) CreateQuestion(_ context.Context, question catalog.Question) (catalog.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.tests[question.TestID]; !ok {
		return catalog.Question{}, catalog.ErrTestNotFound
	}
	if question.Order < 0 {
		question.Order = 0
		for _, q := range repo.db.questions {
			if q.TestID == question.TestID && q.Order >= question.Order {
				question.Order = q.Order + 1
			}
		}
	}

	question.ID = uuid.New().String()
	options := make([]catalog.Option, 0, len(question.Options))
	for _, opt := range question.Options {
		opt.ID = uuid.New().String()
		opt.QuestionID = question.ID
		options = append(options, opt)
	}
	answers := make([]catalog.AcceptedAnswer, 0, len(question.Answers))
	for _, ans := range question.Answers {
		ans.ID = uuid.New().String()
		ans.QuestionID = question.ID
		answers = append(answers, ans)
	}
	question.Options = options
	question.Answers = answers

	stored := question
	repo.db.questions[question.ID] = &stored
	return copyQuestion(question), nil
}

func (repo *catalogRepository) QueryQuestions(_ context.Context, testID string) ([]catalog.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]catalog.Question, 0)
	for _, q := range repo.db.questions {
		if q.TestID == testID {
			questions = append(questions, copyQuestion(*q))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return questions, nil
}

func (repo *catalogRepository) DeleteQuestion(_ context.Context, testID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	q, ok := repo.db.questions[id]
	if !ok || q.TestID != testID {
		return catalog.ErrQuestionNotFound
	}
	delete(repo.db.questions, id)
	return nil
}

// copyQuestion detaches the option and answer slices from the stored row.
func copyQuestion(q catalog.Question) catalog.Question {
	q.Options = append([]catalog.Option(nil), q.Options...)
	q.Answers = append([]catalog.AcceptedAnswer(nil), q.Answers...)
	return q
}
