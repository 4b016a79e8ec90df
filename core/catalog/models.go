package catalog

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fightlab/core"
)

// DefaultPassingGrade applies when a test is authored without one.
const DefaultPassingGrade = 70

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

var QuestionTypes = []QuestionType{MultipleChoice, TrueFalse, ShortAnswer}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// HasOptions reports whether questions of this type are answered by picking an option.
func (t QuestionType) HasOptions() bool {
	return t == MultipleChoice || t == TrueFalse
}

type Course struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	IsPublished  bool      `json:"is_published"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (c Course) IsInstructor(userID string) bool {
	return userID != "" && c.InstructorID == userID
}

type Lesson struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"video_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Order           int       `json:"order"`
	IsFree          bool      `json:"is_free"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

type Test struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PassingGrade int       `json:"passing_grade"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"order"`
}

type AcceptedAnswer struct {
	ID            string `json:"id"`
	QuestionID    string `json:"question_id"`
	Text          string `json:"text"`
	CaseSensitive bool   `json:"is_case_sensitive"`
}

type Question struct {
	ID        string           `json:"id"`
	TestID    string           `json:"test_id"`
	Text      string           `json:"question"`
	Type      QuestionType     `json:"question_type"`
	Points    int              `json:"points"`
	Order     int              `json:"order"`
	Options   []Option         `json:"options"`
	Answers   []AcceptedAnswer `json:"answers"`
	CreatedAt time.Time        `json:"created_at"` // UTC
}

// CorrectOption returns the first option flagged correct, in stored order.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}

// PublicQuestion is a Question stripped of its answer key.
type PublicQuestion struct {
	ID      string         `json:"id"`
	Text    string         `json:"question"`
	Type    QuestionType   `json:"question_type"`
	Points  int            `json:"points"`
	Order   int            `json:"order"`
	Options []PublicOption `json:"options,omitempty"`
}

type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (q Question) Public() PublicQuestion {
	pq := PublicQuestion{ID: q.ID, Text: q.Text, Type: q.Type, Points: q.Points, Order: q.Order}
	for _, opt := range q.Options {
		pq.Options = append(pq.Options, PublicOption{ID: opt.ID, Text: opt.Text})
	}
	return pq
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Slug         string  `json:"slug" validate:"required,slug"`
	Title        string  `json:"title" validate:"required,notblank"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"required,currency"`
	IsPublished  bool    `json:"is_published"`
	InstructorID string  `json:"-"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Currency = strings.ToUpper(core.CleanString(nc.Currency))
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       *string  `json:"title" validate:"omitempty,notblank"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency    *string  `json:"currency" validate:"omitempty,currency"`
	IsPublished *bool    `json:"is_published"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	if uc.Currency != nil {
		cur := strings.ToUpper(core.CleanString(*uc.Currency))
		uc.Currency = &cur
	}
	return validate.Struct(uc)
}

type NewLesson struct {
	Title           string `json:"title" validate:"required,notblank"`
	Description     string `json:"description"`
	VideoURL        string `json:"video_url" validate:"required,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Order           *int   `json:"order" validate:"omitempty,gte=0"`
	IsFree          bool   `json:"is_free"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return validate.Struct(nl)
}

type NewTest struct {
	Title        string `json:"title" validate:"required,notblank"`
	Description  string `json:"description"`
	PassingGrade *int   `json:"passing_grade" validate:"omitempty,min=0,max=100"`
	Order        *int   `json:"order" validate:"omitempty,gte=0"`
}

func (nt *NewTest) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

type NewOption struct {
	Text      string `json:"text" validate:"required,notblank"`
	IsCorrect bool   `json:"is_correct"`
}

type NewAnswer struct {
	Text          string `json:"text" validate:"required,notblank"`
	CaseSensitive bool   `json:"is_case_sensitive"`
}

// NewQuestion contains information needed to add a Question to a Test.
// Points default to 1; Order defaults to one past the current highest order.
type NewQuestion struct {
	Text    string       `json:"question" validate:"required,notblank"`
	Type    QuestionType `json:"question_type" validate:"required,question_type"`
	Points  int          `json:"points" validate:"gte=0"`
	Order   *int         `json:"order" validate:"omitempty,gte=0"`
	Options []NewOption  `json:"options" validate:"dive"`
	Answers []NewAnswer  `json:"answers" validate:"dive"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	nq.Type = QuestionType(core.CleanString(string(nq.Type), true /* lower */))
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
	for i := range nq.Answers {
		nq.Answers[i].Text = core.CleanString(nq.Answers[i].Text)
	}
	return validate.Struct(nq)
}

type CourseFilter struct {
	Search        string `query:"search"`
	InstructorID  string `query:"instructor_id"`
	PublishedOnly bool   `query:"-"`
}

func (qf *CourseFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.InstructorID = core.CleanString(qf.InstructorID)
}
