package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/fightlab/core/catalog"
	"github.com/trezcool/fightlab/tests"
)

func Test_instructorApi_createCourse(t *testing.T) {
	app := setup(t)
	coachToken := getToken(t, "coach", "instructor")

	body := []byte(`{"slug":"Boxing-Basics","title":"  Boxing basics ","price":49.99,"currency":"eur","is_published":true}`)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/instructor/courses", body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Instructor required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/instructor/courses", getToken(t, "learner", "user"), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("created", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/instructor/courses", coachToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var course catalog.Course
		decode(t, rec, &course)
		assert.NotEmpty(t, course.ID)
		assert.Equal(t, "boxing-basics", course.Slug)
		assert.Equal(t, "Boxing basics", course.Title)
		assert.Equal(t, "EUR", course.Currency)
		assert.Equal(t, 49.99, course.Price)
		assert.Equal(t, "coach", course.InstructorID)
	})

	t.Run("slug taken", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/instructor/courses", coachToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"slug": catalog.ErrSlugExists.Error()}),
		}, rec)
	})

	t.Run("invalid", func(t *testing.T) {
		bad := []byte(`{"slug":"not a slug","title":"   ","price":-1,"currency":"euro"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/instructor/courses", coachToken, bad)
		app.ServeHTTP(rec, req)
		assertFieldErrors(t, rec, "slug", "title", "price", "currency")
	})
}

func Test_instructorApi_ownership(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, false)
	testutil.CreateCourse(t, catalogRepo, "judo-throws", "sensei", 49, true)

	body := []byte(`{"title":"Boxing fundamentals","is_published":true}`)

	t.Run("other instructor", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/instructor/courses/judo-throws", getToken(t, "coach", "instructor"), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("owner updates an unpublished course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, "/v1/instructor/courses/boxing-basics", getToken(t, "coach", "instructor"), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var got catalog.Course
		decode(t, rec, &got)
		assert.Equal(t, course.ID, got.ID)
		assert.Equal(t, "Boxing fundamentals", got.Title)
		assert.True(t, got.IsPublished)
		assert.Equal(t, course.Price, got.Price)
	})

	t.Run("own courses only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/instructor/courses", getToken(t, "coach", "instructor"))
		app.ServeHTTP(rec, req)
		var got []catalog.Course
		decode(t, rec, &got)
		if assert.Len(t, got, 1) {
			assert.Equal(t, course.ID, got[0].ID)
		}
	})

	t.Run("admin sees all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/instructor/courses", getToken(t, "root", "admin"))
		app.ServeHTTP(rec, req)
		var got []catalog.Course
		decode(t, rec, &got)
		assert.Len(t, got, 2)
	})
}

func Test_instructorApi_authoring(t *testing.T) {
	app := setup(t)
	token := getToken(t, "coach", "instructor")
	testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	base := "/v1/instructor/courses/boxing-basics"

	post := func(path string, body string) (int, []byte) {
		req, rec := newAuthRequest(http.MethodPost, base+path, token, []byte(body))
		app.ServeHTTP(rec, req)
		return rec.Code, rec.Body.Bytes()
	}

	code, _ := post("/lessons", `{"title":"Stance","video_url":"https://videos.example.com/stance","duration_seconds":300,"is_free":true}`)
	assert.Equal(t, http.StatusCreated, code)

	req, rec := newAuthRequest(http.MethodPost, base+"/tests", token, []byte(`{"title":"Final exam"}`))
	app.ServeHTTP(rec, req)
	if !assert.Equal(t, http.StatusCreated, rec.Code) {
		t.FailNow()
	}
	var test catalog.Test
	decode(t, rec, &test)
	assert.Equal(t, catalog.DefaultPassingGrade, test.PassingGrade)

	qPath := "/tests/" + test.ID + "/questions"
	code, _ = post(qPath, `{"question":"Which hand jabs?","question_type":"multiple_choice","points":2,
		"options":[{"text":"Lead","is_correct":true},{"text":"Rear"}]}`)
	assert.Equal(t, http.StatusCreated, code)

	code, _ = post(qPath, `{"question":"Name the hook","question_type":"short_answer","answers":[{"text":"hook"}]}`)
	assert.Equal(t, http.StatusCreated, code)

	t.Run("two correct options", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+qPath, token, []byte(`{"question":"?","question_type":"true_false",
			"options":[{"text":"True","is_correct":true},{"text":"False","is_correct":true}]}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown test", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/tests/nope/questions", token, []byte(`{"question":"?","question_type":"short_answer","answers":[{"text":"x"}]}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "test not found"})}, rec)
	})

	// answer key is visible to the owner
	req, rec = newAuthRequest(http.MethodGet, base+qPath, token)
	app.ServeHTTP(rec, req)
	var questions []catalog.Question
	decode(t, rec, &questions)
	if assert.Len(t, questions, 2) {
		assert.Equal(t, 0, questions[0].Order)
		assert.Equal(t, 1, questions[1].Order)
		assert.Equal(t, 2, questions[0].Points)
		assert.Equal(t, 1, questions[1].Points)
		assert.True(t, questions[0].Options[0].IsCorrect)
		assert.Equal(t, "hook", questions[1].Answers[0].Text)
	}

	// delete
	req, rec = newAuthRequest(http.MethodDelete, base+qPath+"/"+questions[0].ID, token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, base+qPath+"/"+questions[0].ID, token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
