package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/fightlab/tests"
)

func Test_catalogApi_query(t *testing.T) {
	app := setup(t)

	now := time.Now()
	boxing := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true, now.Add(-2*time.Hour))
	judo := testutil.CreateCourse(t, catalogRepo, "judo-throws", "coach", 79.5, true, now.Add(-time.Hour))
	testutil.CreateCourse(t, catalogRepo, "secret-draft", "coach", 10, false)

	runHTTPTests(t, app, []httpTest{
		{name: "published only, newest first", path: "/v1/courses", wantData: marchallList(t, judo, boxing)},
		{name: "search", path: "/v1/courses?search=JUDO", wantData: marchallList(t, judo)},
		{name: "search (unknown)", path: "/v1/courses?search=karate", wantData: marchallList(t)},
		{name: "ordering", path: "/v1/courses?ordering=price", wantData: marchallList(t, boxing, judo)},
		{name: "ordering desc", path: "/v1/courses?ordering=-title", wantData: marchallList(t, judo, boxing)},
	})
}

func Test_catalogApi_retrieve(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	testutil.CreateCourse(t, catalogRepo, "secret-draft", "coach", 10, false)
	notFound := marchallObj(t, httpErr{Error: "course not found"})

	runHTTPTests(t, app, []httpTest{
		{name: "published", path: "/v1/courses/boxing-basics", wantData: marchallObj(t, course)},
		{name: "unknown", path: "/v1/courses/karate", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "unpublished is hidden", path: "/v1/courses/secret-draft", wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_catalogApi_access(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	testutil.CreatePurchase(t, purchaseRepo, "buyer", course.ID, "order-paid", 49, "completed")
	testutil.CreatePurchase(t, purchaseRepo, "pending", course.ID, "order-pending", 49, "pending")

	path := "/v1/courses/boxing-basics/access"
	granted := marchallObj(t, map[string]bool{"has_access": true})
	denied := marchallObj(t, map[string]bool{"has_access": false})

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "buyer", path: path, token: getToken(t, "buyer", "user"), wantData: granted},
		{name: "pending purchase", path: path, token: getToken(t, "pending", "user"), wantData: denied},
		{name: "stranger", path: path, token: getToken(t, "stranger", "user"), wantData: denied},
		{name: "instructor", path: path, token: getToken(t, "coach", "instructor"), wantData: granted},
		{name: "admin", path: path, token: getToken(t, "root", "admin"), wantData: granted},
	})
}

func Test_catalogApi_queryLessons(t *testing.T) {
	app := setup(t)

	course := testutil.CreateCourse(t, catalogRepo, "boxing-basics", "coach", 49, true)
	intro := testutil.CreateLesson(t, catalogRepo, course.ID, "intro", 0, 120, true)
	jab := testutil.CreateLesson(t, catalogRepo, course.ID, "jab", 1, 600, false)
	testutil.CreatePurchase(t, purchaseRepo, "buyer", course.ID, "order-paid", 49, "completed")

	outline := func(locked bool) []byte {
		return marchallList(t,
			map[string]interface{}{
				"id": intro.ID, "title": "intro", "description": "", "duration_seconds": 120, "order": 0,
				"is_free": true, "locked": false,
			},
			map[string]interface{}{
				"id": jab.ID, "title": "jab", "description": "", "duration_seconds": 600, "order": 1,
				"is_free": false, "locked": locked,
			},
		)
	}

	path := "/v1/courses/boxing-basics/lessons"
	runHTTPTests(t, app, []httpTest{
		{name: "stranger sees paid lessons locked", path: path, token: getToken(t, "stranger", "user"), wantData: outline(true)},
		{name: "buyer", path: path, token: getToken(t, "buyer", "user"), wantData: outline(false)},
	})
}
