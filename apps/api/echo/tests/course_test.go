package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

func Test_courseApi_courseQueryMine(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "teach1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "teach2@test.cd", "", []string{user.RoleTeacher}, true)
	teacher3 := testutil.CreateUser(t, usrRepo, "Teacher Three", "teach3", "teach3@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher1.ID, teacher2.ID)
	phy := testutil.CreateCourse(t, crsRepo, "phy201", "Physics II", true, teacher1.ID)
	hist := testutil.CreateCourse(t, crsRepo, "hist301", "History of Science", false, teacher1.ID) // inactive but still theirs
	testutil.CreateCourse(t, crsRepo, "chem101", "General Chemistry", true)                        // nobody's

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Admins use the courses list instead", token: getToken(t, admin), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Only assigned courses, ordered by code", token: getToken(t, teacher1), wantCode: http.StatusOK,
			wantData: marchallList(t, hist, math, phy),
		},
		{
			name: "Other teachers get their own list", token: getToken(t, teacher2), wantCode: http.StatusOK,
			wantData: marchallList(t, math),
		},
		{
			name: "No assigned courses", token: getToken(t, teacher3), wantCode: http.StatusOK,
			wantData: marchallList(t, []interface{}{}...),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/courses/mine"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseCreate(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true)

	adminToken := getToken(t, admin)
	reqMsg := "this field is required"

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": reqMsg, "name": reqMsg}),
		},
		{
			name: "invalid code", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{Code: "MATH 101!", Name: "Calculus I"}),
			wantData: marchallObj(t, map[string]string{"code": "only letters and digits separated by dashes or underscores are allowed"}),
		},
		{
			name: "duplicate code", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.NewCourse{Code: "math101", Name: "Calculus I bis"}),
			wantData: marchallObj(t, map[string]string{"code": "a course with this code already exists"}),
		},
		{
			name: "course created", token: adminToken, wantCode: http.StatusCreated,
			body: marchallObj(t, course.NewCourse{Code: "phy201", Name: "Physics II", Description: "Mechanics and thermodynamics"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Code != "PHY201" {
					t.Errorf("failed! Code = %v; want PHY201", respData.Code)
				}
				if respData.IsActive == nil || !*respData.IsActive {
					t.Error("failed! new course is not active")
				}
				if _, err := crsRepo.GetCourse(context.Background(), course.GetFilter{Code: "PHY201"}); err != nil {
					t.Errorf("GetCourse() failed: %v", err)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseQuery(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher.ID)
	phy := testutil.CreateCourse(t, crsRepo, "phy201", "Physics II", true)
	hist := testutil.CreateCourse(t, crsRepo, "hist301", "History of Science", false)

	path := func(search, teacherID, ordering string, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if teacherID != "" {
			v.Add("teacher", teacherID)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		return "/api/courses?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/api/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/api/courses", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/api/courses", token: adminToken, wantData: marchallList(t, math, phy, hist)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", "", nil), token: adminToken, wantData: empty},
		{name: "search=cal", path: path("cal", "", "", nil), token: adminToken, wantData: marchallList(t, math)},
		{name: "search=201", path: path("201", "", "", nil), token: adminToken, wantData: marchallList(t, phy)},
		{name: "teacher (unknown)", path: path("", "lol", "", nil), token: adminToken, wantData: empty},
		{name: "teacher", path: path("", teacher.ID, "", nil), token: adminToken, wantData: marchallList(t, math)},
		{name: "is_active=true", path: path("", "", "", bPtr(true)), token: adminToken, wantData: marchallList(t, math, phy)},
		{name: "is_active=false", path: path("", "", "", bPtr(false)), token: adminToken, wantData: marchallList(t, hist)},
		// ordering
		{name: "order by code", path: path("", "", "code", nil), token: adminToken, wantData: marchallList(t, hist, math, phy)},
		{name: "order by -code", path: path("", "", "-code", nil), token: adminToken, wantData: marchallList(t, phy, math, hist)},
		{name: "order by name", path: path("", "", "name", nil), token: adminToken, wantData: marchallList(t, math, hist, phy)},
		// filtering & ordering
		{name: "filtering & ordering", path: path("", "", "-code", bPtr(true)), token: adminToken, wantData: marchallList(t, phy, math)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseRetrieve(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "teach1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "teach2@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher1.ID)

	notFound := marchallObj(t, httpErr{Error: "not found"})
	tests := []httpTest{
		{name: "Auth required", path: "/api/courses/" + math.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Unknown course", path: "/api/courses/lol", token: getToken(t, admin), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Hidden from other teachers", path: "/api/courses/" + math.ID, token: getToken(t, teacher2), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Hidden from students", path: "/api/courses/" + math.ID, token: getToken(t, student), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Assigned teacher can see it", path: "/api/courses/" + math.ID, token: getToken(t, teacher1), wantCode: http.StatusOK, wantData: marchallObj(t, math)},
		{name: "Admin can see it", path: "/api/courses/" + math.ID, token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, math)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseUpdate(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher.ID)
	testutil.CreateCourse(t, crsRepo, "phy201", "Physics II", true)

	adminToken := getToken(t, admin)
	bPtr := func(b bool) *bool { return &b }

	type extraTest struct {
		code     string
		name     string
		isActive bool
	}
	tests := []httpTest{
		{name: "Auth required", path: "/api/courses/" + math.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required (even for assigned teachers)", path: "/api/courses/" + math.ID, token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown course", path: "/api/courses/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "invalid code", path: "/api/courses/" + math.ID, token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.UpdateCourse{Code: "MATH 101!"}),
			wantData: marchallObj(t, map[string]string{"code": "only letters and digits separated by dashes or underscores are allowed"}),
		},
		{
			name: "duplicate code", path: "/api/courses/" + math.ID, token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, course.UpdateCourse{Code: "phy201"}),
			wantData: marchallObj(t, map[string]string{"code": "a course with this code already exists"}),
		},
		{
			name: "own code is not a duplicate", path: "/api/courses/" + math.ID, token: adminToken, wantCode: http.StatusOK,
			body:  marchallObj(t, course.UpdateCourse{Code: "math101", Name: "Calculus II"}),
			extra: extraTest{code: "MATH101", name: "Calculus II", isActive: true},
		},
		{
			name: "course deactivated", path: "/api/courses/" + math.ID, token: adminToken, wantCode: http.StatusOK,
			body:  marchallObj(t, course.UpdateCourse{IsActive: bPtr(false)}),
			extra: extraTest{code: "MATH101", name: "Calculus II", isActive: false},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if extra, ok := tt.extra.(extraTest); ok {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Code != extra.code {
					t.Errorf("failed! Code = %v; want %v", respData.Code, extra.code)
				}
				if respData.Name != extra.name {
					t.Errorf("failed! Name = %v; want %v", respData.Name, extra.name)
				}
				if respData.IsActive == nil || *respData.IsActive != extra.isActive {
					t.Errorf("failed! IsActive = %v; want %v", respData.IsActive, extra.isActive)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseAssignTeacher(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "teach1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "teach2@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher1.ID)

	adminToken := getToken(t, admin)
	assigned := math
	assigned.TeacherIDs = []string{teacher1.ID, teacher2.ID}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: adminToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacher_id": "this field is required"}),
		},
		{
			name: "unknown teacher", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.AssignTeacherRequest{TeacherID: "lol"}),
			wantData: marchallObj(t, map[string]string{"teacher_id": "teacher not found"}),
		},
		{
			name: "not a teacher", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.AssignTeacherRequest{TeacherID: student.ID}),
			wantData: marchallObj(t, map[string]string{"teacher_id": "user is not a teacher"}),
		},
		{
			name: "already assigned", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.AssignTeacherRequest{TeacherID: teacher1.ID}),
			wantData: marchallObj(t, map[string]string{"teacher_id": "teacher is already assigned to this course"}),
		},
		{
			name: "teacher assigned", token: adminToken, wantCode: http.StatusOK,
			body:     marchallObj(t, echoapi.AssignTeacherRequest{TeacherID: teacher2.ID}),
			wantData: marchallObj(t, assigned),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/courses/" + math.ID + "/teachers"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseUnassignTeacher(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "teach1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "teach2@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher1.ID, teacher2.ID)

	adminToken := getToken(t, admin)
	unassigned := math
	unassigned.TeacherIDs = []string{teacher1.ID}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher1), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "teacher unassigned", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, unassigned)},
		{name: "no-op when not assigned", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, unassigned)},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete
		tt.path = "/api/courses/" + math.ID + "/teachers/" + teacher2.ID

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_courseDestroy(t *testing.T) {
	testutil.ResetDB(t, db)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateCourse(t, crsRepo, "math101", "Calculus I", true, teacher.ID)
	phy := testutil.CreateCourse(t, crsRepo, "phy201", "Physics II", true)
	chem := testutil.CreateCourse(t, crsRepo, "chem101", "General Chemistry", true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/api/courses/" + math.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required (even for assigned teachers)", path: "/api/courses/" + math.ID, token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "course deleted", path: "/api/courses/" + math.ID, token: adminToken,
			wantCode: http.StatusNoContent, extra: []string{math.ID},
		},
		{
			name: "multiple courses deleted", path: "/api/courses?id=" + phy.ID + "&id=" + chem.ID, token: adminToken,
			wantCode: http.StatusNoContent, extra: []string{phy.ID, chem.ID},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				if ids, ok := tt.extra.([]string); ok {
					for _, id := range ids {
						if _, err := crsRepo.GetCourse(context.Background(), course.GetFilter{ID: id}); err == nil {
							t.Errorf("failed! course %v was not deleted", id)
						}
					}
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
