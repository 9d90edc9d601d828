package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

// OpenDB returns a fresh in-memory database.
func OpenDB() *inmemdb.DB {
	db, err := inmemdb.Open()
	if err != nil {
		panic(err)
	}
	return db
}

// ResetDB drops all data; call it at the start of each test.
func ResetDB(t *testing.T, db *inmemdb.DB) {
	if db == nil {
		t.Fatal("ResetDB() failed: db is nil")
	}
	db.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	code, name string,
	isActive bool,
	teacherIDs ...string,
) course.Course {
	ctx := context.Background()
	now := time.Now().UTC()
	crs := course.Course{
		Code:      strings.ToUpper(code),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs.SetActive(isActive)
	crs, err := repo.CreateCourse(ctx, crs)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	for _, teacherID := range teacherIDs {
		if err = repo.AssignTeacher(ctx, crs.ID, teacherID); err != nil {
			t.Fatalf("createCourse() failed: %v", err)
		}
	}
	if len(teacherIDs) > 0 {
		// refetch to include the assigned teacher IDs
		if crs, err = repo.GetCourse(ctx, course.GetFilter{ID: crs.ID}); err != nil {
			t.Fatalf("createCourse() failed: %v", err)
		}
	}
	return crs
}

func CreateSession(
	t *testing.T,
	repo schedule.Repository,
	courseID, teacherID, title string,
	startsAt, endsAt time.Time,
	status ...string,
) schedule.ClassSession {
	now := time.Now().UTC()
	sess := schedule.ClassSession{
		CourseID:  courseID,
		TeacherID: teacherID,
		Title:     title,
		StartsAt:  startsAt.UTC(),
		EndsAt:    endsAt.UTC(),
		Status:    schedule.StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(status) > 0 {
		sess.Status = status[0]
	}
	sess, err := repo.CreateClassSession(context.Background(), sess)
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}
