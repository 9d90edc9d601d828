package sqlxrepos

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core/course"
)

func TestCourseRepository_CheckCodeUniqueness(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()
	repo := NewCourseRepository(db)

	ctx := context.Background()

	t.Run("code taken", func(t *testing.T) {
		query := regexp.QuoteMeta("SELECT COUNT(1) FROM course WHERE code = $1")
		mock.ExpectQuery(query).
			WithArgs("GO101").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		if err := repo.CheckCodeUniqueness(ctx, "GO101"); err != course.ErrCodeExists {
			t.Errorf("CheckCodeUniqueness() error = %v, want %v", err, course.ErrCodeExists)
		}
	})

	t.Run("code free for excluded course", func(t *testing.T) {
		crsID := "d2332a05-7887-4c41-a2f5-90ee4163cee2"
		query := regexp.QuoteMeta("SELECT COUNT(1) FROM course WHERE code = $1 AND id NOT IN ($2)")
		mock.ExpectQuery(query).
			WithArgs("GO101", crsID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		if err := repo.CheckCodeUniqueness(ctx, "GO101", course.Course{ID: crsID}); err != nil {
			t.Errorf("CheckCodeUniqueness() error = %v, want nil", err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCourseRepository_AssignTeacher(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()
	repo := NewCourseRepository(db)

	ctx := context.Background()
	crsID := "d2332a05-7887-4c41-a2f5-90ee4163cee2"
	teacherID := "8e9a9ee4-23f6-44b4-b07b-6e699966a781"
	query := regexp.QuoteMeta("INSERT INTO course_teacher (course_id,teacher_id,created_at) VALUES ($1,$2,$3)")

	t.Run("ok", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(crsID, teacherID, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := repo.AssignTeacher(ctx, crsID, teacherID); err != nil {
			t.Errorf("AssignTeacher() error = %v, want nil", err)
		}
	})

	t.Run("already assigned", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(crsID, teacherID, sqlmock.AnyArg()).
			WillReturnError(&pq.Error{Code: uniqueViolation})

		if err := repo.AssignTeacher(ctx, crsID, teacherID); err != course.ErrTeacherAssigned {
			t.Errorf("AssignTeacher() error = %v, want %v", err, course.ErrTeacherAssigned)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCourseRepository_QueryCourses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()
	repo := NewCourseRepository(db)

	ctx := context.Background()
	teacherID := "8e9a9ee4-23f6-44b4-b07b-6e699966a781"

	t.Run("by teacher", func(t *testing.T) {
		query := regexp.QuoteMeta(
			"SELECT id, code, name, description, is_active, created_at, updated_at, " + teacherIDsColumn +
				" FROM course WHERE EXISTS (SELECT 1 FROM course_teacher ct WHERE ct.course_id = course.id AND ct.teacher_id = $1)",
		)
		rows := sqlmock.NewRows([]string{"id", "code", "name", "description", "is_active", "created_at", "updated_at", "teacher_ids"}).
			AddRow("d2332a05-7887-4c41-a2f5-90ee4163cee2", "GO101", "Intro to Go", nil, true, nil, nil, "{"+teacherID+"}")
		mock.ExpectQuery(query).WithArgs(teacherID).WillReturnRows(rows)

		courses, err := repo.QueryCourses(ctx, &course.QueryFilter{TeacherID: teacherID}, nil)
		if err != nil {
			t.Fatalf("QueryCourses(): %v", err)
		}
		if len(courses) != 1 {
			t.Fatalf("QueryCourses() returned %d courses, want 1", len(courses))
		}
		if !courses[0].HasTeacher(teacherID) {
			t.Errorf("QueryCourses() TeacherIDs = %v, missing %s", courses[0].TeacherIDs, teacherID)
		}
	})

	t.Run("invalid teacher id matches nothing", func(t *testing.T) {
		courses, err := repo.QueryCourses(ctx, &course.QueryFilter{TeacherID: "lol"}, nil)
		if err != nil {
			t.Fatalf("QueryCourses(): %v", err)
		}
		if len(courses) != 0 {
			t.Errorf("QueryCourses() returned %d courses, want 0", len(courses))
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
