package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedCourses ...course.Course) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclIDs := make([]string, 0, len(excludedCourses))
	for _, c := range excludedCourses {
		exclIDs = append(exclIDs, c.ID)
	}
	sort.Strings(exclIDs)

	for _, crs := range repo.query() {
		if isExcluded(crs.ID, exclIDs) {
			continue
		}
		if crs.Code == code {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if err := repo.CheckCodeUniqueness(ctx, crs.Code); err != nil {
		return course.Course{}, err
	}

	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs.ID = uuid.New().String()
	if crs.TeacherIDs == nil {
		crs.TeacherIDs = []string{}
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mutex.RLock()
	courses := repo.query()
	repo.db.mutex.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		filtered := make([]course.Course, 0, len(courses))
		for _, crs := range courses {
			if matchCourse(crs, filter) {
				filtered = append(filtered, crs)
			}
		}
		courses = filtered
	}

	sortCourses(courses, ordering)
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != "":
		if crs, ok := repo.db.table[filter.ID]; ok {
			return *crs, nil
		}
	case filter.Code != "":
		for _, crs := range repo.query() {
			if crs.Code == filter.Code {
				return crs, nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origCrs, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	if crs.Code != "" {
		origCrs.Code = crs.Code
	}
	if crs.Name != "" {
		origCrs.Name = crs.Name
	}
	if crs.Description != "" {
		origCrs.Description = crs.Description
	}
	if crs.IsActive != nil {
		origCrs.IsActive = crs.IsActive
	}
	if !crs.UpdatedAt.IsZero() {
		origCrs.UpdatedAt = crs.UpdatedAt
	}
	return *origCrs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var count int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			count++
		}
	}
	return count, nil
}

func (repo *courseRepository) AssignTeacher(ctx context.Context, courseID, teacherID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if crs.HasTeacher(teacherID) {
		return course.ErrTeacherAssigned
	}
	crs.TeacherIDs = append(append([]string{}, crs.TeacherIDs...), teacherID)
	return nil
}

func (repo *courseRepository) UnassignTeacher(ctx context.Context, courseID, teacherID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return 0, course.ErrNotFound
	}
	for i, tid := range crs.TeacherIDs {
		if tid == teacherID {
			crs.TeacherIDs = append(append([]string{}, crs.TeacherIDs[:i]...), crs.TeacherIDs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func matchCourse(crs course.Course, filter *course.QueryFilter) bool {
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(crs.Code), search) ||
			strings.Contains(strings.ToLower(crs.Name), search)) {
			return false
		}
	}
	if filter.TeacherID != "" && !crs.HasTeacher(filter.TeacherID) {
		return false
	}
	if filter.IsActive != nil {
		if crs.IsActive == nil || *crs.IsActive != *filter.IsActive {
			return false
		}
	}
	return true
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(courses, func(a, b int) bool {
			if ord.Ascending {
				return lessCourse(courses[a], courses[b], ord.Field)
			}
			return lessCourse(courses[b], courses[a], ord.Field)
		})
	}
}

func lessCourse(a, b course.Course, field string) bool {
	switch field {
	case "code":
		return a.Code < b.Code
	case "name":
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return false
}
