package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

type (
	DB struct {
		user    *userTable
		course  *courseTable
		session *sessionTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	courseTable struct {
		table map[string]*course.Course
		mutex sync.RWMutex
	}

	sessionTable struct {
		table map[string]*schedule.ClassSession
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		course:  &courseTable{table: make(map[string]*course.Course)},
		session: &sessionTable{table: make(map[string]*schedule.ClassSession)},
	}
	return db, nil
}

func (db *DB) Close() error {
	db.Reset()
	return nil
}

// Reset drops all data.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.course.mutex.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.mutex.Unlock()

	db.session.mutex.Lock()
	db.session.table = make(map[string]*schedule.ClassSession)
	db.session.mutex.Unlock()
}

// isExcluded reports whether id is in sortedIDs.
func isExcluded(id string, sortedIDs []string) bool {
	n := len(sortedIDs)
	if n == 0 {
		return false
	}
	idx := sort.SearchStrings(sortedIDs, id)
	return idx < n && sortedIDs[idx] == id
}
