package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classhive/classhive-api/internal/models"
	"github.com/classhive/classhive-api/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.CourseMaterial{},
		&models.Assignment{},
		&models.Question{},
		&models.Submission{},
		&models.ActivityLog{},
	))

	return db
}

func newTestActivity(t *testing.T, db *gorm.DB) ActivityService {
	t.Helper()
	return NewActivityService(repository.NewActivityLogRepository(db), zerolog.Nop())
}

// fakeStore is an in-memory FileStore with failure injection.
type fakeStore struct {
	mu      sync.Mutex
	counter int
	files   map[string][]byte
	saveErr error
	removed []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string][]byte{}}
}

func (f *fakeStore) Save(_ context.Context, name string, reader io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return "", f.saveErr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	f.counter++
	path := fmt.Sprintf("store/%d_%s", f.counter, name)
	f.files[path] = data
	return path, nil
}

func (f *fakeStore) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.files, path)
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.files[path]
	return ok
}

func seedTeacher(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Username: "teacher1", Name: "Teacher One", Role: models.RoleTeacher}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedStudent(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Name: "Student " + username, Role: models.RoleStudent}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func teacherActor(user models.User) Actor {
	return Actor{ID: user.ID, Role: models.RoleTeacher}
}

func studentActor(user models.User) Actor {
	return Actor{ID: user.ID, Role: models.RoleStudent}
}
