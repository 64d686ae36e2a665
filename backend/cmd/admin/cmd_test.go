package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"academy/backend/models"
	"academy/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setup(t *testing.T) *admin {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, utils.Migrate(db))
	return &admin{db: db, log: utils.Nop()}
}

func run(a *admin, args ...string) error {
	app := a.app()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	return app.Run(append([]string{"academy-admin"}, args...))
}

type cliTest struct {
	name    string
	args    []string
	pwd     string
	wantErr string
}

func Test_admin_migrate(t *testing.T) {
	a := setup(t)
	require.NoError(t, run(a, "migrate"))
	assert.True(t, a.db.Migrator().HasTable(&models.UserProgress{}))
}

func Test_admin_addUser(t *testing.T) {
	a := setup(t)

	tests := []cliTest{
		{name: "no email", args: []string{"adduser"}, pwd: "secret", wantErr: "Required flag \"email\" not set"},
		{name: "no password", args: []string{"adduser", "--email", "root@example.com"}, wantErr: errNoPassword.Error()},
		{name: "create admin", args: []string{"adduser", "--email", "Root@Example.com", "--name", "Root", "--admin"}, pwd: "secret"},
		{name: "reset password", args: []string{"adduser", "--email", "root@example.com"}, pwd: "changed"},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := run(a, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			var user models.User
			require.NoError(t, a.db.Where("email = ?", "root@example.com").First(&user).Error)
			assert.Equal(t, models.RoleAdmin, user.Role)
			assert.Equal(t, "Root", user.FullName)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.pwd)))
		})
	}

	var count int64
	a.db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func Test_admin_seed(t *testing.T) {
	a := setup(t)

	require.NoError(t, run(a, "seed", "--file", "testdata/course.yaml"))

	var course models.Course
	err := a.db.
		Preload("Chapters", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index") }).
		Preload("Chapters.Lessons", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index") }).
		Preload("Chapters.Lessons.Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index") }).
		First(&course).Error
	require.NoError(t, err)

	assert.Equal(t, "Trading Foundations", course.Title)
	assert.True(t, course.IsActive)
	require.Len(t, course.Chapters, 2)
	require.Len(t, course.Chapters[0].Lessons, 2)
	first := course.Chapters[0].Lessons[0]
	assert.True(t, first.IsFree)
	assert.Equal(t, 420, first.Duration)
	require.Len(t, first.Questions, 2)
	assert.Equal(t, models.QuestionMultipleChoice, first.Questions[0].Type)
	assert.JSONEq(t, `["bullish","bearish"]`, string(first.Questions[0].Options))
	assert.Equal(t, 1, first.Questions[0].Points)
	assert.Equal(t, models.QuestionTrueFalse, first.Questions[1].Type)
	assert.Equal(t, 2, first.Questions[1].Points)
	assert.Equal(t, 1, course.Chapters[1].OrderIndex)

	err = run(a, "seed", "--file", "testdata/course.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	err = run(a, "seed", "--file", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}
