package main

import (
	"context"
	"os"

	"academy/backend/models"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type seedFile struct {
	Course seedCourse `yaml:"course"`
}

type seedCourse struct {
	Title        string        `yaml:"title"`
	Description  string        `yaml:"description"`
	ThumbnailURL string        `yaml:"thumbnail_url"`
	Price        float64       `yaml:"price"`
	Inactive     bool          `yaml:"inactive"`
	Chapters     []seedChapter `yaml:"chapters"`
}

type seedChapter struct {
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Lessons     []seedLesson `yaml:"lessons"`
}

type seedLesson struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	VideoURL    string         `yaml:"video_url"`
	Duration    int            `yaml:"duration"`
	IsFree      bool           `yaml:"is_free"`
	Notes       string         `yaml:"notes"`
	Tips        string         `yaml:"tips"`
	Questions   []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Type          string   `yaml:"type"`
	Question      string   `yaml:"question"`
	Options       []string `yaml:"options"`
	CorrectAnswer string   `yaml:"correct_answer"`
	Explanation   string   `yaml:"explanation"`
	Points        int      `yaml:"points"`
}

func loadSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed file")
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "parse seed file")
	}
	if f.Course.Title == "" {
		return nil, errors.New("seed file: course.title is required")
	}
	return &f, nil
}

func (q seedQuestion) model(lessonID uint, order int) (models.Question, error) {
	out := models.Question{
		LessonID:      lessonID,
		Type:          q.Type,
		Question:      q.Question,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Points:        q.Points,
		OrderIndex:    order,
	}
	if out.Type == "" {
		out.Type = models.QuestionMultipleChoice
	}
	if out.Points == 0 {
		out.Points = 1
	}
	if len(q.Options) > 0 {
		raw, err := sonic.Marshal(q.Options)
		if err != nil {
			return out, err
		}
		out.Options = datatypes.JSON(raw)
	}
	return out, nil
}

// seed writes the whole course tree in one transaction. Chapters, lessons
// and questions keep the order they have in the file.
func (a *admin) seed(ctx context.Context, path string) (*models.Course, error) {
	f, err := loadSeed(path)
	if err != nil {
		return nil, err
	}

	course := models.Course{
		Title:        f.Course.Title,
		Description:  f.Course.Description,
		ThumbnailURL: f.Course.ThumbnailURL,
		Price:        f.Course.Price,
		IsActive:     !f.Course.Inactive,
	}
	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Course{}).Where("title = ?", course.Title).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return errors.Errorf("course %q already exists", course.Title)
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		for ci, ch := range f.Course.Chapters {
			chapter := models.Chapter{
				CourseID:    course.ID,
				Title:       ch.Title,
				Description: ch.Description,
				OrderIndex:  ci,
				IsActive:    true,
			}
			if err := tx.Create(&chapter).Error; err != nil {
				return errors.Wrapf(err, "chapter %q", ch.Title)
			}

			for li, l := range ch.Lessons {
				lesson := models.Lesson{
					ChapterID:   chapter.ID,
					Title:       l.Title,
					Description: l.Description,
					VideoURL:    l.VideoURL,
					Duration:    l.Duration,
					OrderIndex:  li,
					IsFree:      l.IsFree,
					Notes:       l.Notes,
					Tips:        l.Tips,
				}
				if err := tx.Create(&lesson).Error; err != nil {
					return errors.Wrapf(err, "lesson %q", l.Title)
				}

				for qi, q := range l.Questions {
					question, err := q.model(lesson.ID, qi)
					if err != nil {
						return err
					}
					if err := tx.Create(&question).Error; err != nil {
						return errors.Wrapf(err, "question %d of lesson %q", qi+1, l.Title)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}
