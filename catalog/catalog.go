// Package catalog resolves courses for the booking flow. It only ever
// returns published, public courses: an unpublished course is reported the
// same way as a missing one so callers cannot probe for drafts.
package catalog

import (
	"errors"
	"time"

	"hemera-academy/db"
	"hemera-academy/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCourseNotFound = errors.New("course not found")

// FindBookable resolves a course by id or slug. Uuid-shaped input is tried as
// an id first, then as a slug on a miss; anything else is only a slug lookup,
// since binding a non-uuid string against the uuid id column would error out
// in Postgres instead of missing.
func FindBookable(idOrSlug string) (*models.Course, error) {
	if idOrSlug == "" {
		return nil, ErrCourseNotFound
	}

	lookups := []string{"slug = ?"}
	if _, err := uuid.Parse(idOrSlug); err == nil {
		lookups = []string{"id = ?", "slug = ?"}
	}

	for _, cond := range lookups {
		var course models.Course
		err := db.DB.Where(cond+" AND is_published = ? AND is_public = ?", idOrSlug, true, true).
			First(&course).Error
		if err == nil {
			return &course, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, ErrCourseNotFound
}

// BookableByID is the strict variant used by the ledger before writing a
// booking row: the reference must be the course id, not a slug.
func BookableByID(courseID string) (*models.Course, error) {
	var course models.Course
	err := db.DB.Where("id = ? AND is_published = ? AND is_public = ?", courseID, true, true).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// NextUpcoming returns the earliest published course scheduled in the future.
func NextUpcoming() (*models.Course, error) {
	var course models.Course
	err := db.DB.Where("is_published = ? AND is_public = ? AND date > ?", true, true, time.Now()).
		Order("date asc").
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}
