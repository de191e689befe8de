package models

import (
	"time"

	"gorm.io/gorm"
)

type CourseTier string

const (
	TierFree    CourseTier = "free"
	TierPremium CourseTier = "premium"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// Course is catalog data. The enrollment core reads it but never writes it;
// authoring lives in the catalog service.
type Course struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Slug         string       `json:"slug" gorm:"uniqueIndex;not null;size:200"`
	Title        string       `json:"title" gorm:"not null;size:200;index"`
	Description  *string      `json:"description" gorm:"type:text"`
	Tier         CourseTier   `json:"tier" gorm:"not null;size:20;default:free"`
	PriceCents   int64        `json:"price_cents" gorm:"not null;default:0"`
	Currency     string       `json:"currency" gorm:"not null;size:3;default:USD"`
	InstructorID string       `json:"instructor_id" gorm:"not null;index;size:36"`
	Status       CourseStatus `json:"status" gorm:"not null;size:20;default:draft;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Instructor  User         `json:"instructor,omitempty" gorm:"foreignKey:InstructorID"`
	Lessons     []Lesson     `json:"lessons,omitempty" gorm:"foreignKey:CourseID"`
	Assignments []Assignment `json:"assignments,omitempty" gorm:"foreignKey:CourseID"`
}

// Lesson is a trackable unit of a course.
type Lesson struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"not null;size:200"`
	Position int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment is a gradable unit of a course.
type Assignment struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	CourseID uint   `json:"course_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"not null;size:200"`
	Position int    `json:"position" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Course) TableName() string {
	return "courses"
}

func (Lesson) TableName() string {
	return "lessons"
}

func (Assignment) TableName() string {
	return "assignments"
}

// TrackableUnits is the denominator of the progress computation.
func (c *Course) TrackableUnits() int {
	return len(c.Lessons) + len(c.Assignments)
}
