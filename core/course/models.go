package course

import (
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

var (
	Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

	Categories = []string{
		"Web Development",
		"Data Science",
		"Database",
		"Mobile Development",
		"Programming",
		"Project Management",
		"Cloud Computing",
		"Cybersecurity",
		"Networking",
		"Software Engineering",
	}
)

type Course struct {
	ID           int       `json:"id"`
	Name         string    `json:"course_name"`
	Code         string    `json:"course_code"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Level        Level     `json:"level"`
	Credits      int       `json:"credits"`
	MaxStudents  int       `json:"max_students"`
	InstructorID *int      `json:"instructor_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// Listing is a Course annotated with its instructor and live Active enrollment count.
type Listing struct {
	Course
	InstructorName string `json:"instructor_name"`
	EnrolledCount  int    `json:"enrolled_count"`
}

// Capacity is the enrolled vs max snapshot of a course.
type Capacity struct {
	Name      string `json:"name"`
	Max       int    `json:"max"`
	Enrolled  int    `json:"enrolled"`
	Available int    `json:"available"`
	IsFull    bool   `json:"isFull"`
}

func NewCapacity(name string, max, enrolled int) Capacity {
	available := max - enrolled
	return Capacity{
		Name:      name,
		Max:       max,
		Enrolled:  enrolled,
		Available: available,
		IsFull:    available <= 0,
	}
}

// Suggestion is the autocomplete projection of a Course.
type Suggestion struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Level    Level  `json:"level"`
}

// NewCourse contains the information needed to create or replace a Course.
type NewCourse struct {
	Name         string `json:"course_name" validate:"required,min=3,max=200"`
	Code         string `json:"course_code" validate:"required,coursecode"`
	Description  string `json:"description"`
	Category     string `json:"category" validate:"required"`
	Level        Level  `json:"level" validate:"oneof=Beginner Intermediate Advanced"`
	Credits      int    `json:"credits" validate:"min=1,max=6"`
	MaxStudents  int    `json:"max_students" validate:"min=1,max=200"`
	InstructorID *int   `json:"instructor_id" validate:"omitempty,min=1"`
	IsActive     *bool  `json:"is_active"`
}

func (nc *NewCourse) clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Level = Level(core.CleanString(string(nc.Level)))
}

// SearchFilter applies AND operation on the set fields. An empty filter matches every course.
type SearchFilter struct {
	Search       string `query:"search"`
	Category     string `query:"category"`
	Level        Level  `query:"level"`
	InstructorID int    `query:"instructor"`
}

func (f *SearchFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.Category = core.CleanString(f.Category)
	f.Level = Level(core.CleanString(string(f.Level)))
}

func (f *SearchFilter) IsEmpty() bool {
	return f.Search == "" && f.Category == "" && f.Level == "" && f.InstructorID <= 0
}
