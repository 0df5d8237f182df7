package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/instructor"
	"github.com/trezcool/academia/core/student"
)

// fixtures are hashed with the cheapest bcrypt cost
const bcryptCost = 4

func hash(t *testing.T, pwd string) []byte {
	if pwd == "" {
		return nil
	}
	h, err := core.HashPassword(pwd, bcryptCost)
	if err != nil {
		t.Fatalf("hashing password failed: %v", err)
	}
	return h
}

func IntPtr(i int) *int { return &i }

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	name, code string,
	maxStudents int,
	instructorID *int,
	createdAt ...time.Time,
) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:         name,
		Code:         code,
		Description:  name + " course",
		Category:     course.Categories[0],
		Level:        course.LevelBeginner,
		Credits:      3,
		MaxStudents:  maxStudents,
		InstructorID: instructorID,
		IsActive:     true,
		CreatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func CreateInstructor(t *testing.T, repo instructor.Repository, firstName, lastName, email, pwd string, isActive bool) instructor.Instructor {
	inst, err := repo.CreateInstructor(context.Background(), instructor.Instructor{
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		PasswordHash:   hash(t, pwd),
		Department:     "Computer Science",
		Specialization: "Software Engineering",
		IsActive:       isActive,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createInstructor() failed: %v", err)
	}
	return inst
}

func CreateStudent(t *testing.T, repo student.Repository, firstName, lastName, email, pwd string, isActive bool) student.Student {
	now := time.Now()
	std, err := repo.CreateStudent(context.Background(), student.Student{
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		PasswordHash:   hash(t, pwd),
		EnrollmentDate: now.Format(core.DateLayout),
		IsActive:       isActive,
		CreatedAt:      now.UTC(),
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func CreateAdmin(t *testing.T, repo auth.AccountRepository, name, email, pwd string) auth.Admin {
	adm, err := repo.UpsertAdmin(context.Background(), auth.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: hash(t, pwd),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	return adm
}

// Enroll inserts an enrollment in `status` without going through the enrollment rules.
func Enroll(t *testing.T, repo enrollment.Repository, studentID, courseID int, status enrollment.Status, date ...string) enrollment.Enrollment {
	d := time.Now().Format(core.DateLayout)
	if len(date) > 0 {
		d = date[0]
	}
	ctx := context.Background()
	en, err := repo.Enroll(ctx, enrollment.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: d,
		Status:         enrollment.StatusActive,
	}, func(enrollment.Snapshot) error { return nil })
	if err != nil {
		t.Fatalf("enroll() failed: %v", err)
	}
	if status != enrollment.StatusActive {
		if err = repo.SetStatus(ctx, en.ID, enrollment.StatusActive, status); err != nil {
			t.Fatalf("enroll() failed: %v", err)
		}
		en.Status = status
	}
	return en
}

// Identity returns the identity logged in as role with id.
func Identity(role core.Role, id int, name, email string) core.Identity {
	return core.Identity{UserID: id, Role: role, Name: name, Email: email}
}

// NewValidator returns a validator with the messages of every domain registered.
func NewValidator() *core.Validator {
	v := core.NewValidator()
	auth.InitValidators(v.Engine, v.Translator)
	course.InitValidators(v.Engine, v.Translator)
	enrollment.InitValidators(v.Engine, v.Translator)
	instructor.InitValidators(v.Engine, v.Translator)
	student.InitValidators(v.Engine, v.Translator)
	return v
}
