package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/storage/database/dummy"
	"github.com/trezcool/academia/tests"
)

func TestService_Create(t *testing.T) {
	svc := student.NewService(dummydb.NewStudentRepository(dummydb.Open()), testutil.NewValidator(), 4)
	ctx := context.Background()
	today := time.Now().Format(core.DateLayout)
	tomorrow := time.Now().AddDate(0, 0, 1).Format(core.DateLayout)

	tests := []struct {
		name    string
		ns      student.NewStudent
		want    []core.FieldError
		wantDay string
	}{
		{
			name: "future enrollment date",
			ns:   student.NewStudent{FirstName: "Grace", LastName: "Hopper", Email: "grace@test.cd", EnrollmentDate: tomorrow},
			want: []core.FieldError{{Field: "enrollment_date", Error: "Enrollment date cannot be in the future"}},
		},
		{
			name: "malformed enrollment date",
			ns:   student.NewStudent{FirstName: "Grace", LastName: "Hopper", Email: "grace@test.cd", EnrollmentDate: "2024-13-01"},
			want: []core.FieldError{{Field: "enrollment_date", Error: "Invalid enrollment date"}},
		},
		{
			name: "required",
			ns:   student.NewStudent{},
			want: []core.FieldError{
				{Field: "first_name", Error: "First name is required"},
				{Field: "last_name", Error: "Last name is required"},
				{Field: "email", Error: "Email is required"},
			},
		},
		{
			name:    "enrollment date defaults to today",
			ns:      student.NewStudent{FirstName: "Grace", LastName: "Hopper", Email: "Grace@Test.cd"},
			wantDay: today,
		},
		{
			name: "email taken",
			ns:   student.NewStudent{FirstName: "Grace", LastName: "Hopper", Email: "grace@test.cd", EnrollmentDate: "2020-09-01"},
			want: []core.FieldError{{Field: "email", Error: "Email already exists"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			std, err := svc.Create(ctx, tt.ns)
			if tt.want != nil {
				vErr, ok := core.AsValidationError(err)
				if !ok {
					t.Fatalf("Create() error = %v; want a validation error", err)
				}
				assert.Equal(t, tt.want, vErr.Fields)
				return
			}
			if err != nil {
				t.Fatalf("Create() failed: %v", err)
			}
			assert.Equal(t, tt.wantDay, std.EnrollmentDate)
			assert.Equal(t, "grace@test.cd", std.Email)
		})
	}
}

func TestService_Delete_cascades(t *testing.T) {
	db := dummydb.Open()
	repo := dummydb.NewStudentRepository(db)
	enRepo := dummydb.NewEnrollmentRepository(db)
	svc := student.NewService(repo, testutil.NewValidator(), 4)
	ctx := context.Background()

	std := testutil.CreateStudent(t, repo, "Grace", "Hopper", "grace@test.cd", "", true)
	c := testutil.CreateCourse(t, dummydb.NewCourseRepository(db), "Compilers", "CS301", 5, nil)
	testutil.Enroll(t, enRepo, std.ID, c.ID, enrollment.StatusActive)

	if _, err := svc.Delete(ctx, std.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	ens, _ := enRepo.ListEnrollments(ctx, enrollment.QueryFilter{CourseID: c.ID})
	assert.Empty(t, ens)
}
