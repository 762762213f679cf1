package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gradebox/quizdesk-backend/internal/model"
	"github.com/gradebox/quizdesk-backend/internal/repository"
)

// ErrStudentNotFound is returned when no student matches the lookup.
var ErrStudentNotFound = errors.New("student not found")

// StudentService handles student account lookups.
type StudentService struct {
	studentRepo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// GetByRollNo retrieves a student by roll number.
func (s *StudentService) GetByRollNo(ctx context.Context, rollNo string) (*model.Student, error) {
	student, err := s.studentRepo.GetByRollNo(ctx, rollNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student by roll no: %w", err)
	}
	return student, nil
}

// GetByID retrieves a student by primary key.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}
	return student, nil
}

// Identity converts a student record into the identity embedded in answer
// payloads.
func (s *StudentService) Identity(student *model.Student) model.StudentIdentity {
	return model.StudentIdentity{
		ID:     student.ID,
		RollNo: student.RollNo,
		Name:   student.Name,
	}
}
