package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateStudentRequest struct {
	AdmissionNumber string `json:"admission_number"`
	Name            string `json:"name"`
	Grade           string `json:"grade"`
	Section         string `json:"section"`
}

type Service interface {
	Create(context.Context, CreateStudentRequest) (Student, error)
	GetByID(ctx context.Context, id string) (Student, error)
	// Lookup returns the students that exist among ids, keyed by id.
	Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]Student, error)
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidAdmissionNumber = errors.New("invalid_admission_number")
	ErrDuplicateAdmission     = errors.New("duplicate_admission_number")
	ErrNotFound               = errors.New("not_found")
)
