package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursar/internal/student/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, student *domain.Student) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO students (id, admission_number, name, grade, section, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		student.ID,
		student.AdmissionNumber,
		student.Name,
		student.Grade,
		student.Section,
		student.CreatedAt,
		student.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).Raw(
		`SELECT id, admission_number, name, grade, section, created_at, updated_at
		 FROM students WHERE id = ?`,
		id,
	).Scan(&student).Error
	if err != nil {
		return nil, err
	}
	if student.ID == 0 {
		return nil, nil
	}
	return &student, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var students []*domain.Student
	err := db.WithContext(ctx).Raw(
		`SELECT id, admission_number, name, grade, section, created_at, updated_at
		 FROM students WHERE id IN ?`,
		ids,
	).Scan(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}
