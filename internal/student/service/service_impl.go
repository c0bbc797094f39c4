package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bursar/internal/student/domain"
	"github.com/smallbiznis/bursar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("student.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStudentRequest) (domain.Student, error) {
	admission := strings.TrimSpace(req.AdmissionNumber)
	if admission == "" {
		return domain.Student{}, domain.ErrInvalidAdmissionNumber
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Student{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	student := domain.Student{
		ID:              s.genID.Generate(),
		AdmissionNumber: admission,
		Name:            name,
		Grade:           strings.TrimSpace(req.Grade),
		Section:         strings.TrimSpace(req.Section),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &student); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Student{}, domain.ErrDuplicateAdmission
		}
		return domain.Student{}, err
	}

	return student, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Student, error) {
	studentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || studentID == 0 {
		return domain.Student{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, studentID)
	if err != nil {
		return domain.Student{}, err
	}
	if item == nil {
		return domain.Student{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]domain.Student, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[snowflake.ID]domain.Student, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out[item.ID] = *item
	}
	return out, nil
}
