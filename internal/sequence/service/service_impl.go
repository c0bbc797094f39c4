package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/bursar/internal/observability/metrics"
	"github.com/smallbiznis/bursar/internal/sequence/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("sequence.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Next(ctx context.Context, counter domain.Counter) (int64, error) {
	name := strings.TrimSpace(counter.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}

	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if err := s.repo.Ensure(ctx, tx, name, now); err != nil {
			return err
		}

		floor, err := s.floor(ctx, tx, counter)
		if err != nil {
			return err
		}

		current, err := s.repo.FindByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if current != nil && current.Value < floor {
			s.log.Warn("sequence behind existing values, healing",
				zap.String("sequence", name),
				zap.Int64("value", current.Value),
				zap.Int64("floor", floor),
			)
			s.metrics.RecordSequenceHeal()
		}

		value, err = s.repo.Advance(ctx, tx, name, floor, now)
		return err
	})
	if err != nil {
		return 0, err
	}

	return value, nil
}

func (s *Service) Heal(ctx context.Context, counter domain.Counter) (bool, error) {
	name := strings.TrimSpace(counter.Name)
	if name == "" {
		return false, domain.ErrInvalidName
	}

	var healed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if err := s.repo.Ensure(ctx, tx, name, now); err != nil {
			return err
		}

		floor, err := s.floor(ctx, tx, counter)
		if err != nil {
			return err
		}

		healed, err = s.repo.Raise(ctx, tx, name, floor, now)
		return err
	})
	if err != nil {
		return false, err
	}

	if healed {
		s.metrics.RecordSequenceHeal()
		s.log.Info("sequence healed", zap.String("sequence", name))
	}
	return healed, nil
}

func (s *Service) Current(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}

	seq, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return 0, err
	}
	if seq == nil {
		return 0, nil
	}
	return seq.Value, nil
}

func (s *Service) floor(ctx context.Context, tx *gorm.DB, counter domain.Counter) (int64, error) {
	if counter.Floor == nil {
		return 0, nil
	}
	floor, err := counter.Floor(ctx, tx)
	if err != nil {
		return 0, err
	}
	if floor < 0 {
		return 0, nil
	}
	return floor, nil
}
