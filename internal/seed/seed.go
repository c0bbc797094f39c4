package seed

import (
	"context"
	"errors"

	"github.com/smallbiznis/bursar/internal/config"
	"github.com/smallbiznis/bursar/internal/migration"
	studentdomain "github.com/smallbiznis/bursar/internal/student/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Invoke(registerSeed),
)

// DemoStudents are created when SEED_DEMO_DATA is set outside production.
var DemoStudents = []studentdomain.CreateStudentRequest{
	{AdmissionNumber: "DEMO-001", Name: "Asha Rao", Grade: "5", Section: "A"},
	{AdmissionNumber: "DEMO-002", Name: "Ravi Kumar", Grade: "7", Section: "B"},
	{AdmissionNumber: "DEMO-003", Name: "Meera Singh", Grade: "10", Section: "A"},
}

func registerSeed(lc fx.Lifecycle, cfg config.Config, _ migration.Applied, students studentdomain.Service, log *zap.Logger) {
	if !cfg.SeedDemoData || cfg.IsProduction() {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			created, err := EnsureDemoStudents(ctx, students)
			if err != nil {
				return err
			}
			log.Info("demo students seeded", zap.Int("created", created))
			return nil
		},
	})
}

// EnsureDemoStudents creates the demo students that do not exist yet and
// returns how many were created.
func EnsureDemoStudents(ctx context.Context, students studentdomain.Service) (int, error) {
	if students == nil {
		return 0, errors.New("seed student service is required")
	}

	created := 0
	for _, req := range DemoStudents {
		_, err := students.Create(ctx, req)
		if errors.Is(err, studentdomain.ErrDuplicateAdmission) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
