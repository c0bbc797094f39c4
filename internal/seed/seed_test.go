package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	studentrepo "github.com/smallbiznis/bursar/internal/student/repository"
	studentsvc "github.com/smallbiznis/bursar/internal/student/service"
	"github.com/smallbiznis/bursar/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDemoStudents_Idempotent(t *testing.T) {
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	students := studentsvc.New(studentsvc.Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: studentrepo.Provide()})

	created, err := EnsureDemoStudents(context.Background(), students)
	require.NoError(t, err)
	assert.Equal(t, len(DemoStudents), created)

	created, err = EnsureDemoStudents(context.Background(), students)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	require.NoError(t, conn.Raw(`SELECT COUNT(*) FROM students`).Scan(&count).Error)
	assert.Equal(t, int64(len(DemoStudents)), count)
}

func TestEnsureDemoStudents_RequiresService(t *testing.T) {
	_, err := EnsureDemoStudents(context.Background(), nil)
	assert.Error(t, err)
}
