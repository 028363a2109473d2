package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dqengine/adapters/frame"
	"dqengine/domain/anomaly"
	"dqengine/domain/core"
	"dqengine/domain/validation"
	"dqengine/internal"
	apperrors "dqengine/internal/errors"
	"dqengine/internal/suite"
	"dqengine/ports"
)

// Mock implementations for testing
type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Save(ctx context.Context, record *ports.CheckRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReportRepository) ListByTable(ctx context.Context, tableName string, limit int) ([]ports.CheckRecord, error) {
	args := m.Called(ctx, tableName, limit)
	return args.Get(0).([]ports.CheckRecord), args.Error(1)
}

type MockDatasetLoader struct {
	mock.Mock
}

func (m *MockDatasetLoader) LoadDataset(ctx context.Context, source string) (ports.Dataset, error) {
	args := m.Called(ctx, source)
	ds, _ := args.Get(0).(ports.Dataset)
	return ds, args.Error(1)
}

const ordersSuite = `
name: orders_daily
table: orders
tier1:
  required: [order_id, amount]
  non_negative: [amount]
tier3:
  - type: spike
    column: amount
rules:
  - name: order_id_unique
    type: unique
    columns: [order_id]
    severity: critical
  - name: amount_not_null
    type: not_null
    column: amount
`

func compiledSuite(t *testing.T) *suite.Compiled {
	t.Helper()
	s, err := suite.Parse([]byte(ordersSuite))
	require.NoError(t, err)
	compiled, err := suite.Compile(s, suite.CompileOptions{Logger: internal.NewNopLogger()})
	require.NoError(t, err)
	return compiled
}

func cleanOrders() *frame.Frame {
	return frame.MustNew(
		frame.Col("order_id", "A1", "A2", "A3"),
		frame.Col("amount", 10, 20, 30),
	)
}

func dirtyOrders() *frame.Frame {
	return frame.MustNew(
		frame.Col("order_id", "A1", "A1", "A3"),
		frame.Col("amount", 10, -20, nil),
	)
}

func TestCheckCleanSnapshot(t *testing.T) {
	repo := new(MockReportRepository)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(r *ports.CheckRecord) bool {
		return r.TableName == "orders" && r.Passed && r.Anomalies != nil && r.Validation != nil
	})).Return(nil)

	svc := NewQualityService(repo, GatePolicy{FailOnCritical: true}, internal.NewNopLogger())

	result, err := svc.Check(context.Background(), CheckRequest{Suite: compiledSuite(t), Current: cleanOrders()})
	require.NoError(t, err)

	assert.False(t, result.RunID == "")
	assert.False(t, result.SuiteHash.IsEmpty())
	assert.Equal(t, "orders_daily", result.Suite)
	assert.Equal(t, 100.0, result.HealthScore)
	assert.Equal(t, 1.0, result.QualityScore)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Violations)
	assert.Nil(t, result.RejectedCells)
	repo.AssertExpectations(t)
}

func TestCheckReportsUnreadableCells(t *testing.T) {
	current := cleanOrders()
	current.SetRejected("amount", 2)

	result, err := NewQualityService(nil, GatePolicy{}, nil).Check(context.Background(), CheckRequest{Suite: compiledSuite(t), Current: current})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"amount": 2}, result.RejectedCells)
	assert.Equal(t, map[string]int{"amount": 2}, result.Document().Rejected)
}

func TestCheckDirtySnapshotFailsGate(t *testing.T) {
	svc := NewQualityService(nil, GatePolicy{FailOnCritical: true, MinHealthScore: 90}, nil)

	result, err := svc.Check(context.Background(), CheckRequest{
		Suite:   compiledSuite(t),
		Current: dirtyOrders(),
		RunID:   core.RunID("run-7"),
	})
	require.NoError(t, err)

	assert.Equal(t, core.RunID("run-7"), result.RunID)
	assert.False(t, result.Passed)
	// 1 null in a required column (critical, 1/3 > 10%) and 1 negative amount (high)
	assert.Equal(t, 35.0, result.HealthScore)
	assert.Equal(t, 1, result.Validation.CriticalFailures)
	assert.Equal(t, []string{
		"1 critical anomalies",
		"1 critical rule failures",
		"health score 35 below minimum 90",
	}, result.Violations)

	err = Gate(result, svc.Policy())
	require.Error(t, err)
	assert.True(t, apperrors.IsDataQualityError(err))
	assert.Contains(t, err.Error(), "data quality gate failed for orders")
}

func TestCheckPersistenceFailureIsNotFatal(t *testing.T) {
	repo := new(MockReportRepository)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc := NewQualityService(repo, GatePolicy{}, nil)
	result, err := svc.Check(context.Background(), CheckRequest{Suite: compiledSuite(t), Current: cleanOrders()})
	require.NoError(t, err)
	assert.NotNil(t, result)
	repo.AssertExpectations(t)
}

func TestCheckRequiresInputs(t *testing.T) {
	svc := NewQualityService(nil, GatePolicy{}, nil)

	_, err := svc.Check(context.Background(), CheckRequest{Current: cleanOrders()})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Check(context.Background(), CheckRequest{Suite: compiledSuite(t)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestCheckCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewQualityService(nil, GatePolicy{}, nil).Check(ctx, CheckRequest{Suite: compiledSuite(t), Current: cleanOrders()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeCanceled))
}

func TestLoadAndCheckWithHistory(t *testing.T) {
	historical := frame.MustNew(
		frame.Col("order_id", "H1"),
		frame.Col("amount", 10),
	)

	loader := new(MockDatasetLoader)
	loader.On("LoadDataset", mock.Anything, "today.csv").Return(cleanOrders(), nil)
	loader.On("LoadDataset", mock.Anything, "yesterday.csv").Return(historical, nil)

	svc := NewQualityService(nil, GatePolicy{}, nil)
	result, err := svc.LoadAndCheck(context.Background(), loader, compiledSuite(t), "today.csv", "yesterday.csv")
	require.NoError(t, err)

	// 60 vs 10 is a +500% spike
	require.Equal(t, 1, result.Anomalies.AnomaliesByType[anomaly.TypeVolatility])
	for _, a := range result.Anomalies.Anomalies {
		if a.Type == anomaly.TypeVolatility {
			assert.Equal(t, "amount", a.Column)
		}
	}
	loader.AssertExpectations(t)
}

func TestLoadAndCheckWithoutHistory(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("LoadDataset", mock.Anything, "today.csv").Return(cleanOrders(), nil)

	result, err := NewQualityService(nil, GatePolicy{}, nil).LoadAndCheck(context.Background(), loader, compiledSuite(t), "today.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Anomalies.TotalAnomalies)
	loader.AssertNumberOfCalls(t, "LoadDataset", 1)
}

func TestLoadAndCheckLoaderError(t *testing.T) {
	loader := new(MockDatasetLoader)
	loader.On("LoadDataset", mock.Anything, "missing.csv").Return(nil, apperrors.NotFound("data file missing.csv"))

	_, err := NewQualityService(nil, GatePolicy{}, nil).LoadAndCheck(context.Background(), loader, compiledSuite(t), "missing.csv", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestHistory(t *testing.T) {
	_, err := NewQualityService(nil, GatePolicy{}, nil).History(context.Background(), "orders", 5)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	repo := new(MockReportRepository)
	repo.On("ListByTable", mock.Anything, "orders", 5).Return([]ports.CheckRecord{{TableName: "orders"}}, nil)

	records, err := NewQualityService(repo, GatePolicy{}, nil).History(context.Background(), "orders", 5)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGatePolicyQualityScore(t *testing.T) {
	result := &CheckResult{
		Table:        "orders",
		HealthScore:  100,
		QualityScore: 0.8,
		Validation:   &validation.Report{},
	}

	assert.NoError(t, Gate(result, GatePolicy{MinQualityScore: 0.8}))

	err := Gate(result, GatePolicy{MinQualityScore: 0.9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality score 80.00% below minimum 90.00%")
}

func TestCheckResultDocument(t *testing.T) {
	svc := NewQualityService(nil, GatePolicy{FailOnCritical: true}, nil)
	result, err := svc.Check(context.Background(), CheckRequest{Suite: compiledSuite(t), Current: dirtyOrders()})
	require.NoError(t, err)

	doc := result.Document()
	assert.Equal(t, result.RunID.String(), doc.RunID)
	assert.Equal(t, result.Violations, doc.Violations)
	assert.Same(t, result.Anomalies, doc.Anomalies)
}
