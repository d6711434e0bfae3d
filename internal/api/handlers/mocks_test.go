package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/integrity"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockFinanceService is a mock implementation of FinanceService
type MockFinanceService struct {
	mock.Mock
}

func (m *MockFinanceService) GetTimeAwareFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.TimeAwareResult, error) {
	args := m.Called(ctx, projectID, r, funnelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeAwareResult), args.Error(1)
}

func (m *MockFinanceService) GetTimeAwareSummary(ctx context.Context, projectID string, r models.DateRange, funnelID *string) (*models.FinancialSummary, error) {
	args := m.Called(ctx, projectID, r, funnelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FinancialSummary), args.Error(1)
}

func (m *MockFinanceService) GetAISafeFinancials(ctx context.Context, projectID string, r models.DateRange, funnelID *string, purpose string) (*models.AISafeResult, error) {
	args := m.Called(ctx, projectID, r, funnelID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AISafeResult), args.Error(1)
}

func (m *MockFinanceService) Classification(ctx context.Context, projectID string, r models.DateRange) (models.Classification, error) {
	args := m.Called(ctx, projectID, r)
	return args.Get(0).(models.Classification), args.Error(1)
}

func (m *MockFinanceService) GetRevenueTrend(ctx context.Context, projectID string, r models.DateRange, funnelID *string, period int) ([]models.TrendPoint, error) {
	args := m.Called(ctx, projectID, r, funnelID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TrendPoint), args.Error(1)
}

// MockEpochManager is a mock implementation of EpochManager
type MockEpochManager struct {
	mock.Mock
}

func (m *MockEpochManager) GetEpoch(ctx context.Context, projectID string) (finance.Epoch, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).(finance.Epoch), args.Error(1)
}

func (m *MockEpochManager) SetEpoch(ctx context.Context, projectID string, start civil.Date, allowBackward bool) (finance.Epoch, error) {
	args := m.Called(ctx, projectID, start, allowBackward)
	return args.Get(0).(finance.Epoch), args.Error(1)
}

// MockIntegrityReporter is a mock implementation of IntegrityReporter
type MockIntegrityReporter struct {
	mock.Mock
}

func (m *MockIntegrityReporter) BuildReport(ctx context.Context, projectID string) (*integrity.Report, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integrity.Report), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *logging.StandardLogger {
	return logging.NewStandardLoggerWithWriter(io.Discard, "debug", "test")
}

func jan(d int) civil.Date {
	return civil.Date{Year: 2026, Month: 1, Day: d}
}

func rng(start, end civil.Date) models.DateRange {
	return models.DateRange{Start: start, End: end}
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
