package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/integrity"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func epochRouter(epochs EpochManager) *gin.Engine {
	h := NewEpochHandler(epochs, testLogger())
	router := newRouter()
	router.GET("/projects/:project_id/epoch", h.GetEpoch)
	router.PUT("/projects/:project_id/epoch", h.UpdateEpoch)
	return router
}

func TestEpochHandler_GetEpoch(t *testing.T) {
	epochs := &MockEpochManager{}
	epochs.On("GetEpoch", mock.Anything, "proj-1").Return(finance.Epoch{ProjectID: "proj-1", Start: jan(12)}, nil)

	w := serve(epochRouter(epochs), http.MethodGet, "/projects/proj-1/epoch", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"project_id":"proj-1","financial_core_start_date":"2026-01-12"}`, w.Body.String())
}

func TestEpochHandler_UpdateEpoch(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(m *MockEpochManager)
		status   int
		contains string
	}{
		{
			name: "forward move",
			body: `{"financial_core_start_date":"2026-01-20"}`,
			setup: func(m *MockEpochManager) {
				m.On("SetEpoch", mock.Anything, "proj-1", jan(20), false).Return(finance.Epoch{ProjectID: "proj-1", Start: jan(20)}, nil)
			},
			status:   http.StatusOK,
			contains: `"financial_core_start_date":"2026-01-20"`,
		},
		{
			name: "backward with override",
			body: `{"financial_core_start_date":"2026-01-02","allow_backward":true}`,
			setup: func(m *MockEpochManager) {
				m.On("SetEpoch", mock.Anything, "proj-1", jan(2), true).Return(finance.Epoch{ProjectID: "proj-1", Start: jan(2)}, nil)
			},
			status:   http.StatusOK,
			contains: "2026-01-02",
		},
		{
			name: "backward refused",
			body: `{"financial_core_start_date":"2026-01-02"}`,
			setup: func(m *MockEpochManager) {
				m.On("SetEpoch", mock.Anything, "proj-1", jan(2), false).
					Return(finance.Epoch{}, fmt.Errorf("%w: 2026-01-02 is before 2026-01-12", finance.ErrEpochBackward))
			},
			status:   http.StatusConflict,
			contains: "cannot move backward",
		},
		{
			name: "lock busy",
			body: `{"financial_core_start_date":"2026-01-20"}`,
			setup: func(m *MockEpochManager) {
				m.On("SetEpoch", mock.Anything, "proj-1", jan(20), false).
					Return(finance.Epoch{}, fmt.Errorf("%w: not obtained", finance.ErrEpochLocked))
			},
			status:   http.StatusConflict,
			contains: "in progress",
		},
		{
			name:     "missing date",
			body:     `{"allow_backward":true}`,
			setup:    func(m *MockEpochManager) {},
			status:   http.StatusBadRequest,
			contains: "Invalid request body",
		},
		{
			name:     "malformed date",
			body:     `{"financial_core_start_date":"20/01/2026"}`,
			setup:    func(m *MockEpochManager) {},
			status:   http.StatusBadRequest,
			contains: "financial_core_start_date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			epochs := &MockEpochManager{}
			tt.setup(epochs)

			w := serve(epochRouter(epochs), http.MethodPut, "/projects/proj-1/epoch", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
			epochs.AssertExpectations(t)
		})
	}
}

func TestIntegrityHandler_GetReport(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		reports := &MockIntegrityReporter{}
		report := integrity.Analyze([]integrity.Funnel{{ID: "f1", ProjectID: "proj-1"}}, nil)
		report.ProjectID = "proj-1"
		reports.On("BuildReport", mock.Anything, "proj-1").Return(report, nil)

		router := newRouter()
		router.GET("/projects/:project_id/integrity", NewIntegrityHandler(reports, testLogger()).GetReport)

		w := serve(router, http.MethodGet, "/projects/proj-1/integrity", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"funnels_without_offers":1`)
		assert.Contains(t, w.Body.String(), "remediation")
	})

	t.Run("failure", func(t *testing.T) {
		reports := &MockIntegrityReporter{}
		reports.On("BuildReport", mock.Anything, "proj-1").Return(nil, errors.New("boom"))

		router := newRouter()
		router.GET("/projects/:project_id/integrity", NewIntegrityHandler(reports, testLogger()).GetReport)

		w := serve(router, http.MethodGet, "/projects/proj-1/integrity", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestEpochHandler_UpdateEpoch_LogsActingUser(t *testing.T) {
	epochs := &MockEpochManager{}
	epochs.On("SetEpoch", mock.Anything, "proj-1", jan(20), false).Return(finance.Epoch{ProjectID: "proj-1", Start: jan(20)}, nil)

	var logs bytes.Buffer
	h := NewEpochHandler(epochs, logging.NewStandardLoggerWithWriter(&logs, "debug", "test"))
	router := newRouter()
	router.PUT("/projects/:project_id/epoch", func(c *gin.Context) {
		c.Set("user_id", "user-42")
		c.Next()
	}, h.UpdateEpoch)

	w := serve(router, http.MethodPut, "/projects/proj-1/epoch", `{"financial_core_start_date":"2026-01-20"}`)
	require.Equal(t, http.StatusOK, w.Code)

	out := logs.String()
	assert.Contains(t, out, "Financial core start date updated")
	assert.Contains(t, out, `"user_id":"user-42"`)
	assert.Contains(t, out, `"project_id":"proj-1"`)
	epochs.AssertExpectations(t)
}
