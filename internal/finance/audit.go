package finance

import (
	"context"
	"errors"

	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/models"
)

// AuditSink accepts structured records of financial data access.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// LogAuditSink writes access records to the structured log.
type LogAuditSink struct {
	logger *logging.StandardLogger
}

func NewLogAuditSink(logger *logging.StandardLogger) *LogAuditSink {
	return &LogAuditSink{logger: logger}
}

func (s *LogAuditSink) Record(_ context.Context, entry models.AuditEntry) error {
	s.logger.LogDataAccess(entry.ProjectID, entry.Operation, string(entry.Source), entry.Purpose, entry.Success)
	return nil
}

// MultiAuditSink fans a record out to every sink and joins their errors.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) Record(ctx context.Context, entry models.AuditEntry) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recordAudit never fails the caller; sink errors are logged.
func recordAudit(ctx context.Context, sink AuditSink, logger *logging.StandardLogger, entry models.AuditEntry) {
	if sink == nil {
		return
	}
	if err := sink.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.WithProject(entry.ProjectID).Error("Failed to record financial access",
			"operation", entry.Operation,
			"error", err.Error(),
		)
	}
}
