package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/funnel-finance-go/internal/database"
	"github.com/irfndi/funnel-finance-go/internal/finance"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/irfndi/funnel-finance-go/internal/middleware"
	"github.com/irfndi/funnel-finance-go/internal/utils"
)

// respondError maps err to a status code and JSON body. Store failures never
// carry partial data.
func respondError(c *gin.Context, logger *logging.StandardLogger, err error) {
	var fetchErr *database.FetchError
	switch {
	case utils.IsValidationError(err),
		errors.Is(err, finance.ErrInvalidRange),
		errors.Is(err, finance.ErrInvalidProject):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr):
		middleware.RecordError(c, err, "financial data unavailable")
		logger.WithComponent("api").Error("Financial data unavailable",
			"path", c.FullPath(),
			"source", fetchErr.Source,
			"page", fetchErr.Page,
			"error", err.Error(),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "data_unavailable",
			"error":  "Financial data could not be read",
		})
	case errors.Is(err, finance.ErrConfigurationMissing):
		middleware.RecordError(c, err, "financial configuration missing")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "configuration_missing",
			"error":  err.Error(),
		})
	case errors.Is(err, finance.ErrEpochBackward),
		errors.Is(err, finance.ErrEpochLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		middleware.RecordError(c, err, "internal error")
		logger.WithComponent("api").Error("Request failed", "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
