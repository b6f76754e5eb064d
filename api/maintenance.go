package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/citywheel/scooterfleet/coordinator"
	"github.com/citywheel/scooterfleet/internal/middleware"
)

func (a *API) maintenanceListHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	if !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Admin access required"})
		return
	}

	scooters, err := a.sc.GetNeedingService(c)
	if err != nil {
		logger.Error("failed to list scooters needing service", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]scooterResponse, 0, len(scooters))
	for _, s := range scooters {
		responses = append(responses, toScooterResponse(s))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) fixScooterHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	if !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Admin access required"})
		return
	}

	scooterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid scooter id"})
		return
	}

	if err := a.coord.FixScooter(c, scooterID); err != nil {
		switch {
		case errors.Is(err, coordinator.ErrScooterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "SCOOTER_NOT_FOUND", "message": "Scooter not found"})
		case scooterUnreachable(err):
			logger.Error("scooter did not confirm service check", "scooter_id", scooterID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"code": "SCOOTER_UNREACHABLE", "message": err.Error()})
		default:
			logger.Error("failed to fix scooter", "scooter_id", scooterID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": "scooter back in service"})
}
