package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/citywheel/scooterfleet/internal/middleware"
	"github.com/citywheel/scooterfleet/scooter"
)

type scooterResponse struct {
	ID           int64   `json:"id"`
	Lat          float64 `json:"latitude"`
	Lng          float64 `json:"longitude"`
	BatteryLevel int     `json:"batteryLevel"`
	Occupied     bool    `json:"occupied"`
	NeedsService bool    `json:"needsService"`
}

func toScooterResponse(s scooter.Scooter) scooterResponse {
	return scooterResponse{
		ID:           s.ID,
		Lat:          s.Location.P.X,
		Lng:          s.Location.P.Y,
		BatteryLevel: s.BatteryLevel,
		Occupied:     s.Occupied,
		NeedsService: s.NeedsService,
	}
}

func (a *API) getScootersHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	scooters, err := a.sc.GetScooters(c)
	if err != nil {
		logger.Error("failed to list scooters", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]scooterResponse, 0, len(scooters))
	for _, s := range scooters {
		responses = append(responses, toScooterResponse(s))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) getScooterHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid scooter id"})
		return
	}

	s, err := a.sc.GetScooter(c, id)
	if err != nil {
		if errors.Is(err, scooter.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "SCOOTER_NOT_FOUND", "message": "Scooter not found"})
			return
		}
		logger.Error("failed to get scooter", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toScooterResponse(s))
}
