package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/pos-terminal/utils"
)

// HealthCheck -> liveness probe terminal: proses hidup dan store lokal bisa
// di-ping. Konektivitas ke backend TIDAK ikut dicek; offline adalah kondisi
// normal, bukan unhealthy.
func HealthCheck(c *gin.Context) {
	db := utils.GetDB()
	if db != nil {
		if sqlDB, err := db.DB(); err == nil && sqlDB.Ping() == nil {
			utils.RespondJSON(c, http.StatusOK, "ok", nil)
			return
		}
	}
	utils.RespondError(c, http.StatusServiceUnavailable, errors.New("local store unavailable"))
}
