package controllers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/pos-terminal/utils"
)

type DeviceController struct {
	DeviceID string
}

func NewDeviceController(deviceID string) *DeviceController {
	return &DeviceController{DeviceID: deviceID}
}

// Pair -> UI terminal menukar pairing key dengan device token untuk API
// lokal. Pairing key datang dari provisioning, bukan dari user.
func (dc *DeviceController) Pair(c *gin.Context) {
	pairingKey := os.Getenv("PAIRING_KEY")
	if pairingKey == "" || c.GetHeader("X-Pairing-Key") != pairingKey {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("pairing key tidak valid"))
		return
	}

	token, err := utils.GenerateDeviceToken(dc.DeviceID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Device paired", gin.H{
		"device_id": dc.DeviceID,
		"token":     token,
	})
}
