package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/pos-terminal/models"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

type SyncController struct {
	Queue  *services.MutationQueue
	Orders *services.OrderService
	Gate   *services.ManualGate
	Engine *services.SyncEngine
}

func NewSyncController(queue *services.MutationQueue, orders *services.OrderService, gate *services.ManualGate, engine *services.SyncEngine) *SyncController {
	return &SyncController{Queue: queue, Orders: orders, Gate: gate, Engine: engine}
}

// GetStatus -> status bar terminal: konektivitas + isi antrian + drain
// terakhir
func (sc *SyncController) GetStatus(c *gin.Context) {
	counts, err := sc.Queue.Counts()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	status := gin.H{
		"online": sc.Gate.Online(),
		"queue":  counts,
	}
	if sc.Engine != nil {
		if last := sc.Engine.LastDrainAt(); !last.IsZero() {
			status["last_drain_at"] = last
		}
	}
	utils.RespondJSON(c, http.StatusOK, "Sync status", status)
}

// ListMutations -> isi antrian, opsional filter ?state=
func (sc *SyncController) ListMutations(c *gin.Context) {
	var states []models.SyncState
	if s := c.Query("state"); s != "" {
		states = append(states, models.SyncState(s))
	}
	mutations, err := sc.Queue.List(states...)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Mutations", mutations)
}

func sequenceNo(c *gin.Context) (int64, bool) {
	seq, err := strconv.ParseInt(c.Param("sequence_no"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("sequence_no tidak valid"))
		return 0, false
	}
	return seq, true
}

// RetryMutation -> kembalikan mutation rejected ke antrian
func (sc *SyncController) RetryMutation(c *gin.Context) {
	seq, ok := sequenceNo(c)
	if !ok {
		return
	}
	if err := sc.Orders.RetryRejected(seq); err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Mutation requeued", nil)
}

// DiscardMutation -> buang mutation rejected
func (sc *SyncController) DiscardMutation(c *gin.Context) {
	seq, ok := sequenceNo(c)
	if !ok {
		return
	}
	if err := sc.Orders.DiscardRejected(seq); err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Mutation discarded", nil)
}

// SetConnectivity -> probe platform / toggle manual men-set gate
func (sc *SyncController) SetConnectivity(c *gin.Context) {
	type ReqBody struct {
		Online bool `json:"online"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	sc.Gate.Set(body.Online)
	utils.RespondJSON(c, http.StatusOK, "Connectivity updated", gin.H{"online": body.Online})
}
