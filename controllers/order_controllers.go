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

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// statusFor memetakan error domain ke kode HTTP. Semua validasi lokal
// sinkron; controller hanya merender hasilnya.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrMenuNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrItemUnavailable),
		errors.Is(err, models.ErrOrderLocked),
		errors.Is(err, models.ErrEmptyOrder),
		errors.Is(err, models.ErrNegativeQuantity),
		errors.Is(err, models.ErrChannelMismatch),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrPinRequired), errors.Is(err, models.ErrPinInvalid):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("order_id tidak valid"))
		return 0, false
	}
	return id, true
}

// CreateOrder -> buat order draft baru
func (oc *OrderController) CreateOrder(c *gin.Context) {
	type ReqBody struct {
		Channel models.OrderChannel `json:"channel" binding:"required"`
		TableID *uint               `json:"table_id"`
		IsAc    bool                `json:"is_ac"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.CreateOrder(body.Channel, body.TableID, body.IsAc)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created (draft)", order)
}

// ListOrders -> order aktif, atau history dengan ?history=1
func (oc *OrderController) ListOrders(c *gin.Context) {
	if c.Query("history") == "1" {
		orders, err := oc.Orders.ListHistory()
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondJSON(c, http.StatusOK, "Order history", orders)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active orders", oc.Orders.ListActive())
}

// GetOrderByID -> detail 1 order beserta lines dan bill snapshot
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(id)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// SetLine -> set quantity satu menu (0 = hapus line)
func (oc *OrderController) SetLine(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	type ReqBody struct {
		MenuID   uint   `json:"menu_id" binding:"required"`
		Quantity int    `json:"quantity"`
		Notes    string `json:"notes"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.SetLine(id, body.MenuID, body.Quantity, body.Notes)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Line updated", order)
}

// RemoveLine -> hapus line menu dari bucket "new"
func (oc *OrderController) RemoveLine(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	menuID, err := strconv.ParseUint(c.Param("menu_id"), 10, 32)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("menu_id tidak valid"))
		return
	}

	order, svcErr := oc.Orders.RemoveLine(id, uint(menuID))
	if svcErr != nil {
		utils.RespondError(c, statusFor(svcErr), svcErr)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Line removed", order)
}

// PlaceOrder -> draft ke placed, CreateOrder masuk antrian sync
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.Place(id)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order placed", order)
}

// SendKot -> kirim batch pertama ke dapur
func (oc *OrderController) SendKot(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.SendKot(id)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "KOT queued", order)
}

// ReopenOrder -> buka order untuk item tambahan
func (oc *OrderController) ReopenOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.Reopen(id)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order reopened", order)
}

// ConfirmUpdate -> tutup sesi edit, delta ke dapur
func (oc *OrderController) ConfirmUpdate(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := oc.Orders.ConfirmUpdate(id)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Update confirmed", order)
}

// BillOrder -> hitung tagihan final dan kunci order
func (oc *OrderController) BillOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	type ReqBody struct {
		Discount   models.Discount `json:"discount"`
		ManagerPIN string          `json:"manager_pin"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.BillOrder(id, body.Discount, body.ManagerPIN)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order billed", order)
}

// PayOrder -> catat pembayaran, RecordPayment masuk antrian sync
func (oc *OrderController) PayOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	type ReqBody struct {
		Method       string       `json:"method" binding:"required"`
		CashReceived models.Money `json:"cash_received"`
	}
	var body ReqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Pay(id, body.Method, body.CashReceived)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment recorded", order)
}

// CancelOrder -> batalkan order (sebelum paid)
func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	type ReqBody struct {
		Reason string `json:"reason"`
	}
	var body ReqBody
	_ = c.ShouldBindJSON(&body)

	order, err := oc.Orders.Cancel(id, body.Reason)
	if err != nil {
		utils.RespondError(c, statusFor(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}
