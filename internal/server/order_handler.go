package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
	"orderflow/internal/order"
)

// actorFromRequest resolves the requesting actor. Authentication happens
// upstream; the gateway passes the resolved identity in headers.
func (h *Handler) actorFromRequest(c *gin.Context) (order.Actor, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil {
		h.errs.Respond(c, apperrors.NewInvalidRequestError("missing or invalid X-User-ID header"))
		return order.Actor{}, false
	}
	isOperator := c.GetHeader("X-Business-Operator") == "true"

	actor, err := h.orders.ResolveActor(c.Request.Context(), userID, isOperator)
	if err != nil {
		h.errs.Respond(c, err)
		return order.Actor{}, false
	}
	return actor, true
}

func orderIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewInvalidRequestError("order id not parseable")
	}
	return id, nil
}

type createOrderRequest struct {
	BusinessID    int64  `json:"business_id" binding:"required,min=1"`
	UserID        *int64 `json:"user_id"`
	DeliveryType  string `json:"delivery_type" binding:"required"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	Items         []struct {
		ProductID int64  `json:"product_id" binding:"required,min=1"`
		Name      string `json:"name" binding:"required"`
		Quantity  int    `json:"quantity" binding:"required,min=1"`
		UnitPrice int64  `json:"unit_price" binding:"min=0"`
	} `json:"items"`
	CustomItems []struct {
		Description string `json:"description" binding:"required"`
		PhotoURL    string `json:"photo_url"`
		Preference  string `json:"preference"`
	} `json:"custom_items"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Respond(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	draft := order.Draft{
		BusinessID:    req.BusinessID,
		UserID:        req.UserID,
		DeliveryMode:  models.DeliveryMode(req.DeliveryType),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
	}
	for _, it := range req.Items {
		draft.Items = append(draft.Items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	for _, it := range req.CustomItems {
		draft.CustomItems = append(draft.CustomItems, models.CustomOrderLineItem{
			Description: it.Description,
			PhotoURL:    it.PhotoURL,
			Preference:  it.Preference,
		})
	}

	created, err := h.orders.Create(c.Request.Context(), draft)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) getOrder(c *gin.Context) {
	id, err := orderIDParam(c)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	actor, ok := h.actorFromRequest(c)
	if !ok {
		return
	}

	o, err := h.orders.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) transitionOrder(c *gin.Context) {
	id, err := orderIDParam(c)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.Respond(c, apperrors.NewInvalidRequestError("missing or invalid status"))
		return
	}

	actor, ok := h.actorFromRequest(c)
	if !ok {
		return
	}

	updated, err := h.orders.Transition(c.Request.Context(), actor, id, models.Status(req.Status))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
