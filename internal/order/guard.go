package order

import (
	"fmt"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

// Actor is the resolved identity of the requester. Identity resolution is an
// upstream concern; the guard only decides ownership.
type Actor struct {
	UserID             int64
	IsBusinessOperator bool
	BusinessIDs        []int64
}

// OwnsBusiness reports whether the actor operates the given business.
func (a Actor) OwnsBusiness(businessID int64) bool {
	if !a.IsBusinessOperator {
		return false
	}
	for _, id := range a.BusinessIDs {
		if id == businessID {
			return true
		}
	}
	return false
}

// placedBy reports whether the actor is the customer who placed the order.
func placedBy(a Actor, o *models.Order) bool {
	return o.UserID != nil && *o.UserID == a.UserID
}

// AuthorizeTransition decides whether the actor may apply a forward
// transition to the order. Only the owner of the order's business may drive
// forward transitions. The returned error is masked (presented as 404) for
// actors with no relationship to the order, and a plain 403 for the order's
// own customer, who already knows the order exists.
func AuthorizeTransition(actor Actor, o *models.Order) error {
	if actor.OwnsBusiness(o.BusinessID) {
		return nil
	}
	masked := !placedBy(actor, o)
	return apperrors.NewAuthorizationError(
		fmt.Sprintf("user %d does not own business %d", actor.UserID, o.BusinessID), masked)
}

// AuthorizeCancel decides whether the actor may cancel the order. The
// business owner may cancel any non-terminal order; the placing customer has
// a narrower right limited to their own pending orders.
func AuthorizeCancel(actor Actor, o *models.Order) error {
	if actor.OwnsBusiness(o.BusinessID) {
		return nil
	}
	if placedBy(actor, o) {
		if o.Status == models.StatusPending {
			return nil
		}
		return apperrors.NewAuthorizationError(
			fmt.Sprintf("customer may only cancel pending orders, status is %q", o.Status), false)
	}
	return apperrors.NewAuthorizationError(
		fmt.Sprintf("user %d has no claim on order %d", actor.UserID, o.ID), true)
}

// AuthorizeRead grants the implicit read right: the business owner and the
// placing customer may load the order.
func AuthorizeRead(actor Actor, o *models.Order) error {
	if actor.OwnsBusiness(o.BusinessID) || placedBy(actor, o) {
		return nil
	}
	return apperrors.NewAuthorizationError(
		fmt.Sprintf("user %d has no claim on order %d", actor.UserID, o.ID), true)
}
