package order

import (
	"context"
	"fmt"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/common/logger"
	"orderflow/internal/common/metrics"
	"orderflow/internal/models"
	"orderflow/internal/notification"
)

// Dispatcher is the notification fan-out collaborator. Its outcomes are
// observability only; a transition's success never depends on them.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notification.Message) map[notification.Channel]notification.Outcome
}

// Service drives order lifecycle operations: creation, reads, and status
// transitions with their derived notifications.
type Service struct {
	store      *Store
	dispatcher Dispatcher
	log        logger.Logger
}

func NewService(store *Store, dispatcher Dispatcher, log logger.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		log:        log.WithFields(map[string]interface{}{"component": "order-service"}),
	}
}

// ResolveActor loads the business ownership set for a requesting user.
func (s *Service) ResolveActor(ctx context.Context, userID int64, isOperator bool) (Actor, error) {
	actor := Actor{UserID: userID, IsBusinessOperator: isOperator}
	if isOperator {
		ids, err := s.store.OwnedBusinessIDs(ctx, userID)
		if err != nil {
			return Actor{}, err
		}
		actor.BusinessIDs = ids
	}
	return actor, nil
}

// Create places a new order and alerts the owning business. The order
// commit is authoritative; the alert is best-effort.
func (s *Service) Create(ctx context.Context, draft Draft) (*models.Order, error) {
	if !draft.DeliveryMode.Valid() {
		return nil, apperrors.NewInvalidRequestError(fmt.Sprintf("unknown delivery mode: %q", draft.DeliveryMode))
	}
	business, err := s.store.GetBusiness(ctx, draft.BusinessID)
	if err != nil {
		return nil, err
	}

	o, err := s.store.CreateOrder(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, notification.ComposeNewOrder(o, business))
	return o, nil
}

// Get loads an order for an actor holding read access.
func (s *Service) Get(ctx context.Context, actor Actor, orderID int64) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeRead(actor, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Transition applies a requested status to an order. The commit happens
// first and alone decides success; notification fan-out follows as a
// side effect and cannot fail the call. Re-submitting the current status is
// a no-op that composes nothing.
func (s *Service) Transition(ctx context.Context, actor Actor, orderID int64, requested models.Status) (*models.Order, error) {
	o, err := s.transition(ctx, actor, orderID, requested)
	if err != nil {
		metrics.OrderTransitionsRejected.WithLabelValues(string(apperrors.AsStandard(err).Code)).Inc()
	}
	return o, err
}

func (s *Service) transition(ctx context.Context, actor Actor, orderID int64, requested models.Status) (*models.Order, error) {
	if !requested.Valid() {
		return nil, apperrors.NewInvalidStateError(fmt.Sprintf("unknown status: %q", requested))
	}

	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	business, err := s.store.GetBusiness(ctx, o.BusinessID)
	if err != nil {
		return nil, err
	}

	cancelling := requested == models.StatusCancelled
	if cancelling {
		err = AuthorizeCancel(actor, o)
	} else {
		err = AuthorizeTransition(actor, o)
	}
	if err != nil {
		return nil, err
	}

	if requested == o.Status {
		// No-op re-submission: unchanged order, zero notifications.
		return o, nil
	}

	if cancelling {
		if !Cancellable(o.Status) {
			return nil, apperrors.NewOrderCompleteError(string(o.Status))
		}
	} else {
		next, ok, err := NextStatus(o.Status, o.DeliveryMode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewOrderCompleteError(string(o.Status))
		}
		if requested != next {
			return nil, apperrors.NewInvalidStateError(
				fmt.Sprintf("cannot transition from %q to %q, next is %q", o.Status, requested, next))
		}
	}

	updated, prev, err := s.store.SetStatus(ctx, orderID, requested)
	if err != nil {
		return nil, err
	}
	metrics.OrderTransitionsApplied.WithLabelValues(string(updated.Status)).Inc()
	s.log.Info("order transitioned", map[string]interface{}{
		"orderId":  updated.ID,
		"previous": string(prev),
		"status":   string(updated.Status),
	})

	// The commit above already happened; everything past this point is
	// best-effort delivery about a fact that is already true.
	if msg, ok := notification.Compose(updated, business, prev, updated.Status); ok {
		s.dispatcher.Dispatch(ctx, msg)
	}

	return updated, nil
}
