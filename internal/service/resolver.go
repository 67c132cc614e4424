package service

import (
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Resolver turns a checkout request into priced line items against a catalog snapshot
type Resolver struct {
	ticketCap int
	logger    *zap.Logger
}

// NewResolver creates a resolver. A ticketCap of zero disables the per-order cap.
func NewResolver(ticketCap int) *Resolver {
	return &Resolver{
		ticketCap: ticketCap,
		logger:    util.GetLogger(),
	}
}

// ResolveTrip prices a single trip for a number of guests
func (r *Resolver) ResolveTrip(trip *models.Trip, guests int) ([]models.LineItem, error) {
	if trip == nil {
		return nil, models.NewValidationError("tripId", "trip does not exist")
	}
	if guests < 1 {
		return nil, models.NewValidationError("guests", "must be at least 1")
	}
	if trip.Price.IsNegative() {
		return nil, fmt.Errorf("trip %d has a negative price", trip.ID)
	}

	return []models.LineItem{{
		UnitPrice:   trip.Price,
		Quantity:    guests,
		Label:       trip.Name,
		ReferenceID: trip.ID,
	}}, nil
}

// ResolveEvent prices ticket selections against the event's ticket types. Unknown ticket
// types are dropped, the rest must add up to at least one ticket and at most the cap.
func (r *Resolver) ResolveEvent(event *models.Event, selections []models.TicketSelection) ([]models.LineItem, error) {
	if event == nil {
		return nil, models.NewValidationError("eventId", "event does not exist")
	}
	if len(selections) == 0 {
		return nil, models.NewValidationError("tickets", "select at least one ticket")
	}

	quantities := make(map[int64]int, len(selections))
	order := make([]int64, 0, len(selections))
	for i, sel := range selections {
		if sel.Quantity < 1 {
			return nil, models.NewValidationError(fmt.Sprintf("tickets[%d].quantity", i), "must be at least 1")
		}
		if _, seen := quantities[sel.TicketTypeID]; !seen {
			order = append(order, sel.TicketTypeID)
		}
		quantities[sel.TicketTypeID] += sel.Quantity
	}

	ticketTypes := make(map[int64]models.TicketType, len(event.TicketTypes))
	for _, tt := range event.TicketTypes {
		ticketTypes[tt.ID] = tt
	}

	items := make([]models.LineItem, 0, len(order))
	total := 0
	for _, id := range order {
		tt, ok := ticketTypes[id]
		if !ok {
			util.LineItemsDroppedTotal.Inc()
			r.logger.Warn("Dropping selection for unknown ticket type",
				zap.Int64("event_id", event.ID),
				zap.Int64("ticket_type_id", id),
				zap.Int("quantity", quantities[id]))
			continue
		}

		items = append(items, models.LineItem{
			UnitPrice:   tt.Price,
			Quantity:    quantities[id],
			Label:       tt.Name,
			ReferenceID: tt.ID,
		})
		total += quantities[id]
	}

	if total == 0 {
		return nil, models.NewValidationError("tickets", "none of the selected tickets are available")
	}
	if r.ticketCap > 0 && total > r.ticketCap {
		return nil, models.NewValidationError("tickets", fmt.Sprintf("at most %d tickets per order", r.ticketCap))
	}

	return items, nil
}
