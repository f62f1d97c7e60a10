package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/model"
	"communityhub/notify"
	"communityhub/validators"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := cache.Fetch(r.Context(), s.cache, cache.EventsKey(), s.api.Events)
	if err != nil {
		s.fetchError(w, r, "Could not load events", cache.EventsKey(), err)
		return
	}
	s.ok(w, "", events)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	event, err := cache.Fetch(r.Context(), s.cache, cache.EventKey(id), func(ctx context.Context) (model.Event, error) {
		return s.api.Event(ctx, id)
	})
	if err != nil {
		s.fetchError(w, r, "Could not load event", cache.EventKey(id), err)
		return
	}
	s.ok(w, id, event)
}

// parseEventForm reads the organizer form. Malformed numbers and dates are
// reported per field, like the validation errors.
func parseEventForm(r *http.Request) (model.NewEvent, error) {
	var errs validators.ValidationErrors
	e := model.NewEvent{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Location:    r.FormValue("location"),
		Currency:    r.FormValue("currency"),
	}
	parseTime := func(field string) time.Time {
		v := r.FormValue(field)
		if v == "" {
			return time.Time{}
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			errs = append(errs, validators.FieldError{Field: field, Message: "must be an RFC 3339 time"})
		}
		return t
	}
	e.StartsAt = parseTime("startsAt")
	e.EndsAt = parseTime("endsAt")
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, validators.FieldError{Field: "price", Message: "must be a number"})
		}
		e.Price = price
	}
	if v := r.FormValue("ticketsTotal"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, validators.FieldError{Field: "ticketsTotal", Message: "must be a whole number"})
		}
		e.TicketsTotal = n
	}
	if len(errs) > 0 {
		return e, errs
	}
	return e, validators.ValidateEvent(e)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		writeJSON(w, http.StatusBadRequest, model.Failure("client", "form", "bad multipart form"))
		return
	}
	e, err := parseEventForm(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	var cover *api.Cover
	if file, header, err := r.FormFile("cover"); err == nil {
		defer file.Close()
		cover = &api.Cover{FileName: header.Filename, Data: file}
	}
	created, err := s.api.CreateEvent(r.Context(), e, cover)
	if err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Could not create event", cache.EventsKey().String(), err))
		s.fail(w, err)
		return
	}
	if err := cache.Set(s.cache, cache.EventKey(created.ID), created); err != nil {
		s.log.Warn("cache new event", zap.Error(err))
	}
	s.invalidate(r.Context(), cache.EventsKey())
	s.ok(w, created.ID, created)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="event-%s-attendees.csv"`, id))
	n, err := s.api.ExportAttendeesCSV(r.Context(), id, w)
	if err == nil {
		return
	}
	if n > 0 {
		// part of the CSV is already on the wire
		s.log.Error("export attendees", zap.String("event", id), zap.Int64("written", n), zap.Error(err))
		return
	}
	// headers are only committed once the first byte is copied
	w.Header().Del("Content-Disposition")
	s.fetchError(w, r, "Could not export attendees", cache.EventKey(id), err)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := cache.Fetch(r.Context(), s.cache, cache.ListingsKey(), s.api.Listings)
	if err != nil {
		s.fetchError(w, r, "Could not load marketplace", cache.ListingsKey(), err)
		return
	}
	s.ok(w, "", listings)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	listing, err := cache.Fetch(r.Context(), s.cache, cache.ListingKey(id), func(ctx context.Context) (model.Listing, error) {
		return s.api.Listing(ctx, id)
	})
	if err != nil {
		s.fetchError(w, r, "Could not load listing", cache.ListingKey(id), err)
		return
	}
	s.ok(w, id, listing)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var nl model.NewListing
	if err := decodeBody(r, &nl); err != nil {
		s.fail(w, err)
		return
	}
	if err := validators.ValidateListing(nl); err != nil {
		s.fail(w, err)
		return
	}
	listing, err := s.api.CreateListing(r.Context(), nl)
	if err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Could not publish listing", cache.ListingsKey().String(), err))
		s.fail(w, err)
		return
	}
	s.invalidate(r.Context(), cache.ListingsKey())
	s.ok(w, listing.ID, listing)
}

func (s *Server) handleDeleteListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.api.DeleteListing(r.Context(), id); err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Could not delete listing", cache.ListingKey(id).String(), err))
		s.fail(w, err)
		return
	}
	if err := s.cache.Remove(cache.ListingKey(id)); err != nil {
		s.log.Warn("evict listing", zap.Error(err))
	}
	s.invalidate(r.Context(), cache.ListingsKey())
	s.ok(w, id, nil)
}

func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var order model.TicketOrder
	if err := decodeBody(r, &order); err != nil {
		s.fail(w, err)
		return
	}
	if err := validators.ValidateTicketOrder(order); err != nil {
		s.fail(w, err)
		return
	}
	event, err := cache.Fetch(r.Context(), s.cache, cache.EventKey(order.EventID), func(ctx context.Context) (model.Event, error) {
		return s.api.Event(ctx, order.EventID)
	})
	if err != nil {
		s.fetchError(w, r, "Could not load event", cache.EventKey(order.EventID), err)
		return
	}
	if err := validators.ValidateTicketAvailability(event, order); err != nil {
		s.fail(w, err)
		return
	}
	intent, err := s.api.CreatePaymentIntent(r.Context(), order)
	if err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Could not start checkout", cache.EventKey(order.EventID).String(), err))
		s.fail(w, err)
		return
	}
	s.ok(w, intent.ID, intent)
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentIntentID string `json:"paymentIntentId"`
		EventID         string `json:"eventId"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	conf, err := s.api.ConfirmPayment(r.Context(), body.PaymentIntentID)
	if err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Payment failed", "", err))
		s.fail(w, err)
		return
	}
	// ticket counts changed upstream
	if body.EventID != "" {
		s.invalidate(r.Context(), cache.EventKey(body.EventID), cache.EventsKey())
	}
	s.notifier.Notify(r.Context(), notify.Success("Payment received", "", "your tickets are confirmed"))
	s.ok(w, conf.PaymentIntentID, conf)
}

func (s *Server) invalidate(ctx context.Context, keys ...cache.Key) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Error("invalidate", zap.Error(err))
	}
}
