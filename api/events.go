package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"communityhub/model"
)

// Cover is an optional image attached to a new event.
type Cover struct {
	FileName string
	Data     io.Reader
}

func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := c.do(ctx, http.MethodGet, "/events", nil, &events)
	return events, err
}

func (c *Client) Event(ctx context.Context, id string) (model.Event, error) {
	var event model.Event
	err := c.do(ctx, http.MethodGet, "/events/"+escape(id), nil, &event)
	return event, err
}

// CreateEvent posts the event form as multipart/form-data.
func (c *Client) CreateEvent(ctx context.Context, e model.NewEvent, cover *Cover) (model.Event, error) {
	var created model.Event
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := []struct{ name, value string }{
		{"title", e.Title},
		{"description", e.Description},
		{"location", e.Location},
		{"startsAt", e.StartsAt.UTC().Format(time.RFC3339)},
		{"price", strconv.FormatFloat(e.Price, 'f', 2, 64)},
		{"currency", e.Currency},
		{"ticketsTotal", strconv.Itoa(e.TicketsTotal)},
	}
	if !e.EndsAt.IsZero() {
		fields = append(fields, struct{ name, value string }{"endsAt", e.EndsAt.UTC().Format(time.RFC3339)})
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return created, err
		}
	}
	if cover != nil {
		part, err := w.CreateFormFile("cover", cover.FileName)
		if err != nil {
			return created, err
		}
		if _, err := io.Copy(part, cover.Data); err != nil {
			return created, fmt.Errorf("read cover: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return created, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/events", buf, w.FormDataContentType())
	if err != nil {
		return created, err
	}
	err = c.send(req, &created)
	return created, err
}

// ExportAttendeesCSV streams the organizer's attendee export into dst and
// returns the number of bytes written.
func (c *Client) ExportAttendeesCSV(ctx context.Context, eventID string, dst io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/events/organizer/events/"+escape(eventID)+"/export-csv", nil, "")
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := c.open(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download csv: %w", err)
	}
	return n, nil
}
