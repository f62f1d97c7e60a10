package model

import "time"

type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	TicketsTotal int       `json:"ticketsTotal"`
	TicketsSold  int       `json:"ticketsSold"`
	OrganizerID  string    `json:"organizerId"`
	CoverURL     string    `json:"coverUrl,omitempty"`
}

func (e Event) TicketsLeft() int {
	left := e.TicketsTotal - e.TicketsSold
	if left < 0 {
		return 0
	}
	return left
}

func (e Event) IsFree() bool {
	return e.Price == 0
}

// NewEvent is the form submitted as multipart to POST /events.
type NewEvent struct {
	Title        string
	Description  string
	Location     string
	StartsAt     time.Time
	EndsAt       time.Time
	Price        float64
	Currency     string
	TicketsTotal int
}

type TicketOrder struct {
	EventID  string `json:"eventId"`
	Quantity int    `json:"quantity"`
}

type PaymentIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

type PaymentConfirmation struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}
