package validators

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"communityhub/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOTPRequest(t *testing.T) {
	tests := []struct {
		name  string
		req   model.OTPRequest
		field string
	}{
		{"email only", model.OTPRequest{Email: "a@b.co"}, ""},
		{"phone only", model.OTPRequest{Phone: "+15551234567"}, ""},
		{"neither", model.OTPRequest{}, "email"},
		{"bad email", model.OTPRequest{Email: "nope"}, "email"},
		{"bad phone", model.OTPRequest{Phone: "12ab"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOTPRequest(tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			_, ok := verrs.Field(tt.field)
			assert.True(t, ok, "expected error on %s, got %v", tt.field, verrs)
		})
	}
}

func TestValidateOTPVerify(t *testing.T) {
	assert.NoError(t, ValidateOTPVerify(model.OTPVerify{Email: "a@b.co", Code: "123456"}))

	err := ValidateOTPVerify(model.OTPVerify{Code: "12"})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	_, hasEmail := verrs.Field("email")
	_, hasCode := verrs.Field("code")
	assert.True(t, hasEmail)
	assert.True(t, hasCode)
}

func TestValidateComment(t *testing.T) {
	assert.NoError(t, ValidateComment("nice post"))
	assert.Error(t, ValidateComment("   "))
	assert.Error(t, ValidateComment(strings.Repeat("x", maxCommentLength+1)))
}

func TestValidatePost(t *testing.T) {
	assert.NoError(t, ValidatePost(model.NewPost{Content: "hello"}))
	assert.NoError(t, ValidatePost(model.NewPost{MediaURLs: []string{"https://cdn/x.png"}}))
	assert.Error(t, ValidatePost(model.NewPost{}))
}

func TestValidateEvent(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	ok := model.NewEvent{Title: "Meetup", StartsAt: start, EndsAt: start.Add(2 * time.Hour), TicketsTotal: 10}
	assert.NoError(t, ValidateEvent(ok))

	bad := model.NewEvent{StartsAt: start, EndsAt: start.Add(-time.Hour), Price: -1}
	var verrs ValidationErrors
	require.True(t, errors.As(ValidateEvent(bad), &verrs))
	for _, field := range []string{"title", "endsAt", "price", "ticketsTotal"} {
		_, found := verrs.Field(field)
		assert.True(t, found, field)
	}
}

func TestValidateEvent_NonFinitePrice(t *testing.T) {
	start := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		e := model.NewEvent{Title: "Meetup", StartsAt: start, TicketsTotal: 10, Price: price}
		var verrs ValidationErrors
		require.True(t, errors.As(ValidateEvent(e), &verrs), "%v", price)
		_, found := verrs.Field("price")
		assert.True(t, found, "%v", price)
	}
	assert.Error(t, ValidateListing(model.NewListing{Title: "Bike", Price: math.NaN(), Category: "sports"}))
}

func TestValidateListing(t *testing.T) {
	assert.NoError(t, ValidateListing(model.NewListing{Title: "Bike", Price: 120, Category: "sports"}))
	assert.Error(t, ValidateListing(model.NewListing{Title: "Bike", Category: "sports"}))
}

func TestValidateTicketOrder(t *testing.T) {
	assert.NoError(t, ValidateTicketOrder(model.TicketOrder{EventID: "e1", Quantity: 2}))
	assert.Error(t, ValidateTicketOrder(model.TicketOrder{EventID: "e1"}))
}

func TestValidateTicketAvailability(t *testing.T) {
	event := model.Event{ID: "e1", Price: 15, TicketsTotal: 10, TicketsSold: 8}
	assert.NoError(t, ValidateTicketAvailability(event, model.TicketOrder{EventID: "e1", Quantity: 2}))

	var verrs ValidationErrors
	require.True(t, errors.As(ValidateTicketAvailability(event, model.TicketOrder{EventID: "e1", Quantity: 3}), &verrs))
	msg, found := verrs.Field("quantity")
	assert.True(t, found)
	assert.Equal(t, "only 2 tickets left", msg)

	event.TicketsSold = 12
	assert.Error(t, ValidateTicketAvailability(event, model.TicketOrder{EventID: "e1", Quantity: 1}))

	free := model.Event{ID: "e2", TicketsTotal: 10}
	require.True(t, errors.As(ValidateTicketAvailability(free, model.TicketOrder{EventID: "e2", Quantity: 1}), &verrs))
	_, found = verrs.Field("eventId")
	assert.True(t, found)
}

func TestValidateData(t *testing.T) {
	data := []byte("image-bytes")
	sum := sha256.Sum256(data)

	assert.NoError(t, ValidateData(data, hex.EncodeToString(sum[:])))
	assert.ErrorIs(t, ValidateData(data, "deadbeef"), ErrHashMismatch)
}
