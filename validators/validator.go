package validators

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"communityhub/model"
)

const (
	maxCommentLength = 2000
	maxPostLength    = 5000
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{4,8}$`)
)

var ErrHashMismatch = errors.New("hash not matched")

// FieldError is a form-level error shown next to the offending field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for field, if any.
func (v ValidationErrors) Field(name string) (string, bool) {
	for _, fe := range v {
		if fe.Field == name {
			return fe.Message, true
		}
	}
	return "", false
}

func (v *ValidationErrors) add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

func (v ValidationErrors) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func isBlank(s string) bool {
	return len(strings.Trim(s, " \t\r\n")) == 0
}

func ValidateOTPRequest(req model.OTPRequest) error {
	var errs ValidationErrors
	if isBlank(req.Email) && isBlank(req.Phone) {
		errs.add("email", "email or phone is required")
		return errs.err()
	}
	if !isBlank(req.Email) {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			errs.add("email", "email is invalid")
		}
	}
	if !isBlank(req.Phone) && !phonePattern.MatchString(req.Phone) {
		errs.add("phone", "phone must be 7 to 15 digits")
	}
	return errs.err()
}

func ValidateOTPVerify(req model.OTPVerify) error {
	errs, _ := ValidateOTPRequest(model.OTPRequest{Email: req.Email, Phone: req.Phone}).(ValidationErrors)
	if !otpPattern.MatchString(req.Code) {
		errs.add("code", "code must be 4 to 8 digits")
	}
	return errs.err()
}

func ValidateComment(content string) error {
	var errs ValidationErrors
	switch {
	case isBlank(content):
		errs.add("content", "comment is empty")
	case utf8.RuneCountInString(content) > maxCommentLength:
		errs.add("content", "comment is too long")
	}
	return errs.err()
}

func ValidatePost(post model.NewPost) error {
	var errs ValidationErrors
	if isBlank(post.Content) && len(post.MediaURLs) == 0 {
		errs.add("content", "post needs content or media")
	}
	if utf8.RuneCountInString(post.Content) > maxPostLength {
		errs.add("content", "post is too long")
	}
	return errs.err()
}

func ValidateEvent(event model.NewEvent) error {
	var errs ValidationErrors
	if isBlank(event.Title) {
		errs.add("title", "title is empty")
	}
	if event.StartsAt.IsZero() {
		errs.add("startsAt", "start time is required")
	} else if !event.EndsAt.IsZero() && !event.StartsAt.Before(event.EndsAt) {
		errs.add("endsAt", "event must end after it starts")
	}
	if !finite(event.Price) {
		errs.add("price", "price must be a number")
	} else if event.Price < 0 {
		errs.add("price", "price cannot be negative")
	}
	if event.TicketsTotal < 1 {
		errs.add("ticketsTotal", "at least one ticket is required")
	}
	return errs.err()
}

func ValidateListing(listing model.NewListing) error {
	var errs ValidationErrors
	if isBlank(listing.Title) {
		errs.add("title", "title is empty")
	}
	if !finite(listing.Price) || listing.Price <= 0 {
		errs.add("price", "price must be positive")
	}
	if isBlank(listing.Category) {
		errs.add("category", "category is empty")
	}
	return errs.err()
}

func ValidateTicketOrder(order model.TicketOrder) error {
	var errs ValidationErrors
	if isBlank(order.EventID) {
		errs.add("eventId", "event is required")
	}
	if order.Quantity < 1 {
		errs.add("quantity", "quantity must be at least 1")
	}
	return errs.err()
}

// ValidateTicketAvailability checks an order against the event it is for.
func ValidateTicketAvailability(event model.Event, order model.TicketOrder) error {
	var errs ValidationErrors
	if event.IsFree() {
		errs.add("eventId", "free events need no checkout")
	} else if left := event.TicketsLeft(); order.Quantity > left {
		errs.add("quantity", fmt.Sprintf("only %d tickets left", left))
	}
	return errs.err()
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateData checks data against a hex sha256 digest.
func ValidateData(data []byte, hash string) error {
	hashBytes := sha256.Sum256(data)
	computedHash := hex.EncodeToString(hashBytes[:])
	if !strings.EqualFold(computedHash, hash) {
		return ErrHashMismatch
	}
	return nil
}
