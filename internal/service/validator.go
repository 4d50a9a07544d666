package service

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"fitstudio/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// ValidateEntry checks a raw booking entry and, when it is clean, returns the
// typed request. The checks short-circuit so a rejected entry carries exactly
// one actionable reason (except the presence gate, which names every absent
// field at once).
func ValidateEntry(entry models.Entry) (*models.BookingRequest, []string) {
	var errs []string
	if len(entry.ClassID) == 0 {
		errs = append(errs, "Missing required field class_id")
	}
	if len(entry.ClientName) == 0 {
		errs = append(errs, "Missing required field client_name")
	}
	if len(entry.ClientEmail) == 0 {
		errs = append(errs, "Missing required field client_email")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	classID, ok := intFromRaw(entry.ClassID)
	if !ok {
		return nil, []string{"class_id must be an integer"}
	}

	clientName, ok := stringFromRaw(entry.ClientName)
	if !ok || strings.TrimSpace(clientName) == "" {
		return nil, []string{"client_name must be a non-empty string"}
	}

	clientEmail, ok := stringFromRaw(entry.ClientEmail)
	if !ok || strings.TrimSpace(clientEmail) == "" {
		return nil, []string{"client_email must be a non-empty string"}
	}
	if !emailRegex.MatchString(clientEmail) {
		return nil, []string{"Invalid email format"}
	}

	return &models.BookingRequest{
		ClassID:     classID,
		ClientName:  clientName,
		ClientEmail: clientEmail,
	}, nil
}

// intFromRaw accepts only JSON integers: "3" the string and 3.5 the float both fail.
func intFromRaw(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return 0, false
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stringFromRaw(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ValidEmail reports whether an email matches the booking email pattern.
// The bookings lookup applies the same rule before touching the ledger.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}
