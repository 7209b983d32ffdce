package directory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssservicios/s3pay/internal/domain"
)

var errUnsupportedShape = errors.New("unsupported payload shape")

// The JSON shapes the directory is known to answer with
type payloadShape int

const (
	// A single customer object
	shapeObject payloadShape = iota
	// A list of customer objects
	shapeList
	// An object wrapping a list of customers: {"data": [...]}
	shapeEnvelope
)

func (s payloadShape) String() string {
	switch s {
	case shapeObject:
		return "object"
	case shapeList:
		return "list"
	case shapeEnvelope:
		return "envelope"
	}
	return fmt.Sprintf("payloadShape(%d)", int(s))
}

func detectShape(data []byte) (payloadShape, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, fmt.Errorf("%w: empty payload", errUnsupportedShape)
	}

	switch trimmed[0] {
	case '[':
		return shapeList, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return 0, fmt.Errorf("failed to parse payload: %w", err)
		}
		if inner, ok := fields["data"]; ok {
			inner = bytes.TrimSpace(inner)
			if len(inner) > 0 && inner[0] == '[' {
				return shapeEnvelope, nil
			}
		}
		return shapeObject, nil
	}

	return 0, fmt.Errorf("%w: starts with %q", errUnsupportedShape, trimmed[0])
}

// Decode the customers in a payload, accepting only the given shapes
//
// A payload in a shape outside accepted is rejected rather than guessed at.
func decodeCustomerPayload(data []byte, accepted ...payloadShape) ([]ariaCustomer, error) {
	shape, err := detectShape(data)
	if err != nil {
		return nil, err
	}

	isAccepted := false
	for _, acceptedShape := range accepted {
		if shape == acceptedShape {
			isAccepted = true
			break
		}
	}
	if !isAccepted {
		return nil, fmt.Errorf("%w: %s", errUnsupportedShape, shape)
	}

	switch shape {
	case shapeObject:
		var customer ariaCustomer
		if err := json.Unmarshal(data, &customer); err != nil {
			return nil, fmt.Errorf("failed to parse customer object: %w", err)
		}
		return []ariaCustomer{customer}, nil
	case shapeList:
		var customers []ariaCustomer
		if err := json.Unmarshal(data, &customers); err != nil {
			return nil, fmt.Errorf("failed to parse customer list: %w", err)
		}
		return customers, nil
	case shapeEnvelope:
		var envelope struct {
			Data []ariaCustomer `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse customer envelope: %w", err)
		}
		return envelope.Data, nil
	}

	return nil, fmt.Errorf("%w: %s", errUnsupportedShape, shape)
}

type ariaCustomer struct {
	ID              flexString `json:"cliente_id"`
	FallbackID      flexString `json:"id"`
	Identifier      flexString `json:"cliente_dnicuit"`
	FirstName       flexString `json:"cliente_nombre"`
	LastName        flexString `json:"cliente_apellido"`
	FinancingAmount flexFloat  `json:"clienteScoringFinanciable"`
	MonthsPastDue   flexInt    `json:"cliente_meses_atraso"`
}

func (c ariaCustomer) toDomain() domain.Customer {
	internalID := string(c.ID)
	if internalID == "" {
		internalID = string(c.FallbackID)
	}

	return domain.Customer{
		InternalID:      internalID,
		Identifier:      string(c.Identifier),
		FirstName:       string(c.FirstName),
		LastName:        string(c.LastName),
		FinancingAmount: float64(c.FinancingAmount),
		MonthsPastDue:   int(c.MonthsPastDue),
		Email:           domain.NoEmail,
	}
}

// A string that may be sent as a string, a number or null
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	switch v := value.(type) {
	case string:
		*s = flexString(strings.TrimSpace(v))
	case float64:
		*s = flexString(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		*s = ""
	}
	return nil
}

// A number that may be sent as a number, a numeric string or null. Anything unparseable is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*f = 0
	switch v := value.(type) {
	case float64:
		*f = flexFloat(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			*f = flexFloat(parsed)
		}
	}
	return nil
}

// An integer that may be sent as a number, a numeric string or null. Anything unparseable is 0.
//
// Fractions are truncated and out of range values saturate, so a large count never reads as 0.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	*i = 0
	switch v := value.(type) {
	case float64:
		*i = saturatingInt(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			*i = saturatingInt(parsed)
		}
	}
	return nil
}

func saturatingInt(v float64) flexInt {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return flexInt(int(v))
}

type ariaCustomerDetail struct {
	Emails []struct {
		Email flexString `json:"cliente_mail_mail"`
	} `json:"cliente_emails"`
}

// Returns the first email of a customer detail payload, or "" when there is none
//
// The detail may be sent bare or wrapped as {"data": {...}}.
func emailFromDetailPayload(data []byte) (string, error) {
	var wrapped struct {
		Data *ariaCustomerDetail `json:"data"`
		ariaCustomerDetail
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return "", fmt.Errorf("failed to parse customer detail: %w", err)
	}

	detail := wrapped.ariaCustomerDetail
	if wrapped.Data != nil && len(detail.Emails) == 0 {
		detail = *wrapped.Data
	}

	for _, email := range detail.Emails {
		if domain.HasEmail(string(email.Email)) {
			return string(email.Email), nil
		}
	}
	return "", nil
}
