package directory

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCustomerPayload(t *testing.T) {
	t.Parallel()

	juan := domain.Customer{
		InternalID:      "1001",
		Identifier:      "30.123.456",
		FirstName:       "Juan",
		LastName:        "Pérez",
		FinancingAmount: 150000,
		MonthsPastDue:   0,
		Email:           domain.NoEmail,
	}

	allShapes := []payloadShape{shapeObject, shapeList, shapeEnvelope}
	identShapes := []payloadShape{shapeObject, shapeList}

	cases := []struct {
		name     string
		data     string
		accepted []payloadShape
		expected []domain.Customer
		err      error
	}{
		{
			name:     "single object",
			data:     `{"cliente_id": 1001, "cliente_dnicuit": "30.123.456", "cliente_nombre": "Juan", "cliente_apellido": "Pérez", "clienteScoringFinanciable": 150000, "cliente_meses_atraso": 0}`,
			accepted: identShapes,
			expected: []domain.Customer{juan},
		},
		{
			name:     "list",
			data:     `[{"cliente_id": "1001", "cliente_dnicuit": "30.123.456", "cliente_nombre": "Juan", "cliente_apellido": "Pérez", "clienteScoringFinanciable": "150000", "cliente_meses_atraso": "0"}]`,
			accepted: identShapes,
			expected: []domain.Customer{juan},
		},
		{
			name:     "envelope",
			data:     `{"data": [{"id": 1001, "cliente_dnicuit": "30.123.456", "cliente_nombre": "Juan", "cliente_apellido": "Pérez", "clienteScoringFinanciable": 150000.0, "cliente_meses_atraso": null}]}`,
			accepted: allShapes,
			expected: []domain.Customer{juan},
		},
		{
			name:     "envelope is rejected by the ident strategy",
			data:     `{"data": [{"cliente_dnicuit": "30123456"}]}`,
			accepted: identShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "object with non-list data is an object",
			data:     `{"data": {"cliente_dnicuit": "30123456"}, "cliente_dnicuit": "27111222"}`,
			accepted: allShapes,
			expected: []domain.Customer{{Identifier: "27111222", Email: domain.NoEmail}},
		},
		{
			name:     "empty list",
			data:     `[]`,
			accepted: allShapes,
			expected: []domain.Customer{},
		},
		{
			name:     "empty envelope",
			data:     ` {"data": []} `,
			accepted: allShapes,
			expected: []domain.Customer{},
		},
		{
			name:     "numeric identifier and unparseable numbers",
			data:     `[{"cliente_dnicuit": 20301234567, "clienteScoringFinanciable": "a lot", "cliente_meses_atraso": "two"}]`,
			accepted: allShapes,
			expected: []domain.Customer{{Identifier: "20301234567", Email: domain.NoEmail}},
		},
		{
			name:     "fractional months past due are truncated",
			data:     `{"cliente_dnicuit": "30123456", "clienteScoringFinanciable": "99.5", "cliente_meses_atraso": 2.7}`,
			accepted: allShapes,
			expected: []domain.Customer{{Identifier: "30123456", FinancingAmount: 99.5, MonthsPastDue: 2, Email: domain.NoEmail}},
		},
		{
			name:     "months past due as a decimal string",
			data:     `{"cliente_dnicuit": "30123456", "cliente_meses_atraso": "2.0"}`,
			accepted: allShapes,
			expected: []domain.Customer{{Identifier: "30123456", MonthsPastDue: 2, Email: domain.NoEmail}},
		},
		{
			name:     "huge months past due saturate",
			data:     `[{"cliente_dnicuit": "30123456", "cliente_meses_atraso": 1e12}, {"cliente_dnicuit": "30123457", "cliente_meses_atraso": "9999999999"}]`,
			accepted: allShapes,
			expected: []domain.Customer{
				{Identifier: "30123456", MonthsPastDue: math.MaxInt32, Email: domain.NoEmail},
				{Identifier: "30123457", MonthsPastDue: math.MaxInt32, Email: domain.NoEmail},
			},
		},
		{
			name:     "missing fields",
			data:     `{}`,
			accepted: allShapes,
			expected: []domain.Customer{{Email: domain.NoEmail}},
		},
		{
			name:     "list of non-objects",
			data:     `[1, 2, 3]`,
			accepted: allShapes,
			err:      assert.AnError,
		},
		{
			name:     "string",
			data:     `"30123456"`,
			accepted: allShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "number",
			data:     `30123456`,
			accepted: allShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "null",
			data:     `null`,
			accepted: allShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "empty body",
			data:     ``,
			accepted: allShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "html error page",
			data:     `<html><body>Bad gateway</body></html>`,
			accepted: allShapes,
			err:      errUnsupportedShape,
		},
		{
			name:     "truncated json",
			data:     `{"cliente_dnicuit": "3012`,
			accepted: allShapes,
			err:      assert.AnError,
		},
		{
			name:     "truncated list",
			data:     `[{"cliente_dnicuit": "3012`,
			accepted: allShapes,
			err:      assert.AnError,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			wireCustomers, err := decodeCustomerPayload([]byte(c.data), c.accepted...)
			if c.err != nil {
				if c.err == assert.AnError {
					require.Error(t, err)
				} else {
					require.ErrorIs(t, err, c.err)
				}
				return
			}
			require.NoError(t, err)

			customers := make([]domain.Customer, 0, len(wireCustomers))
			for _, wireCustomer := range wireCustomers {
				customers = append(customers, wireCustomer.toDomain())
			}
			require.Equal(t, c.expected, customers)
		})
	}
}

func TestDecodeCustomerPayloadRejectsUnacceptedShape(t *testing.T) {
	t.Parallel()

	_, err := decodeCustomerPayload([]byte(`[]`), shapeObject)
	require.ErrorIs(t, err, errUnsupportedShape)

	_, err = decodeCustomerPayload([]byte(`{"data": []}`), shapeList)
	require.ErrorIs(t, err, errUnsupportedShape)

	_, err = decodeCustomerPayload([]byte(`{}`), shapeList, shapeEnvelope)
	require.ErrorIs(t, err, errUnsupportedShape)
}

func TestEmailFromDetailPayload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		data     string
		expected string
		err      bool
	}{
		{
			name:     "bare",
			data:     `{"cliente_id": 1001, "cliente_emails": [{"cliente_mail_mail": "juan@example.com"}, {"cliente_mail_mail": "other@example.com"}]}`,
			expected: "juan@example.com",
		},
		{
			name:     "wrapped",
			data:     `{"data": {"cliente_emails": [{"cliente_mail_mail": "juan@example.com"}]}}`,
			expected: "juan@example.com",
		},
		{
			name:     "first email empty",
			data:     `{"cliente_emails": [{"cliente_mail_mail": ""}, {"cliente_mail_mail": "second@example.com"}]}`,
			expected: "second@example.com",
		},
		{
			name:     "no emails",
			data:     `{"cliente_emails": []}`,
			expected: "",
		},
		{
			name:     "no email field",
			data:     `{"cliente_id": 1001}`,
			expected: "",
		},
		{
			name:     "null email",
			data:     `{"cliente_emails": [{"cliente_mail_mail": null}]}`,
			expected: "",
		},
		{
			name: "invalid json",
			data: `{"cliente_emails": [`,
			err:  true,
		},
		{
			name: "list",
			data: `[{"cliente_mail_mail": "juan@example.com"}]`,
			err:  true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			email, err := emailFromDetailPayload([]byte(c.data))
			if c.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, email)
		})
	}
}

func TestFlexIntUnmarshal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		data     string
		expected flexInt
	}{
		{`3`, 3},
		{`2.7`, 2},
		{`-1`, -1},
		{`" 4 "`, 4},
		{`"2.0"`, 2},
		{`"two"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`true`, 0},
		{`1e12`, math.MaxInt32},
		{`"9999999999"`, math.MaxInt32},
		{`"1e400"`, math.MaxInt32},
		{`"NaN"`, 0},
		{`-1e12`, math.MinInt32},
	}

	for _, c := range cases {
		t.Run(c.data, func(t *testing.T) {
			t.Parallel()

			value := flexInt(-7)
			require.NoError(t, json.Unmarshal([]byte(c.data), &value))
			require.Equal(t, c.expected, value)
		})
	}
}
