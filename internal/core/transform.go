package core

// transform.go derives CRM records from raw order documents.
//
// Coercions degrade instead of failing the record: a close date that will
// not parse becomes today, a non-numeric rate becomes 0.0. Both
// degradations are logged at Warn.

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const closeDateLayout = "2006-01-02"

// Transformer turns order documents into CRM records. It is a pure
// function of its input plus the configured placeholders; the only side
// effect is logging.
type Transformer struct {
	// CustomerPlaceholder substitutes for a missing customer name.
	CustomerPlaceholder string

	// ShipmentPlaceholder substitutes for a missing shipment id in the
	// derived record name (never in the external id).
	ShipmentPlaceholder string

	// DateFallback enables the fallback-to-today policy for unparsable
	// close dates. When disabled such documents fail the transform.
	DateFallback bool

	// Now is the clock used for the date fallback. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// NewTransformer builds a Transformer with the given placeholders and
// fallback policy.
func NewTransformer(customerPlaceholder, shipmentPlaceholder string, dateFallback bool) *Transformer {
	return &Transformer{
		CustomerPlaceholder: customerPlaceholder,
		ShipmentPlaceholder: shipmentPlaceholder,
		DateFallback:        dateFallback,
	}
}

func (t *Transformer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Transformer) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// Transform derives an Opportunity from an order document.
//
// A nil document is malformed and yields a TransformError; the caller
// skips it. A document without a shipmentid yields a record with an
// empty external id: eligibility is the caller's check, not this
// function's.
func (t *Transformer) Transform(doc OrderDocument) (*Opportunity, error) {
	if doc == nil {
		return nil, &TransformError{Reason: "document is not a structured record"}
	}

	edi := doc.Sub("edi")
	externalID := doc.Str("shipmentid")

	customer := doc.Str("customer")
	if customer == "" {
		customer = t.CustomerPlaceholder
	}
	shipment := externalID
	if shipment == "" {
		shipment = t.ShipmentPlaceholder
	}

	closeDate, err := t.formatDate(doc["date"], externalID)
	if err != nil {
		return nil, err
	}

	status := MapStatus(doc.Str("status"))

	return &Opportunity{
		ExternalID:     externalID,
		Name:           customer + " - " + shipment,
		TrackingNumber: doc.Str("shipment_id"),
		CloseDate:      closeDate,
		Amount:         t.safeFloat(edi["flat_rate"], externalID, "edi.flat_rate"),
		Advances:       t.safeFloat(edi["advances"], externalID, "edi.advances"),
		Stage:          status.Stage,
		DeliveryStatus: status.Delivery,
		OrderNumber:    doc.Str("load_number"),
		Office:         doc.Str("office"),
		OrderType:      doc.Str("order_type"),
		Weight:         edi.Str("weight"),
		Description:    doc.Str("description"),
	}, nil
}

// AccountFields derives the Account for an order's customer. A missing
// or blank customer maps to the configured placeholder so the account
// external id can never be empty.
func (t *Transformer) AccountFields(doc OrderDocument) Account {
	customer := strings.TrimSpace(doc.Str("customer"))
	if customer == "" {
		customer = t.CustomerPlaceholder
	}
	return Account{
		Name:      customer,
		StateCode: doc.Sub("edi").Str("stop1_st"),
	}
}

// formatDate normalizes the stored close date to YYYY-MM-DD.
// Stored date/time values format directly; strings must parse as
// YYYY-MM-DD. Anything else falls back to today when the policy allows.
func (t *Transformer) formatDate(v any, shipmentID string) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(closeDateLayout), nil
	case primitive.DateTime:
		return d.Time().Format(closeDateLayout), nil
	}

	s := strings.TrimSpace(stringifyOrEmpty(v))
	if s != "" {
		if parsed, err := time.Parse(closeDateLayout, s); err == nil {
			return parsed.Format(closeDateLayout), nil
		}
	}

	if !t.DateFallback {
		return "", &TransformError{ShipmentID: shipmentID, Reason: "unparsable close date " + strconv.Quote(s)}
	}

	today := t.now().Format(closeDateLayout)
	t.logger().Warn("close date unparsable, falling back to today",
		"shipmentid", shipmentID, "raw", s, "close_date", today)
	return today, nil
}

// safeFloat coerces a numeric-like value to float64. Coercion failure
// yields 0.0 and a Warn log entry, never an error.
func (t *Transformer) safeFloat(v any, shipmentID, field string) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case primitive.Decimal128:
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	case nil:
		return 0.0
	}

	t.logger().Warn("numeric coercion failed, defaulting to 0.0",
		"shipmentid", shipmentID, "field", field, "raw", v)
	return 0.0
}

// stringifyOrEmpty renders a value as a string, "" for nil.
func stringifyOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	return stringify(v)
}
