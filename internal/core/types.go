// Package core implements the order-to-Salesforce synchronization core:
// the field mapping and transformation layer, the idempotent account
// resolution protocol, and the per-record upsert pipeline.
// This package has no transport dependencies and can be driven by any
// document source and CRM client that satisfy its interfaces.
package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/freightops/ordersync/internal/salesforce"
)

// OrderDocument is a schema-less order record as read from the source
// collection. Field presence is never guaranteed; every accessor degrades
// to a zero value.
type OrderDocument map[string]any

// Str returns the string form of a field, "" when absent or nil.
// Non-string values (numbers, object ids) are stringified, matching the
// loose typing of the source collection.
func (d OrderDocument) Str(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	return stringify(v)
}

// Sub returns a nested sub-document, or an empty one when the field is
// absent or not an object.
func (d OrderDocument) Sub(key string) OrderDocument {
	switch v := d[key].(type) {
	case OrderDocument:
		return v
	case bson.M:
		return OrderDocument(v)
	case map[string]any:
		return OrderDocument(v)
	default:
		return OrderDocument{}
	}
}

// stringify renders a dynamically typed BSON value as a string.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Opportunity is a fully derived CRM Opportunity record, keyed by the
// shipment id as external id.
type Opportunity struct {
	ExternalID     string
	Name           string
	TrackingNumber string
	CloseDate      string
	Amount         float64
	Advances       float64
	Stage          string
	DeliveryStatus string
	OrderNumber    string
	Office         string
	OrderType      string
	Weight         string
	Description    string
	AccountID      string
}

// Eligible reports whether the record carries the external id required
// for an idempotent upsert. Ineligible records must never reach the sink.
func (o *Opportunity) Eligible() bool {
	return o != nil && o.ExternalID != ""
}

// Body builds the API payload. The external id is absent: it travels in
// the upsert key path, not the body. AccountId is only
// included once account resolution has linked the record.
func (o *Opportunity) Body() map[string]any {
	body := map[string]any{
		"Name":                          o.Name,
		"TrackingNumber__c":             o.TrackingNumber,
		"CloseDate":                     o.CloseDate,
		"Amount":                        o.Amount,
		"Advances__c":                   o.Advances,
		"StageName":                     o.Stage,
		"DeliveryInstallationStatus__c": o.DeliveryStatus,
		"OrderNumber__c":                o.OrderNumber,
		"Office__c":                     o.Office,
		"Order_Type__c":                 o.OrderType,
		"Weight__c":                     o.Weight,
		"Description":                   o.Description,
	}
	if o.AccountID != "" {
		body["AccountId"] = o.AccountID
	}
	return body
}

// Account is the CRM Account derived from an order's customer fields,
// keyed by the trimmed customer name as external id.
type Account struct {
	Name      string
	StateCode string
}

// ExternalID returns the account's upsert key.
func (a Account) ExternalID() string {
	return strings.TrimSpace(a.Name)
}

// Body builds the API payload. BillingState is only set when the source
// two-letter code maps to a known full state name; a raw unmapped code is
// never written.
func (a Account) Body() map[string]any {
	body := map[string]any{
		"Name":           a.Name,
		"BillingCountry": "United States",
	}
	if name, ok := StateName(a.StateCode); ok {
		body["BillingState"] = name
	}
	return body
}

// CRM is the subset of the Salesforce client the core depends on.
// Satisfied by *salesforce.Client.
type CRM interface {
	Upsert(ctx context.Context, object, externalIDField, externalID string, body map[string]any) (salesforce.UpsertResult, error)
	Query(ctx context.Context, soql string) (salesforce.QueryResult, error)
}

// OrderCursor is a forward-only scan over the order collection.
// Satisfied by *mongo.Cursor.
type OrderCursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// Source yields one restartable full-collection scan per call.
type Source interface {
	Orders(ctx context.Context) (OrderCursor, error)
}
