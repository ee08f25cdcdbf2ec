package core

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testTransformer returns a transformer with a fixed clock so the date
// fallback is deterministic.
func testTransformer() *Transformer {
	t := NewTransformer("Unknown", "No ID", true)
	t.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return t
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		wantStage    string
		wantDelivery string
	}{
		{"new", "new", "Prospecting", "Pending"},
		{"process", "process", "Qualification", "In Progress"},
		{"sent", "sent", "Proposal/Price Quote", "Scheduled"},
		{"finished", "finished", "Closed Won", "Completed"},
		{"returned", "returned", "Closed Lost", "Cancelled"},
		{"uppercase", "FINISHED", "Closed Won", "Completed"},
		{"mixed case", "New", "Prospecting", "Pending"},
		{"unknown", "lost in transit", "Prospecting", "Yet to begin"},
		{"empty", "", "Prospecting", "Yet to begin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapStatus(tt.status)
			if got.Stage != tt.wantStage {
				t.Errorf("MapStatus(%q).Stage = %q, want %q", tt.status, got.Stage, tt.wantStage)
			}
			if got.Delivery != tt.wantDelivery {
				t.Errorf("MapStatus(%q).Delivery = %q, want %q", tt.status, got.Delivery, tt.wantDelivery)
			}
		})
	}
}

func TestTransform_Scenario(t *testing.T) {
	// The reference order: every derived field has a known expected value.
	doc := OrderDocument{
		"shipmentid": "S1",
		"customer":   "Acme",
		"status":     "finished",
		"date":       "2024-01-15",
		"edi":        bson.M{"flat_rate": "250.50", "stop1_st": "CA"},
	}

	tr := testTransformer()
	opp, err := tr.Transform(doc)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if opp.ExternalID != "S1" {
		t.Errorf("ExternalID = %q, want %q", opp.ExternalID, "S1")
	}
	if opp.Name != "Acme - S1" {
		t.Errorf("Name = %q, want %q", opp.Name, "Acme - S1")
	}
	if opp.Stage != "Closed Won" {
		t.Errorf("Stage = %q, want %q", opp.Stage, "Closed Won")
	}
	if opp.CloseDate != "2024-01-15" {
		t.Errorf("CloseDate = %q, want %q", opp.CloseDate, "2024-01-15")
	}
	if opp.Amount != 250.5 {
		t.Errorf("Amount = %v, want 250.5", opp.Amount)
	}

	acct := tr.AccountFields(doc)
	body := acct.Body()
	if body["Name"] != "Acme" {
		t.Errorf("Account Name = %v, want Acme", body["Name"])
	}
	if body["BillingState"] != "California" {
		t.Errorf("BillingState = %v, want California", body["BillingState"])
	}
	if body["BillingCountry"] != "United States" {
		t.Errorf("BillingCountry = %v, want United States", body["BillingCountry"])
	}
}

func TestTransform_MissingFieldsUsePlaceholders(t *testing.T) {
	tr := testTransformer()

	opp, err := tr.Transform(OrderDocument{"status": "new"})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if opp.ExternalID != "" {
		t.Errorf("ExternalID = %q, want empty for missing shipmentid", opp.ExternalID)
	}
	if opp.Eligible() {
		t.Error("Eligible() = true for record without shipmentid")
	}
	if opp.Name != "Unknown - No ID" {
		t.Errorf("Name = %q, want %q", opp.Name, "Unknown - No ID")
	}
	// Placeholders feed the display name only, never the external id.
	if opp.TrackingNumber != "" {
		t.Errorf("TrackingNumber = %q, want empty", opp.TrackingNumber)
	}
}

func TestTransform_ShipmentIDFieldsAreDistinct(t *testing.T) {
	tr := testTransformer()

	opp, err := tr.Transform(OrderDocument{
		"shipmentid":  "EXT-1",
		"shipment_id": "TRACK-9",
	})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if opp.ExternalID != "EXT-1" {
		t.Errorf("ExternalID = %q, want EXT-1 (from shipmentid)", opp.ExternalID)
	}
	if opp.TrackingNumber != "TRACK-9" {
		t.Errorf("TrackingNumber = %q, want TRACK-9 (from shipment_id)", opp.TrackingNumber)
	}
}

func TestTransform_NilDocument(t *testing.T) {
	tr := testTransformer()

	_, err := tr.Transform(nil)
	var terr *TransformError
	if !errors.As(err, &terr) {
		t.Fatalf("Transform(nil) error = %v, want *TransformError", err)
	}
}

func TestTransform_NumericShipmentID(t *testing.T) {
	tr := testTransformer()

	opp, err := tr.Transform(OrderDocument{"shipmentid": int32(12345)})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if opp.ExternalID != "12345" {
		t.Errorf("ExternalID = %q, want %q", opp.ExternalID, "12345")
	}
}

func TestFormatDate(t *testing.T) {
	tr := testTransformer()
	today := "2024-06-01"

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"valid string round-trip", "2024-01-15", "2024-01-15"},
		{"time value", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), "2023-12-31"},
		{"bson datetime", primitive.NewDateTimeFromTime(time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)), "2024-02-03"},
		{"malformed string", "not-a-date", today},
		{"wrong layout", "15/01/2024", today},
		{"absent", nil, today},
		{"empty string", "", today},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.formatDate(tt.value, "S1")
			if err != nil {
				t.Fatalf("formatDate(%v) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("formatDate(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatDate_FallbackDisabled(t *testing.T) {
	tr := testTransformer()
	tr.DateFallback = false

	if _, err := tr.formatDate("2024-01-15", "S1"); err != nil {
		t.Fatalf("formatDate(valid) error = %v", err)
	}

	_, err := tr.formatDate("not-a-date", "S1")
	var terr *TransformError
	if !errors.As(err, &terr) {
		t.Fatalf("formatDate(malformed) error = %v, want *TransformError", err)
	}
}

func TestSafeFloat(t *testing.T) {
	tr := testTransformer()

	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"numeric string", "12.5", 12.5},
		{"numeric string with spaces", " 250.50 ", 250.5},
		{"float64", 12.5, 12.5},
		{"int32", int32(12), 12.0},
		{"int64", int64(7), 7.0},
		{"non-numeric string", "abc", 0.0},
		{"nil", nil, 0.0},
		{"object", bson.M{"x": 1}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.safeFloat(tt.value, "S1", "edi.flat_rate"); got != tt.want {
				t.Errorf("safeFloat(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestOpportunityBody(t *testing.T) {
	opp := &Opportunity{
		ExternalID:     "S1",
		Name:           "Acme - S1",
		Stage:          "Prospecting",
		DeliveryStatus: "Pending",
	}

	body := opp.Body()
	if _, ok := body["External_Id__c"]; ok {
		t.Error("Body() must not contain External_Id__c; the key travels in the upsert path")
	}
	if _, ok := body["AccountId"]; ok {
		t.Error("Body() must omit AccountId until resolution links the record")
	}

	opp.AccountID = "001xx0001"
	if got := opp.Body()["AccountId"]; got != "001xx0001" {
		t.Errorf("Body()[AccountId] = %v, want 001xx0001", got)
	}
}

func TestAccountFields_BlankCustomer(t *testing.T) {
	tr := testTransformer()

	tests := []struct {
		name string
		doc  OrderDocument
	}{
		{"absent", OrderDocument{}},
		{"empty", OrderDocument{"customer": ""}},
		{"whitespace", OrderDocument{"customer": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := tr.AccountFields(tt.doc)
			if acct.Name != "Unknown" {
				t.Errorf("Name = %q, want placeholder %q", acct.Name, "Unknown")
			}
			if acct.ExternalID() != "Unknown" {
				t.Errorf("ExternalID() = %q, want %q", acct.ExternalID(), "Unknown")
			}
		})
	}
}

func TestAccountBody_UnmappedStateOmitted(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantState string
		wantSet   bool
	}{
		{"known state", "CA", "California", true},
		{"lowercase code", "tx", "Texas", true},
		{"padded code", " NY ", "New York", true},
		{"unknown code", "XX", "", false},
		{"empty code", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := Account{Name: "Acme", StateCode: tt.code}.Body()
			state, ok := body["BillingState"]
			if ok != tt.wantSet {
				t.Fatalf("BillingState present = %v, want %v", ok, tt.wantSet)
			}
			if tt.wantSet && state != tt.wantState {
				t.Errorf("BillingState = %v, want %v", state, tt.wantState)
			}
		})
	}
}

func TestStateTable_CoversAllStates(t *testing.T) {
	// 50 states plus DC.
	if len(stateNames) != 51 {
		t.Errorf("state table has %d entries, want 51", len(stateNames))
	}
}
