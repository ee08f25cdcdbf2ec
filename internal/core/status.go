package core

import "strings"

// StatusMapping holds the pair of CRM labels derived from one order
// status. Stage and delivery status come from the same canonical table so
// the two can never drift apart for a given status key.
type StatusMapping struct {
	Stage    string
	Delivery string
}

// statusTable is the canonical order-status vocabulary. Lookups are on
// the lower-cased status; anything outside the table maps to
// defaultStatus.
var statusTable = map[string]StatusMapping{
	"new":      {Stage: "Prospecting", Delivery: "Pending"},
	"process":  {Stage: "Qualification", Delivery: "In Progress"},
	"sent":     {Stage: "Proposal/Price Quote", Delivery: "Scheduled"},
	"finished": {Stage: "Closed Won", Delivery: "Completed"},
	"returned": {Stage: "Closed Lost", Delivery: "Cancelled"},
}

var defaultStatus = StatusMapping{Stage: "Prospecting", Delivery: "Yet to begin"}

// MapStatus resolves an order status (case-insensitive) to its CRM stage
// and delivery status. Unknown or empty statuses map to the default.
func MapStatus(status string) StatusMapping {
	if m, ok := statusTable[strings.ToLower(status)]; ok {
		return m
	}
	return defaultStatus
}
