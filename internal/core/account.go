package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freightops/ordersync/internal/salesforce"
)

// AccountResolver idempotently ensures a CRM Account exists for a
// customer and returns its identifier for linking.
//
// The upsert response only carries an id for freshly created accounts;
// for pre-existing ones the id is recovered with a fallback query by
// external id.
type AccountResolver struct {
	crm    CRM
	logger *slog.Logger
}

// NewAccountResolver builds a resolver over the given CRM client.
func NewAccountResolver(crm CRM, logger *slog.Logger) *AccountResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountResolver{crm: crm, logger: logger}
}

// Resolve upserts the account and returns its CRM identifier.
// Repeated calls with the same customer and state converge to the same
// stored account. Any failure returns a ResolveError; the caller must
// skip dependent Opportunity work so no record is linked to a missing
// account.
func (r *AccountResolver) Resolve(ctx context.Context, acct Account) (string, error) {
	externalID := acct.ExternalID()
	if externalID == "" {
		return "", &ResolveError{Customer: acct.Name, Err: ErrMissingExternalID}
	}

	res, err := r.crm.Upsert(ctx, "Account", "External_Id__c", externalID, acct.Body())
	if err != nil {
		return "", &ResolveError{Customer: acct.Name, Err: err}
	}

	if res.Created {
		r.logger.Info("account created", "customer", acct.Name, "account_id", res.ID)
		return res.ID, nil
	}

	// Updated an existing account: the upsert response carries no id,
	// so look it up by external id.
	soql := fmt.Sprintf("SELECT Id FROM Account WHERE External_Id__c = '%s' LIMIT 1",
		salesforce.EscapeSOQL(externalID))

	q, err := r.crm.Query(ctx, soql)
	if err != nil {
		return "", &ResolveError{Customer: acct.Name, Err: err}
	}
	if len(q.Records) == 0 {
		return "", &ResolveError{Customer: acct.Name, Err: ErrAccountNotFound}
	}

	id, _ := q.Records[0]["Id"].(string)
	if id == "" {
		return "", &ResolveError{Customer: acct.Name, Err: ErrAccountNotFound}
	}

	r.logger.Debug("account exists", "customer", acct.Name, "account_id", id)
	return id, nil
}
