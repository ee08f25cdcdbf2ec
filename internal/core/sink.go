package core

import (
	"context"
	"log/slog"
)

// OpportunitySink performs the idempotent Opportunity write. One sink
// instance serves the whole run; it holds no per-record state.
type OpportunitySink struct {
	crm    CRM
	logger *slog.Logger
}

// NewOpportunitySink builds a sink over the given CRM client.
func NewOpportunitySink(crm CRM, logger *slog.Logger) *OpportunitySink {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpportunitySink{crm: crm, logger: logger}
}

// Upsert writes one Opportunity keyed by its external id. The pipeline
// guarantees eligibility before calling; the guard here is a final
// defense of the key space. A failure is reported per record and never
// aborts the surrounding run.
func (s *OpportunitySink) Upsert(ctx context.Context, opp *Opportunity) error {
	if !opp.Eligible() {
		return &UpsertError{Err: ErrMissingExternalID}
	}

	// Body() already excludes External_Id__c: the key travels in the
	// upsert path only.
	_, err := s.crm.Upsert(ctx, "Opportunity", "External_Id__c", opp.ExternalID, opp.Body())
	if err != nil {
		return &UpsertError{ExternalID: opp.ExternalID, Err: err}
	}

	s.logger.Info("opportunity upserted", "external_id", opp.ExternalID, "stage", opp.Stage)
	return nil
}
