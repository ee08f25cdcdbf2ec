package core

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Summary reports the outcome of one run. A completed run always
// produces counts, even when every record failed.
type Summary struct {
	Total     int `json:"total"`
	Skipped   int `json:"skipped"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Pipeline drives one full-collection pass: scan, transform, resolve
// the account, upsert the opportunity. Failures inside the per-record
// loop are isolated; only a failure to open the scan is fatal.
type Pipeline struct {
	source      Source
	transformer *Transformer
	resolver    *AccountResolver
	sink        *OpportunitySink

	// workers bounds concurrent resolve+upsert work. 1 keeps the run
	// strictly sequential; higher values are a throughput optimization
	// only, since distinct external ids are independent.
	workers int

	logger *slog.Logger
}

// NewPipeline assembles a pipeline. workers < 1 is treated as 1.
func NewPipeline(source Source, transformer *Transformer, resolver *AccountResolver, sink *OpportunitySink, workers int, logger *slog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		source:      source,
		transformer: transformer,
		resolver:    resolver,
		sink:        sink,
		workers:     workers,
		logger:      logger,
	}
}

// Run executes one synchronization pass. The cursor is always closed,
// regardless of per-record failures. The returned error is non-nil only
// for run-level failures (opening or reading the scan); per-record
// failures surface in the Summary.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	cur, err := p.source.Orders(ctx)
	if err != nil {
		return Summary{}, &ConnectError{System: "source store", Err: err}
	}
	defer cur.Close(ctx)

	var total, skipped int
	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for cur.Next(ctx) {
		var doc OrderDocument
		if err := cur.Decode(&doc); err != nil {
			total++
			skipped++
			p.logger.Warn("skipping undecodable document", "error", err)
			continue
		}
		total++

		opp, err := p.transformer.Transform(doc)
		if err != nil {
			skipped++
			p.logger.Warn("skipping untransformable document", "error", err)
			continue
		}
		if !opp.Eligible() {
			skipped++
			p.logger.Warn("skipping order without shipmentid", "name", opp.Name)
			continue
		}
		acct := p.transformer.AccountFields(doc)

		g.Go(func() error {
			if p.process(gctx, acct, opp) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			// Per-record isolation: worker errors never cancel the group.
			return nil
		})
	}

	scanErr := cur.Err()
	g.Wait()

	summary := Summary{
		Total:     total,
		Skipped:   skipped,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}

	if scanErr != nil {
		p.logger.Error("collection scan aborted", "error", scanErr,
			"total", summary.Total, "succeeded", summary.Succeeded, "failed", summary.Failed)
		return summary, &ConnectError{System: "source store", Err: scanErr}
	}

	p.logger.Info("run complete",
		"total", summary.Total, "skipped", summary.Skipped,
		"succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// process resolves the record's account and upserts the opportunity.
// Reports success; failures are logged here and counted by the caller.
// An opportunity is never attempted when its account resolution failed,
// so no record is orphaned without an account link.
func (p *Pipeline) process(ctx context.Context, acct Account, opp *Opportunity) bool {
	accountID, err := p.resolver.Resolve(ctx, acct)
	if err != nil {
		p.logger.Error("account resolution failed, skipping opportunity",
			"external_id", opp.ExternalID, "error", err)
		return false
	}
	opp.AccountID = accountID

	if err := p.sink.Upsert(ctx, opp); err != nil {
		p.logger.Error("opportunity upsert failed", "error", err)
		return false
	}
	return true
}
