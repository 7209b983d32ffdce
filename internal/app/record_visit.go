package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
	"github.com/ssservicios/s3pay/internal/reporting"
	"github.com/ssservicios/s3pay/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const recordTimeout = 5 * time.Second

type visitRepository interface {
	RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error
	RegisterClick(ctx context.Context, at time.Time, identifier string) error
}

// Records a successful lookup in the audit trail
//
// Failures are reported and swallowed. The caller is never affected by the audit trail.
type RecordQuery func(ctx context.Context, visit domain.QueryVisit)

// Records a click on the storefront link in the audit trail
type RecordClick func(ctx context.Context, identifier string)

var recordedEvents metric.Int64Counter

func init() {
	meter := otel.Meter("s3pay/app")

	var err error
	recordedEvents, err = meter.Int64Counter(
		"app/recorded_visit_events",
		metric.WithDescription("Audit trail writes by kind and outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create recorded visit events metric: %w", err))
	}
}

func countRecorded(ctx context.Context, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	recordedEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func BuildRecordQuery(repo visitRepository, nowFunc func() time.Time, location *time.Location) RecordQuery {
	return func(ctx context.Context, visit domain.QueryVisit) {
		// The audit write outlives a cancelled request, but not for long
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()

		visit.Identifier = strutils.DigitsOnly(visit.Identifier)
		if visit.Identifier == "" {
			err := errors.New("refusing to record query without identifier")
			reporting.Report(ctx, err)
			countRecorded(ctx, "query", err)
			return
		}

		err := repo.RegisterQuery(ctx, nowFunc().In(location), visit)
		countRecorded(ctx, "query", err)
		if err != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "failed to record query", "error", err.Error())
			reporting.Report(ctx, fmt.Errorf("failed to record query: %w", err), map[string]string{
				"identifier": visit.Identifier,
			})
		}
	}
}

func BuildRecordClick(repo visitRepository, nowFunc func() time.Time, location *time.Location) RecordClick {
	return func(ctx context.Context, rawIdentifier string) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()

		identifier := strutils.DigitsOnly(rawIdentifier)
		if identifier == "" {
			logging.FromContext(ctx).InfoContext(ctx, "skipping click without identifier")
			return
		}

		err := repo.RegisterClick(ctx, nowFunc().In(location), identifier)
		countRecorded(ctx, "click", err)
		if err != nil {
			logging.FromContext(ctx).ErrorContext(ctx, "failed to record click", "error", err.Error())
			reporting.Report(ctx, fmt.Errorf("failed to record click: %w", err), map[string]string{
				"identifier": identifier,
			})
		}
	}
}
