package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"robot-bridge/backend/internal/store"
	"robot-bridge/backend/internal/telemetry"
)

// DateLayout is the calendar day format accepted by the history query.
const DateLayout = "2006-01-02"

const historyQueryTimeout = 5 * time.Second

// HistoryQuery is a validated history request.
type HistoryQuery struct {
	Kind  telemetry.Kind
	Limit int
	// From and To are calendar days, both included. Zero means unbounded.
	From time.Time
	To   time.Time
}

// HistoryResult holds the records of the requested kind, newest first.
type HistoryResult struct {
	Kind      telemetry.Kind
	Telemetry []store.TelemetryRecord
	Sensor    []store.SensorRecord
}

// Len returns the number of records of the requested kind.
func (r HistoryResult) Len() int {
	if r.Kind == telemetry.KindSensor {
		return len(r.Sensor)
	}

	return len(r.Telemetry)
}

type HistoryService struct {
	l            *slog.Logger
	store        store.DocumentStore
	defaultLimit int
	maxLimit     int
}

// NewHistoryService creates the service. st may be nil, queries then fail with store.ErrUnavailable.
func NewHistoryService(l *slog.Logger, st store.DocumentStore, defaultLimit, maxLimit int) *HistoryService {
	return &HistoryService{
		l:            l.With(slog.String("service", "history")),
		store:        st,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *HistoryService) DefaultLimit() int { return s.defaultLimit }
func (s *HistoryService) MaxLimit() int     { return s.maxLimit }

// ParseQuery validates the raw query parameters. The returned map holds one message per
// invalid parameter and is nil when the query is valid.
func (s *HistoryService) ParseQuery(kind, limit, from, to string) (HistoryQuery, map[string]string) {
	var (
		q    = HistoryQuery{Kind: telemetry.KindTelemetry, Limit: s.defaultLimit}
		errs = map[string]string{}
	)

	switch telemetry.Kind(strings.ToLower(kind)) {
	case "", telemetry.KindTelemetry:
	case telemetry.KindSensor:
		q.Kind = telemetry.KindSensor
	default:
		errs["kind"] = fmt.Sprintf("must be %q or %q", telemetry.KindTelemetry, telemetry.KindSensor)
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)

		switch {
		case err != nil:
			errs["limit"] = "must be an integer"
		case n < 1 || n > s.maxLimit:
			errs["limit"] = fmt.Sprintf("must be between 1 and %d", s.maxLimit)
		default:
			q.Limit = n
		}
	}

	var err error

	if from != "" {
		if q.From, err = time.ParseInLocation(DateLayout, from, time.UTC); err != nil {
			errs["from"] = "must be a date formatted as YYYY-MM-DD"
		}
	}

	if to != "" {
		if q.To, err = time.ParseInLocation(DateLayout, to, time.UTC); err != nil {
			errs["to"] = "must be a date formatted as YYYY-MM-DD"
		}
	}

	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		errs["to"] = "must not be before from"
	}

	if len(errs) > 0 {
		return HistoryQuery{}, errs
	}

	return q, nil
}

// Find returns the matching records. Both days of the range are included.
func (s *HistoryService) Find(ctx context.Context, q HistoryQuery) (HistoryResult, error) {
	if s.store == nil {
		return HistoryResult{}, store.ErrUnavailable
	}

	sq := store.Query{Limit: q.Limit, From: q.From}
	if !q.To.IsZero() {
		sq.To = q.To.AddDate(0, 0, 1)
	}

	ctx, cancel := context.WithTimeout(ctx, historyQueryTimeout)
	defer cancel()

	res := HistoryResult{Kind: q.Kind}

	var err error

	switch q.Kind {
	case telemetry.KindSensor:
		res.Sensor, err = s.store.FindSensor(ctx, sq)
	default:
		res.Kind = telemetry.KindTelemetry
		res.Telemetry, err = s.store.FindTelemetry(ctx, sq)
	}

	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			return HistoryResult{}, err
		}

		return HistoryResult{}, fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}

	return res, nil
}
