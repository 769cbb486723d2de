package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/sambigeara/ddsgraph"

var announcements metric.Int64Counter

func init() {
	var err error
	announcements, err = otel.Meter(scopeName).Int64Counter(
		"ddsgraph.announcements",
		metric.WithDescription("Participant announcements published."),
	)
	if err != nil {
		panic(err)
	}
}

// GraphStats is the slice of graph.Cache the gauges observe.
type GraphStats interface {
	Stats() (participants, nodes, entities int)
}

// RegisterGraph attaches observable gauges for the cache's table
// sizes to the global meter provider.
func RegisterGraph(g GraphStats) error {
	meter := otel.Meter(scopeName)

	participants, err := meter.Int64ObservableGauge(
		"ddsgraph.participants",
		metric.WithDescription("Participants currently known to the cache."),
	)
	if err != nil {
		return err
	}
	nodes, err := meter.Int64ObservableGauge(
		"ddsgraph.nodes",
		metric.WithDescription("Nodes across all participants."),
	)
	if err != nil {
		return err
	}
	entities, err := meter.Int64ObservableGauge(
		"ddsgraph.entities",
		metric.WithDescription("Readers and writers in the entity index."),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		p, n, e := g.Stats()
		o.ObserveInt64(participants, int64(p))
		o.ObserveInt64(nodes, int64(n))
		o.ObserveInt64(entities, int64(e))
		return nil
	}, participants, nodes, entities)
	return err
}

// RecordAnnouncement counts one published announcement.
func RecordAnnouncement(ctx context.Context) {
	announcements.Add(ctx, 1)
}
