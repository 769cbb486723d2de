package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sambigeara/ddsgraph/internal/testutil/membus"
	"github.com/sambigeara/ddsgraph/pkg/config"
	"github.com/sambigeara/ddsgraph/pkg/graph"
	"github.com/sambigeara/ddsgraph/pkg/msg"
	"github.com/sambigeara/ddsgraph/pkg/observability/metrics"
	"github.com/sambigeara/ddsgraph/pkg/types"
)

const (
	retireChance = 4 // one in N ticks retires an endpoint instead of creating one
	logEvery     = 20
)

type simEndpoint struct {
	gid    types.Gid
	topic  string
	node   string
	reader bool
}

// simParticipant is one process in the simulated mesh: its own cache,
// its own announcement subscription and the endpoints it owns.
type simParticipant struct {
	gid       types.Gid
	namespace string
	cache     *graph.Cache
	sub       *membus.Subscription
	endpoints []simEndpoint
}

type simulator struct {
	log   *zap.SugaredLogger
	conf  *config.Config
	bus   *membus.Bus
	parts []*simParticipant
}

func newSimulator(conf *config.Config) (*simulator, error) {
	s := &simulator{
		log:  zap.S().Named("sim"),
		conf: conf,
		bus:  membus.New(msg.BinaryCodec{}),
	}

	for i := range conf.Participants {
		sub, err := s.bus.Subscribe(fmt.Sprintf("participant%d", i))
		if err != nil {
			return nil, err
		}
		s.parts = append(s.parts, &simParticipant{
			gid:       types.NewGid(),
			namespace: fmt.Sprintf("sim%d", i),
			cache:     graph.New(),
			sub:       sub,
		})
	}

	// Announce the initial node topology once every subscription is in
	// place, so nobody misses a bootstrap snapshot.
	for _, p := range s.parts {
		var snap msg.ParticipantEntitiesInfo
		for j := range conf.NodesPerParticipant {
			snap = p.cache.AddNode(p.gid, fmt.Sprintf("node%d", j), p.namespace)
		}
		if err := s.bus.Publish(snap); err != nil {
			return nil, err
		}
	}

	// Everyone ingests the bootstrap announcements before the mesh
	// starts mutating.
	for _, p := range s.parts {
		p.drain()
	}
	return s, nil
}

func (s *simulator) close() {
	s.bus.Close()
}

func (s *simulator) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range s.parts {
		g.Go(func() error { return s.consume(ctx, p) })
	}
	g.Go(func() error {
		defer cancel()
		return s.mutate(ctx)
	})

	return g.Wait()
}

func (s *simulator) consume(ctx context.Context, p *simParticipant) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-p.sub.C():
			if !ok {
				return nil
			}
			if info.Gid == p.gid {
				continue
			}
			p.cache.UpdateParticipantEntities(info)
		}
	}
}

func (s *simulator) mutate(ctx context.Context) error {
	ticker := time.NewTicker(s.conf.TickInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
			ticks++
			if ticks%logEvery == 0 {
				participants, nodes, entities := s.parts[0].cache.Stats()
				s.log.Infow("graph state",
					"ticks", ticks, "participants", participants, "nodes", nodes, "entities", entities)
			}
			if s.conf.Ticks > 0 && ticks >= s.conf.Ticks {
				return nil
			}
		}
	}
}

// tick performs one random mutation on one participant and broadcasts
// the resulting snapshot.
func (s *simulator) tick(ctx context.Context) error {
	p := s.parts[rand.IntN(len(s.parts))]

	var snap msg.ParticipantEntitiesInfo
	if len(p.endpoints) > 0 && rand.IntN(retireChance) == 0 {
		i := rand.IntN(len(p.endpoints))
		e := p.endpoints[i]
		p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)

		if e.reader {
			snap = p.cache.DissociateReader(e.gid, p.gid, e.node, p.namespace)
		} else {
			snap = p.cache.DissociateWriter(e.gid, p.gid, e.node, p.namespace)
		}
		for _, q := range s.parts {
			q.cache.RemoveEntity(e.gid, e.reader)
		}
		s.log.Debugw("endpoint retired", "participant", p.gid.Short(), "topic", e.topic)
	} else {
		e := simEndpoint{
			gid:    types.NewGid(),
			topic:  s.conf.Topics[rand.IntN(len(s.conf.Topics))],
			node:   fmt.Sprintf("node%d", rand.IntN(s.conf.NodesPerParticipant)),
			reader: rand.IntN(2) == 0,
		}
		// Entity discovery reaches every participant over the fabric;
		// the association is the owner's to announce.
		for _, q := range s.parts {
			q.cache.AddEntity(e.gid, e.topic, typeNameFor(e.topic), e.reader)
		}
		if e.reader {
			snap = p.cache.AssociateReader(e.gid, p.gid, e.node, p.namespace)
		} else {
			snap = p.cache.AssociateWriter(e.gid, p.gid, e.node, p.namespace)
		}
		p.endpoints = append(p.endpoints, e)
		s.log.Debugw("endpoint announced",
			"participant", p.gid.Short(), "topic", e.topic, "reader", e.reader)
	}

	if err := s.bus.Publish(snap); err != nil {
		return err
	}
	metrics.RecordAnnouncement(ctx)
	return nil
}

// drain applies pending announcements synchronously; the status
// command uses it instead of consume goroutines.
func (p *simParticipant) drain() {
	for {
		select {
		case info, ok := <-p.sub.C():
			if !ok {
				return
			}
			if info.Gid != p.gid {
				p.cache.UpdateParticipantEntities(info)
			}
		default:
			return
		}
	}
}

func typeNameFor(topic string) string {
	return fmt.Sprintf("sim_msgs::%s", topic)
}
