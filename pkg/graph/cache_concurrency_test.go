package graph_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambigeara/ddsgraph/pkg/graph"
	"github.com/sambigeara/ddsgraph/pkg/msg"
	"github.com/sambigeara/ddsgraph/pkg/types"
)

// Exercises the reader-writer lock with mutators, announcers and
// queriers racing. Run with -race; assertions only cover properties
// that hold at any interleaving.
func TestConcurrentMutationsAndQueries(t *testing.T) {
	const (
		workers    = 8
		iterations = 200
	)

	c := graph.New()

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			participantGid := gid(fmt.Sprintf("participant%d", w))
			for i := range iterations {
				endpoint := gid(fmt.Sprintf("reader-%d-%d", w, i))
				topic := fmt.Sprintf("topic%d", i%5)

				c.AddEntity(endpoint, topic, "Str", true)
				snap := c.AssociateReader(endpoint, participantGid, "node1", "ns1")
				require.Equal(t, participantGid, snap.Gid)

				_, _ = c.NodeNames()
				_ = c.NamesAndTypes(nil, nil)
				_ = c.CountReaders(topic)

				c.UpdateParticipantEntities(msg.ParticipantEntitiesInfo{
					Gid: gid(fmt.Sprintf("remote%d", w)),
					NodeEntitiesInfoSeq: []msg.NodeEntitiesInfo{
						{
							NodeNamespace: "remote_ns",
							NodeName:      fmt.Sprintf("node%d", w),
							ReaderGidSeq:  []types.Gid{endpoint},
						},
					},
				})
			}
		}()
	}
	wg.Wait()

	// Every worker ends with one local node and one remote node.
	require.Equal(t, 2*workers, c.NodeCount())

	participants, nodes, entities := c.Stats()
	require.Equal(t, 2*workers, participants)
	require.Equal(t, 2*workers, nodes)
	require.Equal(t, workers*iterations, entities)

	for w := range workers {
		c.RemoveParticipant(gid(fmt.Sprintf("participant%d", w)))
		c.RemoveParticipant(gid(fmt.Sprintf("remote%d", w)))
	}
	require.Equal(t, 0, c.NodeCount())

	// Entities are an independent dimension and survive participant
	// teardown.
	_, _, entities = c.Stats()
	require.Equal(t, workers*iterations, entities)
}
