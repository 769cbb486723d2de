package graph_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sambigeara/ddsgraph/pkg/graph"
	"github.com/sambigeara/ddsgraph/pkg/msg"
	"github.com/sambigeara/ddsgraph/pkg/types"
)

func TestSnapshotIsDetachedCopy(t *testing.T) {
	c := graph.New()

	c.AddNode(gid("p1"), "node1", "ns1")
	snap := c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")

	// Mutating the returned snapshot must not leak into the cache.
	snap.NodeEntitiesInfoSeq[0].NodeName = "tampered"
	snap.NodeEntitiesInfoSeq[0].ReaderGidSeq[0] = gid("tampered")

	after := c.AddNode(gid("p1"), "node2", "ns1")
	checkSnapshot(t, after, "p1", []msg.NodeEntitiesInfo{
		{
			NodeNamespace: "ns1", NodeName: "node1",
			ReaderGidSeq: []types.Gid{gid("reader1")},
		},
		{NodeNamespace: "ns1", NodeName: "node2"},
	})
}

func TestAssociateDissociateRoundTrip(t *testing.T) {
	c := graph.New()

	c.AddNode(gid("p1"), "node1", "ns1")
	c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")
	c.AssociateWriter(gid("writer1"), gid("p1"), "node1", "ns1")
	before := c.AddNode(gid("p1"), "node2", "ns1")

	c.AssociateReader(gid("reader2"), gid("p1"), "node1", "ns1")
	after := c.DissociateReader(gid("reader2"), gid("p1"), "node1", "ns1")

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("record changed across associate/dissociate round trip:\nbefore: %v\n after: %v", before, after)
	}
}

func TestDuplicateAssociationsAppend(t *testing.T) {
	c := graph.New()

	c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")
	snap := c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")
	checkSnapshot(t, snap, "p1", []msg.NodeEntitiesInfo{
		{
			NodeNamespace: "ns1", NodeName: "node1",
			ReaderGidSeq: []types.Gid{gid("reader1"), gid("reader1")},
		},
	})

	// Dissociating removes one occurrence at a time.
	snap = c.DissociateReader(gid("reader1"), gid("p1"), "node1", "ns1")
	checkSnapshot(t, snap, "p1", []msg.NodeEntitiesInfo{
		{
			NodeNamespace: "ns1", NodeName: "node1",
			ReaderGidSeq: []types.Gid{gid("reader1")},
		},
	})
}

func TestReassociationMovesEndpoint(t *testing.T) {
	c := graph.New()

	c.AddNode(gid("p1"), "node1", "ns1")
	c.AddNode(gid("p1"), "node2", "ns1")
	c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")

	snap := c.AssociateReader(gid("reader1"), gid("p1"), "node2", "ns1")
	checkSnapshot(t, snap, "p1", []msg.NodeEntitiesInfo{
		{NodeNamespace: "ns1", NodeName: "node1"},
		{
			NodeNamespace: "ns1", NodeName: "node2",
			ReaderGidSeq: []types.Gid{gid("reader1")},
		},
	})
}

func TestRemoveNodeUnknownParticipant(t *testing.T) {
	c := graph.New()

	snap := c.RemoveNode(gid("ghost"), "node1", "ns1")
	checkSnapshot(t, snap, "ghost", nil)
	if c.NodeCount() != 0 {
		t.Fatalf("remove on unknown participant must not create it, have %d nodes", c.NodeCount())
	}

	snap = c.DissociateReader(gid("reader1"), gid("ghost"), "node1", "ns1")
	checkSnapshot(t, snap, "ghost", nil)
}

func TestRemovedNodeReappearsAtEnd(t *testing.T) {
	c := graph.New()

	c.AddNode(gid("p1"), "node1", "ns1")
	c.AddNode(gid("p1"), "node2", "ns1")
	c.RemoveNode(gid("p1"), "node1", "ns1")
	snap := c.AddNode(gid("p1"), "node1", "ns1")

	checkSnapshot(t, snap, "p1", []msg.NodeEntitiesInfo{
		{NodeNamespace: "ns1", NodeName: "node2"},
		{NodeNamespace: "ns1", NodeName: "node1"},
	})
}

func TestUpdateParticipantEntitiesCreatesParticipant(t *testing.T) {
	c := graph.New()

	c.UpdateParticipantEntities(msg.ParticipantEntitiesInfo{
		Gid: gid("rp"),
		NodeEntitiesInfoSeq: []msg.NodeEntitiesInfo{
			{NodeNamespace: "ns1", NodeName: "node1"},
		},
	})

	checkNodeNames(t, c, []nodeKey{{"ns1", "node1"}})
}

func TestUpdateParticipantEntitiesDetachesFromInput(t *testing.T) {
	c := graph.New()

	info := msg.ParticipantEntitiesInfo{
		Gid: gid("rp"),
		NodeEntitiesInfoSeq: []msg.NodeEntitiesInfo{
			{
				NodeNamespace: "ns1", NodeName: "node1",
				ReaderGidSeq: []types.Gid{gid("reader1")},
			},
		},
	}
	c.UpdateParticipantEntities(info)

	// Caller keeps ownership of the message buffers.
	info.NodeEntitiesInfoSeq[0].ReaderGidSeq[0] = gid("tampered")

	snap := c.AddNode(gid("rp"), "node2", "ns1")
	checkSnapshot(t, snap, "rp", []msg.NodeEntitiesInfo{
		{
			NodeNamespace: "ns1", NodeName: "node1",
			ReaderGidSeq: []types.Gid{gid("reader1")},
		},
		{NodeNamespace: "ns1", NodeName: "node2"},
	})
}

func TestStringRendersState(t *testing.T) {
	c := graph.New()

	c.AddEntity(gid("reader1"), "topic1", "Str", true)
	c.AssociateReader(gid("reader1"), gid("p1"), "node1", "ns1")

	out := c.String()
	for _, want := range []string{"node ns1/node1", "topic1: Str", gid("reader1").Short()} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestOnChangeFires(t *testing.T) {
	c := graph.New()

	fired := 0
	c.OnChange(func() { fired++ })

	c.AddEntity(gid("reader1"), "topic1", "Str", true)
	c.AddEntity(gid("reader1"), "topic1", "Str", true) // no-op
	c.AddParticipant(gid("p1"))
	c.AddParticipant(gid("p1")) // no-op
	c.AddNode(gid("p1"), "node1", "ns1")
	c.RemoveEntity(gid("reader1"), false) // role mismatch, no-op
	c.RemoveEntity(gid("reader1"), true)

	if fired != 4 {
		t.Fatalf("expected 4 change notifications, got %d", fired)
	}
}
