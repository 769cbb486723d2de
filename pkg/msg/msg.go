package msg

import (
	"github.com/sambigeara/ddsgraph/pkg/types"
)

// NodeEntitiesInfo describes one node and the endpoint gids currently
// associated with it. Gid sequences preserve association order.
type NodeEntitiesInfo struct {
	NodeNamespace string
	NodeName      string
	ReaderGidSeq  []types.Gid
	WriterGidSeq  []types.Gid
}

// Clone returns a deep copy.
func (n NodeEntitiesInfo) Clone() NodeEntitiesInfo {
	return NodeEntitiesInfo{
		NodeNamespace: n.NodeNamespace,
		NodeName:      n.NodeName,
		ReaderGidSeq:  append([]types.Gid(nil), n.ReaderGidSeq...),
		WriterGidSeq:  append([]types.Gid(nil), n.WriterGidSeq...),
	}
}

// ParticipantEntitiesInfo is the announcement exchanged among
// participants: a full snapshot of one participant's node and endpoint
// topology. Peers apply it as an atomic replacement of their cached
// view of that participant.
type ParticipantEntitiesInfo struct {
	Gid                 types.Gid
	NodeEntitiesInfoSeq []NodeEntitiesInfo
}

// Clone returns a deep copy, safe to hand to another goroutine.
func (p ParticipantEntitiesInfo) Clone() ParticipantEntitiesInfo {
	out := ParticipantEntitiesInfo{Gid: p.Gid}
	if p.NodeEntitiesInfoSeq != nil {
		out.NodeEntitiesInfoSeq = make([]NodeEntitiesInfo, 0, len(p.NodeEntitiesInfoSeq))
		for _, n := range p.NodeEntitiesInfoSeq {
			out.NodeEntitiesInfoSeq = append(out.NodeEntitiesInfoSeq, n.Clone())
		}
	}
	return out
}
