package graph

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sambigeara/ddsgraph/pkg/msg"
	"github.com/sambigeara/ddsgraph/pkg/types"
)

type entityInfo struct {
	topic  string
	typ    string
	reader bool
}

type node struct {
	namespace string
	name      string
	readers   []types.Gid
	writers   []types.Gid
}

func (n *node) key(name, namespace string) bool {
	return n.name == name && n.namespace == namespace
}

type participant struct {
	nodes []*node
}

// Cache is a participant's view of the mesh-wide entity graph: which
// participants exist, which nodes each participant hosts, and which
// readers and writers live on which topic under which node.
//
// It is fed from two sides. The host process mutates its own
// participants directly; every participant-scoped mutation returns a
// fresh announcement snapshot for broadcasting. Announcements received
// from remote peers are applied wholesale via
// UpdateParticipantEntities. The entity index and the participant
// table are deliberately independent: associations may arrive before
// the endpoint they reference, or outlive it, and queries skip gids
// they cannot resolve.
type Cache struct {
	log          *zap.SugaredLogger
	entities     map[types.Gid]entityInfo
	participants map[types.Gid]*participant
	order        []types.Gid // participant iteration order, first observation first
	onChange     func()
	mu           sync.RWMutex
}

func New() *Cache {
	return &Cache{
		log:          zap.S().Named("graph"),
		entities:     make(map[types.Gid]entityInfo),
		participants: make(map[types.Gid]*participant),
	}
}

// OnChange registers a callback fired after every mutation that
// changed cache state. The callback runs outside the cache lock and
// may re-enter the cache.
func (c *Cache) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// AddEntity records a reader or writer in the entity index. It returns
// true if the gid was newly inserted; an existing mapping is left
// untouched.
func (c *Cache) AddEntity(gid types.Gid, topicName, typeName string, reader bool) bool {
	c.mu.Lock()
	if _, ok := c.entities[gid]; ok {
		c.mu.Unlock()
		c.log.Debugw("entity already known", "gid", gid.Short(), "topic", topicName)
		return false
	}
	c.entities[gid] = entityInfo{topic: topicName, typ: typeName, reader: reader}
	cb := c.onChange
	c.mu.Unlock()

	fire(cb)
	return true
}

// RemoveEntity drops a reader or writer from the entity index. The
// reader flag must agree with the stored role; on mismatch nothing is
// removed. Associations referencing the gid are left in place: the
// owning participant dissociates explicitly and re-announces, and
// scrubbing here would corrupt per-node ordering for peers.
func (c *Cache) RemoveEntity(gid types.Gid, reader bool) bool {
	c.mu.Lock()
	info, ok := c.entities[gid]
	if !ok {
		c.mu.Unlock()
		return false
	}
	if info.reader != reader {
		c.mu.Unlock()
		c.log.Warnw("entity role mismatch on remove", "gid", gid.Short(), "reader", reader)
		return false
	}
	delete(c.entities, gid)
	cb := c.onChange
	c.mu.Unlock()

	fire(cb)
	return true
}

// AddParticipant registers a participant. Adding a known participant
// is a no-op.
func (c *Cache) AddParticipant(gid types.Gid) {
	c.mu.Lock()
	_, existed := c.participants[gid]
	c.ensureParticipantLocked(gid)
	cb := c.onChange
	c.mu.Unlock()

	if !existed {
		fire(cb)
	}
}

// RemoveParticipant discards a participant together with all of its
// nodes and associations.
func (c *Cache) RemoveParticipant(gid types.Gid) {
	c.mu.Lock()
	if _, ok := c.participants[gid]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.participants, gid)
	for i, g := range c.order {
		if g == gid {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	cb := c.onChange
	c.mu.Unlock()

	fire(cb)
}

// AddNode appends a node to a participant, creating the participant if
// necessary, and returns the participant's announcement snapshot.
func (c *Cache) AddNode(participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	c.mu.Lock()
	p := c.ensureParticipantLocked(participantGid)
	p.nodes = append(p.nodes, &node{namespace: namespace, name: name})
	snap := c.snapshotLocked(participantGid)
	cb := c.onChange
	c.mu.Unlock()

	fire(cb)
	return snap
}

// RemoveNode removes the first node matching (namespace, name) and
// returns the updated snapshot. An unknown participant yields an empty
// snapshot carrying that gid.
func (c *Cache) RemoveNode(participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	c.mu.Lock()
	p, ok := c.participants[participantGid]
	if !ok {
		c.mu.Unlock()
		return msg.ParticipantEntitiesInfo{Gid: participantGid}
	}

	changed := false
	for i, n := range p.nodes {
		if n.key(name, namespace) {
			p.nodes = append(p.nodes[:i], p.nodes[i+1:]...)
			changed = true
			break
		}
	}
	snap := c.snapshotLocked(participantGid)
	cb := c.onChange
	c.mu.Unlock()

	if changed {
		fire(cb)
	}
	return snap
}

// AssociateReader links a reader gid to a node, creating the
// participant and node on the fly when absent, and returns the
// participant's snapshot.
func (c *Cache) AssociateReader(readerGid, participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	return c.associate(readerGid, participantGid, name, namespace, true)
}

// AssociateWriter links a writer gid to a node. See AssociateReader.
func (c *Cache) AssociateWriter(writerGid, participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	return c.associate(writerGid, participantGid, name, namespace, false)
}

// DissociateReader removes the first occurrence of the reader gid from
// the targeted node and returns the participant's snapshot. Absent
// participant, node or gid at any level is a no-op.
func (c *Cache) DissociateReader(readerGid, participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	return c.dissociate(readerGid, participantGid, name, namespace, true)
}

// DissociateWriter removes the first occurrence of the writer gid from
// the targeted node. See DissociateReader.
func (c *Cache) DissociateWriter(writerGid, participantGid types.Gid, name, namespace string) msg.ParticipantEntitiesInfo {
	return c.dissociate(writerGid, participantGid, name, namespace, false)
}

// UpdateParticipantEntities atomically replaces the cached record of
// the announcing participant with the node list carried in the
// message. An empty node list empties the record but keeps the
// participant; departure is signalled by RemoveParticipant.
func (c *Cache) UpdateParticipantEntities(info msg.ParticipantEntitiesInfo) {
	c.mu.Lock()
	p := c.ensureParticipantLocked(info.Gid)
	p.nodes = p.nodes[:0]
	for _, n := range info.NodeEntitiesInfoSeq {
		p.nodes = append(p.nodes, &node{
			namespace: n.NodeNamespace,
			name:      n.NodeName,
			readers:   append([]types.Gid(nil), n.ReaderGidSeq...),
			writers:   append([]types.Gid(nil), n.WriterGidSeq...),
		})
	}
	cb := c.onChange
	c.mu.Unlock()

	c.log.Debugw("participant entities updated",
		"participant", info.Gid.Short(), "nodes", len(info.NodeEntitiesInfoSeq))
	fire(cb)
}

func (c *Cache) associate(endpoint, participantGid types.Gid, name, namespace string, reader bool) msg.ParticipantEntitiesInfo {
	c.mu.Lock()
	target := c.ensureNodeLocked(participantGid, name, namespace)
	// Claiming an endpoint removes its first occurrence from every
	// other node, so re-associating moves it. Repeat associations on
	// the owning node itself still append.
	c.detachFromOthersLocked(endpoint, reader, target)
	if reader {
		target.readers = append(target.readers, endpoint)
	} else {
		target.writers = append(target.writers, endpoint)
	}
	snap := c.snapshotLocked(participantGid)
	cb := c.onChange
	c.mu.Unlock()

	fire(cb)
	return snap
}

func (c *Cache) dissociate(endpoint, participantGid types.Gid, name, namespace string, reader bool) msg.ParticipantEntitiesInfo {
	c.mu.Lock()
	p, ok := c.participants[participantGid]
	if !ok {
		c.mu.Unlock()
		return msg.ParticipantEntitiesInfo{Gid: participantGid}
	}

	changed := false
	for _, n := range p.nodes {
		if !n.key(name, namespace) {
			continue
		}
		if reader {
			n.readers, changed = removeFirst(n.readers, endpoint)
		} else {
			n.writers, changed = removeFirst(n.writers, endpoint)
		}
		break
	}
	snap := c.snapshotLocked(participantGid)
	cb := c.onChange
	c.mu.Unlock()

	if changed {
		fire(cb)
	}
	return snap
}

func (c *Cache) ensureParticipantLocked(gid types.Gid) *participant {
	p, ok := c.participants[gid]
	if !ok {
		p = &participant{}
		c.participants[gid] = p
		c.order = append(c.order, gid)
	}
	return p
}

func (c *Cache) ensureNodeLocked(participantGid types.Gid, name, namespace string) *node {
	p := c.ensureParticipantLocked(participantGid)
	for _, n := range p.nodes {
		if n.key(name, namespace) {
			return n
		}
	}
	n := &node{namespace: namespace, name: name}
	p.nodes = append(p.nodes, n)
	return n
}

func (c *Cache) detachFromOthersLocked(endpoint types.Gid, reader bool, keep *node) {
	for _, p := range c.participants {
		for _, n := range p.nodes {
			if n == keep {
				continue
			}
			if reader {
				n.readers, _ = removeFirst(n.readers, endpoint)
			} else {
				n.writers, _ = removeFirst(n.writers, endpoint)
			}
		}
	}
}

func (c *Cache) snapshotLocked(gid types.Gid) msg.ParticipantEntitiesInfo {
	info := msg.ParticipantEntitiesInfo{Gid: gid}
	p, ok := c.participants[gid]
	if !ok {
		return info
	}
	for _, n := range p.nodes {
		info.NodeEntitiesInfoSeq = append(info.NodeEntitiesInfoSeq, msg.NodeEntitiesInfo{
			NodeNamespace: n.namespace,
			NodeName:      n.name,
			ReaderGidSeq:  append([]types.Gid(nil), n.readers...),
			WriterGidSeq:  append([]types.Gid(nil), n.writers...),
		})
	}
	return info
}

func removeFirst(gids []types.Gid, gid types.Gid) ([]types.Gid, bool) {
	for i, g := range gids {
		if g == gid {
			return append(gids[:i], gids[i+1:]...), true
		}
	}
	return gids, false
}

func fire(cb func()) {
	if cb != nil {
		cb()
	}
}
