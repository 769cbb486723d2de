package graph

import (
	"sort"

	"github.com/sambigeara/ddsgraph/pkg/types"
)

// DemangleFunc translates a raw wire-level topic or type name into its
// user-visible form. Returning the empty string hides the entry. A nil
// DemangleFunc is treated as the identity.
//
// Demangle functions run synchronously under the cache's read lock and
// must not call back into the cache.
type DemangleFunc func(string) string

// TopicTypes pairs a topic with the sorted, deduplicated set of type
// names seen on it.
type TopicTypes struct {
	Topic string
	Types []string
}

// EndpointInfo is the resolved view of one entry in the entity index.
type EndpointInfo struct {
	Gid       types.Gid
	TopicName string
	TypeName  string
	Reader    bool
}

// NodeNames flattens every node in the cache into two parallel name
// and namespace slices. Nodes of a participant keep insertion order;
// participants are iterated in order of first observation. The same
// (namespace, name) pair appearing under several participants is
// emitted once per occurrence.
func (c *Cache) NodeNames() (names, namespaces []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, gid := range c.order {
		for _, n := range c.participants[gid].nodes {
			names = append(names, n.name)
			namespaces = append(namespaces, n.namespace)
		}
	}
	return names, namespaces
}

// NodeCount returns the total number of nodes across all participants,
// counting duplicated keys once per occurrence.
func (c *Cache) NodeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, p := range c.participants {
		count += len(p.nodes)
	}
	return count
}

// NamesAndTypes maps every demangled topic in the entity index to its
// sorted set of demangled types. Topics are emitted in sorted order;
// entries whose demangling returns empty are omitted.
func (c *Cache) NamesAndTypes(demangleTopic, demangleType DemangleFunc) []TopicTypes {
	demangleTopic = orIdentity(demangleTopic)
	demangleType = orIdentity(demangleType)

	c.mu.RLock()
	defer c.mu.RUnlock()

	byTopic := make(map[string]map[string]struct{})
	for _, info := range c.entities {
		collectTopicType(byTopic, info, demangleTopic, demangleType)
	}
	return flattenTopicTypes(byTopic)
}

// ReaderNamesAndTypesByNode resolves the reader gids associated with
// every node matching (namespace, name) against the entity index and
// returns the topic/type mapping. Gids the index cannot resolve are
// skipped. ErrNodeNotFound is returned when no participant has such a
// node.
func (c *Cache) ReaderNamesAndTypesByNode(name, namespace string, demangleTopic, demangleType DemangleFunc) ([]TopicTypes, error) {
	return c.namesAndTypesByNode(name, namespace, demangleTopic, demangleType, true)
}

// WriterNamesAndTypesByNode is the writer-side counterpart of
// ReaderNamesAndTypesByNode.
func (c *Cache) WriterNamesAndTypesByNode(name, namespace string, demangleTopic, demangleType DemangleFunc) ([]TopicTypes, error) {
	return c.namesAndTypesByNode(name, namespace, demangleTopic, demangleType, false)
}

// CountReaders counts entity-index readers whose topic equals the
// argument literally; no demangling is applied.
func (c *Cache) CountReaders(topicName string) int {
	return c.countEndpoints(topicName, true)
}

// CountWriters counts entity-index writers whose topic equals the
// argument literally.
func (c *Cache) CountWriters(topicName string) int {
	return c.countEndpoints(topicName, false)
}

// EndpointsByTopic returns the resolved endpoints on a topic, readers
// and writers both, ordered by gid. The topic is matched literally;
// type names are demangled.
func (c *Cache) EndpointsByTopic(topicName string, demangleType DemangleFunc) []EndpointInfo {
	demangleType = orIdentity(demangleType)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []EndpointInfo
	for gid, info := range c.entities {
		if info.topic != topicName {
			continue
		}
		typ := demangleType(info.typ)
		if typ == "" {
			continue
		}
		out = append(out, EndpointInfo{
			Gid:       gid,
			TopicName: info.topic,
			TypeName:  typ,
			Reader:    info.reader,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gid.Less(out[j].Gid) })
	return out
}

// Stats reports the current table sizes, for observability hooks.
func (c *Cache) Stats() (participants, nodes, entities int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.participants {
		nodes += len(p.nodes)
	}
	return len(c.participants), nodes, len(c.entities)
}

func (c *Cache) namesAndTypesByNode(name, namespace string, demangleTopic, demangleType DemangleFunc, readers bool) ([]TopicTypes, error) {
	if name == "" {
		return nil, ErrInvalidArgument
	}
	demangleTopic = orIdentity(demangleTopic)
	demangleType = orIdentity(demangleType)

	c.mu.RLock()
	defer c.mu.RUnlock()

	found := false
	byTopic := make(map[string]map[string]struct{})
	for _, p := range c.participants {
		for _, n := range p.nodes {
			if !n.key(name, namespace) {
				continue
			}
			found = true
			gids := n.readers
			if !readers {
				gids = n.writers
			}
			for _, gid := range gids {
				info, ok := c.entities[gid]
				if !ok {
					// Associations can precede or outlive the
					// endpoint entry.
					continue
				}
				collectTopicType(byTopic, info, demangleTopic, demangleType)
			}
		}
	}
	if !found {
		return nil, ErrNodeNotFound
	}
	return flattenTopicTypes(byTopic), nil
}

func (c *Cache) countEndpoints(topicName string, readers bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, info := range c.entities {
		if info.reader == readers && info.topic == topicName {
			count++
		}
	}
	return count
}

func collectTopicType(byTopic map[string]map[string]struct{}, info entityInfo, demangleTopic, demangleType DemangleFunc) {
	topic := demangleTopic(info.topic)
	if topic == "" {
		return
	}
	typ := demangleType(info.typ)
	if typ == "" {
		return
	}
	typeSet, ok := byTopic[topic]
	if !ok {
		typeSet = make(map[string]struct{})
		byTopic[topic] = typeSet
	}
	typeSet[typ] = struct{}{}
}

func flattenTopicTypes(byTopic map[string]map[string]struct{}) []TopicTypes {
	if len(byTopic) == 0 {
		return nil
	}
	out := make([]TopicTypes, 0, len(byTopic))
	for topic, typeSet := range byTopic {
		typeNames := make([]string, 0, len(typeSet))
		for typ := range typeSet {
			typeNames = append(typeNames, typ)
		}
		sort.Strings(typeNames)
		out = append(out, TopicTypes{Topic: topic, Types: typeNames})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

func orIdentity(f DemangleFunc) DemangleFunc {
	if f == nil {
		return func(s string) string { return s }
	}
	return f
}
