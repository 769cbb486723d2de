package graph

import (
	"fmt"
	"strings"
)

// String renders the whole cache for debugging: every participant with
// its nodes and association lists, followed by the entity index.
func (c *Cache) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	b.WriteString("participants:\n")
	for _, gid := range c.order {
		fmt.Fprintf(&b, "  %s:\n", gid.Short())
		for _, n := range c.participants[gid].nodes {
			fmt.Fprintf(&b, "    node %s/%s:\n", n.namespace, n.name)
			b.WriteString("      readers:")
			for _, g := range n.readers {
				b.WriteString(" " + g.Short())
			}
			b.WriteString("\n      writers:")
			for _, g := range n.writers {
				b.WriteString(" " + g.Short())
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("entities:\n")
	for _, tt := range c.namesAndTypesLocked() {
		fmt.Fprintf(&b, "  %s: %s\n", tt.Topic, strings.Join(tt.Types, ", "))
	}
	return b.String()
}

func (c *Cache) namesAndTypesLocked() []TopicTypes {
	byTopic := make(map[string]map[string]struct{})
	identity := orIdentity(nil)
	for _, info := range c.entities {
		collectTopicType(byTopic, info, identity, identity)
	}
	return flattenTopicTypes(byTopic)
}
