package qrs

import (
	"context"

	"github.com/ptarmiganlabs/ctrlq/errors"
)

// Caches holds the read-mostly tag, custom property and stream populations.
// They are warmed once per run and thereafter treated as immutable; lookups
// are case-sensitive, matching QRS semantics.
type Caches struct {
	tagsByName    map[string]Tag
	propsByName   map[string]CustomPropertyDefinition
	streamsByName map[string]Stream
	streamsByID   map[string]Stream
}

// WarmCaches fetches the full tag, custom property and stream populations.
func WarmCaches(ctx context.Context, client *Client) (*Caches, error) {
	tags, err := client.ListTags(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cache warm-up")
	}
	props, err := client.ListCustomProperties(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cache warm-up")
	}
	streams, err := client.ListStreams(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cache warm-up")
	}
	return NewCaches(tags, props, streams), nil
}

// NewCaches indexes already-fetched populations. Split out from WarmCaches
// so tests can seed caches without a server.
func NewCaches(tags []Tag, props []CustomPropertyDefinition, streams []Stream) *Caches {
	c := &Caches{
		tagsByName:    make(map[string]Tag, len(tags)),
		propsByName:   make(map[string]CustomPropertyDefinition, len(props)),
		streamsByName: make(map[string]Stream, len(streams)),
		streamsByID:   make(map[string]Stream, len(streams)),
	}
	for _, t := range tags {
		c.tagsByName[t.Name] = t
	}
	for _, p := range props {
		c.propsByName[p.Name] = p
	}
	for _, s := range streams {
		c.streamsByName[s.Name] = s
		c.streamsByID[s.ID] = s
	}
	return c
}

// TagByName returns the tag with the given name, case-sensitively.
func (c *Caches) TagByName(name string) (Tag, bool) {
	t, ok := c.tagsByName[name]
	return t, ok
}

// CustomPropertyByName returns a custom property definition by name.
func (c *Caches) CustomPropertyByName(name string) (CustomPropertyDefinition, bool) {
	p, ok := c.propsByName[name]
	return p, ok
}

// StreamByName returns a stream by case-sensitive name.
func (c *Caches) StreamByName(name string) (Stream, bool) {
	s, ok := c.streamsByName[name]
	return s, ok
}

// StreamByID returns a stream by GUID.
func (c *Caches) StreamByID(id string) (Stream, bool) {
	s, ok := c.streamsByID[id]
	return s, ok
}
