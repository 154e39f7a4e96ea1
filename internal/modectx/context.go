// Package modectx holds the per-mode navigation state a session carries:
// last location, scroll offsets, drafts, search history and viewed content.
// Professional and anonymous state never mix; the cache keeps one slot per
// mode and hands out value copies.
package modectx

import (
	"time"

	"linker/internal/models"
)

// Draft is an unsaved post body scoped to the mode it was written in.
type Draft struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Set is an explicit string set for viewed-content tracking.
type Set map[string]struct{}

// Add inserts id into the set.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Values returns the set's members in unspecified order.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Context is the navigation state for one mode.
type Context struct {
	LastLocation    string         `json:"last_location"`
	ScrollPositions map[string]int `json:"scroll_positions"`
	Drafts          []Draft        `json:"drafts"`
	SearchHistory   []string       `json:"search_history"`
	ViewedContent   Set            `json:"viewed_content"`
}

func newContext(root string) *Context {
	return &Context{
		LastLocation:    root,
		ScrollPositions: make(map[string]int),
		ViewedContent:   make(Set),
	}
}

// clone returns a deep copy so callers can't mutate the stored slot.
func (c *Context) clone() Context {
	scroll := make(map[string]int, len(c.ScrollPositions))
	for path, offset := range c.ScrollPositions {
		scroll[path] = offset
	}
	drafts := make([]Draft, len(c.Drafts))
	copy(drafts, c.Drafts)
	history := make([]string, len(c.SearchHistory))
	copy(history, c.SearchHistory)

	return Context{
		LastLocation:    c.LastLocation,
		ScrollPositions: scroll,
		Drafts:          drafts,
		SearchHistory:   history,
		ViewedContent:   c.ViewedContent.clone(),
	}
}

// Cache holds exactly two Context slots, one per mode. Slots are created at
// construction with the mode's default root and are only ever overwritten,
// never removed. The cache is not internally synchronized; the owning
// controller serializes access.
type Cache struct {
	slots map[models.Mode]*Context
}

// NewCache returns a Cache whose empty contexts restore to the given
// per-mode default roots.
func NewCache(professionalRoot, anonymousRoot string) *Cache {
	return &Cache{
		slots: map[models.Mode]*Context{
			models.ModeProfessional: newContext(professionalRoot),
			models.ModeAnonymous:    newContext(anonymousRoot),
		},
	}
}

func (c *Cache) slot(mode models.Mode) *Context {
	return c.slots[mode]
}

// Snapshot records the mode's current location and merges the (path, offset)
// scroll entry. Prior scroll entries are never removed.
func (c *Cache) Snapshot(mode models.Mode, location, path string, offset int) {
	ctx := c.slot(mode)
	if ctx == nil {
		return
	}
	if location != "" {
		ctx.LastLocation = location
	}
	if path != "" {
		ctx.ScrollPositions[path] = offset
	}
}

// Restore returns a copy of the stored context for mode. A never-populated
// slot restores to the mode's default root with empty collections.
func (c *Cache) Restore(mode models.Mode) Context {
	ctx := c.slot(mode)
	if ctx == nil {
		return Context{ScrollPositions: map[string]int{}, ViewedContent: Set{}}
	}
	return ctx.clone()
}

// PushDraft appends a draft to the mode's draft sequence.
func (c *Cache) PushDraft(mode models.Mode, draft Draft) {
	ctx := c.slot(mode)
	if ctx == nil {
		return
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}
	ctx.Drafts = append(ctx.Drafts, draft)
}

// Drafts returns the mode's drafts in push order.
func (c *Cache) Drafts(mode models.Mode) []Draft {
	ctx := c.slot(mode)
	if ctx == nil {
		return nil
	}
	out := make([]Draft, len(ctx.Drafts))
	copy(out, ctx.Drafts)
	return out
}

// PushSearch appends a search term to the mode's history.
func (c *Cache) PushSearch(mode models.Mode, term string) {
	ctx := c.slot(mode)
	if ctx == nil || term == "" {
		return
	}
	ctx.SearchHistory = append(ctx.SearchHistory, term)
}

// SearchHistory returns the mode's search terms in push order.
func (c *Cache) SearchHistory(mode models.Mode) []string {
	ctx := c.slot(mode)
	if ctx == nil {
		return nil
	}
	out := make([]string, len(ctx.SearchHistory))
	copy(out, ctx.SearchHistory)
	return out
}

// MarkViewed records a piece of content as viewed in the given mode.
func (c *Cache) MarkViewed(mode models.Mode, contentID string) {
	ctx := c.slot(mode)
	if ctx == nil || contentID == "" {
		return
	}
	ctx.ViewedContent.Add(contentID)
}

// Viewed returns a copy of the mode's viewed-content set.
func (c *Cache) Viewed(mode models.Mode) Set {
	ctx := c.slot(mode)
	if ctx == nil {
		return Set{}
	}
	return ctx.ViewedContent.clone()
}
