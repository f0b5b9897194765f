package scene

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/home-designer/backend/internal/models"
)

// Id prefixes per collection.
const (
	PrefixRoom    = "room"
	PrefixWall    = "wall"
	PrefixOpening = "opening"
	PrefixObject  = "obj"
)

// IDGenerator hands out element ids. Implementations must never return the same id
// twice for the lifetime of the generator.
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator produces prefix_<uuid v4> ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// SequenceGenerator produces prefix_<n> ids from a counter scoped to one generator.
// Useful for sessions that want short, readable ids.
type SequenceGenerator struct {
	n atomic.Uint64
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

func (g *SequenceGenerator) NewID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, g.n.Add(1))
}

// Observe moves the counter past id when it has the prefix_<n> form, so ids loaded
// from input or removed since are never handed out again.
func (g *SequenceGenerator) Observe(id string) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return
	}
	for {
		cur := g.n.Load()
		if cur >= n || g.n.CompareAndSwap(cur, n) {
			return
		}
	}
}

// IDObserver is implemented by generators that need to see ids already in use.
type IDObserver interface {
	Observe(id string)
}

// Observe reports id to gen if gen tracks ids in use.
func Observe(gen IDGenerator, id string) {
	if o, ok := gen.(IDObserver); ok && id != "" {
		o.Observe(id)
	}
}

// ObserveDocument reports every element id and material surface id in doc to gen.
func ObserveDocument(gen IDGenerator, doc *models.SceneDocument) {
	o, ok := gen.(IDObserver)
	if !ok || doc == nil {
		return
	}
	for _, r := range doc.Rooms {
		o.Observe(r.ID)
	}
	for _, w := range doc.Walls {
		o.Observe(w.ID)
	}
	for _, op := range doc.Openings {
		o.Observe(op.ID)
	}
	for _, obj := range doc.Objects {
		o.Observe(obj.ID)
	}
	for surface := range doc.Materials {
		o.Observe(surface)
	}
}

// FreshID draws ids from gen until one is not in taken.
func FreshID(gen IDGenerator, prefix string, taken func(string) bool) string {
	for {
		id := gen.NewID(prefix)
		if !taken(id) {
			return id
		}
	}
}
