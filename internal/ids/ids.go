package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator выдаёт идентификаторы сущностей.
type Generator interface {
	// NewUUID — идентификатор заказа, спора, сообщения, решения.
	NewUUID() uuid.UUID
	// NewSortable — лексикографически упорядоченный идентификатор (записи аудита, outbox).
	NewSortable() string
}

// ULIDGenerator — генератор по умолчанию: uuid v4 + монотонный ULID.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New создаёт генератор с собственным источником энтропии.
func New() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (g *ULIDGenerator) NewUUID() uuid.UUID {
	return uuid.New()
}

func (g *ULIDGenerator) NewSortable() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
