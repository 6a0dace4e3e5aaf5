package clock

import (
	"sync"
	"time"
)

// Clock отдаёт текущее время. Продакшн-код получает Real(), тесты — Fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real возвращает системные часы (UTC).
func Real() Clock { return realClock{} }

// Fake — управляемые часы для тестов. Каждый вызов Now сдвигает время на Step,
// чтобы записи аудита были строго упорядочены.
type Fake struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewFake создаёт часы, начинающиеся с start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC(), Step: time.Millisecond}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.Step)
	return t
}

// Advance сдвигает часы на d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
