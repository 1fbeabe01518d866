package pause

import (
	"sort"
	"time"

	"github.com/skalibog/rsibot/pkg/models"
)

// Store хранит активные паузы на время жизни процесса.
// Владелец один, блокировок нет.
type Store struct {
	entries map[models.PauseKey]time.Time // ключ -> время возобновления
	now     func() time.Time
}

// Option настройка хранилища
type Option func(*Store)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore создает пустое хранилище пауз
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[models.PauseKey]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsPaused сообщает, что пауза существует и еще не истекла
func (s *Store) IsPaused(key models.PauseKey) bool {
	resumeAt, ok := s.entries[key]
	return ok && s.now().Before(resumeAt)
}

// Pause создает или перезаписывает паузу на d. При d <= 0 ничего не делает.
func (s *Store) Pause(key models.PauseKey, d time.Duration) bool {
	if d <= 0 {
		return false
	}
	s.entries[key] = s.now().Add(d)
	return true
}

// Resume удаляет паузу
func (s *Store) Resume(key models.PauseKey) {
	delete(s.entries, key)
}

// Expired возвращает истекшие паузы в детерминированном порядке
func (s *Store) Expired() []models.PauseKey {
	now := s.now()

	var keys []models.PauseKey
	for key, resumeAt := range s.entries {
		if !now.Before(resumeAt) {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Scope < keys[j].Scope
	})
	return keys
}

// ResumeAt возвращает время возобновления паузы
func (s *Store) ResumeAt(key models.PauseKey) (time.Time, bool) {
	resumeAt, ok := s.entries[key]
	return resumeAt, ok
}

// Len количество записей, включая истекшие, но еще не снятые
func (s *Store) Len() int {
	return len(s.entries)
}
