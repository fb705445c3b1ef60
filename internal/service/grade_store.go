package service

import (
	"sync"
	"time"

	"github.com/noah-isme/academic-insights/internal/models"
)

// GradeStore holds the grade records last delivered by the academic API, per student.
// It performs no computation and hands out copies.
type GradeStore struct {
	mu        sync.RWMutex
	records   map[string][]models.GradeRecord
	fetchedAt map[string]time.Time
}

// NewGradeStore builds an empty store.
func NewGradeStore() *GradeStore {
	return &GradeStore{
		records:   make(map[string][]models.GradeRecord),
		fetchedAt: make(map[string]time.Time),
	}
}

// Put replaces the records held for a student.
func (s *GradeStore) Put(studentID string, records []models.GradeRecord, at time.Time) {
	cp := make([]models.GradeRecord, len(records))
	copy(cp, records)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[studentID] = cp
	s.fetchedAt[studentID] = at
}

// Get returns the records held for a student and when they were fetched.
func (s *GradeStore) Get(studentID string) ([]models.GradeRecord, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.records[studentID]
	if !ok {
		return nil, time.Time{}, false
	}
	cp := make([]models.GradeRecord, len(records))
	copy(cp, records)
	return cp, s.fetchedAt[studentID], true
}

// Find looks a record up by ID across students.
func (s *GradeStore) Find(id string) (models.GradeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, records := range s.records {
		for _, record := range records {
			if record.ID == id {
				return record, true
			}
		}
	}
	return models.GradeRecord{}, false
}

// Apply inserts or replaces a single record. A validated record is never replaced by a
// pending copy of itself.
func (s *GradeStore) Apply(record models.GradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.records[record.StudentID]
	for i := range records {
		if records[i].ID != record.ID {
			continue
		}
		if records[i].Validated() && !record.Validated() {
			record.State = models.GradeValidated
		}
		records[i] = record
		return
	}
	if _, tracked := s.records[record.StudentID]; tracked {
		s.records[record.StudentID] = append(records, record)
	}
}

// Forget drops a student's records.
func (s *GradeStore) Forget(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, studentID)
	delete(s.fetchedAt, studentID)
}
