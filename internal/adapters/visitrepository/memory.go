package visitrepository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ssservicios/s3pay/internal/domain"
)

type Memory struct {
	mutex sync.Mutex
	rows  []domain.VisitRow
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	index, ok := domain.FindVisitRow(m.rows, at.Format(domain.VisitDateLayout), visit.Identifier)
	if !ok {
		m.rows = append(m.rows, domain.NewQueryRow(at, visit))
		return nil
	}

	m.rows[index] = m.rows[index].WithQuery(at, visit)
	return nil
}

func (m *Memory) RegisterClick(ctx context.Context, at time.Time, identifier string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	index, ok := domain.FindVisitRow(m.rows, at.Format(domain.VisitDateLayout), identifier)
	if !ok {
		m.rows = append(m.rows, domain.NewClickRow(at, identifier))
		return nil
	}

	m.rows[index] = m.rows[index].WithClick(at)
	return nil
}

// A copy of the stored rows, in insertion order
func (m *Memory) Rows() []domain.VisitRow {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return slices.Clone(m.rows)
}
