package manager

import (
	"context"
	"errors"
	"fmt"

	"FlowSpectra/internal/model"
)

// Consistency verifies that every live record is reachable through every
// index, the aggregate and the category index, that no structure holds more
// entries than the store, and that the tree variants are well formed.
func (m *Manager) Consistency(ctx context.Context) error {
	var cerr error
	if err := m.do(ctx, func() { cerr = m.consistency() }); err != nil {
		return err
	}
	return cerr
}

func (m *Manager) consistency() error {
	var errs []error
	n := m.store.Len()
	for _, idx := range m.indexes {
		if idx.Len() != n {
			errs = append(errs, fmt.Errorf("%s holds %d entries, store holds %d", idx.Name(), idx.Len(), n))
		}
		if v, ok := idx.(interface{ Verify() error }); ok {
			if err := v.Verify(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", idx.Name(), err))
			}
		}
	}
	if m.aggregate.Len() != n {
		errs = append(errs, fmt.Errorf("aggregate holds %d entries, store holds %d", m.aggregate.Len(), n))
	}
	if m.category.Len() != n {
		errs = append(errs, fmt.Errorf("category index holds %d entries, store holds %d", m.category.Len(), n))
	}

	m.store.Ascend(func(ref model.Ref, rec *model.Record) bool {
		for _, idx := range m.indexes {
			if got, ok := idx.Find(ref.ID); !ok || got != ref {
				errs = append(errs, fmt.Errorf("%s: id %d not found at handle %d", idx.Name(), ref.ID, ref.Handle))
			}
		}
		if got, ok := m.aggregate.Find(ref.ID); !ok || got != ref {
			errs = append(errs, fmt.Errorf("aggregate: id %d not found", ref.ID))
		}
		if !m.category.Contains(ref, rec) {
			errs = append(errs, fmt.Errorf("category: id %d not indexed", ref.ID))
		}
		return len(errs) < 16
	})
	return errors.Join(errs...)
}
