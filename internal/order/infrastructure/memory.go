package infrastructure

import (
	"context"
	"sort"
	"sync"

	"stockpile/internal/order/domain"
)

// MemoryStore is the DB-less backend: users, products, and orders behind one
// mutex. Holding the lock across the whole of CommitOrder gives the same
// linearizable check-and-decrement the MySQL transaction provides, which is
// what the concurrency tests exercise.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[int64]domain.User
	products map[int64]domain.Product
	orders   map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]domain.User),
		products: make(map[int64]domain.Product),
		orders:   make(map[string]domain.Order),
	}
}

// AddUser and AddProduct seed the store.
func (s *MemoryStore) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// ProductStock reports the current stock, for tests and diagnostics.
func (s *MemoryStore) ProductStock(id int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p.Stock, ok
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CommitOrder validates every line before applying any decrement, so a
// mid-order failure leaves no partial state.
func (s *MemoryStore) CommitOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrAlreadyProcessed
	}

	// Duplicate product IDs within one order accumulate, so validate
	// against a scratch copy of the stock.
	scratch := make(map[int64]int, len(order.Lines))
	for _, line := range order.Lines {
		p, ok := s.products[line.ProductID]
		if !ok {
			return domain.ErrProductsNotFound
		}
		if _, seen := scratch[line.ProductID]; !seen {
			scratch[line.ProductID] = p.Stock
		}
		if scratch[line.ProductID] < line.Quantity {
			return &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   line.Quantity,
				Available:   scratch[line.ProductID],
			}
		}
		scratch[line.ProductID] -= line.Quantity
	}

	for id, remaining := range scratch {
		p := s.products[id]
		p.Stock = remaining
		s.products[id] = p
	}

	stored := *order
	stored.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.orders[order.ID] = stored
	return nil
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		cp := o
		cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryJobStatusStore is the in-process JobStatusStore used by the memory
// backend and the tests.
type MemoryJobStatusStore struct {
	mu        sync.Mutex
	statuses  map[string]domain.JobStatus
	processed map[string]struct{}
}

func NewMemoryJobStatusStore() *MemoryJobStatusStore {
	return &MemoryJobStatusStore{
		statuses:  make(map[string]domain.JobStatus),
		processed: make(map[string]struct{}),
	}
}

func (s *MemoryJobStatusStore) SetStatus(ctx context.Context, status domain.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[status.JobID] = status
	return nil
}

func (s *MemoryJobStatusStore) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[jobID]
	if !ok {
		return domain.JobStatus{}, domain.ErrStatusNotFound
	}
	return st, nil
}

func (s *MemoryJobStatusStore) MarkProcessed(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[jobID] = struct{}{}
	return nil
}

func (s *MemoryJobStatusStore) AlreadyProcessed(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[jobID]
	return ok, nil
}
