package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// In-memory implementations backing the service when no Postgres DSN is
// configured. They satisfy the same interfaces as the pgx repositories and
// report missing rows as pgx.ErrNoRows so error mapping stays uniform.

// MemoryUserRepository is a map-backed UserRepository.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository creates an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

// Seed inserts a user without touching timestamps. Test helper.
func (r *MemoryUserRepository) Seed(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryUserRepository) ListByRoles(ctx context.Context, roles []domain.Role, activeOnly bool) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.User
	for _, user := range r.users {
		if activeOnly && !user.IsActive {
			continue
		}
		if len(roles) > 0 && !roleIn(user.Role, roles) {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func roleIn(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// MemoryTicketRepository is a map-backed TicketRepository. It resolves
// relations against the user repository it is constructed with.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
	users   *MemoryUserRepository
}

// NewMemoryTicketRepository creates an empty store.
func NewMemoryTicketRepository(users *MemoryUserRepository) *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]domain.Ticket),
		users:   users,
	}
}

func (r *MemoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

// Seed inserts a ticket without touching timestamps. Test helper.
func (r *MemoryTicketRepository) Seed(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
}

func (r *MemoryTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Creator = nil
	ticket.Assignee = nil
	return &ticket, nil
}

func (r *MemoryTicketRepository) GetByIDWithRelations(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if creator, err := r.users.GetByID(ctx, ticket.CreatedBy); err == nil {
		ticket.Creator = creator
	}
	if ticket.AssignedTo != nil {
		if assignee, err := r.users.GetByID(ctx, *ticket.AssignedTo); err == nil {
			ticket.Assignee = assignee
		}
	}
	return ticket, nil
}

func (r *MemoryTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = time.Now()
	r.tickets[id] = ticket
	return nil
}

func (r *MemoryTicketRepository) UpdateAssignee(ctx context.Context, id string, assigneeID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.AssignedTo = assigneeID
	ticket.UpdatedAt = time.Now()
	r.tickets[id] = ticket
	return nil
}

func (r *MemoryTicketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(ticket.Status, filter.Statuses) {
			continue
		}
		if len(filter.Priorities) > 0 && !priorityIn(ticket.Priority, filter.Priorities) {
			continue
		}
		if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	result = paginate(result, filter.Limit, filter.Offset)
	return result, nil
}

func (r *MemoryTicketRepository) CountAssigned(ctx context.Context, assigneeID string, statuses []domain.TicketStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, ticket := range r.tickets {
		if ticket.AssignedTo == nil || *ticket.AssignedTo != assigneeID {
			continue
		}
		if len(statuses) > 0 && !statusIn(ticket.Status, statuses) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *MemoryTicketRepository) FindStale(ctx context.Context, createdBefore time.Time) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status != domain.TicketStatusOpen {
			continue
		}
		if !ticket.CreatedAt.Before(createdBefore) {
			continue
		}
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func statusIn(status domain.TicketStatus, statuses []domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func priorityIn(priority domain.TicketPriority, priorities []domain.TicketPriority) bool {
	for _, p := range priorities {
		if p == priority {
			return true
		}
	}
	return false
}

func paginate(tickets []domain.Ticket, limit, offset int) []domain.Ticket {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(tickets) {
		return nil
	}
	end := offset + limit
	if end > len(tickets) {
		end = len(tickets)
	}
	return tickets[offset:end]
}

// MemoryCommentRepository is a map-backed CommentRepository.
type MemoryCommentRepository struct {
	mu       sync.RWMutex
	comments map[string]domain.Comment
}

// NewMemoryCommentRepository creates an empty store.
func NewMemoryCommentRepository() *MemoryCommentRepository {
	return &MemoryCommentRepository{comments: make(map[string]domain.Comment)}
}

func (r *MemoryCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	comment.CreatedAt = time.Now()
	r.comments[comment.ID] = *comment
	return nil
}

func (r *MemoryCommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comment, ok := r.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &comment, nil
}

func (r *MemoryCommentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Comment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryCommentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.comments, id)
	return nil
}
