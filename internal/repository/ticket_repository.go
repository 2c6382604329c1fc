package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatedBy   *string
	AssignedTo  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. The workflow and
// assignment subsystems only ever mutate status, assignee and updated_at.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDWithRelations(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	UpdateAssignee(ctx context.Context, id string, assigneeID *string) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountAssigned(ctx context.Context, assigneeID string, statuses []domain.TicketStatus) (int, error)
	FindStale(ctx context.Context, createdBefore time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, created_by, assigned_to, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, created_by, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.AssignedTo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByIDWithRelations(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT t.id, t.title, t.description, t.status, t.priority, t.created_by, t.assigned_to, t.created_at, t.updated_at,
               c.id, c.name, c.email, c.role, c.is_active,
               a.id, a.name, a.email, a.role, a.is_active
        FROM tickets t
        JOIN users c ON c.id = t.created_by
        LEFT JOIN users a ON a.id = t.assigned_to
        WHERE t.id=$1`

	var ticket domain.Ticket
	var creator domain.User
	var assigneeID, assigneeName, assigneeEmail, assigneeRole *string
	var assigneeActive *bool

	dest := ticketFields(&ticket)
	dest = append(dest,
		&creator.ID, &creator.Name, &creator.Email, &creator.Role, &creator.IsActive,
		&assigneeID, &assigneeName, &assigneeEmail, &assigneeRole, &assigneeActive,
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(dest...); err != nil {
		return nil, err
	}
	ticket.Creator = &creator
	if assigneeID != nil {
		ticket.Assignee = &domain.User{
			ID:       *assigneeID,
			Name:     derefString(assigneeName),
			Email:    derefString(assigneeEmail),
			Role:     domain.Role(derefString(assigneeRole)),
			IsActive: assigneeActive != nil && *assigneeActive,
		}
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id string, assigneeID *string) error {
	const query = `UPDATE tickets SET assigned_to=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, assigneeID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountAssigned(ctx context.Context, assigneeID string, statuses []domain.TicketStatus) (int, error) {
	args := []any{assigneeID}
	clause := "assigned_to=$1"
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clause += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ","))
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets WHERE %s`, clause)
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) FindStale(ctx context.Context, createdBefore time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE status=$1 AND created_at < $2 ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusOpen, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func ticketFields(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
