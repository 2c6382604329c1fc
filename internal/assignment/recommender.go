package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// Workload scoring constants. Preserved exactly for behavioral
// compatibility; the values carry no documented rationale.
const (
	// MaxActiveWorkload is the active-ticket count at which an assignee
	// stops being considered available.
	MaxActiveWorkload = 10
	// AutoAssignMinScore is the lowest recommendation score auto-assign
	// will act on.
	AutoAssignMinScore = 50

	baseScore = 100

	workloadCacheKey = "assignment:workloads"
	workloadCacheTTL = 30 * time.Second
)

// AssigneeWorkload is one assignee's current active-ticket load.
type AssigneeWorkload struct {
	User        domain.User `json:"user"`
	TotalActive int         `json:"total_active"`
	IsAvailable bool        `json:"is_available"`
}

// Recommendation scores a candidate assignee for a ticket. Ephemeral,
// computed on demand.
type Recommendation struct {
	UserID          string      `json:"user_id"`
	User            domain.User `json:"user"`
	Score           int         `json:"score"`
	Reasons         []string    `json:"reasons"`
	CurrentWorkload int         `json:"current_workload"`
}

// workloadCache is the snapshot cache surface. Backed by Redis in
// production; tests substitute a recording fake.
type workloadCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type redisWorkloadCache struct {
	client *redis.Client
}

func (c redisWorkloadCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, key).Bytes()
}

func (c redisWorkloadCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c redisWorkloadCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Recommender computes workloads, scores candidates and performs
// assignment operations.
type Recommender struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	cache      workloadCache
	logger     *zap.Logger
}

// Dependencies bundles collaborators. Cache is optional; without it every
// workload read hits the repository.
type Dependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Cache      *redis.Client
	Logger     *zap.Logger
}

// NewRecommender creates the service.
func NewRecommender(deps Dependencies) *Recommender {
	r := &Recommender{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
	if deps.Cache != nil {
		r.cache = redisWorkloadCache{client: deps.Cache}
	}
	return r
}

// RegisterEventHandlers drops the cached workload snapshot whenever a
// status change flips a ticket in or out of the active set, so scoring
// never runs against counts the transition just changed. Assignment
// changes invalidate inline.
func (r *Recommender) RegisterEventHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketStatusChanged, func(ctx context.Context, event events.Event) error {
		r.invalidateWorkloads(ctx)
		return nil
	})
}

// GetAvailableAssignees returns all active users with role AGENT or ADMIN.
func (r *Recommender) GetAvailableAssignees(ctx context.Context) ([]domain.User, error) {
	assignees, err := r.users.ListByRoles(ctx, []domain.Role{domain.RoleAgent, domain.RoleAdmin}, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignees, nil
}

// GetAssigneeWorkloads counts active tickets per assignee, sorted ascending
// by load. Results are cached briefly; a cold or unreachable cache falls
// back to direct counts.
func (r *Recommender) GetAssigneeWorkloads(ctx context.Context) ([]AssigneeWorkload, error) {
	if cached := r.cachedWorkloads(ctx); cached != nil {
		return cached, nil
	}

	assignees, err := r.GetAvailableAssignees(ctx)
	if err != nil {
		return nil, err
	}

	activeStatuses := []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}
	workloads := make([]AssigneeWorkload, 0, len(assignees))
	for _, assignee := range assignees {
		total, err := r.tickets.CountAssigned(ctx, assignee.ID, activeStatuses)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		workloads = append(workloads, AssigneeWorkload{
			User:        assignee,
			TotalActive: total,
			IsAvailable: total < MaxActiveWorkload,
		})
	}
	sort.SliceStable(workloads, func(i, j int) bool {
		return workloads[i].TotalActive < workloads[j].TotalActive
	})

	r.storeWorkloads(ctx, workloads)
	return workloads, nil
}

// GetAssignmentRecommendations scores every available assignee for the
// given ticket, highest first. Ties keep the workload-list order.
func (r *Recommender) GetAssignmentRecommendations(ctx context.Context, ticketID string) ([]Recommendation, error) {
	ticket, err := r.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	workloads, err := r.GetAssigneeWorkloads(ctx)
	if err != nil {
		return nil, err
	}

	recommendations := make([]Recommendation, 0, len(workloads))
	for _, workload := range workloads {
		score, reasons := scoreCandidate(ticket, workload)
		recommendations = append(recommendations, Recommendation{
			UserID:          workload.User.ID,
			User:            workload.User,
			Score:           score,
			Reasons:         reasons,
			CurrentWorkload: workload.TotalActive,
		})
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})
	return recommendations, nil
}

func scoreCandidate(ticket *domain.Ticket, workload AssigneeWorkload) (int, []string) {
	score := baseScore
	reasons := []string{}

	switch {
	case workload.TotalActive == 0:
		score += 20
		reasons = append(reasons, "no active tickets")
	case workload.TotalActive < 3:
		score += 10
		reasons = append(reasons, "light workload")
	}
	if workload.TotalActive > 7 {
		score -= 20
		reasons = append(reasons, "heavy workload")
	}

	highPriority := ticket.Priority == domain.TicketPriorityUrgent || ticket.Priority == domain.TicketPriorityHigh
	if highPriority && workload.User.Role == domain.RoleAdmin {
		score += 15
		reasons = append(reasons, "admin preferred for high priority")
	}
	if !highPriority && workload.User.Role == domain.RoleAgent {
		score += 5
		reasons = append(reasons, "agent preferred for routine priority")
	}

	if workload.IsAvailable {
		score += 10
		reasons = append(reasons, "has available capacity")
	} else {
		score -= 30
		reasons = append(reasons, "at capacity")
	}

	if score < 0 {
		score = 0
	}
	return score, reasons
}

// AutoAssignTicket assigns the top-scoring candidate. Candidates scoring
// below the cutoff are never selected; the ticket is left untouched when
// none qualifies.
func (r *Recommender) AutoAssignTicket(ctx context.Context, ticketID, actorID string) (*domain.Ticket, error) {
	recommendations, err := r.GetAssignmentRecommendations(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if len(recommendations) == 0 || recommendations[0].Score < AutoAssignMinScore {
		return nil, apperrors.NewValidationError("no suitable assignee available", nil)
	}
	top := recommendations[0]
	return r.assign(ctx, ticketID, top.UserID, actorID, "auto-assigned", &top.Score)
}

// AssignTicket assigns the ticket to the given assignee.
func (r *Recommender) AssignTicket(ctx context.Context, ticketID, assigneeID, actorID, reason string) (*domain.Ticket, error) {
	return r.assign(ctx, ticketID, assigneeID, actorID, reason, nil)
}

// ReassignTicket moves the ticket to a different assignee. Same rules as
// assignment; the previous assignee is notified of the handover.
func (r *Recommender) ReassignTicket(ctx context.Context, ticketID, assigneeID, actorID, reason string) (*domain.Ticket, error) {
	return r.assign(ctx, ticketID, assigneeID, actorID, reason, nil)
}

// UnassignTicket clears the current assignee. Rejects when the ticket has
// none.
func (r *Recommender) UnassignTicket(ctx context.Context, ticketID, actorID, reason string) (*domain.Ticket, error) {
	actor, err := r.loadStaffActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	ticket, err := r.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedTo == nil {
		return nil, apperrors.NewValidationError("ticket is not assigned", nil)
	}

	previous := r.lookupUser(ctx, *ticket.AssignedTo)
	if err := r.tickets.UpdateAssignee(ctx, ticket.ID, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.AssignedTo = nil
	ticket.UpdatedAt = time.Now()

	r.publishAssigned(ctx, ticket, actor, nil, previous, nil)

	updated, err := r.tickets.GetByIDWithRelations(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

// BulkAssignTickets assigns each ticket in turn with per-item isolation.
func (r *Recommender) BulkAssignTickets(ctx context.Context, ticketIDs []string, assigneeID, actorID, reason string) *domain.BulkResult {
	result := domain.NewBulkResult()
	for _, id := range ticketIDs {
		if _, err := r.AssignTicket(ctx, id, assigneeID, actorID, reason); err != nil {
			result.AddFailure(id, err)
			continue
		}
		result.AddSuccess(id)
	}
	return result
}

func (r *Recommender) assign(ctx context.Context, ticketID, assigneeID, actorID, reason string, score *int) (*domain.Ticket, error) {
	actor, err := r.loadStaffActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	assignee, err := r.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.CanBeAssigned() {
		return nil, apperrors.NewValidationError("assignee must be an active agent or admin",
			map[string]any{"user_id": assigneeID})
	}
	ticket, err := r.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var previous *domain.User
	if ticket.AssignedTo != nil && *ticket.AssignedTo != assignee.ID {
		previous = r.lookupUser(ctx, *ticket.AssignedTo)
	}

	if err := r.tickets.UpdateAssignee(ctx, ticket.ID, &assignee.ID); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.AssignedTo = &assignee.ID
	ticket.UpdatedAt = time.Now()

	r.publishAssigned(ctx, ticket, actor, assignee, previous, score)

	updated, err := r.tickets.GetByIDWithRelations(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return updated, nil
}

func (r *Recommender) loadStaffActor(ctx context.Context, actorID string) (*domain.User, error) {
	actor, err := r.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.IsActive {
		return nil, apperrors.NewNotFound("user", map[string]any{"user_id": actorID})
	}
	if actor.Role == domain.RoleUser {
		return nil, apperrors.NewForbidden("end-users cannot manage assignments")
	}
	return actor, nil
}

func (r *Recommender) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := r.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (r *Recommender) lookupUser(ctx context.Context, id string) *domain.User {
	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return user
}

func (r *Recommender) publishAssigned(ctx context.Context, ticket *domain.Ticket, actor, newAssignee, previous *domain.User, score *int) {
	if r.dispatcher == nil {
		return
	}
	r.invalidateWorkloads(ctx)
	snapshot := *ticket
	_ = r.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Timestamp: time.Now(),
		Payload: events.TicketAssignedPayload{
			Ticket:           &snapshot,
			Actor:            actor,
			NewAssignee:      newAssignee,
			PreviousAssignee: previous,
			Score:            score,
		},
	})
}

func (r *Recommender) cachedWorkloads(ctx context.Context) []AssigneeWorkload {
	if r.cache == nil {
		return nil
	}
	raw, err := r.cache.Get(ctx, workloadCacheKey)
	if err != nil {
		return nil
	}
	var workloads []AssigneeWorkload
	if err := json.Unmarshal(raw, &workloads); err != nil {
		return nil
	}
	return workloads
}

func (r *Recommender) storeWorkloads(ctx context.Context, workloads []AssigneeWorkload) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(workloads)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, workloadCacheKey, raw, workloadCacheTTL); err != nil {
		r.logger.Debug("workload cache write failed", zap.Error(err))
	}
}

func (r *Recommender) invalidateWorkloads(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, workloadCacheKey); err != nil {
		r.logger.Debug("workload cache invalidation failed", zap.Error(err))
	}
}
