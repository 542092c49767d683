package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/spec-kit/hubops-service/internal/domain"
)

// TicketFilter narrows ticket listings. Nil fields do not filter.
type TicketFilter struct {
	DepartmentID    *int64
	AssignedStaffID *int64
	Status          *domain.TicketStatus
	Limit           int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetView(ctx context.Context, id int64) (*domain.TicketView, error)
	ListViews(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error)
}

type ticketRepository struct {
	q *querier
}

const ticketColumns = `t.id, t.tenant_name, t.anonymous, t.type, t.priority, t.description, t.photo_url,
               t.status, t.assigned_dept_id, t.estimated_fix_time, t.assigned_duration_minutes,
               t.accepted_at, t.resolved_at, t.proof_url, t.feedback_rating, t.assigned_staff_id,
               t.staff_status, t.created_at, t.version`

const ticketViewQuery = `
        SELECT ` + ticketColumns + `, d.name, u.username
        FROM tickets t
        LEFT JOIN departments d ON d.id = t.assigned_dept_id
        LEFT JOIN users u ON u.id = t.assigned_staff_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (tenant_name, anonymous, type, priority, description, photo_url, status,
            assigned_dept_id, estimated_fix_time, assigned_duration_minutes, accepted_at, resolved_at,
            proof_url, feedback_rating, assigned_staff_id, staff_status, created_at, version)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)
        RETURNING id`
	if err := r.q.queryRow(ctx, query,
		ticket.TenantName,
		ticket.Anonymous,
		ticket.Type,
		ticket.Priority,
		ticket.Description,
		stringArg(ticket.PhotoURL),
		string(ticket.Status),
		int64Arg(ticket.AssignedDeptID),
		stringArg(ticket.EstimatedFixTime),
		intArg(ticket.AssignedDurationMinutes),
		r.q.timePtrArg(ticket.AcceptedAt),
		r.q.timePtrArg(ticket.ResolvedAt),
		stringArg(ticket.ProofURL),
		intArg(ticket.FeedbackRating),
		int64Arg(ticket.AssignedStaffID),
		staffStatusArg(ticket.StaffStatus),
		r.q.timeArg(ticket.CreatedAt),
	).Scan(&ticket.ID); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	ticket.Version = 1
	return nil
}

// Update writes every mutable column when the stored version still matches
// ticket.Version, then bumps the version.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET description=?, status=?, assigned_dept_id=?, estimated_fix_time=?,
            assigned_duration_minutes=?, accepted_at=?, resolved_at=?, proof_url=?,
            assigned_staff_id=?, staff_status=?, version=version+1
        WHERE id=? AND version=?`
	res, err := r.q.exec(ctx, query,
		ticket.Description,
		string(ticket.Status),
		int64Arg(ticket.AssignedDeptID),
		stringArg(ticket.EstimatedFixTime),
		intArg(ticket.AssignedDurationMinutes),
		r.q.timePtrArg(ticket.AcceptedAt),
		r.q.timePtrArg(ticket.ResolvedAt),
		stringArg(ticket.ProofURL),
		int64Arg(ticket.AssignedStaffID),
		staffStatusArg(ticket.StaffStatus),
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=?`
	ticket, err := scanTicket(r.q.queryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) GetView(ctx context.Context, id int64) (*domain.TicketView, error) {
	view, err := scanTicketView(r.q.queryRow(ctx, ticketViewQuery+` WHERE t.id=?`, id))
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListViews returns tickets newest first. Tickets created at the same
// instant keep insertion order.
func (r *ticketRepository) ListViews(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DepartmentID != nil {
		clauses = append(clauses, "t.assigned_dept_id=?")
		args = append(args, *filter.DepartmentID)
	}
	if filter.AssignedStaffID != nil {
		clauses = append(clauses, "t.assigned_staff_id=?")
		args = append(args, *filter.AssignedStaffID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "t.status=?")
		args = append(args, string(*filter.Status))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id ASC`, ticketViewQuery, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	result := []domain.TicketView{}
	for rows.Next() {
		view, err := scanTicketView(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *view)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type ticketRow struct {
	ticket      domain.Ticket
	status      string
	photoURL    sql.NullString
	deptID      sql.NullInt64
	estimate    sql.NullString
	duration    sql.NullInt64
	acceptedAt  nullTime
	resolvedAt  nullTime
	proofURL    sql.NullString
	feedback    sql.NullInt64
	staffID     sql.NullInt64
	staffStatus sql.NullString
	createdAt   nullTime
}

func (row *ticketRow) dest() []any {
	t := &row.ticket
	return []any{
		&t.ID, &t.TenantName, &t.Anonymous, &t.Type, &t.Priority, &t.Description, &row.photoURL,
		&row.status, &row.deptID, &row.estimate, &row.duration,
		&row.acceptedAt, &row.resolvedAt, &row.proofURL, &row.feedback, &row.staffID,
		&row.staffStatus, &row.createdAt, &t.Version,
	}
}

func (row *ticketRow) build() *domain.Ticket {
	t := row.ticket
	t.Status = domain.TicketStatus(row.status)
	t.PhotoURL = stringPtr(row.photoURL)
	t.AssignedDeptID = int64Ptr(row.deptID)
	t.EstimatedFixTime = stringPtr(row.estimate)
	t.AssignedDurationMinutes = intPtr(row.duration)
	t.AcceptedAt = row.acceptedAt.ptr()
	t.ResolvedAt = row.resolvedAt.ptr()
	t.ProofURL = stringPtr(row.proofURL)
	t.FeedbackRating = intPtr(row.feedback)
	t.AssignedStaffID = int64Ptr(row.staffID)
	t.StaffStatus = domain.StaffStatus(row.staffStatus.String)
	t.CreatedAt = row.createdAt.Time
	return &t
}

func scanTicket(s rowScanner) (*domain.Ticket, error) {
	var row ticketRow
	if err := s.Scan(row.dest()...); err != nil {
		return nil, err
	}
	return row.build(), nil
}

func scanTicketView(s rowScanner) (*domain.TicketView, error) {
	var (
		row       ticketRow
		deptName  sql.NullString
		staffName sql.NullString
	)
	if err := s.Scan(append(row.dest(), &deptName, &staffName)...); err != nil {
		return nil, err
	}
	return &domain.TicketView{
		Ticket:            *row.build(),
		AssignedDeptName:  stringPtr(deptName),
		AssignedStaffName: stringPtr(staffName),
	}, nil
}

func staffStatusArg(s domain.StaffStatus) any {
	if s == domain.StaffStatusNone {
		return nil
	}
	return string(s)
}
