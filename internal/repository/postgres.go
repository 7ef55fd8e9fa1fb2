package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/communicare/server/internal/models"
)

// extContext is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx, so the
// same query methods serve both transactional and auto-committed calls.
type extContext interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// PostgresRepository implements the Repository interface using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
	queries
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		queries: queries{ext: db},
	}
}

// GetDB returns the underlying database connection.
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Transact runs fn inside a single database transaction. Row locks taken via
// the ForUpdate getters are held until commit, serializing concurrent
// transitions on the same entity.
func (r *PostgresRepository) Transact(ctx context.Context, fn func(Store) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&queries{ext: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// queries implements Store against either the pool or an open transaction.
type queries struct {
	ext extContext
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// User methods

func (q *queries) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, name, password, user_type, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.ext.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.Type, user.Balance,
		user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := q.ext.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (q *queries) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := q.ext.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (q *queries) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := q.ext.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (q *queries) AdjustBalance(ctx context.Context, userID string, delta int) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
		delta, time.Now().UTC(), userID)
	return err
}

func (q *queries) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := q.ext.SelectContext(ctx, &admins,
		`SELECT * FROM users WHERE user_type = $1`, models.UserTypeAdmin)
	if err != nil {
		return nil, err
	}
	return admins, nil
}

func (q *queries) ListUsersExcept(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := q.ext.SelectContext(ctx, &users, `SELECT * FROM users WHERE id <> $1`, userID)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Item methods

func (q *queries) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO items (id, name, description, commission, available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.ext.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Commission, item.Available, item.CreatedAt)
	return err
}

func (q *queries) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := q.ext.GetContext(ctx, &item, `SELECT * FROM items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (q *queries) GetItemForUpdate(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := q.ext.GetContext(ctx, &item, `SELECT * FROM items WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (q *queries) SetItemAvailable(ctx context.Context, id string, available bool) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE items SET available = $1 WHERE id = $2`, available, id)
	return err
}

func (q *queries) UpdateItemDescription(ctx context.Context, id, description string) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE items SET description = $1 WHERE id = $2`, description, id)
	return err
}

func (q *queries) DeleteItem(ctx context.Context, id string) error {
	_, err := q.ext.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	return err
}

func (q *queries) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := q.ext.SelectContext(ctx, &items, `SELECT * FROM items ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (q *queries) ListAvailableItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := q.ext.SelectContext(ctx, &items,
		`SELECT * FROM items WHERE available ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Item relation methods

func (q *queries) CreateItemRelation(ctx context.Context, rel *models.ItemRelation) error {
	rel.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO item_relations (item_id, user_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := q.ext.ExecContext(ctx, query, rel.ItemID, rel.UserID, rel.Kind, rel.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (q *queries) GetItemRelation(ctx context.Context, itemID string, kind models.RelationKind) (*models.ItemRelation, error) {
	var rel models.ItemRelation
	err := q.ext.GetContext(ctx, &rel,
		`SELECT * FROM item_relations WHERE item_id = $1 AND kind = $2`, itemID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

func (q *queries) DeleteItemRelation(ctx context.Context, itemID string, kind models.RelationKind) error {
	_, err := q.ext.ExecContext(ctx,
		`DELETE FROM item_relations WHERE item_id = $1 AND kind = $2`, itemID, kind)
	return err
}

// Loan methods

func (q *queries) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	loan.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO loans (id, item_id, status, started_at, returned_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := q.ext.ExecContext(ctx, query,
		loan.ID, loan.ItemID, loan.Status, loan.StartedAt, loan.ReturnedAt, loan.CreatedAt)
	return err
}

func (q *queries) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	var loan models.Loan
	err := q.ext.GetContext(ctx, &loan, `SELECT * FROM loans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

func (q *queries) GetLoanForUpdate(ctx context.Context, id string) (*models.Loan, error) {
	var loan models.Loan
	err := q.ext.GetContext(ctx, &loan, `SELECT * FROM loans WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

func (q *queries) GetOpenLoanForItem(ctx context.Context, itemID string) (*models.Loan, error) {
	var loan models.Loan
	err := q.ext.GetContext(ctx, &loan,
		`SELECT * FROM loans WHERE item_id = $1 AND status <> $2`, itemID, models.LoanClosed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &loan, nil
}

func (q *queries) StartLoan(ctx context.Context, id string, at time.Time) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE loans SET status = $1, started_at = $2 WHERE id = $3`,
		models.LoanActive, at, id)
	return err
}

func (q *queries) MarkLoanReturned(ctx context.Context, id string, at time.Time) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE loans SET status = $1, returned_at = $2 WHERE id = $3`,
		models.LoanPendingReturn, at, id)
	return err
}

func (q *queries) CloseLoan(ctx context.Context, id string) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE loans SET status = $1 WHERE id = $2`, models.LoanClosed, id)
	return err
}

func (q *queries) DeleteLoan(ctx context.Context, id string) error {
	_, err := q.ext.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	return err
}

// Help request methods

func (q *queries) CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO help_requests (id, requester_id, description, scheduled_at, hours_needed, people_needed, reward, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.ext.ExecContext(ctx, query,
		req.ID, req.RequesterID, req.Description, req.ScheduledAt,
		req.HoursNeeded, req.PeopleNeeded, req.Reward, req.State, req.CreatedAt)
	return err
}

func (q *queries) GetHelpRequest(ctx context.Context, id string) (*models.HelpRequest, error) {
	var req models.HelpRequest
	err := q.ext.GetContext(ctx, &req, `SELECT * FROM help_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (q *queries) GetHelpRequestForUpdate(ctx context.Context, id string) (*models.HelpRequest, error) {
	var req models.HelpRequest
	err := q.ext.GetContext(ctx, &req, `SELECT * FROM help_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (q *queries) SetHelpRequestState(ctx context.Context, id string, state models.RequestState) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE help_requests SET state = $1 WHERE id = $2`, state, id)
	return err
}

// Volunteering methods

func (q *queries) CreateVolunteering(ctx context.Context, v *models.Volunteering) error {
	v.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO volunteerings (request_id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := q.ext.ExecContext(ctx, query, v.RequestID, v.UserID, v.Status, v.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (q *queries) FirstPendingVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error) {
	var v models.Volunteering
	err := q.ext.GetContext(ctx, &v, `
		SELECT * FROM volunteerings
		WHERE request_id = $1 AND status = $2
		ORDER BY created_at, user_id
		LIMIT 1
	`, requestID, models.VolunteeringPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (q *queries) AcceptedVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error) {
	var v models.Volunteering
	err := q.ext.GetContext(ctx, &v,
		`SELECT * FROM volunteerings WHERE request_id = $1 AND status = $2`,
		requestID, models.VolunteeringAccepted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (q *queries) SetVolunteeringStatus(ctx context.Context, requestID, userID string, status models.VolunteeringStatus) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE volunteerings SET status = $1 WHERE request_id = $2 AND user_id = $3`,
		status, requestID, userID)
	return err
}

// Ledger methods

func (q *queries) CreateTransaction(ctx context.Context, t *models.CareTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO care_transactions (id, payer_id, payee_id, amount, kind, hours, loan_id, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := q.ext.ExecContext(ctx, query,
		t.ID, t.PayerID, t.PayeeID, t.Amount, t.Kind, t.Hours, t.LoanID, t.RequestID, t.CreatedAt)
	return err
}

func (q *queries) ListTransactionsForUser(ctx context.Context, userID string) ([]models.CareTransaction, error) {
	var txs []models.CareTransaction
	err := q.ext.SelectContext(ctx, &txs, `
		SELECT * FROM care_transactions
		WHERE payer_id = $1 OR payee_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// Notification methods

func (q *queries) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO notifications (id, user_id, message, read, item_id, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.ext.ExecContext(ctx, query,
		n.ID, n.UserID, n.Message, n.Read, n.ItemID, n.RequestID, n.CreatedAt)
	return err
}

func (q *queries) DetachItemNotifications(ctx context.Context, itemID string) error {
	_, err := q.ext.ExecContext(ctx,
		`UPDATE notifications SET item_id = NULL WHERE item_id = $1`, itemID)
	return err
}

func (q *queries) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var ns []models.Notification
	err := q.ext.SelectContext(ctx, &ns,
		`SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return ns, nil
}

func (q *queries) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
