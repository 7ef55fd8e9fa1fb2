package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/communicare/server/internal/models"
)

type relationKey struct {
	ItemID string
	Kind   models.RelationKind
}

type volunteeringKey struct {
	RequestID string
	UserID    string
}

// memState holds all entities by value so a transaction can be rolled back
// by restoring a shallow map copy.
type memState struct {
	users         map[string]models.User
	items         map[string]models.Item
	relations     map[relationKey]models.ItemRelation
	loans         map[string]models.Loan
	requests      map[string]models.HelpRequest
	volunteerings map[volunteeringKey]models.Volunteering
	transactions  []models.CareTransaction
	notifications map[string]models.Notification
}

func newMemState() memState {
	return memState{
		users:         make(map[string]models.User),
		items:         make(map[string]models.Item),
		relations:     make(map[relationKey]models.ItemRelation),
		loans:         make(map[string]models.Loan),
		requests:      make(map[string]models.HelpRequest),
		volunteerings: make(map[volunteeringKey]models.Volunteering),
		notifications: make(map[string]models.Notification),
	}
}

func (s memState) clone() memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.relations {
		c.relations[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.volunteerings {
		c.volunteerings[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	c.transactions = append(c.transactions, s.transactions...)
	return c
}

// memStore implements Store without locking; MemoryRepository wraps it with
// a mutex.
type memStore struct {
	state memState
}

// MemoryRepository is an in-memory Repository used by the service tests and
// usable as a throwaway backend. A single mutex serializes everything, which
// matches the row-locking guarantees of the Postgres implementation closely
// enough for the state machines.
type MemoryRepository struct {
	mu sync.Mutex
	s  memStore
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{s: memStore{state: newMemState()}}
}

// Transact runs fn atomically: on error the pre-transaction state is
// restored wholesale.
func (r *MemoryRepository) Transact(ctx context.Context, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.s.state.clone()
	if err := fn(&r.s); err != nil {
		r.s.state = snapshot
		return err
	}
	return nil
}

// User methods

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	for _, u := range m.state.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.state.users[user.ID] = *user
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.state.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.state.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (m *memStore) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	return m.GetUserByID(ctx, id)
}

func (m *memStore) AdjustBalance(ctx context.Context, userID string, delta int) error {
	u, ok := m.state.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.Balance += delta
	u.UpdatedAt = time.Now().UTC()
	m.state.users[userID] = u
	return nil
}

func (m *memStore) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	for _, u := range m.state.users {
		if u.Type == models.UserTypeAdmin {
			admins = append(admins, u)
		}
	}
	sortUsers(admins)
	return admins, nil
}

func (m *memStore) ListUsersExcept(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	for _, u := range m.state.users {
		if u.ID != userID {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}

// Item methods

func (m *memStore) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = time.Now().UTC()
	m.state.items[item.ID] = *item
	return nil
}

func (m *memStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if it, ok := m.state.items[id]; ok {
		return &it, nil
	}
	return nil, nil
}

func (m *memStore) GetItemForUpdate(ctx context.Context, id string) (*models.Item, error) {
	return m.GetItem(ctx, id)
}

func (m *memStore) SetItemAvailable(ctx context.Context, id string, available bool) error {
	it, ok := m.state.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	it.Available = available
	m.state.items[id] = it
	return nil
}

func (m *memStore) UpdateItemDescription(ctx context.Context, id, description string) error {
	it, ok := m.state.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	it.Description = description
	m.state.items[id] = it
	return nil
}

func (m *memStore) DeleteItem(ctx context.Context, id string) error {
	delete(m.state.items, id)
	return nil
}

func (m *memStore) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	for _, it := range m.state.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *memStore) ListAvailableItems(ctx context.Context) ([]models.Item, error) {
	all, _ := m.ListItems(ctx)
	var items []models.Item
	for _, it := range all {
		if it.Available {
			items = append(items, it)
		}
	}
	return items, nil
}

// Item relation methods

func (m *memStore) CreateItemRelation(ctx context.Context, rel *models.ItemRelation) error {
	key := relationKey{ItemID: rel.ItemID, Kind: rel.Kind}
	if _, ok := m.state.relations[key]; ok {
		return ErrDuplicate
	}
	rel.CreatedAt = time.Now().UTC()
	m.state.relations[key] = *rel
	return nil
}

func (m *memStore) GetItemRelation(ctx context.Context, itemID string, kind models.RelationKind) (*models.ItemRelation, error) {
	if rel, ok := m.state.relations[relationKey{ItemID: itemID, Kind: kind}]; ok {
		return &rel, nil
	}
	return nil, nil
}

func (m *memStore) DeleteItemRelation(ctx context.Context, itemID string, kind models.RelationKind) error {
	delete(m.state.relations, relationKey{ItemID: itemID, Kind: kind})
	return nil
}

// Loan methods

func (m *memStore) CreateLoan(ctx context.Context, loan *models.Loan) error {
	if loan.ID == "" {
		loan.ID = uuid.New().String()
	}
	loan.CreatedAt = time.Now().UTC()
	m.state.loans[loan.ID] = *loan
	return nil
}

func (m *memStore) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	if l, ok := m.state.loans[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (m *memStore) GetLoanForUpdate(ctx context.Context, id string) (*models.Loan, error) {
	return m.GetLoan(ctx, id)
}

func (m *memStore) GetOpenLoanForItem(ctx context.Context, itemID string) (*models.Loan, error) {
	for _, l := range m.state.loans {
		if l.ItemID == itemID && l.Status != models.LoanClosed {
			l := l
			return &l, nil
		}
	}
	return nil, nil
}

func (m *memStore) StartLoan(ctx context.Context, id string, at time.Time) error {
	l, ok := m.state.loans[id]
	if !ok {
		return sql.ErrNoRows
	}
	l.Status = models.LoanActive
	l.StartedAt = &at
	m.state.loans[id] = l
	return nil
}

func (m *memStore) MarkLoanReturned(ctx context.Context, id string, at time.Time) error {
	l, ok := m.state.loans[id]
	if !ok {
		return sql.ErrNoRows
	}
	l.Status = models.LoanPendingReturn
	l.ReturnedAt = &at
	m.state.loans[id] = l
	return nil
}

func (m *memStore) CloseLoan(ctx context.Context, id string) error {
	l, ok := m.state.loans[id]
	if !ok {
		return sql.ErrNoRows
	}
	l.Status = models.LoanClosed
	m.state.loans[id] = l
	return nil
}

func (m *memStore) DeleteLoan(ctx context.Context, id string) error {
	delete(m.state.loans, id)
	return nil
}

// Help request methods

func (m *memStore) CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.CreatedAt = time.Now().UTC()
	m.state.requests[req.ID] = *req
	return nil
}

func (m *memStore) GetHelpRequest(ctx context.Context, id string) (*models.HelpRequest, error) {
	if r, ok := m.state.requests[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memStore) GetHelpRequestForUpdate(ctx context.Context, id string) (*models.HelpRequest, error) {
	return m.GetHelpRequest(ctx, id)
}

func (m *memStore) SetHelpRequestState(ctx context.Context, id string, state models.RequestState) error {
	r, ok := m.state.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.State = state
	m.state.requests[id] = r
	return nil
}

// Volunteering methods

func (m *memStore) CreateVolunteering(ctx context.Context, v *models.Volunteering) error {
	key := volunteeringKey{RequestID: v.RequestID, UserID: v.UserID}
	if _, ok := m.state.volunteerings[key]; ok {
		return ErrDuplicate
	}
	v.CreatedAt = time.Now().UTC()
	m.state.volunteerings[key] = *v
	return nil
}

func (m *memStore) FirstPendingVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error) {
	var pending []models.Volunteering
	for _, v := range m.state.volunteerings {
		if v.RequestID == requestID && v.Status == models.VolunteeringPending {
			pending = append(pending, v)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].UserID < pending[j].UserID
	})
	return &pending[0], nil
}

func (m *memStore) AcceptedVolunteering(ctx context.Context, requestID string) (*models.Volunteering, error) {
	for _, v := range m.state.volunteerings {
		if v.RequestID == requestID && v.Status == models.VolunteeringAccepted {
			v := v
			return &v, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetVolunteeringStatus(ctx context.Context, requestID, userID string, status models.VolunteeringStatus) error {
	key := volunteeringKey{RequestID: requestID, UserID: userID}
	v, ok := m.state.volunteerings[key]
	if !ok {
		return sql.ErrNoRows
	}
	v.Status = status
	m.state.volunteerings[key] = v
	return nil
}

// Ledger methods

func (m *memStore) CreateTransaction(ctx context.Context, t *models.CareTransaction) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.state.transactions = append(m.state.transactions, *t)
	return nil
}

func (m *memStore) ListTransactionsForUser(ctx context.Context, userID string) ([]models.CareTransaction, error) {
	var txs []models.CareTransaction
	for _, t := range m.state.transactions {
		if t.PayeeID == userID || (t.PayerID != nil && *t.PayerID == userID) {
			txs = append(txs, t)
		}
	}
	return txs, nil
}

// Notification methods

func (m *memStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	m.state.notifications[n.ID] = *n
	return nil
}

func (m *memStore) DetachItemNotifications(ctx context.Context, itemID string) error {
	for id, n := range m.state.notifications {
		if n.ItemID != nil && *n.ItemID == itemID {
			n.ItemID = nil
			m.state.notifications[id] = n
		}
	}
	return nil
}

func (m *memStore) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var ns []models.Notification
	for _, n := range m.state.notifications {
		if n.UserID == userID {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	return ns, nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	n, ok := m.state.notifications[id]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	n.Read = true
	m.state.notifications[id] = n
	return nil
}

// Direct (non-transactional) access: each call takes the repository lock and
// delegates to the unlocked store.

func (r *MemoryRepository) locked(fn func(*memStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&r.s)
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.locked(func(s *memStore) error { return s.CreateUser(ctx, user) })
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (u *models.User, err error) {
	err = r.locked(func(s *memStore) error { u, err = s.GetUserByEmail(ctx, email); return err })
	return
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (u *models.User, err error) {
	err = r.locked(func(s *memStore) error { u, err = s.GetUserByID(ctx, id); return err })
	return
}

func (r *MemoryRepository) GetUserForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetUserByID(ctx, id)
}

func (r *MemoryRepository) AdjustBalance(ctx context.Context, userID string, delta int) error {
	return r.locked(func(s *memStore) error { return s.AdjustBalance(ctx, userID, delta) })
}

func (r *MemoryRepository) ListAdmins(ctx context.Context) (us []models.User, err error) {
	err = r.locked(func(s *memStore) error { us, err = s.ListAdmins(ctx); return err })
	return
}

func (r *MemoryRepository) ListUsersExcept(ctx context.Context, userID string) (us []models.User, err error) {
	err = r.locked(func(s *memStore) error { us, err = s.ListUsersExcept(ctx, userID); return err })
	return
}

func (r *MemoryRepository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.locked(func(s *memStore) error { return s.CreateItem(ctx, item) })
}

func (r *MemoryRepository) GetItem(ctx context.Context, id string) (it *models.Item, err error) {
	err = r.locked(func(s *memStore) error { it, err = s.GetItem(ctx, id); return err })
	return
}

func (r *MemoryRepository) GetItemForUpdate(ctx context.Context, id string) (*models.Item, error) {
	return r.GetItem(ctx, id)
}

func (r *MemoryRepository) SetItemAvailable(ctx context.Context, id string, available bool) error {
	return r.locked(func(s *memStore) error { return s.SetItemAvailable(ctx, id, available) })
}

func (r *MemoryRepository) UpdateItemDescription(ctx context.Context, id, description string) error {
	return r.locked(func(s *memStore) error { return s.UpdateItemDescription(ctx, id, description) })
}

func (r *MemoryRepository) DeleteItem(ctx context.Context, id string) error {
	return r.locked(func(s *memStore) error { return s.DeleteItem(ctx, id) })
}

func (r *MemoryRepository) ListItems(ctx context.Context) (items []models.Item, err error) {
	err = r.locked(func(s *memStore) error { items, err = s.ListItems(ctx); return err })
	return
}

func (r *MemoryRepository) ListAvailableItems(ctx context.Context) (items []models.Item, err error) {
	err = r.locked(func(s *memStore) error { items, err = s.ListAvailableItems(ctx); return err })
	return
}

func (r *MemoryRepository) CreateItemRelation(ctx context.Context, rel *models.ItemRelation) error {
	return r.locked(func(s *memStore) error { return s.CreateItemRelation(ctx, rel) })
}

func (r *MemoryRepository) GetItemRelation(ctx context.Context, itemID string, kind models.RelationKind) (rel *models.ItemRelation, err error) {
	err = r.locked(func(s *memStore) error { rel, err = s.GetItemRelation(ctx, itemID, kind); return err })
	return
}

func (r *MemoryRepository) DeleteItemRelation(ctx context.Context, itemID string, kind models.RelationKind) error {
	return r.locked(func(s *memStore) error { return s.DeleteItemRelation(ctx, itemID, kind) })
}

func (r *MemoryRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return r.locked(func(s *memStore) error { return s.CreateLoan(ctx, loan) })
}

func (r *MemoryRepository) GetLoan(ctx context.Context, id string) (l *models.Loan, err error) {
	err = r.locked(func(s *memStore) error { l, err = s.GetLoan(ctx, id); return err })
	return
}

func (r *MemoryRepository) GetLoanForUpdate(ctx context.Context, id string) (*models.Loan, error) {
	return r.GetLoan(ctx, id)
}

func (r *MemoryRepository) GetOpenLoanForItem(ctx context.Context, itemID string) (l *models.Loan, err error) {
	err = r.locked(func(s *memStore) error { l, err = s.GetOpenLoanForItem(ctx, itemID); return err })
	return
}

func (r *MemoryRepository) StartLoan(ctx context.Context, id string, at time.Time) error {
	return r.locked(func(s *memStore) error { return s.StartLoan(ctx, id, at) })
}

func (r *MemoryRepository) MarkLoanReturned(ctx context.Context, id string, at time.Time) error {
	return r.locked(func(s *memStore) error { return s.MarkLoanReturned(ctx, id, at) })
}

func (r *MemoryRepository) CloseLoan(ctx context.Context, id string) error {
	return r.locked(func(s *memStore) error { return s.CloseLoan(ctx, id) })
}

func (r *MemoryRepository) DeleteLoan(ctx context.Context, id string) error {
	return r.locked(func(s *memStore) error { return s.DeleteLoan(ctx, id) })
}

func (r *MemoryRepository) CreateHelpRequest(ctx context.Context, req *models.HelpRequest) error {
	return r.locked(func(s *memStore) error { return s.CreateHelpRequest(ctx, req) })
}

func (r *MemoryRepository) GetHelpRequest(ctx context.Context, id string) (h *models.HelpRequest, err error) {
	err = r.locked(func(s *memStore) error { h, err = s.GetHelpRequest(ctx, id); return err })
	return
}

func (r *MemoryRepository) GetHelpRequestForUpdate(ctx context.Context, id string) (*models.HelpRequest, error) {
	return r.GetHelpRequest(ctx, id)
}

func (r *MemoryRepository) SetHelpRequestState(ctx context.Context, id string, state models.RequestState) error {
	return r.locked(func(s *memStore) error { return s.SetHelpRequestState(ctx, id, state) })
}

func (r *MemoryRepository) CreateVolunteering(ctx context.Context, v *models.Volunteering) error {
	return r.locked(func(s *memStore) error { return s.CreateVolunteering(ctx, v) })
}

func (r *MemoryRepository) FirstPendingVolunteering(ctx context.Context, requestID string) (v *models.Volunteering, err error) {
	err = r.locked(func(s *memStore) error { v, err = s.FirstPendingVolunteering(ctx, requestID); return err })
	return
}

func (r *MemoryRepository) AcceptedVolunteering(ctx context.Context, requestID string) (v *models.Volunteering, err error) {
	err = r.locked(func(s *memStore) error { v, err = s.AcceptedVolunteering(ctx, requestID); return err })
	return
}

func (r *MemoryRepository) SetVolunteeringStatus(ctx context.Context, requestID, userID string, status models.VolunteeringStatus) error {
	return r.locked(func(s *memStore) error { return s.SetVolunteeringStatus(ctx, requestID, userID, status) })
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, t *models.CareTransaction) error {
	return r.locked(func(s *memStore) error { return s.CreateTransaction(ctx, t) })
}

func (r *MemoryRepository) ListTransactionsForUser(ctx context.Context, userID string) (txs []models.CareTransaction, err error) {
	err = r.locked(func(s *memStore) error { txs, err = s.ListTransactionsForUser(ctx, userID); return err })
	return
}

func (r *MemoryRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.locked(func(s *memStore) error { return s.CreateNotification(ctx, n) })
}

func (r *MemoryRepository) DetachItemNotifications(ctx context.Context, itemID string) error {
	return r.locked(func(s *memStore) error { return s.DetachItemNotifications(ctx, itemID) })
}

func (r *MemoryRepository) ListNotifications(ctx context.Context, userID string) (ns []models.Notification, err error) {
	err = r.locked(func(s *memStore) error { ns, err = s.ListNotifications(ctx, userID); return err })
	return
}

func (r *MemoryRepository) MarkNotificationRead(ctx context.Context, id, userID string) error {
	return r.locked(func(s *memStore) error { return s.MarkNotificationRead(ctx, id, userID) })
}
