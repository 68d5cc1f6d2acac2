//go:build !integration

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-topup-bot/internal/domain"
	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
	"telegram-topup-bot/internal/domain/ports/repository"
	"telegram-topup-bot/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "id")
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	return tr
}

func stubQR(payload string) ([]byte, error) {
	return []byte("png:" + payload), nil
}

// memStateRepo is a small in-memory session marker store used by unit tests.
type memStateRepo struct {
	mu     sync.RWMutex
	states map[int64]*repository.ConversationState
	getErr error
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[int64]*repository.ConversationState)}
}

func (m *memStateRepo) SetState(ctx context.Context, chatID int64, state *repository.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.states[chatID] = &cp
	return nil
}

func (m *memStateRepo) GetState(ctx context.Context, chatID int64) (*repository.ConversationState, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[chatID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memStateRepo) ClearState(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, chatID)
	return nil
}

// memReferenceRepo keeps reference routes in a map.
type memReferenceRepo struct {
	mu     sync.RWMutex
	routes map[string]int64
}

func newMemReferenceRepo() *memReferenceRepo {
	return &memReferenceRepo{routes: make(map[string]int64)}
}

func (m *memReferenceRepo) Save(ctx context.Context, referenceID string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[referenceID] = chatID
	return nil
}

func (m *memReferenceRepo) Resolve(ctx context.Context, referenceID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.routes[referenceID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (m *memReferenceRepo) Delete(ctx context.Context, referenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, referenceID)
	return nil
}

func (m *memReferenceRepo) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.routes)
}

// memDepositRepo keeps audit rows keyed by reference id.
type memDepositRepo struct {
	mu       sync.RWMutex
	deposits map[string]*model.Deposit
	saveErr  error
}

func newMemDepositRepo() *memDepositRepo {
	return &memDepositRepo{deposits: make(map[string]*model.Deposit)}
}

func (m *memDepositRepo) Save(ctx context.Context, d *model.Deposit) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.deposits[d.ReferenceID] = &cp
	return nil
}

func (m *memDepositRepo) FindByReference(ctx context.Context, referenceID string) (*model.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.deposits[referenceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDepositRepo) UpdateStatus(ctx context.Context, referenceID, status string, nominal int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deposits[referenceID]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = status
	if nominal > 0 {
		d.Nominal = nominal
	}
	return nil
}

func (m *memDepositRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*model.Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Deposit
	for _, d := range m.deposits {
		if d.Status == model.DepositStatusPending && d.CreatedAt.Before(cutoff) {
			cp := *d
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// memAuthRepo holds at most one active user per chat.
type memAuthRepo struct {
	mu    sync.RWMutex
	users map[int64]*model.ActiveUser
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{users: make(map[int64]*model.ActiveUser)}
}

func (m *memAuthRepo) ActiveUser(ctx context.Context, chatID int64) (*model.ActiveUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[chatID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memAuthRepo) SetActiveUser(ctx context.Context, user *model.ActiveUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ChatID] = &cp
	return nil
}

func (m *memAuthRepo) ClearActiveUser(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, chatID)
	return nil
}

// memBalanceRepo keeps integer balances per chat.
type memBalanceRepo struct {
	mu       sync.RWMutex
	balances map[int64]int64
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{balances: make(map[int64]int64)}
}

func (m *memBalanceRepo) Get(ctx context.Context, chatID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[chatID], nil
}

func (m *memBalanceRepo) Credit(ctx context.Context, chatID int64, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[chatID] += amount
	return m.balances[chatID], nil
}

// MockGateway lets each test script the gateway responses.
type MockGateway struct {
	ListMethodsFunc    func(ctx context.Context) ([]model.DepositMethod, error)
	CreateDepositFunc  func(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error)
	CheckStatusFunc    func(ctx context.Context, depositID string) (*model.DepositStatusRecord, error)
	RequestInstantFunc func(ctx context.Context, amount int64, methodCode, referenceID string) (*model.DepositInvoice, error)

	CreateCalls int
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) ListMethods(ctx context.Context) ([]model.DepositMethod, error) {
	if g.ListMethodsFunc == nil {
		return nil, domain.ErrGatewayFailure
	}
	return g.ListMethodsFunc(ctx)
}

func (g *MockGateway) CreateDeposit(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error) {
	g.CreateCalls++
	if g.CreateDepositFunc == nil {
		return nil, domain.ErrGatewayFailure
	}
	return g.CreateDepositFunc(ctx, amount, methodCode, methodType, referenceID)
}

func (g *MockGateway) CheckStatus(ctx context.Context, depositID string) (*model.DepositStatusRecord, error) {
	if g.CheckStatusFunc == nil {
		return nil, domain.ErrGatewayFailure
	}
	return g.CheckStatusFunc(ctx, depositID)
}

func (g *MockGateway) RequestInstant(ctx context.Context, amount int64, methodCode, referenceID string) (*model.DepositInvoice, error) {
	if g.RequestInstantFunc == nil {
		return nil, domain.ErrGatewayFailure
	}
	return g.RequestInstantFunc(ctx, amount, methodCode, referenceID)
}

// sentMessage records one outgoing bot call for assertions.
type sentMessage struct {
	Kind      string // "send" | "edit" | "photo" | "delete"
	ChatID    int64
	MessageID int
	Text      string
	ParseMode string
	Buttons   [][]adapter.InlineButton
	Photo     []byte
}

// MockBot records every outgoing message and hands out message ids.
type MockBot struct {
	mu     sync.Mutex
	nextID int
	Sent   []sentMessage
}

func (b *MockBot) SendMessage(ctx context.Context, p adapter.SendMessageParams) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.Sent = append(b.Sent, sentMessage{
		Kind: "send", ChatID: p.ChatID, MessageID: b.nextID,
		Text: p.Text, ParseMode: p.ParseMode, Buttons: p.Buttons,
	})
	return b.nextID, nil
}

func (b *MockBot) SendPhoto(ctx context.Context, p adapter.SendPhotoParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, sentMessage{
		Kind: "photo", ChatID: p.ChatID,
		Text: p.Caption, ParseMode: p.ParseMode, Buttons: p.Buttons, Photo: p.Photo,
	})
	return nil
}

func (b *MockBot) EditMessage(ctx context.Context, chatID int64, messageID int, p adapter.SendMessageParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, sentMessage{
		Kind: "edit", ChatID: chatID, MessageID: messageID,
		Text: p.Text, ParseMode: p.ParseMode, Buttons: p.Buttons,
	})
	return nil
}

func (b *MockBot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Sent = append(b.Sent, sentMessage{Kind: "delete", ChatID: chatID, MessageID: messageID})
	return nil
}

// last returns the most recent non-delete message, or nil.
func (b *MockBot) last() *sentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.Sent) - 1; i >= 0; i-- {
		if b.Sent[i].Kind != "delete" {
			return &b.Sent[i]
		}
	}
	return nil
}
