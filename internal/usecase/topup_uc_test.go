//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/repository"
)

const testChatID int64 = 7

// topUpDeps holds all the mock dependencies for the top-up flow tests.
type topUpDeps struct {
	states   *memStateRepo
	refs     *memReferenceRepo
	deposits *memDepositRepo
	auth     *memAuthRepo
	balance  *memBalanceRepo
	gateway  *MockGateway
	bot      *MockBot
}

func newTopUpDeps() *topUpDeps {
	return &topUpDeps{
		states:   newMemStateRepo(),
		refs:     newMemReferenceRepo(),
		deposits: newMemDepositRepo(),
		auth:     newMemAuthRepo(),
		balance:  newMemBalanceRepo(),
		gateway:  &MockGateway{},
		bot:      &MockBot{},
	}
}

func (d *topUpDeps) uc(t *testing.T) *topUpUC {
	t.Helper()
	return NewTopUpUseCase(d.states, d.refs, d.deposits, d.auth, d.balance, d.gateway, d.bot, stubQR, newTestTranslator(t), newTestLogger())
}

func (d *topUpDeps) armAmount(t *testing.T) {
	t.Helper()
	if err := d.states.SetState(context.Background(), testChatID, &repository.ConversationState{Step: repository.StepAwaitingTopUpAmount}); err != nil {
		t.Fatalf("arm state: %v", err)
	}
}

func (d *topUpDeps) markerStep(t *testing.T) string {
	t.Helper()
	s, err := d.states.GetState(context.Background(), testChatID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if s == nil {
		return ""
	}
	return s.Step
}

func qrisMethods() []model.DepositMethod {
	return []model.DepositMethod{
		{Name: "Bank Transfer", Code: "BT1", Type: "bank"},
		{Name: "qris instant", Code: "X1", Type: "T1"}, // case differs on purpose
	}
}

func TestTopUpUseCase_PresentMenu(t *testing.T) {
	ctx := context.Background()

	t.Run("should demand login when no user is active", func(t *testing.T) {
		deps := newTopUpDeps()
		uc := deps.uc(t)

		if err := uc.PresentMenu(ctx, testChatID, 10); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		last := deps.bot.last()
		if last == nil || last.Kind != "send" {
			t.Fatalf("expected a plain message, got %+v", last)
		}
		if last.Text != "Silakan login terlebih dahulu." {
			t.Errorf("unexpected text: %q", last.Text)
		}
		if deps.markerStep(t) != "" {
			t.Error("menu must not arm any session marker")
		}
	})

	t.Run("should edit the message into the top-up menu with the balance", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.auth.SetActiveUser(ctx, &model.ActiveUser{ChatID: testChatID, Username: "budi", LoggedInAt: time.Now()})
		deps.balance.Credit(ctx, testChatID, 15000)
		uc := deps.uc(t)

		if err := uc.PresentMenu(ctx, testChatID, 10); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		last := deps.bot.last()
		if last == nil || last.Kind != "edit" || last.MessageID != 10 {
			t.Fatalf("expected an edit of message 10, got %+v", last)
		}
		if !strings.Contains(last.Text, "Rp 15,000") {
			t.Errorf("expected balance in menu text, got %q", last.Text)
		}
		if len(last.Buttons) != 3 {
			t.Fatalf("expected 3 button rows, got %d", len(last.Buttons))
		}
		if last.Buttons[1][0].Data != ActionTopUpAuto {
			t.Errorf("expected auto action button, got %+v", last.Buttons[1][0])
		}
	})
}

func TestTopUpUseCase_SelectAction(t *testing.T) {
	ctx := context.Background()

	t.Run("should prompt for an amount and arm the marker on topup_auto", func(t *testing.T) {
		deps := newTopUpDeps()
		uc := deps.uc(t)

		if err := uc.SelectAction(ctx, testChatID, 10, ActionTopUpAuto); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if deps.markerStep(t) != repository.StepAwaitingTopUpAmount {
			t.Errorf("expected awaiting amount marker, got %q", deps.markerStep(t))
		}
		last := deps.bot.last()
		if last == nil || !strings.Contains(last.Text, "jumlah saldo") {
			t.Errorf("expected amount prompt, got %+v", last)
		}
	})

	t.Run("should do nothing on topup_manual", func(t *testing.T) {
		deps := newTopUpDeps()
		uc := deps.uc(t)

		if err := uc.SelectAction(ctx, testChatID, 10, ActionTopUpManual); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(deps.bot.Sent) != 0 {
			t.Errorf("expected no messages, got %d", len(deps.bot.Sent))
		}
		if deps.markerStep(t) != "" {
			t.Error("manual branch must not arm any marker")
		}
	})
}

func TestTopUpUseCase_SubmitAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("should not handle input when the marker does not match", func(t *testing.T) {
		deps := newTopUpDeps()
		uc := deps.uc(t)

		handled, err := uc.SubmitAmount(ctx, testChatID, "50000")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if handled {
			t.Error("expected not-handled without marker")
		}
		if len(deps.bot.Sent) != 0 {
			t.Error("expected no mutation or messages")
		}
	})

	t.Run("should reject non-numeric input and keep the marker", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		uc := deps.uc(t)

		handled, err := uc.SubmitAmount(ctx, testChatID, "lima puluh ribu")
		if err != nil || !handled {
			t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, err)
		}
		if got := deps.bot.last().Text; got != "Input tidak valid. Harap masukkan angka saja." {
			t.Errorf("unexpected text: %q", got)
		}
		if deps.markerStep(t) != repository.StepAwaitingTopUpAmount {
			t.Error("marker must survive invalid input so the user can retry")
		}
	})

	t.Run("should reject amounts below the floor and keep the marker", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		uc := deps.uc(t)

		handled, err := uc.SubmitAmount(ctx, testChatID, "999")
		if err != nil || !handled {
			t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, err)
		}
		if got := deps.bot.last().Text; got != "Jumlah top up minimal adalah Rp 1,000." {
			t.Errorf("unexpected text: %q", got)
		}
		if deps.markerStep(t) != repository.StepAwaitingTopUpAmount {
			t.Error("marker must survive a below-floor amount")
		}
	})

	t.Run("should report a fetch failure and never create an invoice when methods are unavailable", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		deps.gateway.ListMethodsFunc = func(ctx context.Context) ([]model.DepositMethod, error) {
			return nil, errors.New("gateway down")
		}
		uc := deps.uc(t)

		handled, err := uc.SubmitAmount(ctx, testChatID, "50000")
		if err != nil || !handled {
			t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, err)
		}
		if deps.gateway.CreateCalls != 0 {
			t.Error("invoice creation must not be attempted")
		}
		if got := deps.bot.last().Text; !strings.Contains(got, "Gagal mengambil daftar metode") {
			t.Errorf("unexpected text: %q", got)
		}
		if deps.markerStep(t) != "" {
			t.Error("marker is cleared once a valid amount is consumed")
		}
	})

	t.Run("should report method-not-found when QRIS INSTANT is missing", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		deps.gateway.ListMethodsFunc = func(ctx context.Context) ([]model.DepositMethod, error) {
			return []model.DepositMethod{{Name: "Bank Transfer", Code: "BT1", Type: "bank"}}, nil
		}
		uc := deps.uc(t)

		handled, _ := uc.SubmitAmount(ctx, testChatID, "50000")
		if !handled {
			t.Fatal("expected handled")
		}
		if deps.gateway.CreateCalls != 0 {
			t.Error("invoice creation must not be attempted")
		}
		if got := deps.bot.last().Text; !strings.Contains(got, "QRIS INSTANT") {
			t.Errorf("unexpected text: %q", got)
		}
	})

	t.Run("should create an invoice, record the reference and send the QR", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		deps.gateway.ListMethodsFunc = func(ctx context.Context) ([]model.DepositMethod, error) {
			return qrisMethods(), nil
		}
		var gotReff string
		deps.gateway.CreateDepositFunc = func(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error) {
			gotReff = referenceID
			if methodCode != "X1" || methodType != "T1" {
				t.Errorf("unexpected method %s/%s", methodCode, methodType)
			}
			return &model.DepositInvoice{ID: "D1", ReferenceID: referenceID, QRString: "abc", Nominal: 50000}, nil
		}
		uc := deps.uc(t)

		handled, err := uc.SubmitAmount(ctx, testChatID, "50000")
		if err != nil || !handled {
			t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, err)
		}

		if !strings.HasPrefix(gotReff, fmt.Sprintf("TOPUP-%d-", testChatID)) {
			t.Errorf("unexpected reference id %q", gotReff)
		}
		if chat, err := deps.refs.Resolve(ctx, gotReff); err != nil || chat != testChatID {
			t.Errorf("expected reference route to chat %d, got %d (%v)", testChatID, chat, err)
		}
		if deps.markerStep(t) != "" {
			t.Error("marker must be cleared on success")
		}

		last := deps.bot.last()
		if last == nil || last.Kind != "photo" {
			t.Fatalf("expected a photo, got %+v", last)
		}
		if string(last.Photo) != "png:abc" {
			t.Errorf("expected QR rendered from payload, got %q", last.Photo)
		}
		if !strings.Contains(last.Text, "Rp 50,000") || !strings.Contains(last.Text, "D1") {
			t.Errorf("caption must carry the settled amount and invoice id: %q", last.Text)
		}
		if len(last.Buttons) != 1 || last.Buttons[0][0].Data != "check_deposit_D1" {
			t.Errorf("expected check-status button, got %+v", last.Buttons)
		}

		d, err := deps.deposits.FindByReference(ctx, gotReff)
		if err != nil {
			t.Fatalf("expected an audit row: %v", err)
		}
		if d.Status != model.DepositStatusPending || d.Nominal != 50000 || d.ChatID != testChatID {
			t.Errorf("unexpected audit row: %+v", d)
		}
	})

	t.Run("should report invoice failure and record nothing when qr_string is missing", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		deps.gateway.ListMethodsFunc = func(ctx context.Context) ([]model.DepositMethod, error) {
			return qrisMethods(), nil
		}
		deps.gateway.CreateDepositFunc = func(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error) {
			return &model.DepositInvoice{ID: "D1", ReferenceID: referenceID}, nil
		}
		uc := deps.uc(t)

		handled, _ := uc.SubmitAmount(ctx, testChatID, "50000")
		if !handled {
			t.Fatal("expected handled")
		}
		if got := deps.bot.last().Text; !strings.Contains(got, "Gagal membuat invoice") {
			t.Errorf("unexpected text: %q", got)
		}
		if deps.refs.len() != 0 {
			t.Error("no reference mapping may be recorded without a QR payload")
		}
	})

	t.Run("should surface unexpected failures as a technical error", func(t *testing.T) {
		deps := newTopUpDeps()
		deps.armAmount(t)
		deps.gateway.ListMethodsFunc = func(ctx context.Context) ([]model.DepositMethod, error) {
			return qrisMethods(), nil
		}
		deps.gateway.CreateDepositFunc = func(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error) {
			return &model.DepositInvoice{ID: "D1", QRString: "abc", Nominal: 50000}, nil
		}
		uc := NewTopUpUseCase(deps.states, deps.refs, deps.deposits, deps.auth, deps.balance, deps.gateway, deps.bot,
			func(string) ([]byte, error) { return nil, errors.New("qr encoder broke") },
			newTestTranslator(t), newTestLogger())

		handled, err := uc.SubmitAmount(ctx, testChatID, "50000")
		if err != nil || !handled {
			t.Fatalf("expected handled with no error, got handled=%v err=%v", handled, err)
		}
		if got := deps.bot.last().Text; !strings.Contains(got, "error teknis") || !strings.Contains(got, "qr encoder broke") {
			t.Errorf("expected technical error with detail, got %q", got)
		}
	})
}
