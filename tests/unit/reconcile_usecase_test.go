package unit

import (
	"context"
	"errors"
	"testing"

	"goodstay/internal/domain/model"
	"goodstay/internal/payment"
	repo "goodstay/internal/repository"
	"goodstay/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newReconcileUC(p payment.Provider, tx repo.TransactionManager) *usecase.ReconcileUsecase {
	return usecase.NewReconcileUsecase(p, tx, zap.NewNop())
}

// セッションmetadataに載る注文スナップショット（checkout側のencodeと同じ形）
func snapshotMetadata() map[string]string {
	return map[string]string{
		"items":            `[{"product_id":1,"name":"Premium Dog Food","unit_price":1000,"quantity":2}]`,
		"customer_name":    "Taro Yamada",
		"customer_email":   "taro@example.com",
		"shipping_address": `{"line1":"1-2-3 Shibuya","line2":"","city":"Tokyo","state":"","postal_code":"150-0002","country":"JP"}`,
		"subtotal":         "2000",
		"shipping":         "0",
		"tax":              "0",
		"total":            "2000",
	}
}

func paidSession() payment.Session {
	return payment.Session{
		ID:              "cs_test_1",
		PaymentIntentID: "pi_123",
		Paid:            true,
		Metadata:        snapshotMetadata(),
	}
}

func TestReconcileUsecase_ReconcileSession_EmptyID(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	uc := newReconcileUC(provider, tx)

	_, err := uc.ReconcileSession(context.Background(), " ")
	assertErrContains(t, err, "invalid session_id")
}

func TestReconcileUsecase_ReconcileSession_ProviderError(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	uc := newReconcileUC(provider, tx)

	provider.On("GetSession", mock.Anything, "cs_x").Return(payment.Session{}, errors.New("timeout"))

	_, err := uc.ReconcileSession(context.Background(), "cs_x")
	assertErrContains(t, err, "payment provider error")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 502, he.Status)
}

// 未払いセッションはDBに何も書かずpaid=falseで返す
func TestReconcileUsecase_ReconcileSession_Unpaid_NoWrite(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	uc := newReconcileUC(provider, tx)

	s := paidSession()
	s.Paid = false
	provider.On("GetSession", mock.Anything, "cs_test_1").Return(s, nil)

	out, err := uc.ReconcileSession(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.False(t, out.Paid)
	assert.Nil(t, out.Order)

	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

// 初回reconcile：スナップショットから注文が確定する
func TestReconcileUsecase_ReconcileSession_CreatesOrderFromSnapshot(t *testing.T) {
	ctx := context.Background()

	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, orderItems: itemsRepo, products: productsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("GetSession", mock.Anything, "cs_test_1").Return(paidSession(), nil)

	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(model.Order{}, false, nil)

	var createdOrder model.Order
	ordersRepo.
		On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
			createdOrder = o
			return true
		})).
		Return(int64(42), nil)

	itemsRepo.
		On("CreateBulk", mock.Anything, int64(42), mock.MatchedBy(func(items []model.OrderItem) bool {
			return len(items) == 1 && items[0].ProductID == 1 && items[0].Quantity == 2 && items[0].Price == 1000
		})).
		Return(nil)

	productsRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Premium Dog Food"}, nil)

	uc := newReconcileUC(provider, tx)

	out, err := uc.ReconcileSession(ctx, "cs_test_1")
	assert.NoError(t, err)
	assert.True(t, out.Paid)
	if assert.NotNil(t, out.Order) {
		assert.Equal(t, int64(42), out.Order.ID)
		assert.Equal(t, "paid", out.Order.Status)
		assert.Equal(t, int64(2000), out.Order.TotalAmount)
		assert.Equal(t, "Premium Dog Food", out.Order.Items[0].Name)
	}

	// 金額はmetadataの値をそのまま使う（再計算しない）
	assert.Equal(t, "pi_123", createdOrder.StripePaymentIntentID)
	assert.Equal(t, "cs_test_1", createdOrder.StripeSessionID)
	assert.Equal(t, int64(2000), createdOrder.Subtotal)
	assert.Equal(t, int64(2000), createdOrder.TotalAmount)
	assert.Equal(t, model.OrderStatusPaid, createdOrder.Status)
	assert.Equal(t, "Tokyo", createdOrder.ShippingAddress.City)

	ordersRepo.AssertExpectations(t)
	itemsRepo.AssertExpectations(t)
}

// 2回目のreconcileは既存注文を返すだけ（新規作成しない）
func TestReconcileUsecase_ReconcileSession_Idempotent(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, orderItems: itemsRepo, products: productsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("GetSession", mock.Anything, "cs_test_1").Return(paidSession(), nil)

	existing := model.Order{ID: 42, Status: model.OrderStatusPaid, StripePaymentIntentID: "pi_123", TotalAmount: 2000}
	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(existing, true, nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{ProductID: 1, Quantity: 2, Price: 1000},
	}, nil)
	productsRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Premium Dog Food"}, nil)

	uc := newReconcileUC(provider, tx)

	out, err := uc.ReconcileSession(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.True(t, out.Paid)
	assert.Equal(t, int64(42), out.Order.ID)

	ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// pull/push同時実行：insertがunique制約で落ちたら再検索して既存を返す
func TestReconcileUsecase_ReconcileSession_InsertConflict_ReturnsExisting(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, orderItems: itemsRepo, products: productsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("GetSession", mock.Anything, "cs_test_1").Return(paidSession(), nil)

	// 1回目の検索では見つからず、insertは衝突、再検索で相手が入れた行を得る
	winner := model.Order{ID: 7, Status: model.OrderStatusPaid, StripePaymentIntentID: "pi_123"}
	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(model.Order{}, false, nil).Once()
	ordersRepo.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("duplicate key"))
	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(winner, true, nil).Once()
	itemsRepo.On("ListByOrderID", mock.Anything, int64(7)).Return([]model.OrderItem{}, nil)

	uc := newReconcileUC(provider, tx)

	out, err := uc.ReconcileSession(context.Background(), "cs_test_1")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.Order.ID)

	itemsRepo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
}

// 壊れたスナップショットは500（Orderは作らない）
func TestReconcileUsecase_ReconcileSession_BrokenSnapshot(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	s := paidSession()
	s.Metadata = map[string]string{"items": "not-json"}
	provider.On("GetSession", mock.Anything, "cs_test_1").Return(s, nil)

	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(model.Order{}, false, nil)

	uc := newReconcileUC(provider, tx)

	_, err := uc.ReconcileSession(context.Background(), "cs_test_1")
	assertErrContains(t, err, "invalid order snapshot")

	ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// Webhook tests
// =====================

func TestReconcileUsecase_HandleWebhook_InvalidSignature(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	uc := newReconcileUC(provider, tx)

	provider.On("VerifyEvent", mock.Anything, "bad-sig").Return(payment.Event{}, errors.New("signature mismatch"))

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "bad-sig")
	assertErrContains(t, err, "invalid signature")

	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestReconcileUsecase_HandleWebhook_SessionCompleted_Materializes(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, orderItems: itemsRepo, products: productsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	s := paidSession()
	provider.On("VerifyEvent", mock.Anything, "sig").Return(payment.Event{
		Type:    payment.EventCheckoutSessionCompleted,
		Session: &s,
	}, nil)

	ordersRepo.On("FindByPaymentIntentID", mock.Anything, "pi_123").Return(model.Order{}, false, nil)
	ordersRepo.On("Create", mock.Anything, mock.Anything).Return(int64(42), nil)
	itemsRepo.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)
	productsRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Name: "Premium Dog Food"}, nil)

	uc := newReconcileUC(provider, tx)

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
}

func TestReconcileUsecase_HandleWebhook_IntentSucceeded_UpdatesStatus(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("VerifyEvent", mock.Anything, "sig").Return(payment.Event{
		Type:            payment.EventPaymentIntentSucceeded,
		PaymentIntentID: "pi_123",
	}, nil)

	ordersRepo.On("UpdateStatusByPaymentIntentID", mock.Anything, "pi_123", model.OrderStatusProcessing).Return(true, nil)

	uc := newReconcileUC(provider, tx)

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)

	ordersRepo.AssertExpectations(t)
}

func TestReconcileUsecase_HandleWebhook_IntentFailed_Cancels(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("VerifyEvent", mock.Anything, "sig").Return(payment.Event{
		Type:            payment.EventPaymentIntentFailed,
		PaymentIntentID: "pi_123",
	}, nil)

	ordersRepo.On("UpdateStatusByPaymentIntentID", mock.Anything, "pi_123", model.OrderStatusCancelled).Return(true, nil)

	uc := newReconcileUC(provider, tx)

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)
}

// 知らないintentのイベントは成功扱い（プロバイダの再配送ループを避ける）
func TestReconcileUsecase_HandleWebhook_UnknownIntent_Acked(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	provider.On("VerifyEvent", mock.Anything, "sig").Return(payment.Event{
		Type:            payment.EventPaymentIntentSucceeded,
		PaymentIntentID: "pi_unknown",
	}, nil)

	ordersRepo.On("UpdateStatusByPaymentIntentID", mock.Anything, "pi_unknown", model.OrderStatusProcessing).Return(false, nil)

	uc := newReconcileUC(provider, tx)

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)
}

// 消費しないイベント種別は無視
func TestReconcileUsecase_HandleWebhook_UnhandledType_Ignored(t *testing.T) {
	provider := new(ProviderMock)
	tx := new(TxManagerMock)
	uc := newReconcileUC(provider, tx)

	provider.On("VerifyEvent", mock.Anything, "sig").Return(payment.Event{Type: "charge.refunded"}, nil)

	err := uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)

	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}
