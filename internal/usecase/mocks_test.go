package usecase_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"shop/internal/domain/model"
	"shop/internal/gateway"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	carts     *CartRepoMock
	cartItems *CartItemRepoMock
	products  *ProductRepoMock
	orders    *OrderRepoMock
	payments  *PaymentRepoMock
	auditLogs *AuditRepoMock
}

func (r *TxReposMock) Carts() repo.CartRepository         { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository { return r.cartItems }
func (r *TxReposMock) Products() repo.ProductRepository   { return r.products }
func (r *TxReposMock) Orders() repo.OrderRepository       { return r.orders }
func (r *TxReposMock) Payments() repo.PaymentRepository   { return r.payments }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

// 全repoのmockをまとめて用意する
func newTx() (*TxManagerMock, *TxReposMock) {
	repos := &TxReposMock{
		carts:     new(CartRepoMock),
		cartItems: new(CartItemRepoMock),
		products:  new(ProductRepoMock),
		orders:    new(OrderRepoMock),
		payments:  new(PaymentRepoMock),
		auditLogs: new(AuditRepoMock),
	}
	tx := &TxManagerMock{Repos: repos}
	tx.On("WithinTx", mock.Anything).Return(nil)
	return tx, repos
}

// =====================
// Repository mocks
// =====================

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) FindByID(ctx context.Context, id int64) (model.Cart, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) Insert(ctx context.Context, c *model.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CartRepoMock) Update(ctx context.Context, c *model.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CartRepoMock) Delete(ctx context.Context, c *model.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *CartRepoMock) List(ctx context.Context, f repo.CartListFilter) (repo.Paginated[model.Cart], error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(repo.Paginated[model.Cart])
	return p, args.Error(1)
}

func (m *CartRepoMock) FindWithItems(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindLatestOpenByUserID(ctx context.Context, userID int64) (model.Cart, bool, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Bool(1), args.Error(2)
}

func (m *CartRepoMock) LockOwner(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *CartRepoMock) ClaimOwner(ctx context.Context, cartID, userID int64) error {
	return m.Called(ctx, cartID, userID).Error(0)
}

func (m *CartRepoMock) UpdateTotal(ctx context.Context, cartID int64, total decimal.Decimal) error {
	return m.Called(ctx, cartID, total).Error(0)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	return m.Called(ctx, cartID, status).Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) FindByID(ctx context.Context, id int64) (model.CartItem, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) Insert(ctx context.Context, it *model.CartItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *CartItemRepoMock) Update(ctx context.Context, it *model.CartItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *CartItemRepoMock) Delete(ctx context.Context, it *model.CartItem) error {
	return m.Called(ctx, it).Error(0)
}

func (m *CartItemRepoMock) List(ctx context.Context, f repo.CartItemListFilter) (repo.Paginated[model.CartItem], error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(repo.Paginated[model.CartItem])
	return p, args.Error(1)
}

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, id int64) (model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Insert(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *OrderRepoMock) Update(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *OrderRepoMock) Delete(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) (repo.Paginated[model.Order], error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(repo.Paginated[model.Order])
	return p, args.Error(1)
}

func (m *OrderRepoMock) FindSnapshot(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ExistsByCartID(ctx context.Context, cartID int64) (bool, error) {
	args := m.Called(ctx, cartID)
	return args.Bool(0), args.Error(1)
}

type PaymentRepoMock struct{ mock.Mock }

func (m *PaymentRepoMock) FindByID(ctx context.Context, id int64) (model.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) Insert(ctx context.Context, p *model.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PaymentRepoMock) Update(ctx context.Context, p *model.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PaymentRepoMock) Delete(ctx context.Context, p *model.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *PaymentRepoMock) List(ctx context.Context, f repo.PaymentListFilter) (repo.Paginated[model.Payment], error) {
	args := m.Called(ctx, f)
	p, _ := args.Get(0).(repo.Paginated[model.Payment])
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindLatestByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	args := m.Called(ctx, orderID)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Error(1)
}

func (m *PaymentRepoMock) FindByGatewayRef(ctx context.Context, ref string) (model.Payment, bool, error) {
	args := m.Called(ctx, ref)
	p, _ := args.Get(0).(model.Payment)
	return p, args.Bool(1), args.Error(2)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditRepoMock) ListByResource(ctx context.Context, resourceType model.AuditResourceType, resourceID int64) ([]model.AuditLog, error) {
	args := m.Called(ctx, resourceType, resourceID)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Gateway / Clock
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Name() string { return "vnpay" }

func (m *GatewayMock) PaymentURL(ctx context.Context, req gateway.PaymentRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) ParseCallback(q url.Values) (gateway.Callback, error) {
	args := m.Called(q)
	cb, _ := args.Get(0).(gateway.Callback)
	return cb, args.Error(1)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// =====================
// Helpers
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := usecase.AsHTTPError(err)
	if assert.True(t, ok, "want HTTPError, got %v", err) {
		assert.Equal(t, status, he.Status)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

// decimalは内部表現が違っても同じ値なら一致扱い
func decEq(want string) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(want)) })
}

var (
	owner = usecase.Actor{UserID: 42, Role: usecase.RoleUser}
	other = usecase.Actor{UserID: 7, Role: usecase.RoleUser}
	admin = usecase.Actor{UserID: 1, Role: usecase.RoleAdmin}
	anon  = usecase.Actor{}
)
