package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"go.uber.org/zap"
)

const (
	maxPaymentMethodLen  = 50
	maxBillingAddressLen = 255
)

type OrderUsecase struct {
	tx    repo.TransactionManager
	clock Clock
	log   *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, clock Clock, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, clock: clock, log: log}
}

type OrderListInput struct {
	PageIndex      int
	PageSize       int
	ID             *int64
	CartID         *int64
	UserID         *int64
	PaymentMethod  string
	BillingAddress string
	Status         string
	OrderDate      *time.Time
	From           *time.Time
	To             *time.Time
}

type CreateOrderInput struct {
	CartID         int64
	PaymentMethod  string
	BillingAddress string
}

// nilの項目は変更しない。カートと注文者は変更できない
type UpdateOrderInput struct {
	PaymentMethod  *string
	BillingAddress *string
	Status         *string
}

// 注文一覧（管理者）
func (u *OrderUsecase) List(ctx context.Context, in OrderListInput) (repo.Paginated[model.Order], error) {
	if err := validatePaging(in.PageIndex, in.PageSize); err != nil {
		return repo.Paginated[model.Order]{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.OrderStatus(status).Valid() {
		return repo.Paginated[model.Order]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return repo.Paginated[model.Order]{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	var out repo.Paginated[model.Order]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		page, err := r.Orders().List(ctx, repo.OrderListFilter{
			PageIndex:      in.PageIndex,
			PageSize:       in.PageSize,
			ID:             in.ID,
			CartID:         in.CartID,
			UserID:         in.UserID,
			PaymentMethod:  strings.TrimSpace(in.PaymentMethod),
			BillingAddress: strings.TrimSpace(in.BillingAddress),
			Status:         status,
			OrderDate:      in.OrderDate,
			From:           in.From,
			To:             in.To,
		})
		if err != nil {
			return internalError(u.log, "order.list", err)
		}
		out = page
		return nil
	})
	if err != nil {
		return repo.Paginated[model.Order]{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMine(ctx context.Context, actor Actor, in OrderListInput) (repo.Paginated[model.Order], error) {
	if !actor.Authenticated() {
		return repo.Paginated[model.Order]{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.UserID = &actor.UserID
	return u.List(ctx, in)
}

// 注文＋ユーザー＋カート明細（商品付き）を一度に読む
func (u *OrderUsecase) GetOrderWithCartSnapshot(ctx context.Context, actor Actor, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindSnapshot(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return internalError(u.log, "order.get", err)
		}
		if !canSeeOrder(actor, o) {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// ステータスは常にPending、注文日時は現在時刻。作成した注文IDを返す
func (u *OrderUsecase) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (int64, error) {
	if !actor.Authenticated() {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.CartID <= 0 {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" || len(method) > maxPaymentMethodLen {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	address := strings.TrimSpace(in.BillingAddress)
	if address == "" || len(address) > maxBillingAddressLen {
		return 0, NewHTTPError(http.StatusBadRequest, "invalid billing_address")
	}

	var orderID int64
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().FindWithItems(ctx, in.CartID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return internalError(u.log, "order.create.cart", err)
		}
		if !c.OwnedBy(actor.UserID) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if c.Status == model.CartStatusDeleted {
			return NewHTTPError(http.StatusConflict, "cart is deleted")
		}
		if len(c.CartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		ordered, err := r.Orders().ExistsByCartID(ctx, in.CartID)
		if err != nil {
			return internalError(u.log, "order.create.exists", err)
		}
		if ordered {
			return NewHTTPError(http.StatusConflict, "cart is already ordered")
		}

		//匿名カートは注文と同時に注文者へ移す
		if c.UserID == nil {
			err := r.Carts().ClaimOwner(ctx, c.ID, actor.UserID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusConflict, "cart owner changed")
			}
			if err != nil {
				return internalError(u.log, "order.create.claim", err)
			}
		}

		o := model.Order{
			CartID:         in.CartID,
			UserID:         actor.UserID,
			PaymentMethod:  method,
			BillingAddress: address,
			Status:         model.OrderStatusPending,
			OrderDate:      u.clock.Now(),
		}
		if err := r.Orders().Insert(ctx, &o); err != nil {
			//同時に同じカートで注文された
			if errors.Is(err, repo.ErrDuplicate) {
				return NewHTTPError(http.StatusConflict, "cart is already ordered")
			}
			return internalError(u.log, "order.create", err)
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	u.log.Info("order created",
		zap.Int64("order_id", orderID),
		zap.Int64("cart_id", in.CartID),
		zap.Int64("user_id", actor.UserID),
	)
	return orderID, nil
}

// 支払方法・請求先は本人（Pending中）か管理者、ステータスは管理者のみ変更できる
func (u *OrderUsecase) UpdateOrder(ctx context.Context, actor Actor, orderID int64, in UpdateOrderInput) (model.Order, error) {
	if !actor.Authenticated() {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var method, address string
	if in.PaymentMethod != nil {
		method = strings.TrimSpace(*in.PaymentMethod)
		if method == "" || len(method) > maxPaymentMethodLen {
			return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
		}
	}
	if in.BillingAddress != nil {
		address = strings.TrimSpace(*in.BillingAddress)
		if address == "" || len(address) > maxBillingAddressLen {
			return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid billing_address")
		}
	}
	var next model.OrderStatus
	if in.Status != nil {
		if !actor.IsAdmin() {
			return model.Order{}, NewHTTPError(http.StatusForbidden, "admin only")
		}
		next = model.OrderStatus(strings.TrimSpace(*in.Status))
		if !next.Valid() {
			return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return internalError(u.log, "order.update.find", err)
		}
		if !canSeeOrder(actor, o) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if !actor.IsAdmin() && o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order can no longer be changed")
		}

		before := o
		if in.PaymentMethod != nil {
			o.PaymentMethod = method
		}
		if in.BillingAddress != nil {
			o.BillingAddress = address
		}
		statusChanged := in.Status != nil && next != o.Status
		if statusChanged {
			if !o.Status.CanTransitionTo(next) {
				return NewHTTPError(http.StatusConflict, "cannot change order status from "+string(o.Status)+" to "+string(next))
			}
			o.Status = next
		}

		if err := r.Orders().Update(ctx, &o); err != nil {
			return internalError(u.log, "order.update", err)
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if statusChanged {
			if err := writeAudit(ctx, r, u.clock, actor, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
				statusSnapshot{Status: string(before.Status)}, statusSnapshot{Status: string(o.Status)}); err != nil {
				return internalError(u.log, "order.update.audit", err)
			}
		}

		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// 決済確定後に呼ぶ。すでにPaidなら何もしない
func (u *OrderUsecase) MarkPaid(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return internalError(u.log, "order.mark_paid.find", err)
		}
		if o.Status == model.OrderStatusPaid {
			return nil
		}
		if !o.Status.CanTransitionTo(model.OrderStatusPaid) {
			return NewHTTPError(http.StatusConflict, "cannot mark "+string(o.Status)+" order as paid")
		}

		o.Status = model.OrderStatusPaid
		if err := r.Orders().Update(ctx, &o); err != nil {
			return internalError(u.log, "order.mark_paid", err)
		}
		return nil
	})
}

// 注文のステータス変更履歴（管理者）
func (u *OrderUsecase) ListAuditLogs(ctx context.Context, actor Actor, orderID int64) ([]model.AuditLog, error) {
	if !actor.IsAdmin() {
		return nil, NewHTTPError(http.StatusForbidden, "admin only")
	}
	if orderID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "order not found")
			}
			return internalError(u.log, "order.audit.find", err)
		}
		logs, err := r.AuditLogs().ListByResource(ctx, model.AuditResourceOrder, orderID)
		if err != nil {
			return internalError(u.log, "order.audit.list", err)
		}
		out = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// 注文は作成後に削除しない
func (u *OrderUsecase) Delete(ctx context.Context, orderID int64) error {
	return errNotImplemented()
}

func (u *OrderUsecase) SoftDelete(ctx context.Context, orderID int64) error {
	return errNotImplemented()
}

func canSeeOrder(actor Actor, o model.Order) bool {
	return actor.IsAdmin() || (actor.Authenticated() && o.UserID == actor.UserID)
}

type statusSnapshot struct {
	Status string `json:"status"`
}

func writeAudit(
	ctx context.Context,
	r repo.TxRepos,
	clock Clock,
	actor Actor,
	action model.AuditAction,
	resource model.AuditResourceType,
	resourceID int64,
	before, after any,
) error {
	b, err := json.Marshal(before)
	if err != nil {
		return err
	}
	a, err := json.Marshal(after)
	if err != nil {
		return err
	}
	return r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   string(b),
		AfterJSON:    string(a),
		CreatedAt:    clock.Now(),
	})
}
