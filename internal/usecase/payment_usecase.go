package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	"shop/internal/gateway"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("shop/internal/usecase")

const paymentCurrency = "VND"

// 金額は常に注文のカート明細から計算する（クライアント・ゲートウェイの金額は信用しない）
type PaymentUsecase struct {
	tx     repo.TransactionManager
	gw     gateway.Gateway
	clock  Clock
	expiry time.Duration
	log    *zap.Logger
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	gw gateway.Gateway,
	clock Clock,
	expiry time.Duration,
	log *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:     tx,
		gw:     gw,
		clock:  clock,
		expiry: expiry,
		log:    log,
	}
}

type PaymentListInput struct {
	PageIndex   int
	PageSize    int
	ID          *int64
	OrderID     *int64
	MaxAmount   *decimal.Decimal
	Status      string
	PaymentDate *time.Time
	From        *time.Time
	To          *time.Time
}

type CreatePaymentInput struct {
	OrderID int64
	Status  string
}

type UpdatePaymentInput struct {
	Status string
}

type PaymentStatusOutput struct {
	OrderID int64               `json:"order_id"`
	Status  model.PaymentStatus `json:"status"`
}

type InitiatePaymentInput struct {
	OrderID   int64
	IPAddress string
}

func (u *PaymentUsecase) List(ctx context.Context, in PaymentListInput) (repo.Paginated[model.Payment], error) {
	if err := validatePaging(in.PageIndex, in.PageSize); err != nil {
		return repo.Paginated[model.Payment]{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && !model.PaymentStatus(status).Valid() {
		return repo.Paginated[model.Payment]{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if in.MaxAmount != nil && in.MaxAmount.IsNegative() {
		return repo.Paginated[model.Payment]{}, NewHTTPError(http.StatusBadRequest, "amount must be >= 0")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return repo.Paginated[model.Payment]{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	var out repo.Paginated[model.Payment]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		page, err := r.Payments().List(ctx, repo.PaymentListFilter{
			PageIndex:   in.PageIndex,
			PageSize:    in.PageSize,
			ID:          in.ID,
			OrderID:     in.OrderID,
			MaxAmount:   in.MaxAmount,
			Status:      status,
			PaymentDate: in.PaymentDate,
			From:        in.From,
			To:          in.To,
		})
		if err != nil {
			return internalError(u.log, "payment.list", err)
		}
		out = page
		return nil
	})
	if err != nil {
		return repo.Paginated[model.Payment]{}, err
	}
	return out, nil
}

func (u *PaymentUsecase) Get(ctx context.Context, paymentID int64) (model.Payment, error) {
	if paymentID <= 0 {
		return model.Payment{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.Payment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := u.findPayment(ctx, r, paymentID)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return out, nil
}

// 注文の最新の支払い状況
func (u *PaymentUsecase) GetStatusByOrder(ctx context.Context, actor Actor, orderID int64) (PaymentStatusOutput, error) {
	if orderID <= 0 {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out PaymentStatusOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return internalError(u.log, "payment.status.order", err)
		}
		if !canSeeOrder(actor, o) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}

		p, err := r.Payments().FindLatestByOrderID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return internalError(u.log, "payment.status", err)
		}
		out = PaymentStatusOutput{OrderID: p.OrderID, Status: p.Status}
		return nil
	})
	if err != nil {
		return PaymentStatusOutput{}, err
	}
	return out, nil
}

// Σ(数量×単価)
func (u *PaymentUsecase) ComputeAmountDue(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	if orderID <= 0 {
		return decimal.Zero, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var amount decimal.Decimal
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOrderSnapshot(ctx, r, orderID)
		if err != nil {
			return err
		}
		amount = amountDue(o)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// 手動登録（管理者）。金額は計算値を使う
func (u *PaymentUsecase) CreatePayment(ctx context.Context, in CreatePaymentInput) (model.Payment, error) {
	if in.OrderID <= 0 {
		return model.Payment{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	status := model.PaymentStatus(strings.TrimSpace(in.Status))
	if status == "" {
		status = model.PaymentStatusPending
	}
	if !status.Valid() {
		return model.Payment{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out model.Payment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOrderSnapshot(ctx, r, in.OrderID)
		if err != nil {
			return err
		}

		p := model.Payment{
			OrderID:     o.ID,
			Amount:      amountDue(o),
			Status:      status,
			PaymentDate: u.clock.Now(),
		}
		if err := r.Payments().Insert(ctx, &p); err != nil {
			return internalError(u.log, "payment.create", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return out, nil
}

func (u *PaymentUsecase) UpdatePayment(ctx context.Context, actor Actor, paymentID int64, in UpdatePaymentInput) (model.Payment, error) {
	if paymentID <= 0 {
		return model.Payment{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next := model.PaymentStatus(strings.TrimSpace(in.Status))
	if !next.Valid() {
		return model.Payment{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out model.Payment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := u.findPayment(ctx, r, paymentID)
		if err != nil {
			return err
		}
		if p.Status == next {
			out = p
			return nil
		}
		p, err = u.changeStatus(ctx, r, actor, p, next, model.AuditActionUpdatePaymentStatus)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return out, nil
}

// 手動の取消。行は消さずCancelにする
func (u *PaymentUsecase) SoftDeletePayment(ctx context.Context, actor Actor, paymentID int64) error {
	if paymentID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := u.findPayment(ctx, r, paymentID)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentStatusCancel {
			return nil
		}
		_, err = u.changeStatus(ctx, r, actor, p, model.PaymentStatusCancel, model.AuditActionCancelPayment)
		return err
	})
}

func (u *PaymentUsecase) DeletePayment(ctx context.Context, paymentID int64) error {
	return errNotImplemented()
}

// 決済画面のURLを返すだけ。支払い行はコールバックで確定したときに作る
func (u *PaymentUsecase) InitiatePayment(ctx context.Context, actor Actor, in InitiatePaymentInput) (string, error) {
	ctx, span := tracer.Start(ctx, "payment.initiate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", in.OrderID),
		attribute.String("payment.gateway", u.gw.Name()),
	)

	if !actor.Authenticated() {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return "", NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}

	var amount decimal.Decimal
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.findOrderSnapshot(ctx, r, in.OrderID)
		if err != nil {
			return err
		}
		if !canSeeOrder(actor, o) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order is not awaiting payment")
		}
		amount = amountDue(o)
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, "order lookup failed")
		return "", err
	}
	if !amount.IsPositive() {
		return "", NewHTTPError(http.StatusBadRequest, "nothing to pay")
	}

	now := u.clock.Now()
	payURL, err := u.gw.PaymentURL(ctx, gateway.PaymentRequest{
		OrderID:     in.OrderID,
		Amount:      amount,
		Currency:    paymentCurrency,
		Description: fmt.Sprintf("Thanh toán đơn hàng #%d", in.OrderID),
		IPAddress:   in.IPAddress,
		CreatedAt:   now,
		ExpiresAt:   now.Add(u.expiry),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment url")
		u.log.Error("payment url failed", zap.Int64("order_id", in.OrderID), zap.Error(err))
		return "", NewHTTPError(http.StatusInternalServerError, "payment gateway error")
	}

	u.log.Info("payment initiated",
		zap.Int64("order_id", in.OrderID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("expires_at", now.Add(u.expiry)),
	)
	return payURL, nil
}

// 遷移表を確認して更新し、監査ログを残す
func (u *PaymentUsecase) changeStatus(
	ctx context.Context,
	r repo.TxRepos,
	actor Actor,
	p model.Payment,
	next model.PaymentStatus,
	action model.AuditAction,
) (model.Payment, error) {
	if !p.Status.CanTransitionTo(next) {
		return model.Payment{}, NewHTTPError(http.StatusConflict, "cannot change payment status from "+string(p.Status)+" to "+string(next))
	}

	before := p.Status
	p.Status = next
	if err := r.Payments().Update(ctx, &p); err != nil {
		return model.Payment{}, internalError(u.log, "payment.update_status", err)
	}
	if err := writeAudit(ctx, r, u.clock, actor, action, model.AuditResourcePayment, p.ID,
		statusSnapshot{Status: string(before)}, statusSnapshot{Status: string(next)}); err != nil {
		return model.Payment{}, internalError(u.log, "payment.audit", err)
	}
	return p, nil
}

func (u *PaymentUsecase) findPayment(ctx context.Context, r repo.TxRepos, paymentID int64) (model.Payment, error) {
	p, err := r.Payments().FindByID(ctx, paymentID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Payment{}, NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return model.Payment{}, internalError(u.log, "payment.find", err)
	}
	return p, nil
}

func (u *PaymentUsecase) findOrderSnapshot(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindSnapshot(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, internalError(u.log, "payment.order", err)
	}
	if o.Cart == nil {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return o, nil
}

func amountDue(o model.Order) decimal.Decimal {
	if o.Cart == nil {
		return decimal.Zero
	}
	return model.SumItems(o.Cart.CartItems)
}
