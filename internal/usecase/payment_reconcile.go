package usecase

import (
	"context"
	"errors"
	"net/url"

	"shop/internal/domain/model"
	"shop/internal/gateway"
	repo "shop/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReconcileOutcome string

const (
	OutcomePaid         ReconcileOutcome = "paid"
	OutcomeDuplicate    ReconcileOutcome = "duplicate"
	OutcomeDeclined     ReconcileOutcome = "declined"
	OutcomeBadReference ReconcileOutcome = "bad_reference"
)

type DeclineReason string

const (
	DeclineInvalidSignature DeclineReason = "invalid_signature"
	DeclineMalformed        DeclineReason = "malformed"
	DeclineGatewayFailed    DeclineReason = "gateway_failed"
	DeclineAmountMismatch   DeclineReason = "amount_mismatch"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome
	Reason  DeclineReason
	OrderID int64
	Payment model.Payment
}

// 支払いが記録済みか（今回作成 or 既存）
func (r ReconcileResult) Settled() bool {
	return r.Outcome == OutcomePaid || r.Outcome == OutcomeDuplicate
}

// unique制約違反でTxが中断された
var errConcurrentDuplicate = errors.New("concurrent duplicate payment")

// ゲートウェイ通知を1回だけ反映する。
// Declined/BadReferenceは何も書き込まずにHTTPErrorも一緒に返す。
// 注文のPaid化は呼び出し側（MarkPaid）で行う
func (u *PaymentUsecase) ReconcileCallback(ctx context.Context, q url.Values) (ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "payment.reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("payment.gateway", u.gw.Name()))

	cb, err := u.gw.ParseCallback(q)
	if err != nil {
		reason := DeclineMalformed
		if errors.Is(err, gateway.ErrInvalidSignature) {
			reason = DeclineInvalidSignature
		}
		return u.declined(span, ReconcileResult{Outcome: OutcomeDeclined, Reason: reason}, "")
	}
	ref := cb.Ref()
	span.SetAttributes(attribute.String("payment.ref", ref))

	orderID, err := cb.OrderID()
	if !cb.Succeeded() {
		res := ReconcileResult{Outcome: OutcomeDeclined, Reason: DeclineGatewayFailed}
		if err == nil {
			res.OrderID = orderID
		}
		return u.declined(span, res, ref)
	}
	if err != nil {
		return u.badReference(span, 0, ref)
	}
	span.SetAttributes(attribute.Int64("order.id", orderID))

	var res ReconcileResult
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindSnapshot(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			res = ReconcileResult{Outcome: OutcomeBadReference, OrderID: orderID}
			return nil
		}
		if err != nil {
			return internalError(u.log, "reconcile.order", err)
		}

		//同じ通知は2回目以降は何もしない
		existing, found, err := r.Payments().FindByGatewayRef(ctx, ref)
		if err != nil {
			return internalError(u.log, "reconcile.dedup", err)
		}
		if found {
			res = ReconcileResult{Outcome: OutcomeDuplicate, OrderID: orderID, Payment: existing}
			return nil
		}

		amount := amountDue(o)
		if !amount.Equal(cb.Amount) {
			u.log.Warn("callback amount mismatch",
				zap.Int64("order_id", orderID),
				zap.String("amount_due", amount.StringFixed(2)),
				zap.String("callback_amount", cb.Amount.StringFixed(2)),
			)
			res = ReconcileResult{Outcome: OutcomeDeclined, Reason: DeclineAmountMismatch, OrderID: orderID}
			return nil
		}

		refCopy := ref
		p := model.Payment{
			OrderID:       orderID,
			Amount:        amount,
			Status:        model.PaymentStatusPaid,
			PaymentDate:   u.clock.Now(),
			GatewayRef:    &refCopy,
			TransactionNo: cb.TransactionNo,
			BankCode:      cb.BankCode,
			BankTranNo:    cb.BankTranNo,
			CardType:      cb.CardType,
			PayDate:       cb.PayDate,
		}
		if err := r.Payments().Insert(ctx, &p); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return errConcurrentDuplicate
			}
			return internalError(u.log, "reconcile.insert", err)
		}
		res = ReconcileResult{Outcome: OutcomePaid, OrderID: orderID, Payment: p}
		return nil
	})

	if errors.Is(err, errConcurrentDuplicate) {
		return u.afterConcurrentDuplicate(ctx, span, orderID, ref)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return ReconcileResult{}, err
	}

	switch res.Outcome {
	case OutcomeBadReference:
		return u.badReference(span, orderID, ref)
	case OutcomeDeclined:
		return u.declined(span, res, ref)
	}

	return u.settled(span, res, ref), nil
}

// 同時に届いた通知に負けた側。先に入った行を読み直す
func (u *PaymentUsecase) afterConcurrentDuplicate(ctx context.Context, span trace.Span, orderID int64, ref string) (ReconcileResult, error) {
	var res ReconcileResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, found, err := r.Payments().FindByGatewayRef(ctx, ref)
		if err != nil {
			return internalError(u.log, "reconcile.dedup_retry", err)
		}
		if !found {
			return internalError(u.log, "reconcile.dedup_retry", errors.New("duplicate payment vanished"))
		}
		res = ReconcileResult{Outcome: OutcomeDuplicate, OrderID: orderID, Payment: existing}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		return ReconcileResult{}, err
	}

	return u.settled(span, res, ref), nil
}

func (u *PaymentUsecase) settled(span trace.Span, res ReconcileResult, ref string) ReconcileResult {
	span.SetAttributes(attribute.String("payment.outcome", string(res.Outcome)))
	u.log.Info("callback reconciled",
		zap.String("outcome", string(res.Outcome)),
		zap.Int64("order_id", res.OrderID),
		zap.Int64("payment_id", res.Payment.ID),
		zap.String("gateway_ref", ref),
	)
	return res
}

func (u *PaymentUsecase) declined(span trace.Span, res ReconcileResult, ref string) (ReconcileResult, error) {
	span.SetAttributes(
		attribute.String("payment.outcome", string(OutcomeDeclined)),
		attribute.String("payment.decline_reason", string(res.Reason)),
	)
	u.log.Warn("callback declined",
		zap.String("reason", string(res.Reason)),
		zap.Int64("order_id", res.OrderID),
		zap.String("gateway_ref", ref),
	)
	return res, NewHTTPError(StatusDeclined, "payment declined")
}

func (u *PaymentUsecase) badReference(span trace.Span, orderID int64, ref string) (ReconcileResult, error) {
	span.SetAttributes(attribute.String("payment.outcome", string(OutcomeBadReference)))
	u.log.Warn("callback references unknown order",
		zap.Int64("order_id", orderID),
		zap.String("gateway_ref", ref),
	)
	return ReconcileResult{Outcome: OutcomeBadReference, OrderID: orderID}, NewHTTPError(StatusBadReference, "order not found")
}
