package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileCallbackとMarkPaidを分けて持つ（決済行の確定と注文の更新は別トランザクション）
type PaymentHandler struct {
	payments   *usecase.PaymentUsecase
	orders     *usecase.OrderUsecase
	successURL string
	failURL    string
	log        *zap.Logger
}

func NewPaymentHandler(
	payments *usecase.PaymentUsecase,
	orders *usecase.OrderUsecase,
	successURL, failURL string,
	log *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		payments:   payments,
		orders:     orders,
		successURL: successURL,
		failURL:    failURL,
		log:        log,
	}
}

type PaymentCreateRequest struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

type PaymentUpdateRequest struct {
	Status string `json:"status"`
}

type InitiatePaymentRequest struct {
	OrderID int64 `json:"order_id"`
}

type PaymentURLResponse struct {
	PaymentURL string `json:"payment_url"`
}

type AmountDueResponse struct {
	OrderID int64  `json:"order_id"`
	Amount  string `json:"amount"`
}

// VNPay IPNの応答形式
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group, auth, admin []echo.MiddlewareFunc) {
	//ゲートウェイから直接呼ばれる（署名で検証する）
	g.GET("/vnpay/callback", h.callback)
	g.GET("/vnpay/ipn", h.ipn)

	g.POST("/vnpay/create", h.initiate, auth...)
	g.GET("/payment-status/:orderId", h.status, auth...)

	g.GET("", h.list, admin...)
	g.POST("", h.create, admin...)
	g.GET("/amount-due/:orderId", h.amountDue, admin...)
	g.GET("/:id", h.detail, admin...)
	g.PUT("/:id", h.update, admin...)
	g.DELETE("/soft-delete/:id", h.softDelete, admin...)
	g.DELETE("/:id", h.delete, admin...)
}

func (h *PaymentHandler) list(c echo.Context) error {
	pageIndex, pageSize, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	in := usecase.PaymentListInput{
		PageIndex: pageIndex,
		PageSize:  pageSize,
		Status:    c.QueryParam("status"),
	}
	if in.ID, err = int64Query(c, "id"); err != nil {
		return writeError(c, err)
	}
	if in.OrderID, err = int64Query(c, "orderId"); err != nil {
		return writeError(c, err)
	}
	if v := strings.TrimSpace(c.QueryParam("amount")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return badRequest(c, "invalid amount")
		}
		in.MaxAmount = &d
	}
	if in.PaymentDate, err = timeQuery(c, "paymentDate"); err != nil {
		return writeError(c, err)
	}
	if in.From, err = timeQuery(c, "from"); err != nil {
		return writeError(c, err)
	}
	if in.To, err = timeQuery(c, "to"); err != nil {
		return writeError(c, err)
	}

	out, err := h.payments.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) detail(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	out, err := h.payments.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) create(c echo.Context) error {
	var req PaymentCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.payments.CreatePayment(c.Request().Context(), usecase.CreatePaymentInput{
		OrderID: req.OrderID,
		Status:  req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *PaymentHandler) update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req PaymentUpdateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	out, err := h.payments.UpdatePayment(c.Request().Context(), getActor(c), id, usecase.UpdatePaymentInput{Status: req.Status})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) softDelete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.payments.SoftDeletePayment(c.Request().Context(), getActor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "cancelled"})
}

func (h *PaymentHandler) delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	return writeError(c, h.payments.DeletePayment(c.Request().Context(), id))
}

func (h *PaymentHandler) amountDue(c echo.Context) error {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return badRequest(c, "invalid orderId")
	}
	amount, err := h.payments.ComputeAmountDue(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, AmountDueResponse{OrderID: orderID, Amount: amount.StringFixed(2)})
}

func (h *PaymentHandler) status(c echo.Context) error {
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return badRequest(c, "invalid orderId")
	}
	out, err := h.payments.GetStatusByOrder(c.Request().Context(), getActor(c), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) initiate(c echo.Context) error {
	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	payURL, err := h.payments.InitiatePayment(c.Request().Context(), getActor(c), usecase.InitiatePaymentInput{
		OrderID:   req.OrderID,
		IPAddress: c.RealIP(),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, PaymentURLResponse{PaymentURL: payURL})
}

// ブラウザの戻り先。結果はリダイレクト先のresultで伝える
func (h *PaymentHandler) callback(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.payments.ReconcileCallback(ctx, c.QueryParams())

	result := "error"
	switch {
	case err == nil && res.Settled():
		if err := h.settleOrder(ctx, res.OrderID); err != nil {
			break
		}
		return c.Redirect(http.StatusFound, redirectURL(h.successURL, "success", res.OrderID))
	case res.Outcome == usecase.OutcomeDeclined:
		result = string(res.Reason)
	case res.Outcome == usecase.OutcomeBadReference:
		result = string(usecase.OutcomeBadReference)
	}
	return c.Redirect(http.StatusFound, redirectURL(h.failURL, result, res.OrderID))
}

// サーバー間通知。何度届いても同じ応答になる
func (h *PaymentHandler) ipn(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.payments.ReconcileCallback(ctx, c.QueryParams())

	if err == nil && res.Settled() {
		if err := h.settleOrder(ctx, res.OrderID); err != nil {
			if he, ok := usecase.AsHTTPError(err); ok && he.Status == http.StatusConflict {
				return c.JSON(http.StatusOK, IPNResponse{RspCode: "02", Message: "Order already confirmed"})
			}
			return c.JSON(http.StatusOK, IPNResponse{RspCode: "99", Message: "Unknown error"})
		}
		return c.JSON(http.StatusOK, IPNResponse{RspCode: "00", Message: "Confirm Success"})
	}

	switch {
	case res.Outcome == usecase.OutcomeBadReference:
		return c.JSON(http.StatusOK, IPNResponse{RspCode: "01", Message: "Order not found"})
	case res.Reason == usecase.DeclineInvalidSignature:
		return c.JSON(http.StatusOK, IPNResponse{RspCode: "97", Message: "Invalid signature"})
	case res.Reason == usecase.DeclineAmountMismatch:
		return c.JSON(http.StatusOK, IPNResponse{RspCode: "04", Message: "Invalid amount"})
	case res.Reason == usecase.DeclineGatewayFailed:
		//失敗の通知も受領済みとして返す（再送させない）
		return c.JSON(http.StatusOK, IPNResponse{RspCode: "00", Message: "Confirm Success"})
	}
	return c.JSON(http.StatusOK, IPNResponse{RspCode: "99", Message: "Unknown error"})
}

func (h *PaymentHandler) settleOrder(ctx context.Context, orderID int64) error {
	if err := h.orders.MarkPaid(ctx, orderID); err != nil {
		h.log.Error("mark order paid failed", zap.Int64("order_id", orderID), zap.Error(err))
		return err
	}
	return nil
}

func redirectURL(base, result string, orderID int64) string {
	q := url.Values{}
	q.Set("result", result)
	if orderID > 0 {
		q.Set("orderId", strconv.FormatInt(orderID, 10))
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}
