package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は /carts の業務ロジックです。
// 複数ステップの処理はすべて1トランザクションで行う。
type CartUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewCartUsecase(tx repo.TransactionManager, log *zap.Logger) *CartUsecase {
	return &CartUsecase{tx: tx, log: log}
}

type CartListInput struct {
	PageIndex int
	PageSize  int
	ID        *int64
	UserID    *int64
	Status    string
}

// 管理者向けの一覧
func (u *CartUsecase) List(ctx context.Context, in CartListInput) (repo.Paginated[model.Cart], error) {
	if err := validatePaging(in.PageIndex, in.PageSize); err != nil {
		return repo.Paginated[model.Cart]{}, err
	}
	status, err := parseCartStatusFilter(in.Status)
	if err != nil {
		return repo.Paginated[model.Cart]{}, err
	}

	var out repo.Paginated[model.Cart]
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		page, err := r.Carts().List(ctx, repo.CartListFilter{
			PageIndex: in.PageIndex,
			PageSize:  in.PageSize,
			ID:        in.ID,
			UserID:    in.UserID,
			Status:    status,
		})
		if err != nil {
			return internalError(u.log, "cart.list", err)
		}
		out = page
		return nil
	})
	if err != nil {
		return repo.Paginated[model.Cart]{}, err
	}
	return out, nil
}

// 自分のカートだけ
func (u *CartUsecase) ListMine(ctx context.Context, actor Actor, in CartListInput) (repo.Paginated[model.Cart], error) {
	if !actor.Authenticated() {
		return repo.Paginated[model.Cart]{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	in.UserID = &actor.UserID
	return u.List(ctx, in)
}

func (u *CartUsecase) Get(ctx context.Context, actor Actor, cartID int64) (model.Cart, error) {
	if cartID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().FindWithItems(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return internalError(u.log, "cart.get", err)
		}
		//他人のカートは「存在しない扱い」にする
		if !canSeeCart(actor, c) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return out, nil
}

// 所有者はログイン中のユーザー（未ログインなら匿名）。クライアント指定のIDは使わない
func (u *CartUsecase) CreateCart(ctx context.Context, actor Actor) (model.Cart, error) {
	c := model.Cart{
		Status:     model.CartStatusPending,
		TotalPrice: decimal.Zero,
		CartItems:  []model.CartItem{},
	}
	if actor.Authenticated() {
		uid := actor.UserID
		c.UserID = &uid
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Carts().Insert(ctx, &c); err != nil {
			return internalError(u.log, "cart.create", err)
		}
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return c, nil
}

// 未注文の最新カートを返す。無ければPendingで作る。
// ユーザー単位でロックするので同時に呼ばれても1つしか作られない
func (u *CartUsecase) ResolveOrCreateLatestOpenCart(ctx context.Context, userID int64) (model.Cart, error) {
	if userID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Carts().LockOwner(ctx, userID); err != nil {
			return internalError(u.log, "cart.resolve.lock", err)
		}

		c, found, err := r.Carts().FindLatestOpenByUserID(ctx, userID)
		if err != nil {
			return internalError(u.log, "cart.resolve.find", err)
		}
		if found {
			out = c
			return nil
		}

		uid := userID
		created := model.Cart{
			UserID:     &uid,
			Status:     model.CartStatusPending,
			TotalPrice: decimal.Zero,
		}
		if err := r.Carts().Insert(ctx, &created); err != nil {
			return internalError(u.log, "cart.resolve.insert", err)
		}
		//作成直後は明細なし
		created.CartItems = []model.CartItem{}
		out = created
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return out, nil
}

type UpdateCartInput struct {
	Status string
}

// ステータスだけ変更できる（所有者は変更不可）
func (u *CartUsecase) UpdateStatus(ctx context.Context, actor Actor, cartID int64, in UpdateCartInput) (model.Cart, error) {
	if cartID <= 0 {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next := model.CartStatus(strings.TrimSpace(in.Status))
	if !next.Valid() {
		return model.Cart{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out model.Cart
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := u.findVisible(ctx, r, actor, cartID)
		if err != nil {
			return err
		}

		//すでに同じなら何もしない
		if c.Status == next {
			out = c
			return nil
		}
		if !c.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusConflict, "cannot change cart status from "+string(c.Status)+" to "+string(next))
		}

		if err := r.Carts().UpdateStatus(ctx, cartID, next); err != nil {
			return internalError(u.log, "cart.update_status", err)
		}
		c.Status = next
		out = c
		return nil
	})
	if err != nil {
		return model.Cart{}, err
	}
	return out, nil
}

func (u *CartUsecase) RecomputeTotal(ctx context.Context, cartID int64) (decimal.Decimal, error) {
	if cartID <= 0 {
		return decimal.Zero, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var total decimal.Decimal
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		t, err := recomputeTotal(ctx, r, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return internalError(u.log, "cart.recompute_total", err)
		}
		total = t
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// statusをDeletedにするだけ（明細はそのまま）
func (u *CartUsecase) SoftDelete(ctx context.Context, actor Actor, cartID int64) error {
	if cartID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := u.findVisible(ctx, r, actor, cartID)
		if err != nil {
			return err
		}
		if c.Status == model.CartStatusDeleted {
			return nil
		}
		if err := r.Carts().UpdateStatus(ctx, cartID, model.CartStatusDeleted); err != nil {
			return internalError(u.log, "cart.soft_delete", err)
		}
		return nil
	})
}

// 物理削除（明細も消える）。注文に使われたカートは消せない
func (u *CartUsecase) Delete(ctx context.Context, cartID int64) error {
	if cartID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Carts().FindByID(ctx, cartID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return internalError(u.log, "cart.delete.find", err)
		}

		ordered, err := r.Orders().ExistsByCartID(ctx, cartID)
		if err != nil {
			return internalError(u.log, "cart.delete.order_exists", err)
		}
		if ordered {
			return NewHTTPError(http.StatusConflict, "cart is referenced by an order")
		}

		if err := r.Carts().Delete(ctx, &c); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "cart not found")
			}
			return internalError(u.log, "cart.delete", err)
		}
		return nil
	})
}

func (u *CartUsecase) findVisible(ctx context.Context, r repo.TxRepos, actor Actor, cartID int64) (model.Cart, error) {
	c, err := r.Carts().FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	if err != nil {
		return model.Cart{}, internalError(u.log, "cart.find", err)
	}
	if !canSeeCart(actor, c) {
		return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	return c, nil
}

// 管理者は全カート、それ以外は自分のカートと匿名カート
func canSeeCart(actor Actor, c model.Cart) bool {
	return actor.IsAdmin() || c.OwnedBy(actor.UserID)
}

// 明細から合計を出してcartsに保存する
func recomputeTotal(ctx context.Context, r repo.TxRepos, cartID int64) (decimal.Decimal, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	total := model.SumItems(items)
	if err := r.Carts().UpdateTotal(ctx, cartID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func parseCartStatusFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if !model.CartStatus(s).Valid() {
		return "", NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	return s, nil
}
