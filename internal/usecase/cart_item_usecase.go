package usecase

import (
	"context"
	"errors"
	"net/http"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"go.uber.org/zap"
)

// カート明細の追加・変更・削除。変更のたびに対象カートの合計を同じTx内で再計算する
type CartItemUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewCartItemUsecase(tx repo.TransactionManager, log *zap.Logger) *CartItemUsecase {
	return &CartItemUsecase{tx: tx, log: log}
}

type CartItemListInput struct {
	PageIndex int
	PageSize  int
	ID        *int64
	CartID    *int64
	ProductID *int64
	Quantity  *int64
}

type AddCartItemInput struct {
	CartID    int64
	ProductID int64
	Quantity  int64
}

// 0やnilは「変更しない」
type UpdateCartItemInput struct {
	CartID    *int64
	ProductID *int64
	Quantity  int64
}

func (u *CartItemUsecase) List(ctx context.Context, in CartItemListInput) (repo.Paginated[model.CartItem], error) {
	if err := validatePaging(in.PageIndex, in.PageSize); err != nil {
		return repo.Paginated[model.CartItem]{}, err
	}

	var out repo.Paginated[model.CartItem]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		page, err := r.CartItems().List(ctx, repo.CartItemListFilter{
			PageIndex: in.PageIndex,
			PageSize:  in.PageSize,
			ID:        in.ID,
			CartID:    in.CartID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
		})
		if err != nil {
			return internalError(u.log, "cart_item.list", err)
		}
		out = page
		return nil
	})
	if err != nil {
		return repo.Paginated[model.CartItem]{}, err
	}
	return out, nil
}

func (u *CartItemUsecase) Get(ctx context.Context, actor Actor, itemID int64) (model.CartItem, error) {
	if itemID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.CartItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := u.findItem(ctx, r, itemID)
		if err != nil {
			return err
		}
		c, err := r.Carts().FindByID(ctx, it.CartID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return internalError(u.log, "cart_item.get.cart", err)
		}
		if err != nil || !canSeeCart(actor, c) {
			return NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		out = it
		return nil
	})
	if err != nil {
		return model.CartItem{}, err
	}
	return out, nil
}

func (u *CartItemUsecase) Add(ctx context.Context, actor Actor, in AddCartItemInput) (model.CartItem, error) {
	if in.CartID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid cart_id")
	}
	if in.ProductID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	var out model.CartItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := u.mutableCart(ctx, r, actor, in.CartID)
		if err != nil {
			return err
		}
		p, err := u.findProduct(ctx, r, in.ProductID)
		if err != nil {
			return err
		}

		//価格は追加時点の商品価格
		it := model.CartItem{
			CartID:    in.CartID,
			ProductID: in.ProductID,
			Quantity:  normalizeQuantity(in.Quantity),
			Price:     p.Price,
		}
		if err := r.CartItems().Insert(ctx, &it); err != nil {
			return internalError(u.log, "cart_item.add", err)
		}

		if err := u.touchCart(ctx, r, c); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return model.CartItem{}, err
	}
	return out, nil
}

// カートの付け替えもできる。その場合は両方のカートの合計を再計算する
func (u *CartItemUsecase) Update(ctx context.Context, actor Actor, itemID int64, in UpdateCartItemInput) (model.CartItem, error) {
	if itemID <= 0 {
		return model.CartItem{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.CartItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := u.findItem(ctx, r, itemID)
		if err != nil {
			return err
		}

		src, err := u.mutableCart(ctx, r, actor, it.CartID)
		if err != nil {
			return err
		}
		dst := src
		if in.CartID != nil && *in.CartID > 0 && *in.CartID != it.CartID {
			dst, err = u.mutableCart(ctx, r, actor, *in.CartID)
			if err != nil {
				return err
			}
			it.CartID = dst.ID
		}

		if in.ProductID != nil && *in.ProductID > 0 {
			it.ProductID = *in.ProductID
		}
		p, err := u.findProduct(ctx, r, it.ProductID)
		if err != nil {
			return err
		}
		it.Price = p.Price
		it.Quantity = normalizeQuantity(in.Quantity)
		it.Product = nil

		if err := r.CartItems().Update(ctx, &it); err != nil {
			return internalError(u.log, "cart_item.update", err)
		}

		if err := u.touchCart(ctx, r, dst); err != nil {
			return err
		}
		//移動元は合計だけ
		if dst.ID != src.ID {
			if _, err := recomputeTotal(ctx, r, src.ID); err != nil {
				return internalError(u.log, "cart_item.update.recompute_src", err)
			}
		}
		out = it
		return nil
	})
	if err != nil {
		return model.CartItem{}, err
	}
	return out, nil
}

func (u *CartItemUsecase) Delete(ctx context.Context, actor Actor, itemID int64) error {
	if itemID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		it, err := u.findItem(ctx, r, itemID)
		if err != nil {
			return err
		}
		c, err := u.mutableCart(ctx, r, actor, it.CartID)
		if err != nil {
			return err
		}

		if err := r.CartItems().Delete(ctx, &it); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "cart item not found")
			}
			return internalError(u.log, "cart_item.delete", err)
		}

		if _, err := recomputeTotal(ctx, r, c.ID); err != nil {
			return internalError(u.log, "cart_item.delete.recompute", err)
		}
		return nil
	})
}

func (u *CartItemUsecase) findItem(ctx context.Context, r repo.TxRepos, itemID int64) (model.CartItem, error) {
	it, err := r.CartItems().FindByID(ctx, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CartItem{}, NewHTTPError(http.StatusNotFound, "cart item not found")
	}
	if err != nil {
		return model.CartItem{}, internalError(u.log, "cart_item.find", err)
	}
	return it, nil
}

func (u *CartItemUsecase) findProduct(ctx context.Context, r repo.TxRepos, productID int64) (model.Product, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, internalError(u.log, "cart_item.product", err)
	}
	if !p.IsActive {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "product not available")
	}
	return p, nil
}

// 明細を変更できるカートか（削除済み・注文済みはConflict）
func (u *CartItemUsecase) mutableCart(ctx context.Context, r repo.TxRepos, actor Actor, cartID int64) (model.Cart, error) {
	c, err := r.Carts().FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	if err != nil {
		return model.Cart{}, internalError(u.log, "cart_item.cart", err)
	}
	if !canSeeCart(actor, c) {
		return model.Cart{}, NewHTTPError(http.StatusNotFound, "cart not found")
	}
	if c.Status == model.CartStatusDeleted {
		return model.Cart{}, NewHTTPError(http.StatusConflict, "cart is deleted")
	}

	ordered, err := r.Orders().ExistsByCartID(ctx, cartID)
	if err != nil {
		return model.Cart{}, internalError(u.log, "cart_item.cart.order_exists", err)
	}
	if ordered {
		return model.Cart{}, NewHTTPError(http.StatusConflict, "cart is already ordered")
	}
	return c, nil
}

// Pendingなら明細が入った時点でActiveにし、合計を再計算する
func (u *CartItemUsecase) touchCart(ctx context.Context, r repo.TxRepos, c model.Cart) error {
	if c.Status == model.CartStatusPending {
		if err := r.Carts().UpdateStatus(ctx, c.ID, model.CartStatusActive); err != nil {
			return internalError(u.log, "cart_item.activate", err)
		}
	}
	if _, err := recomputeTotal(ctx, r, c.ID); err != nil {
		return internalError(u.log, "cart_item.recompute", err)
	}
	return nil
}

// 0以下は1として扱う
func normalizeQuantity(q int64) int64 {
	if q <= 0 {
		return 1
	}
	return q
}
