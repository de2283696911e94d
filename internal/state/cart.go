package state

import (
	"fmt"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
)

// DeliveryFee is added to every order.
const DeliveryFee int64 = 1500

// MaxCartQuantity caps a cart line for products that list no stock.
const MaxCartQuantity = 10000

// maxQuantity is the largest quantity a cart line for p may hold: the listed
// stock, or MaxCartQuantity when none is listed.
func maxQuantity(p catalog.Product) int {
	if p.Quantity > 0 {
		return p.Quantity
	}
	return MaxCartQuantity
}

func aboveStock(p catalog.Product, requested int) error {
	return fail(ErrAboveMaximum, map[string]any{"product_id": p.ID, "requested": requested, "max": maxQuantity(p)})
}

// AddToCart adds quantity units of a marketplace product, incrementing the
// existing entry if the product is already in the cart. Quantity 0 means 1.
type AddToCart struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (AddToCart) Kind() string { return "cart.add" }

func (in AddToCart) apply(t *tx) error {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return invalid("quantity")
	}
	p, ok := t.env.Catalog.Product(in.ProductID)
	if !ok {
		return fail(ErrNotFound, map[string]any{"product_id": in.ProductID})
	}

	limit := maxQuantity(p)
	found := false
	for i := range t.s.Cart {
		if t.s.Cart[i].Product.ID == p.ID {
			if qty > limit-t.s.Cart[i].Quantity {
				return aboveStock(p, qty)
			}
			t.s.Cart[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		if qty > limit {
			return aboveStock(p, qty)
		}
		t.s.Cart = append(t.s.Cart, CartItem{Product: p, Quantity: qty})
	}
	t.emit("cart.item_added", map[string]any{"product_id": p.ID, "quantity": qty})
	t.push(p.Name + " added to cart")
	return nil
}

// UpdateCartQuantity sets an entry's quantity; zero or less removes it.
// Products not in the cart are ignored.
type UpdateCartQuantity struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (UpdateCartQuantity) Kind() string { return "cart.update_quantity" }

func (in UpdateCartQuantity) apply(t *tx) error {
	if in.Quantity <= 0 {
		t.removeFromCart(in.ProductID)
		return nil
	}
	for i := range t.s.Cart {
		if t.s.Cart[i].Product.ID == in.ProductID {
			if in.Quantity > maxQuantity(t.s.Cart[i].Product) {
				return aboveStock(t.s.Cart[i].Product, in.Quantity)
			}
			t.s.Cart[i].Quantity = in.Quantity
			return nil
		}
	}
	return nil
}

// RemoveFromCart drops an entry; absent products are a no-op.
type RemoveFromCart struct {
	ProductID string `json:"product_id"`
}

func (RemoveFromCart) Kind() string { return "cart.remove" }

func (in RemoveFromCart) apply(t *tx) error {
	t.removeFromCart(in.ProductID)
	return nil
}

func (t *tx) removeFromCart(productID string) {
	kept := t.s.Cart[:0]
	for _, item := range t.s.Cart {
		if item.Product.ID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	t.s.Cart = kept
}

// ClearCart empties the cart.
type ClearCart struct{}

func (ClearCart) Kind() string { return "cart.clear" }

func (ClearCart) apply(t *tx) error {
	t.s.Cart = nil
	return nil
}

// Checkout turns the cart into an order. No payment is captured and catalog
// stock is not decremented.
type Checkout struct {
	Delivery DeliveryDetails `json:"delivery"`
}

func (Checkout) Kind() string { return "cart.checkout" }

func (in Checkout) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	if len(t.s.Cart) == 0 {
		return fail(ErrEmptyCart, nil)
	}
	d := in.Delivery
	var f fieldErrors
	f.require("full_name", d.FullName)
	f.email("email", d.Email)
	f.require("phone", d.Phone)
	f.require("address", d.Address)
	f.require("city", d.City)
	f.require("state", d.State)
	if err := f.err(); err != nil {
		return err
	}

	subtotal := t.s.CartTotal()
	t.s.Seq++
	order := Order{
		ID:          fmt.Sprintf("AGR%08d", (t.now().UnixMilli()+int64(t.s.Seq))%100000000),
		Items:       t.s.Cart,
		Subtotal:    subtotal,
		DeliveryFee: DeliveryFee,
		Total:       subtotal + DeliveryFee,
		Delivery:    d,
		PlacedAt:    t.now(),
	}
	t.s.Orders = append(t.s.Orders, order)
	t.s.Cart = nil
	t.emit("order.placed", map[string]any{
		"order_id":   order.ID,
		"user_id":    t.userID(),
		"item_count": len(order.Items),
		"total":      order.Total,
	})
	t.push("Your order has been placed successfully!")
	return nil
}
