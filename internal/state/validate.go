package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks the invariants Apply maintains, for states that arrive from
// outside, such as an admin seed. It reports every violation at once.
func (s State) Validate() error {
	var errs []error
	if s.Wallet < 0 {
		errs = append(errs, fmt.Errorf("negative wallet balance %d", s.Wallet))
	}

	seen := make(map[string]bool, len(s.Cart))
	for _, item := range s.Cart {
		id := item.Product.ID
		switch {
		case id == "":
			errs = append(errs, errors.New("cart entry without product id"))
		case seen[id]:
			errs = append(errs, fmt.Errorf("cart product %s listed twice", id))
		case item.Quantity <= 0:
			errs = append(errs, fmt.Errorf("cart product %s: quantity %d must be positive", id, item.Quantity))
		case item.Quantity > maxQuantity(item.Product):
			errs = append(errs, fmt.Errorf("cart product %s: quantity %d above %d", id, item.Quantity, maxQuantity(item.Product)))
		case item.Product.PricePerKg < 0:
			errs = append(errs, fmt.Errorf("cart product %s: negative price", id))
		}
		seen[id] = true
	}

	if len(s.Notifications) > MaxNotifications {
		errs = append(errs, fmt.Errorf("%d notifications exceed the cap of %d", len(s.Notifications), MaxNotifications))
	}
	for _, inv := range s.Investments {
		if inv.Amount <= 0 {
			errs = append(errs, fmt.Errorf("investment %s: amount must be positive", inv.ID))
		}
	}

	for _, id := range s.generatedIDs() {
		if n, ok := idSeq(id); ok && n > s.Seq {
			errs = append(errs, fmt.Errorf("id %s is ahead of seq %d", id, s.Seq))
		}
	}
	return errors.Join(errs...)
}

func (s State) generatedIDs() []string {
	var ids []string
	if s.User != nil {
		ids = append(ids, s.User.ID)
	}
	for _, v := range s.Investments {
		ids = append(ids, v.ID)
	}
	for _, v := range s.Notifications {
		ids = append(ids, v.ID)
	}
	for _, v := range s.Bookings {
		ids = append(ids, v.ID)
	}
	for _, v := range s.Shipments {
		ids = append(ids, v.ID)
	}
	for _, v := range s.Contracts {
		ids = append(ids, v.ID)
	}
	for _, v := range s.FundingRequests {
		ids = append(ids, v.ID)
	}
	return ids
}

// idSeq extracts the counter from ids of the form "inv_000042".
func idSeq(id string) (uint64, bool) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	return n, err == nil
}
