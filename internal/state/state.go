// Package state is the session state model of the twin: wallet, cart,
// investment ledger, notification feed and service bookings, plus the pure
// transitions that move a session from one State to the next.
//
// Apply never mutates its input. Owners keep the returned State and swap it in
// with a single assignment, so a reader holding the previous value never sees
// a half-applied intent.
package state

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
)

// MaxNotifications caps the feed; older entries are dropped on push.
const MaxNotifications = 20

// User is the identity of an authenticated session.
type User struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Role          catalog.Role `json:"role"`
	WalletBalance int64        `json:"wallet_balance"`
	Verified      bool         `json:"verified"`
}

type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentMatured   InvestmentStatus = "matured"
	InvestmentWithdrawn InvestmentStatus = "withdrawn"
)

type InvestmentKind string

const (
	KindFarmProject InvestmentKind = "farm_project"
	KindTree        InvestmentKind = "tree"
)

// Investment is one ledger entry. Only Status changes after creation.
type Investment struct {
	ID          string           `json:"id"`
	Kind        InvestmentKind   `json:"kind"`
	ProjectID   string           `json:"project_id"`
	ProjectName string           `json:"project_name"`
	Amount      int64            `json:"amount"`
	ROI         int              `json:"roi"`
	Status      InvestmentStatus `json:"status"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	Image       string           `json:"image"`
}

// CartItem is one marketplace product in the cart. Quantity is always > 0.
type CartItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (c CartItem) Subtotal() int64 {
	return c.Product.PricePerKg * int64(c.Quantity)
}

type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// DeliveryDetails is the checkout address form.
type DeliveryDetails struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Notes    string `json:"notes,omitempty"`
}

// Order is a completed checkout.
type Order struct {
	ID          string          `json:"id"`
	Items       []CartItem      `json:"items"`
	Subtotal    int64           `json:"subtotal"`
	DeliveryFee int64           `json:"delivery_fee"`
	Total       int64           `json:"total"`
	Delivery    DeliveryDetails `json:"delivery"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type BookingKind string

const (
	BookingEquipment BookingKind = "equipment"
	BookingStorage   BookingKind = "storage"
)

// Booking is a confirmed equipment rental or storage reservation.
type Booking struct {
	ID           string          `json:"id"`
	Kind         BookingKind     `json:"kind"`
	ResourceID   string          `json:"resource_id"`
	ResourceName string          `json:"resource_name"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	Days         int64           `json:"days"`
	Volume       decimal.Decimal `json:"volume"`
	Total        int64           `json:"total"`
	BookedAt     time.Time       `json:"booked_at"`
}

type LogisticsStatus string

const (
	LogisticsPending   LogisticsStatus = "pending"
	LogisticsAssigned  LogisticsStatus = "assigned"
	LogisticsInTransit LogisticsStatus = "in_transit"
	LogisticsDelivered LogisticsStatus = "delivered"
)

type TrackingStep struct {
	Status    string     `json:"status"`
	Time      *time.Time `json:"time,omitempty"`
	Completed bool       `json:"completed"`
}

// LogisticsRequest is a pickup-and-delivery request.
type LogisticsRequest struct {
	ID            string          `json:"id"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	LoadType      string          `json:"load_type"`
	Weight        decimal.Decimal `json:"weight"`
	PickupDate    time.Time       `json:"pickup_date"`
	Status        LogisticsStatus `json:"status"`
	TrackingSteps []TrackingStep  `json:"tracking_steps"`
	RequestedAt   time.Time       `json:"requested_at"`
}

// Wizard is the farm-for-me questionnaire. Step runs 1 through 4; once the
// fourth answer is in, Completed is set and Matches holds ranked farmers.
type Wizard struct {
	Step            int                    `json:"step"`
	FarmSize        string                 `json:"farm_size"`
	Crop            string                 `json:"crop"`
	Location        string                 `json:"location"`
	ManagementLevel string                 `json:"management_level"`
	Completed       bool                   `json:"completed"`
	Matches         []catalog.VettedFarmer `json:"matches,omitempty"`
}

// WizardSteps names the answer collected at each step.
var WizardSteps = [...]string{"farm_size", "crop", "location", "management_level"}

// CurrentStep returns the 1-based step awaiting an answer.
func (w Wizard) CurrentStep() int {
	if w.Step < 1 {
		return 1
	}
	return w.Step
}

// FarmContract is a confirmed farm-for-me engagement.
type FarmContract struct {
	ID              string    `json:"id"`
	FarmerID        string    `json:"farmer_id"`
	FarmerName      string    `json:"farmer_name"`
	FarmSize        string    `json:"farm_size"`
	Crop            string    `json:"crop"`
	Location        string    `json:"location"`
	ManagementLevel string    `json:"management_level"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// FundingRequest is a farmer's application to list a new project.
type FundingRequest struct {
	ID           string    `json:"id"`
	FarmName     string    `json:"farm_name"`
	CropType     string    `json:"crop_type"`
	Location     string    `json:"location"`
	TargetAmount int64     `json:"target_amount"`
	Duration     string    `json:"duration"`
	ROI          int       `json:"roi"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	SubmittedBy  string    `json:"submitted_by"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// State is everything one client session owns.
type State struct {
	User            *User              `json:"user"`
	Wallet          int64              `json:"wallet_balance"`
	Cart            []CartItem         `json:"cart"`
	Investments     []Investment       `json:"investments"`
	Notifications   []Notification     `json:"notifications"`
	Orders          []Order            `json:"orders"`
	Bookings        []Booking          `json:"bookings"`
	Shipments       []LogisticsRequest `json:"logistics_requests"`
	Contracts       []FarmContract     `json:"contracts"`
	FundingRequests []FundingRequest   `json:"funding_requests"`
	Wizard          Wizard             `json:"wizard"`
	Seq             uint64             `json:"seq"`
}

// IsAuthenticated is true iff a user is present.
func (s State) IsAuthenticated() bool { return s.User != nil }

// CartTotal is Σ unit price × quantity, computed on every call.
func (s State) CartTotal() int64 {
	var total int64
	for _, item := range s.Cart {
		total += item.Subtotal()
	}
	return total
}

// CartItemCount is Σ quantity.
func (s State) CartItemCount() int {
	n := 0
	for _, item := range s.Cart {
		n += item.Quantity
	}
	return n
}

// UnreadCount counts unread notifications.
func (s State) UnreadCount() int {
	n := 0
	for _, note := range s.Notifications {
		if !note.Read {
			n++
		}
	}
	return n
}

// Investment returns the ledger entry with id.
func (s State) Investment(id string) (Investment, bool) {
	for _, inv := range s.Investments {
		if inv.ID == id {
			return inv, true
		}
	}
	return Investment{}, false
}

// Portfolio summarises the ledger.
type Portfolio struct {
	TotalInvested int64 `json:"total_invested"`
	ROIEarned     int64 `json:"roi_earned"`
	ActiveCount   int   `json:"active_count"`
}

// Portfolio totals the ledger: ROI earned is Σ amount × roi / 100 across all
// entries, rounded to whole naira.
func (s State) Portfolio() Portfolio {
	var p Portfolio
	earned := decimal.Zero
	for _, inv := range s.Investments {
		p.TotalInvested += inv.Amount
		earned = earned.Add(simpleReturn(inv.Amount, inv.ROI, 1))
		if inv.Status == InvestmentActive {
			p.ActiveCount++
		}
	}
	p.ROIEarned = earned.Round(0).IntPart()
	return p
}

// Clone returns a deep copy whose slices can be modified independently.
func (s State) Clone() State {
	c := s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	c.Cart = slices.Clone(s.Cart)
	c.Investments = slices.Clone(s.Investments)
	c.Notifications = slices.Clone(s.Notifications)
	c.Orders = slices.Clone(s.Orders)
	c.Bookings = slices.Clone(s.Bookings)
	c.Shipments = slices.Clone(s.Shipments)
	for i := range c.Shipments {
		c.Shipments[i].TrackingSteps = slices.Clone(c.Shipments[i].TrackingSteps)
	}
	c.Contracts = slices.Clone(s.Contracts)
	c.FundingRequests = slices.Clone(s.FundingRequests)
	c.Wizard.Matches = slices.Clone(s.Wizard.Matches)
	return c
}
