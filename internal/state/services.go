package state

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
)

const (
	MinFundingTarget      int64 = 100000
	MinFundingROI               = 10
	MaxFundingROI               = 50
	MinFundingDescription       = 50
)

const day = 24 * time.Hour

// rentalDays is the number of started days between start and end, at least 1.
func rentalDays(start, end time.Time) int64 {
	d := end.Sub(start)
	days := int64(d / day)
	if d%day != 0 {
		days++
	}
	return max(days, 1)
}

func validPeriod(f *fieldErrors, start, end time.Time) {
	f.check("start_date", !start.IsZero())
	f.check("end_date", !end.IsZero() && end.After(start))
}

// BookEquipment rents a piece of equipment for whole days.
type BookEquipment struct {
	EquipmentID string    `json:"equipment_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (BookEquipment) Kind() string { return "booking.equipment" }

func (in BookEquipment) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	eq, ok := t.env.Catalog.EquipmentByID(in.EquipmentID)
	if !ok {
		return fail(ErrNotFound, map[string]any{"equipment_id": in.EquipmentID})
	}
	if !eq.Available {
		return fail(ErrUnavailable, map[string]any{"equipment_id": eq.ID})
	}
	var f fieldErrors
	validPeriod(&f, in.StartDate, in.EndDate)
	if err := f.err(); err != nil {
		return err
	}

	days := rentalDays(in.StartDate, in.EndDate)
	b := Booking{
		ID:           t.nextID("bk"),
		Kind:         BookingEquipment,
		ResourceID:   eq.ID,
		ResourceName: eq.Name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Days:         days,
		Total:        days * eq.PricePerDay,
		BookedAt:     t.now(),
	}
	t.s.Bookings = append(t.s.Bookings, b)
	t.emit("booking.confirmed", map[string]any{"booking_id": b.ID, "kind": string(b.Kind), "resource_id": eq.ID, "total": b.Total})
	t.push("Your booking for " + eq.Name + " has been confirmed")
	return nil
}

// BookStorage reserves volume tons at a facility.
type BookStorage struct {
	FacilityID string          `json:"facility_id"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	Volume     decimal.Decimal `json:"volume"`
}

func (BookStorage) Kind() string { return "booking.storage" }

func (in BookStorage) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	fac, ok := t.env.Catalog.Facility(in.FacilityID)
	if !ok {
		return fail(ErrNotFound, map[string]any{"facility_id": in.FacilityID})
	}
	var f fieldErrors
	validPeriod(&f, in.StartDate, in.EndDate)
	f.check("volume", in.Volume.IsPositive())
	if err := f.err(); err != nil {
		return err
	}

	remaining := decimal.NewFromInt(fac.Remaining()).Sub(t.bookedVolume(fac.ID))
	if in.Volume.GreaterThan(remaining) {
		return fail(ErrUnavailable, map[string]any{
			"facility_id": fac.ID,
			"requested":   in.Volume.String(),
			"remaining":   remaining.String(),
		})
	}

	days := rentalDays(in.StartDate, in.EndDate)
	total := decimal.NewFromInt(days).
		Mul(decimal.NewFromInt(fac.PricePerTonPerDay)).
		Mul(in.Volume).
		Round(0).
		IntPart()
	b := Booking{
		ID:           t.nextID("bk"),
		Kind:         BookingStorage,
		ResourceID:   fac.ID,
		ResourceName: fac.Name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Days:         days,
		Volume:       in.Volume,
		Total:        total,
		BookedAt:     t.now(),
	}
	t.s.Bookings = append(t.s.Bookings, b)
	t.emit("booking.confirmed", map[string]any{"booking_id": b.ID, "kind": string(b.Kind), "resource_id": fac.ID, "total": b.Total})
	t.push("Your storage booking at " + fac.Name + " has been confirmed")
	return nil
}

func (t *tx) bookedVolume(facilityID string) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range t.s.Bookings {
		if b.Kind == BookingStorage && b.ResourceID == facilityID {
			sum = sum.Add(b.Volume)
		}
	}
	return sum
}

// RequestLogistics books a produce pickup between two served locations.
type RequestLogistics struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	LoadType    string          `json:"load_type"`
	Weight      decimal.Decimal `json:"weight"`
	PickupDate  time.Time       `json:"pickup_date"`
}

func (RequestLogistics) Kind() string { return "logistics.request" }

func (in RequestLogistics) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	ref := t.env.Catalog.Logistics()
	var f fieldErrors
	f.check("origin", oneOf(ref.Locations, in.Origin))
	f.check("destination", oneOf(ref.Locations, in.Destination))
	f.check("load_type", oneOf(ref.LoadTypes, in.LoadType))
	f.check("weight", in.Weight.IsPositive())
	f.check("pickup_date", !in.PickupDate.IsZero())
	if err := f.err(); err != nil {
		return err
	}

	steps := make([]TrackingStep, len(ref.TrackingSteps))
	for i, name := range ref.TrackingSteps {
		steps[i] = TrackingStep{Status: name}
	}
	req := LogisticsRequest{
		ID:            t.nextID("lg"),
		Origin:        in.Origin,
		Destination:   in.Destination,
		LoadType:      in.LoadType,
		Weight:        in.Weight,
		PickupDate:    in.PickupDate,
		Status:        LogisticsPending,
		TrackingSteps: steps,
		RequestedAt:   t.now(),
	}
	t.s.Shipments = append(t.s.Shipments, req)
	t.emit("logistics.requested", map[string]any{"request_id": req.ID, "origin": req.Origin, "destination": req.Destination})
	t.push("Your logistics request has been submitted")
	return nil
}

// oneOf matches value against options; an empty option list accepts any
// non-blank value.
func oneOf(options []string, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	if len(options) == 0 {
		return true
	}
	return slices.Contains(options, value)
}

// SubmitWizardStep answers the current farm-for-me step and advances. The
// fourth answer completes the wizard and ranks matching farmers.
type SubmitWizardStep struct {
	Value string `json:"value"`
}

func (SubmitWizardStep) Kind() string { return "wizard.submit" }

func (in SubmitWizardStep) apply(t *tx) error {
	w := &t.s.Wizard
	if w.Completed {
		return fail(ErrInvalidTransition, map[string]any{"wizard": "completed"})
	}
	step := w.CurrentStep()
	field := WizardSteps[step-1]
	value := strings.TrimSpace(in.Value)
	if value == "" {
		return invalid(field)
	}
	switch step {
	case 1:
		w.FarmSize = value
	case 2:
		w.Crop = value
	case 3:
		w.Location = value
	case 4:
		w.ManagementLevel = value
	}
	if step < len(WizardSteps) {
		w.Step = step + 1
		return nil
	}
	w.Step = step
	w.Completed = true
	w.Matches = catalog.MatchFarmers(t.env.Catalog.Farmers(), w.Crop, w.Location)
	t.emit("wizard.completed", map[string]any{"crop": w.Crop, "location": w.Location, "matches": len(w.Matches)})
	return nil
}

// WizardBack returns to the previous step, reopening a completed wizard.
type WizardBack struct{}

func (WizardBack) Kind() string { return "wizard.back" }

func (WizardBack) apply(t *tx) error {
	w := &t.s.Wizard
	if w.Completed {
		w.Completed = false
		w.Matches = nil
		return nil
	}
	if step := w.CurrentStep(); step > 1 {
		w.Step = step - 1
	}
	return nil
}

// ResetWizard discards all answers.
type ResetWizard struct{}

func (ResetWizard) Kind() string { return "wizard.reset" }

func (ResetWizard) apply(t *tx) error {
	t.s.Wizard = Wizard{}
	return nil
}

// ConfirmFarmContract signs a contract with one of the matched farmers.
type ConfirmFarmContract struct {
	FarmerID string `json:"farmer_id"`
}

func (ConfirmFarmContract) Kind() string { return "wizard.confirm" }

func (in ConfirmFarmContract) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	w := t.s.Wizard
	if !w.Completed {
		return fail(ErrInvalidTransition, map[string]any{"wizard_step": w.CurrentStep()})
	}
	idx := slices.IndexFunc(w.Matches, func(f catalog.VettedFarmer) bool { return f.ID == in.FarmerID })
	if idx < 0 {
		return fail(ErrNotFound, map[string]any{"farmer_id": in.FarmerID})
	}
	farmer := w.Matches[idx]
	c := FarmContract{
		ID:              t.nextID("ctr"),
		FarmerID:        farmer.ID,
		FarmerName:      farmer.Name,
		FarmSize:        w.FarmSize,
		Crop:            w.Crop,
		Location:        w.Location,
		ManagementLevel: w.ManagementLevel,
		Status:          "active",
		CreatedAt:       t.now(),
	}
	t.s.Contracts = append(t.s.Contracts, c)
	t.s.Wizard = Wizard{}
	t.emit("contract.created", map[string]any{"contract_id": c.ID, "farmer_id": farmer.ID, "user_id": t.userID()})
	t.push("Your Farm for Me contract has been created")
	return nil
}

// SubmitFundingRequest files a farmer's project for review.
type SubmitFundingRequest struct {
	FarmName     string `json:"farm_name"`
	CropType     string `json:"crop_type"`
	Location     string `json:"location"`
	TargetAmount int64  `json:"target_amount"`
	Duration     string `json:"duration"`
	ROI          int    `json:"roi"`
	Description  string `json:"description"`
}

func (SubmitFundingRequest) Kind() string { return "funding.submit" }

func (in SubmitFundingRequest) apply(t *tx) error {
	if err := t.requireUser(); err != nil {
		return err
	}
	var f fieldErrors
	f.require("farm_name", in.FarmName)
	f.require("crop_type", in.CropType)
	f.require("location", in.Location)
	f.check("target_amount", in.TargetAmount >= MinFundingTarget)
	f.require("duration", in.Duration)
	f.check("roi", in.ROI >= MinFundingROI && in.ROI <= MaxFundingROI)
	f.check("description", len(strings.TrimSpace(in.Description)) >= MinFundingDescription)
	if err := f.err(); err != nil {
		return err
	}

	req := FundingRequest{
		ID:           t.nextID("fr"),
		FarmName:     in.FarmName,
		CropType:     in.CropType,
		Location:     in.Location,
		TargetAmount: in.TargetAmount,
		Duration:     in.Duration,
		ROI:          in.ROI,
		Description:  strings.TrimSpace(in.Description),
		Status:       "pending_review",
		SubmittedBy:  t.userID(),
		SubmittedAt:  t.now(),
	}
	t.s.FundingRequests = append(t.s.FundingRequests, req)
	t.emit("funding.submitted", map[string]any{"request_id": req.ID, "target_amount": req.TargetAmount})
	t.push("Your funding request has been submitted for review")
	return nil
}
