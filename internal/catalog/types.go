package catalog

// Role is a demo account role.
type Role string

const (
	RoleInvestor          Role = "investor"
	RoleFarmer            Role = "farmer"
	RoleEquipmentOwner    Role = "equipment_owner"
	RoleLogisticsProvider Role = "logistics_provider"
	RoleAdmin             Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleInvestor, RoleFarmer, RoleEquipmentOwner, RoleLogisticsProvider, RoleAdmin:
		return true
	}
	return false
}

// DemoUser is a seeded account that login matches against.
type DemoUser struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Email         string `yaml:"email" json:"email"`
	Role          Role   `yaml:"role" json:"role"`
	WalletBalance int64  `yaml:"wallet_balance" json:"wallet_balance"`
	Verified      bool   `yaml:"verified" json:"verified"`
	// Password is only consulted when strict password checking is on.
	Password string `yaml:"password" json:"-"`
}

// FarmProject is a crowdfunded farm that accepts investments.
type FarmProject struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	Location     string `yaml:"location" json:"location"`
	CropType     string `yaml:"crop_type" json:"crop_type"`
	TargetAmount int64  `yaml:"target_amount" json:"target_amount"`
	RaisedAmount int64  `yaml:"raised_amount" json:"raised_amount"`
	ROI          int    `yaml:"roi" json:"roi"`
	Duration     string `yaml:"duration" json:"duration"`
	Status       string `yaml:"status" json:"status"`
	Image        string `yaml:"image" json:"image"`
	FarmerID     string `yaml:"farmer_id" json:"farmer_id"`
	FarmerName   string `yaml:"farmer_name" json:"farmer_name"`
}

// TreeProduct is a fractional economic-tree investment.
type TreeProduct struct {
	ID               string `yaml:"id" json:"id"`
	Name             string `yaml:"name" json:"name"`
	Type             string `yaml:"type" json:"type"`
	MinInvestment    int64  `yaml:"min_investment" json:"min_investment"`
	MaxInvestment    int64  `yaml:"max_investment" json:"max_investment"`
	ExpectedYield    string `yaml:"expected_yield" json:"expected_yield"`
	MaturityYears    int    `yaml:"maturity_years" json:"maturity_years"`
	DividendSchedule string `yaml:"dividend_schedule" json:"dividend_schedule"`
	Image            string `yaml:"image" json:"image"`
	Available        int    `yaml:"available" json:"available"`
}

// Product is a marketplace listing. Quantity is the listed stock; it caps a
// cart line but is never decremented.
type Product struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	Category   string  `yaml:"category" json:"category"`
	PricePerKg int64   `yaml:"price_per_kg" json:"price_per_kg"`
	Farmer     string  `yaml:"farmer" json:"farmer"`
	Location   string  `yaml:"location" json:"location"`
	Available  bool    `yaml:"available" json:"available"`
	Quantity   int     `yaml:"quantity" json:"quantity"`
	Unit       string  `yaml:"unit" json:"unit"`
	Image      string  `yaml:"image" json:"image"`
	Rating     float64 `yaml:"rating" json:"rating"`
}

// Equipment is rentable farm machinery.
type Equipment struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Location    string `yaml:"location" json:"location"`
	PricePerDay int64  `yaml:"price_per_day" json:"price_per_day"`
	Available   bool   `yaml:"available" json:"available"`
	Image       string `yaml:"image" json:"image"`
	Description string `yaml:"description" json:"description"`
}

// StorageFacility is bookable storage measured in tons.
type StorageFacility struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Type              string   `yaml:"type" json:"type"`
	Location          string   `yaml:"location" json:"location"`
	Capacity          int64    `yaml:"capacity" json:"capacity"`
	UsedCapacity      int64    `yaml:"used_capacity" json:"used_capacity"`
	PricePerTonPerDay int64    `yaml:"price_per_ton_per_day" json:"price_per_ton_per_day"`
	Image             string   `yaml:"image" json:"image"`
	Features          []string `yaml:"features" json:"features"`
}

// Remaining returns the free capacity in tons.
func (f StorageFacility) Remaining() int64 {
	return f.Capacity - f.UsedCapacity
}

// VettedFarmer is a professional available for farm-for-me contracts.
type VettedFarmer struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Location    string   `yaml:"location" json:"location"`
	Rating      float64  `yaml:"rating" json:"rating"`
	Farms       int      `yaml:"farms" json:"farms"`
	Experience  string   `yaml:"experience" json:"experience"`
	Specialties []string `yaml:"specialties" json:"specialties"`
}

// Logistics reference lists.
type Logistics struct {
	LoadTypes     []string `yaml:"load_types" json:"load_types"`
	Locations     []string `yaml:"locations" json:"locations"`
	TrackingSteps []string `yaml:"tracking_steps" json:"tracking_steps"`
}
