// Package catalog holds the read-only reference data the twin serves: demo
// accounts, farm projects, tree products, marketplace listings, equipment,
// storage facilities and vetted farmers.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	pkgstore "github.com/Eblazecode/Agrolinkernew/pkg/store"
)

//go:embed seed.yaml
var defaultSeed []byte

// Repository is the read-only view of the reference data that session state
// transitions consult. Implementations never change after construction.
type Repository interface {
	UserByEmail(email string) (DemoUser, bool)
	Users() []DemoUser
	Project(id string) (FarmProject, bool)
	Projects() []FarmProject
	Tree(id string) (TreeProduct, bool)
	Trees() []TreeProduct
	Product(id string) (Product, bool)
	Products() []Product
	EquipmentByID(id string) (Equipment, bool)
	Equipment() []Equipment
	Facility(id string) (StorageFacility, bool)
	Facilities() []StorageFacility
	Farmers() []VettedFarmer
	Logistics() Logistics
}

// Seed is the on-disk shape of the reference data.
type Seed struct {
	Users      []DemoUser        `yaml:"users"`
	Projects   []FarmProject     `yaml:"projects"`
	Trees      []TreeProduct     `yaml:"trees"`
	Products   []Product         `yaml:"products"`
	Equipment  []Equipment       `yaml:"equipment"`
	Facilities []StorageFacility `yaml:"facilities"`
	Farmers    []VettedFarmer    `yaml:"farmers"`
	Logistics  Logistics         `yaml:"logistics"`
}

// Validate checks the seed for missing or duplicate IDs and inconsistent
// bounds.
func (s Seed) Validate() error {
	seen := map[string]bool{}
	check := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s: missing id", kind)
		}
		key := kind + "/" + id
		if seen[key] {
			return fmt.Errorf("%s: duplicate id %q", kind, id)
		}
		seen[key] = true
		return nil
	}

	emails := map[string]bool{}
	for _, u := range s.Users {
		if err := check("user", u.ID); err != nil {
			return err
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %s: invalid role %q", u.ID, u.Role)
		}
		if emails[u.Email] {
			return fmt.Errorf("user %s: duplicate email %q", u.ID, u.Email)
		}
		emails[u.Email] = true
	}
	for _, p := range s.Projects {
		if err := check("project", p.ID); err != nil {
			return err
		}
	}
	for _, t := range s.Trees {
		if err := check("tree", t.ID); err != nil {
			return err
		}
		if t.MinInvestment <= 0 || t.MaxInvestment < t.MinInvestment {
			return fmt.Errorf("tree %s: invalid investment bounds [%d, %d]", t.ID, t.MinInvestment, t.MaxInvestment)
		}
	}
	for _, p := range s.Products {
		if err := check("product", p.ID); err != nil {
			return err
		}
		if p.PricePerKg < 0 {
			return fmt.Errorf("product %s: negative price", p.ID)
		}
	}
	for _, e := range s.Equipment {
		if err := check("equipment", e.ID); err != nil {
			return err
		}
	}
	for _, f := range s.Facilities {
		if err := check("facility", f.ID); err != nil {
			return err
		}
		if f.UsedCapacity > f.Capacity {
			return fmt.Errorf("facility %s: used capacity exceeds capacity", f.ID)
		}
	}
	for _, f := range s.Farmers {
		if err := check("farmer", f.ID); err != nil {
			return err
		}
	}
	return nil
}

// Catalog is the in-memory Repository.
type Catalog struct {
	users      *pkgstore.Store[DemoUser]
	projects   *pkgstore.Store[FarmProject]
	trees      *pkgstore.Store[TreeProduct]
	products   *pkgstore.Store[Product]
	equipment  *pkgstore.Store[Equipment]
	facilities *pkgstore.Store[StorageFacility]
	farmers    *pkgstore.Store[VettedFarmer]
	logistics  Logistics
}

// New builds a Catalog from seed.
func New(seed Seed) (*Catalog, error) {
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog seed: %w", err)
	}
	c := &Catalog{
		users:      pkgstore.New[DemoUser]("user"),
		projects:   pkgstore.New[FarmProject]("proj"),
		trees:      pkgstore.New[TreeProduct]("tree"),
		products:   pkgstore.New[Product]("prod"),
		equipment:  pkgstore.New[Equipment]("eq"),
		facilities: pkgstore.New[StorageFacility]("fac"),
		farmers:    pkgstore.New[VettedFarmer]("farmer"),
		logistics:  seed.Logistics,
	}
	c.users.Load(seed.Users, func(u DemoUser) string { return u.Email })
	c.projects.Load(seed.Projects, func(p FarmProject) string { return p.ID })
	c.trees.Load(seed.Trees, func(t TreeProduct) string { return t.ID })
	c.products.Load(seed.Products, func(p Product) string { return p.ID })
	c.equipment.Load(seed.Equipment, func(e Equipment) string { return e.ID })
	c.facilities.Load(seed.Facilities, func(f StorageFacility) string { return f.ID })
	c.farmers.Load(seed.Farmers, func(f VettedFarmer) string { return f.ID })
	return c, nil
}

// Decode parses a YAML seed from r and builds a Catalog.
func Decode(r io.Reader) (*Catalog, error) {
	var seed Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decoding catalog seed: %w", err)
	}
	return New(seed)
}

// LoadFile reads a YAML seed from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog seed: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Default returns the catalog built from the embedded seed.
func Default() *Catalog {
	c, err := Decode(strings.NewReader(string(defaultSeed)))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog seed: %v", err))
	}
	return c
}

func (c *Catalog) UserByEmail(email string) (DemoUser, bool) { return c.users.Get(email) }
func (c *Catalog) Users() []DemoUser                         { return c.users.List() }

func (c *Catalog) Project(id string) (FarmProject, bool) { return c.projects.Get(id) }
func (c *Catalog) Projects() []FarmProject               { return c.projects.List() }

func (c *Catalog) Tree(id string) (TreeProduct, bool) { return c.trees.Get(id) }
func (c *Catalog) Trees() []TreeProduct               { return c.trees.List() }

func (c *Catalog) Product(id string) (Product, bool) { return c.products.Get(id) }
func (c *Catalog) Products() []Product               { return c.products.List() }

func (c *Catalog) EquipmentByID(id string) (Equipment, bool) { return c.equipment.Get(id) }
func (c *Catalog) Equipment() []Equipment                    { return c.equipment.List() }

func (c *Catalog) Facility(id string) (StorageFacility, bool) { return c.facilities.Get(id) }
func (c *Catalog) Facilities() []StorageFacility              { return c.facilities.List() }

func (c *Catalog) Farmers() []VettedFarmer { return c.farmers.List() }
func (c *Catalog) Logistics() Logistics    { return c.logistics }

// ProductsByCategory returns marketplace listings in category, case-insensitive.
// An empty category returns every listing.
func (c *Catalog) ProductsByCategory(category string) []Product {
	if category == "" {
		return c.products.List()
	}
	return c.products.Filter(func(_ string, p Product) bool {
		return strings.EqualFold(p.Category, category)
	})
}

// AvailableEquipment returns equipment that can currently be booked.
func (c *Catalog) AvailableEquipment() []Equipment {
	return c.equipment.Filter(func(_ string, e Equipment) bool { return e.Available })
}

// MatchFarmers ranks vetted farmers for a farm-for-me request: farmers whose
// specialties include crop come first, then farmers in location, each group
// ordered by rating, highest first.
func MatchFarmers(farmers []VettedFarmer, crop, location string) []VettedFarmer {
	score := func(f VettedFarmer) int {
		s := 0
		for _, sp := range f.Specialties {
			if strings.EqualFold(sp, crop) {
				s += 2
				break
			}
		}
		if location != "" && strings.EqualFold(f.Location, location) {
			s++
		}
		return s
	}
	ranked := make([]VettedFarmer, len(farmers))
	copy(ranked, farmers)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := score(ranked[i]), score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].Rating > ranked[j].Rating
	})
	return ranked
}
