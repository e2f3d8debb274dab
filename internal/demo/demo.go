// Package demo holds the demo company used by the seeder and by memory
// storage: a few staff members, services and stocked products.
package demo

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
	"tillpoint/pkg/logger"
)

type User struct {
	ID        id.ID  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

func (u User) FullName() string { return u.FirstName + " " + u.LastName }

type Service struct {
	ID        id.ID       `db:"id"`
	CompanyID id.ID       `db:"company_id"`
	Name      string      `db:"name"`
	Price     types.Money `db:"price"`
}

type SystemVariant struct {
	ID   id.ID  `db:"id"`
	Name string `db:"name"`
	SKU  string `db:"sku"`
}

type CompanyProduct struct {
	ID          id.ID  `db:"id"`
	CompanyID   id.ID  `db:"company_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Unit        string `db:"unit"`
}

// Lot is one stock intake for the variant of a product.
type Lot struct {
	Quantity  int
	UnitCost  types.Money
	SellPrice types.Money
	AgeDays   int
}

// purchaseDate backdates a lot so FIFO order is visible in the demo.
func (l Lot) purchaseDate(now time.Time) time.Time {
	return now.AddDate(0, 0, -l.AgeDays)
}

type Product struct {
	Product       CompanyProduct
	SystemVariant SystemVariant
	Lots          []Lot
}

// Data is one demo company.
type Data struct {
	CompanyID id.ID
	Users     []User
	Services  []Service
	Products  []Product
}

// New builds the demo company with fresh ids.
func New(companyID id.ID) Data {
	product := func(name, unit, sku string, lots ...Lot) Product {
		return Product{
			Product:       CompanyProduct{ID: id.New(), CompanyID: companyID, Name: name, Unit: unit},
			SystemVariant: SystemVariant{ID: id.New(), Name: name, SKU: sku},
			Lots:          lots,
		}
	}
	lot := func(qty int, cost, price string, age int) Lot {
		return Lot{Quantity: qty, UnitCost: types.MustMoney(cost), SellPrice: types.MustMoney(price), AgeDays: age}
	}

	return Data{
		CompanyID: companyID,
		Users: []User{
			{ID: id.New(), FirstName: "Anna", LastName: "Kovalenko"},
			{ID: id.New(), FirstName: "Marta", LastName: "Shevchuk"},
			{ID: id.New(), FirstName: "Ivan", LastName: "Bondar"},
		},
		Services: []Service{
			{ID: id.New(), CompanyID: companyID, Name: "Haircut", Price: types.MustMoney("25")},
			{ID: id.New(), CompanyID: companyID, Name: "Beard trim", Price: types.MustMoney("12")},
			{ID: id.New(), CompanyID: companyID, Name: "Hair coloring", Price: types.MustMoney("60")},
		},
		Products: []Product{
			product("Shampoo 250ml", "pcs", "SH-250", lot(10, "4.20", "9.90", 30), lot(20, "4.50", "9.90", 3)),
			product("Hair wax", "pcs", "WX-100", lot(15, "3.10", "7.50", 14)),
			product("Conditioner 500ml", "pcs", "CD-500", lot(8, "5.00", "11.00", 60), lot(8, "5.40", "11.00", 7)),
		},
	}
}

func (d Data) SystemVariants() []SystemVariant {
	out := make([]SystemVariant, 0, len(d.Products))
	for _, p := range d.Products {
		out = append(out, p.SystemVariant)
	}
	return out
}

func (d Data) CompanyProducts() []CompanyProduct {
	out := make([]CompanyProduct, 0, len(d.Products))
	for _, p := range d.Products {
		out = append(out, p.Product)
	}
	return out
}

// FillCatalog registers the demo names with an in-memory catalog. Staff
// double as customers so sales can name a client.
func (d Data) FillCatalog(c *catalog.Static) {
	for _, s := range d.Services {
		c.PutService(s.ID, s.Name)
	}
	for _, p := range d.Products {
		c.PutCompanyProduct(catalog.CompanyProduct{
			ID:          p.Product.ID,
			Name:        p.Product.Name,
			Description: p.Product.Description,
			Unit:        p.Product.Unit,
		})
		c.PutSystemVariant(catalog.SystemVariant{ID: p.SystemVariant.ID, Name: p.SystemVariant.Name, SKU: p.SystemVariant.SKU})
	}
	for _, u := range d.Users {
		c.PutCustomer(u.ID, u.FullName())
	}
}

// VariantCreator is the part of variant.Service the seeding drives.
type VariantCreator interface {
	Create(ctx context.Context, companyProductID id.ID, spec variant.Spec) (*variant.Variant, error)
	IntakeStock(ctx context.Context, variantID id.ID, in stock.IntakeInput) (*stock.Lot, error)
}

// SeedInventory creates one variant per product and takes in its lots. ctx
// must carry a principal of the demo company.
func (d Data) SeedInventory(ctx context.Context, variants VariantCreator, now time.Time) error {
	for _, p := range d.Products {
		svID := p.SystemVariant.ID
		v, err := variants.Create(ctx, p.Product.ID, variant.Spec{SystemVariantID: &svID})
		if err != nil {
			return fmt.Errorf("create variant for %s: %w", p.Product.Name, err)
		}
		for _, l := range p.Lots {
			purchased := l.purchaseDate(now)
			price := l.SellPrice
			if _, err := variants.IntakeStock(ctx, v.ID, stock.IntakeInput{
				VariantID:    v.ID,
				Quantity:     l.Quantity,
				UnitCost:     l.UnitCost,
				SellPrice:    &price,
				PurchaseDate: &purchased,
			}); err != nil {
				return fmt.Errorf("intake stock for %s: %w", p.Product.Name, err)
			}
		}
		logger.Info(ctx, "seeded variant", "product", p.Product.Name, "variant_id", v.ID, "lots", len(p.Lots))
	}
	return nil
}
