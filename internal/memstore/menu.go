package memstore

import "github.com/joao-fontenele/canteen/internal/domain"

// Menu is the product catalog loaded in memory mode. It matches the rows
// seeded by the database migrations.
func Menu() []domain.Product {
	return []domain.Product{
		{ID: "PRD-001", Name: "Masala Dosa", Price: 6000, Category: domain.CategoryBreakfast, Stock: 40, IsVeg: true, RatingAverage: 4.5, RatingCount: 120},
		{ID: "PRD-002", Name: "Idli Sambar", Price: 4000, Category: domain.CategoryBreakfast, Stock: 50, IsVeg: true, RatingAverage: 4.2, RatingCount: 95},
		{ID: "PRD-003", Name: "Veg Thali", Price: 12000, Category: domain.CategoryMeals, Stock: 30, IsVeg: true, RatingAverage: 4.4, RatingCount: 210},
		{ID: "PRD-004", Name: "Chicken Biryani", Price: 15000, Category: domain.CategoryMeals, Stock: 25, RatingAverage: 4.7, RatingCount: 340},
		{ID: "PRD-005", Name: "Paneer Wrap", Price: 8000, Category: domain.CategorySnacks, Stock: 35, IsVeg: true, RatingAverage: 4.1, RatingCount: 64},
		{ID: "PRD-006", Name: "Samosa", Price: 2000, Category: domain.CategorySnacks, Stock: 100, IsVeg: true, RatingAverage: 4.3, RatingCount: 180},
		{ID: "PRD-007", Name: "Masala Chai", Price: 1500, Category: domain.CategoryBeverages, Stock: 200, IsVeg: true, RatingAverage: 4.6, RatingCount: 400},
		{ID: "PRD-008", Name: "Cold Coffee", Price: 5000, Category: domain.CategoryBeverages, Stock: 60, IsVeg: true, RatingAverage: 4.0, RatingCount: 75},
		{ID: "PRD-009", Name: "Gulab Jamun", Price: 3000, Category: domain.CategoryDesserts, Stock: 80, IsVeg: true, RatingAverage: 4.8, RatingCount: 150},
		{ID: "PRD-010", Name: "Egg Puff", Price: 2500, Category: domain.CategorySnacks, Stock: 45, RatingAverage: 3.9, RatingCount: 40},
	}
}
