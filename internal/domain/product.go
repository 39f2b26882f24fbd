package domain

type Category string

const (
	CategoryBreakfast Category = "Breakfast"
	CategoryMeals     Category = "Meals"
	CategorySnacks    Category = "Snacks"
	CategoryBeverages Category = "Beverages"
	CategoryDesserts  Category = "Desserts"
)

type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         int64    `json:"price"`
	Category      Category `json:"category"`
	Stock         int      `json:"stock"`
	IsVeg         bool     `json:"is_veg"`
	RatingAverage float64  `json:"rating_average"`
	RatingCount   int      `json:"rating_count"`
}
