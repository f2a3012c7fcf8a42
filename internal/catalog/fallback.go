package catalog

// Fallback returns the built-in menu served when no remote menu can be read.
// Every call returns a fresh copy.
func Fallback() *Menu {
	return &Menu{
		Businesses: []Business{
			{ID: "business_lezzet", Name: "🍖 Lezzet Durağı", Category: "Kebap & Türk Mutfağı", Featured: true, Campaign: true, Rating: 4.8},
			{ID: "business_burger", Name: "🍔 Burger House", Category: "Fast Food", Featured: true, Rating: 4.5},
			{ID: "business_pizza", Name: "🍕 Roma Pizza", Category: "İtalyan", Campaign: true, Rating: 4.3},
		},
		Categories: []Category{
			{ID: "cat_kebap", Title: "🍖 Kebaplar", Description: "Izgara kebap", Section: "Ana Yemekler"},
			{ID: "cat_burger", Title: "🍔 Hamburgerler", Description: "Burger menü", Section: "Ana Yemekler"},
			{ID: "cat_drink", Title: "🥤 İçecekler", Description: "Soğuk içecek", Section: "İçecekler"},
		},
		Products: map[string][]Product{
			"cat_kebap": {
				{ID: "prod_adana", Name: "Adana Kebap", Description: "Acılı kıyma", Price: 15000, Available: true, CategoryID: "cat_kebap"},
				{ID: "prod_urfa", Name: "Urfa Kebap", Description: "Acısız kıyma", Price: 15000, Available: true, CategoryID: "cat_kebap"},
				{ID: "prod_beyti", Name: "Beyti Kebap", Description: "Lavash sarma", Price: 18000, Available: true, CategoryID: "cat_kebap"},
			},
			"cat_burger": {
				{ID: "prod_classic", Name: "Klasik Burger", Description: "Marul, domates", Price: 12000, Available: true, CategoryID: "cat_burger"},
				{ID: "prod_cheese", Name: "Cheeseburger", Description: "Cheddar peynirli", Price: 14000, Available: true, CategoryID: "cat_burger"},
				{ID: "prod_double", Name: "Double Burger", Description: "Çift köfte", Price: 18000, Available: true, CategoryID: "cat_burger"},
			},
			"cat_drink": {
				{ID: "prod_cola", Name: "Coca Cola", Description: "330ml", Price: 2500, Available: true, CategoryID: "cat_drink"},
				{ID: "prod_fanta", Name: "Fanta", Description: "330ml", Price: 2500, Available: true, CategoryID: "cat_drink"},
				{ID: "prod_ayran", Name: "Ayran", Description: "250ml", Price: 1500, Available: true, CategoryID: "cat_drink"},
			},
		},
	}
}
