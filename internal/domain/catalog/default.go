package catalog

import "github.com/shopspring/decimal"

const iconBase = "https://prod-cdn.laundryheap.com/images/static/price_services/mobile/"

// DefaultCategories are the selection tabs shown above the service list.
var DefaultCategories = []Category{
	{ID: CategoryAll, Name: "Tous les services"},
	{ID: "laver", Name: "Laver & Sécher"},
	{ID: "pressing", Name: "Pressing & Repassage"},
	{ID: "special", Name: "Nettoyage Spécial"},
	{ID: "packs", Name: "Packs Mensuels"},
}

// DefaultServices is the built-in service list used when no catalog file is
// configured.
var DefaultServices = []Service{
	{
		ID:          "special-cleaning",
		Title:       "Nettoyage Spécial",
		Description: "Tapis, couettes, draps, rideaux et articles volumineux.",
		UnitPrice:   decimal.NewFromInt(15),
		Unit:        "/article",
		Icon:        iconBase + "duvets_bulky_items_big.png",
		Category:    "special",
	},
	{
		ID:          "kilo-wash",
		Title:       "Lavage au Kilo",
		Description: "Lavage, séchage et pliage par poids.",
		UnitPrice:   decimal.NewFromInt(22),
		Unit:        "/5kg",
		SubPrice:    "(44 DT /10kg)",
		Icon:        iconBase + "wash_big.png",
		Category:    "laver",
	},
	{
		ID:          "monthly-pack",
		Title:       "Pack Mensuel",
		Description: "4 services par mois (1 fois/semaine).",
		UnitPrice:   decimal.NewFromInt(90),
		Unit:        "/5kg",
		SubPrice:    "(160 DT /10kg)",
		Icon:        iconBase + "wash_iron_big.png",
		Category:    "packs",
	},
	{
		ID:          "dry-cleaning",
		Title:       "Pressing",
		Description: "Pour vêtements et tissus délicats.",
		UnitPrice:   decimal.NewFromInt(3),
		Unit:        "/article",
		Icon:        iconBase + "dry_cleaning_big.png",
		Category:    "pressing",
	},
	{
		ID:          "shirt-ironing",
		Title:       "Repassage Chemise",
		Description: "Repassage professionnel pour chemises.",
		UnitPrice:   decimal.NewFromInt(2),
		Unit:        "/chemise",
		Icon:        iconBase + "wash_iron_big.png",
		Category:    "pressing",
	},
	{
		ID:          "duvet-cleaning",
		Title:       "Nettoyage Couette",
		Description: "Nettoyage en profondeur pour couettes et édredons.",
		UnitPrice:   decimal.NewFromInt(18),
		Unit:        "/couette",
		Icon:        iconBase + "duvets_bulky_items_big.png",
		Category:    "special",
	},
	{
		ID:          "weekly-pack",
		Title:       "Pack Hebdomadaire",
		Description: "Service hebdomadaire pour vos besoins réguliers.",
		UnitPrice:   decimal.NewFromInt(25),
		Unit:        "/semaine",
		Icon:        iconBase + "wash_iron_big.png",
		Category:    "packs",
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultCategories, DefaultServices)
	if err != nil {
		panic(err)
	}
	return c
}
