package payments

// Package is a purchasable session bundle.
type Package struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	TotalSessions int    `json:"totalSessions"`
}

// Catalog lists the practice's offered bundles.
var Catalog = []Package{
	{ID: "consultation", Name: "1 Session (Initial Consultation)", Price: "40.00", Currency: "EUR", TotalSessions: 1},
	{ID: "pack-4", Name: "4 Sessions Package", Price: "280.00", Currency: "EUR", TotalSessions: 4},
	{ID: "pack-6", Name: "6 Sessions Package", Price: "390.00", Currency: "EUR", TotalSessions: 6},
	{ID: "pack-8", Name: "8 Sessions Package", Price: "480.00", Currency: "EUR", TotalSessions: 8},
}

// PackageByID resolves a catalog entry.
func PackageByID(id string) (Package, bool) {
	for _, p := range Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
