package types

// LicenseItem is one entry of the license catalog.
type LicenseItem struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Logo        string `json:"logo"` // emoji or data URL
	Description string `json:"description"`
}

// LicenseCatalog is the immutable list of licenses a user can hold.
type LicenseCatalog struct {
	items []LicenseItem
}

// NewLicenseCatalog copies items into a catalog.
func NewLicenseCatalog(items []LicenseItem) LicenseCatalog {
	c := LicenseCatalog{items: make([]LicenseItem, len(items))}
	copy(c.items, items)
	return c
}

// Items returns a copy of the catalog entries in catalog order.
func (c LicenseCatalog) Items() []LicenseItem {
	out := make([]LicenseItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c LicenseCatalog) Len() int {
	return len(c.items)
}

func (c LicenseCatalog) Find(id string) (LicenseItem, bool) {
	for _, item := range c.items {
		if item.Id == id {
			return item, true
		}
	}
	return LicenseItem{}, false
}

// Sins is the catalog of the seven sins.
var Sins = NewLicenseCatalog([]LicenseItem{
	{Id: "orgulho", Name: "Orgulho", Logo: "👑", Description: "Domínio e ambição inabalável."},
	{Id: "ira", Name: "Ira", Logo: "🔥", Description: "Fúria canalizada como combustível."},
	{Id: "inveja", Name: "Inveja", Logo: "🧿", Description: "Desejo de superar todos."},
	{Id: "preguica", Name: "Preguiça", Logo: "🛌", Description: "Eficiência fria e calculada."},
	{Id: "gula", Name: "Gula", Logo: "🍽️", Description: "Fome por evolução constante."},
	{Id: "luxuria", Name: "Luxúria", Logo: "💎", Description: "Atração pelo auge do jogo."},
	{Id: "avareza", Name: "Avareza", Logo: "💰", Description: "Acúmulo de vitórias e glória."},
})

// LicenseState is what a user owns: a snapshot of the catalog and the id currently assigned.
type LicenseState struct {
	Items   []LicenseItem `json:"items"`
	Current string        `json:"current,omitempty"`
}

// Assigned returns the item matching Current, if any.
func (s LicenseState) Assigned() (LicenseItem, bool) {
	if s.Current == "" {
		return LicenseItem{}, false
	}
	for _, item := range s.Items {
		if item.Id == s.Current {
			return item, true
		}
	}
	return LicenseItem{}, false
}
