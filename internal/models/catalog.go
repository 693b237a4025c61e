package models

// CatalogEntry is one selectable option of the booking form.
type CatalogEntry struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Catalog struct {
	Services []CatalogEntry `json:"services" yaml:"services"`
	Dentists []CatalogEntry `json:"dentists" yaml:"dentists"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Services: []CatalogEntry{
			{ID: "consultation", Name: "Consultation générale"},
			{ID: "detartrage", Name: "Détartrage"},
			{ID: "blanchiment", Name: "Blanchiment dentaire"},
			{ID: "soins", Name: "Soins dentaires"},
			{ID: "urgence", Name: "Urgence dentaire"},
			{ID: "orthodontie", Name: "Orthodontie"},
			{ID: "implant", Name: "Implantologie"},
		},
		Dentists: []CatalogEntry{
			{ID: "dr-martin", Name: "Dr. Sophie Martin"},
			{ID: "dr-lambert", Name: "Dr. Thomas Lambert"},
			{ID: "dr-dubois", Name: "Dr. Claire Dubois"},
			{ID: "dr-moreau", Name: "Dr. Julien Moreau"},
		},
	}
}

// ServiceName returns the display name for a service code, or the code itself.
func (c Catalog) ServiceName(id string) string {
	return lookupName(c.Services, id)
}

func (c Catalog) DentistName(id string) string {
	return lookupName(c.Dentists, id)
}

func lookupName(entries []CatalogEntry, id string) string {
	for _, e := range entries {
		if e.ID == id {
			return e.Name
		}
	}
	return id
}
