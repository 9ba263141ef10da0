package domain

// Vertical is a configurable business category (e.g. a service line)
// an agency defines. Access to a vertical can be restricted per user.
type Vertical struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// AgencyConfig holds per-tenant configuration. One document per agency
// in the agency_configs collection.
type AgencyConfig struct {
	AgencyID  string     `bson:"agency_id" json:"agency_id"`
	Verticals []Vertical `bson:"verticals" json:"verticals"`
}

// VerticalIDs returns the ids of the configured verticals in
// configuration order.
func (c *AgencyConfig) VerticalIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Verticals))
	for _, v := range c.Verticals {
		ids = append(ids, v.ID)
	}
	return ids
}
