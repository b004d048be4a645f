package models

// Species represents one taxonomic unit in the catalog using GORM.
// It corresponds to the 'species' table. The scientific name is the
// natural key; a species may be created as a stub (scientific name only)
// when the classifier reports a species not yet in the catalog.
type Species struct {
	ID             uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ScientificName string  `gorm:"uniqueIndex;not null" json:"scientific_name"`
	CommonName     *string `gorm:"" json:"common_name,omitempty"` // Nullable

	TaxonomyKingdom *string `gorm:"" json:"taxonomy_kingdom,omitempty"`
	TaxonomyPhylum  *string `gorm:"" json:"taxonomy_phylum,omitempty"`
	TaxonomyClass   *string `gorm:"" json:"taxonomy_class,omitempty"`
	TaxonomyOrder   *string `gorm:"" json:"taxonomy_order,omitempty"`
	TaxonomyFamily  *string `gorm:"" json:"taxonomy_family,omitempty"`
	TaxonomyGenus   *string `gorm:"" json:"taxonomy_genus,omitempty"`

	ConservationStatus *string `gorm:"index" json:"conservation_status,omitempty"` // IUCN code, e.g. LC, EN
	Description        *string `gorm:"" json:"description,omitempty"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Species) TableName() string {
	return "species"
}
