// Package seed provides helpers to create built-in, demo, and test data for
// the application database.
package seed

import (
	_ "embed"
	"fmt"

	"agora/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed communities.yml
var builtInCommunitiesYAML []byte

// BuiltInCommunity is a permanent system community shipped with the platform.
type BuiltInCommunity struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
}

// BuiltInCommunities parses the embedded community catalog.
func BuiltInCommunities() ([]BuiltInCommunity, error) {
	var catalog struct {
		Communities []BuiltInCommunity `yaml:"communities"`
	}
	if err := yaml.Unmarshal(builtInCommunitiesYAML, &catalog); err != nil {
		return nil, fmt.Errorf("parse built-in communities: %w", err)
	}
	return catalog.Communities, nil
}

// Communities seeds the permanent built-in communities. Re-running refreshes
// name, description, and category without touching governance state.
func Communities(db *gorm.DB) error {
	builtIns, err := BuiltInCommunities()
	if err != nil {
		return err
	}

	for _, item := range builtIns {
		err := db.Transaction(func(tx *gorm.DB) error {
			community := models.Community{
				Name:        item.Name,
				Slug:        item.Slug,
				Description: item.Description,
				Category:    item.Category,
				Privacy:     models.CommunityPrivacyPublic,
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "category", "updated_at"}),
			}).Create(&community).Error
		})
		if err != nil {
			return fmt.Errorf("seed community %q: %w", item.Slug, err)
		}
	}
	return nil
}
