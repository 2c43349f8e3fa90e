package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/goldenlion52rus/foodgram/entities"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Subscription{}); err != nil {
		log.Fatalf("Error migrating subscription database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Tag{}); err != nil {
		log.Fatalf("Error migrating tag database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Ingredient{}); err != nil {
		log.Fatalf("Error migrating ingredient database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Recipe{}, &entities.RecipeIngredient{}); err != nil {
		log.Fatalf("Error migrating recipe database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Favorite{}, &entities.ShoppingCartEntry{}); err != nil {
		log.Fatalf("Error migrating favorite database: %v", err)
		return err
	}

	if err := seedReferenceData(db); err != nil {
		log.Fatalf("Error seeding reference data: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}

// seedReferenceData installs a starter tag and ingredient set on a fresh
// database. Production data is loaded separately from fixture files.
func seedReferenceData(db *gorm.DB) error {
	var tagCount int64
	if err := db.Model(&entities.Tag{}).Count(&tagCount).Error; err != nil {
		return err
	}
	if tagCount == 0 {
		tags := []entities.Tag{
			{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
			{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
			{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
		}
		if err := db.Create(&tags).Error; err != nil {
			return err
		}
	}

	var ingredientCount int64
	if err := db.Model(&entities.Ingredient{}).Count(&ingredientCount).Error; err != nil {
		return err
	}
	if ingredientCount == 0 {
		ingredients := []entities.Ingredient{
			{Name: "salt", MeasurementUnit: "g"},
			{Name: "sugar", MeasurementUnit: "g"},
			{Name: "flour", MeasurementUnit: "g"},
			{Name: "milk", MeasurementUnit: "ml"},
			{Name: "eggs", MeasurementUnit: "pcs"},
		}
		if err := db.Create(&ingredients).Error; err != nil {
			return err
		}
	}

	return nil
}
