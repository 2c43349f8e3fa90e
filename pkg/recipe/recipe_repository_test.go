package recipe

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newAggregationDB opens an in-memory database with just the tables the
// shopping-list query touches.
func newAggregationDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE ingredients (id TEXT PRIMARY KEY, name TEXT NOT NULL, measurement_unit TEXT NOT NULL)`,
		`CREATE TABLE recipe_ingredients (id TEXT PRIMARY KEY, recipe_id TEXT NOT NULL, ingredient_id TEXT NOT NULL, amount INTEGER NOT NULL)`,
		`CREATE TABLE shopping_cart_entries (id TEXT PRIMARY KEY, user_id TEXT NOT NULL, recipe_id TEXT NOT NULL)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedIngredient(t *testing.T, db *gorm.DB, name, unit string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Exec(
		`INSERT INTO ingredients (id, name, measurement_unit) VALUES (?, ?, ?)`, id, name, unit,
	).Error)
	return id
}

func seedRecipeIngredient(t *testing.T, db *gorm.DB, recipeID, ingredientID string, amount int) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO recipe_ingredients (id, recipe_id, ingredient_id, amount) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), recipeID, ingredientID, amount,
	).Error)
}

func seedCartEntry(t *testing.T, db *gorm.DB, userID, recipeID string) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO shopping_cart_entries (id, user_id, recipe_id) VALUES (?, ?, ?)`,
		uuid.NewString(), userID, recipeID,
	).Error)
}

func TestGetShoppingListItemsSumsDuplicates(t *testing.T) {
	db := newAggregationDB(t)
	repo := NewRecipeRepository(db)

	saltID := seedIngredient(t, db, "salt", "g")
	flourID := seedIngredient(t, db, "flour", "g")

	userID := uuid.NewString()
	soupID := uuid.NewString()
	breadID := uuid.NewString()

	// salt appears in both carted recipes, 5g + 3g
	seedRecipeIngredient(t, db, soupID, saltID, 5)
	seedRecipeIngredient(t, db, breadID, saltID, 3)
	seedRecipeIngredient(t, db, breadID, flourID, 200)
	seedCartEntry(t, db, userID, soupID)
	seedCartEntry(t, db, userID, breadID)

	items, err := repo.GetShoppingListItems(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "flour", items[0].Name)
	assert.Equal(t, 200, items[0].TotalAmount)
	assert.Equal(t, "salt", items[1].Name)
	assert.Equal(t, "g", items[1].MeasurementUnit)
	assert.Equal(t, 8, items[1].TotalAmount)
}

func TestGetShoppingListItemsScopedToUser(t *testing.T) {
	db := newAggregationDB(t)
	repo := NewRecipeRepository(db)

	sugarID := seedIngredient(t, db, "sugar", "g")
	cakeID := uuid.NewString()
	seedRecipeIngredient(t, db, cakeID, sugarID, 50)
	seedCartEntry(t, db, uuid.NewString(), cakeID)

	items, err := repo.GetShoppingListItems(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, items)
}
