package domain

import (
	"errors"
)

const (
	MinCookingTime = 1
	MaxCookingTime = 32000
	MinAmount      = 1
)

var (
	MessageSuccessGetRecipes      = "success get recipes"
	MessageSuccessGetRecipeDetail = "success get recipe detail"
	MessageSuccessCreateRecipe    = "recipe created successfully"
	MessageSuccessUpdateRecipe    = "recipe updated successfully"
	MessageSuccessFavorite        = "recipe added to favorites"
	MessageSuccessAddToCart       = "recipe added to shopping cart"
	MessageSuccessGetLink         = "success get short link"

	MessageFailedGetRecipes           = "failed to get recipes"
	MessageFailedGetRecipeDetail      = "failed to get recipe detail"
	MessageFailedCreateRecipe         = "failed to create recipe"
	MessageFailedUpdateRecipe         = "failed to update recipe"
	MessageFailedDeleteRecipe         = "failed to delete recipe"
	MessageFailedFavorite             = "failed to add recipe to favorites"
	MessageFailedUnfavorite           = "failed to remove recipe from favorites"
	MessageFailedAddToCart            = "failed to add recipe to shopping cart"
	MessageFailedRemoveFromCart       = "failed to remove recipe from shopping cart"
	MessageFailedGetLink              = "failed to get short link"
	MessageFailedDownloadShoppingList = "failed to compile shopping list"

	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrNotRecipeAuthor        = errors.New("only the author can modify this recipe")
	ErrEmptyIngredients       = errors.New("recipe must contain at least one ingredient")
	ErrEmptyTags              = errors.New("recipe must contain at least one tag")
	ErrDuplicateIngredients   = errors.New("ingredients must be unique")
	ErrDuplicateTags          = errors.New("tags must be unique")
	ErrMissingImage           = errors.New("image must not be empty")
	ErrCookingTimeOutOfRange  = errors.New("cooking time out of range")
	ErrAmountOutOfRange       = errors.New("ingredient amount must be at least 1")
	ErrAlreadyFavorited       = errors.New("recipe already in favorites")
	ErrNotFavorited           = errors.New("recipe not in favorites")
	ErrAlreadyInShoppingCart  = errors.New("recipe already in shopping cart")
	ErrNotInShoppingCart      = errors.New("recipe not in shopping cart")
	ErrEmptyShoppingCart      = errors.New("shopping cart is empty")
)

type (
	IngredientAmountRequest struct {
		ID     string `json:"id" validate:"required,uuid"`
		Amount int    `json:"amount" validate:"required,min=1"`
	}

	CreateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1,max=32000"`
		Image       string                    `json:"image" validate:"required"`
		Ingredients []IngredientAmountRequest `json:"ingredients" validate:"required,dive"`
		Tags        []string                  `json:"tags" validate:"required,dive,uuid"`
	}

	// UpdateRecipeRequest mirrors CreateRecipeRequest except the image may be
	// omitted to keep the stored one.
	UpdateRecipeRequest struct {
		Name        string                    `json:"name" validate:"required,max=256"`
		Text        string                    `json:"text" validate:"required"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1,max=32000"`
		Image       string                    `json:"image" validate:"omitempty"`
		Ingredients []IngredientAmountRequest `json:"ingredients" validate:"required,dive"`
		Tags        []string                  `json:"tags" validate:"required,dive,uuid"`
	}

	RecipeIngredientResponse struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               string                     `json:"id"`
		Tags             []TagResponse              `json:"tags"`
		Author           UserResponse               `json:"author"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		Text             string                     `json:"text"`
		CookingTime      int                        `json:"cooking_time"`
	}

	// RecipeShort is the minimal projection used in nested list contexts.
	RecipeShort struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeFilter struct {
		TagSlugs         []string
		AuthorID         string
		IsFavorited      bool
		IsInShoppingCart bool
	}

	ShortLinkResponse struct {
		ShortLink string `json:"short-link"`
	}

	// ShoppingListItem is one aggregated row of the shopping-list export:
	// the summed amount of an ingredient across every recipe in the cart.
	ShoppingListItem struct {
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		TotalAmount     int    `json:"total_amount"`
	}
)
