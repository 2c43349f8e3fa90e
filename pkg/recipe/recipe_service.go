package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenlion52rus/foodgram/domain"
	"github.com/goldenlion52rus/foodgram/entities"
	"github.com/goldenlion52rus/foodgram/internal/utils"
	"github.com/goldenlion52rus/foodgram/internal/utils/storage"
	"github.com/goldenlion52rus/foodgram/pkg/ingredient"
	"github.com/goldenlion52rus/foodgram/pkg/tag"
	"github.com/goldenlion52rus/foodgram/pkg/user"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID string) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, recipeID string, userID string) (domain.RecipeResponse, error)
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID string, userID string) error

		AddFavorite(ctx context.Context, recipeID string, userID string) (domain.RecipeShort, error)
		RemoveFavorite(ctx context.Context, recipeID string, userID string) error
		AddToShoppingCart(ctx context.Context, recipeID string, userID string) (domain.RecipeShort, error)
		RemoveFromShoppingCart(ctx context.Context, recipeID string, userID string) error

		GetShortLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error)
		DownloadShoppingList(ctx context.Context, userID string) (string, []byte, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		tagRepository        tag.TagRepository
		ingredientRepository ingredient.IngredientRepository
		userRepository       user.UserRepository
		s3                   storage.AwsS3
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	tagRepository tag.TagRepository,
	ingredientRepository ingredient.IngredientRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		tagRepository:        tagRepository,
		ingredientRepository: ingredientRepository,
		userRepository:       userRepository,
		s3:                   s3,
	}
}

// validateRecipePayload holds the business rules shared by create and update:
// both relation lists non-empty and free of duplicates, amounts at least 1.
func validateRecipePayload(tagIDs []string, ingredients []domain.IngredientAmountRequest) error {
	if len(ingredients) == 0 {
		return domain.ErrEmptyIngredients
	}
	if len(tagIDs) == 0 {
		return domain.ErrEmptyTags
	}

	seenTags := make(map[string]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		if _, ok := seenTags[id]; ok {
			return domain.ErrDuplicateTags
		}
		seenTags[id] = struct{}{}
	}

	seenIngredients := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		if _, ok := seenIngredients[ing.ID]; ok {
			return domain.ErrDuplicateIngredients
		}
		seenIngredients[ing.ID] = struct{}{}
		if ing.Amount < domain.MinAmount {
			return domain.ErrAmountOutOfRange
		}
	}

	return nil
}

func (s *recipeService) resolveRelations(ctx context.Context, tagIDs []string, ingredients []domain.IngredientAmountRequest) ([]*entities.Tag, []*entities.RecipeIngredient, error) {
	tags, err := s.tagRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, nil, domain.ErrTagNotFound
	}

	ids := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		ids = append(ids, ing.ID)
	}
	known, err := s.ingredientRepository.GetIngredientsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(known) != len(ingredients) {
		return nil, nil, domain.ErrIngredientNotFound
	}

	rows := make([]*entities.RecipeIngredient, 0, len(ingredients))
	for _, ing := range ingredients {
		ingredientID, err := uuid.Parse(ing.ID)
		if err != nil {
			return nil, nil, domain.ErrParseUUID
		}
		rows = append(rows, &entities.RecipeIngredient{
			ID:           uuid.New(),
			IngredientID: ingredientID,
			Amount:       ing.Amount,
		})
	}

	return tags, rows, nil
}

func (s *recipeService) uploadImage(ctx context.Context, encoded string) (string, error) {
	raw, ext, contentType, err := utils.ParseBase64Image(encoded)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("recipe_images/%s.%s", uuid.New().String(), ext)
	if _, err := s.s3.UploadBytes(ctx, objectKey, raw, contentType); err != nil {
		return "", err
	}
	return s.s3.GetPublicLinkKey(objectKey), nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, userID string) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		result = append(result, s.toRecipeResponse(ctx, r, userID))
	}
	return result, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID string, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	return s.toRecipeResponse(ctx, recipe, userID), nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	if err := validateRecipePayload(req.Tags, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}
	if req.Image == "" {
		return domain.RecipeResponse{}, domain.ErrMissingImage
	}
	if req.CookingTime < domain.MinCookingTime || req.CookingTime > domain.MaxCookingTime {
		return domain.RecipeResponse{}, domain.ErrCookingTimeOutOfRange
	}

	authorID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeResponse{}, domain.ErrParseUUID
	}

	tags, rows, err := s.resolveRelations(ctx, req.Tags, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	imageURL, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    &authorID,
		Name:        req.Name,
		ImageURL:    imageURL,
		Text:        req.Text,
		CookingTime: req.CookingTime,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, tags, rows); err != nil {
		// the image went up before the insert, do not leave it orphaned
		if key := s.s3.GetObjectKeyFromLink(imageURL); key != "" {
			_ = s.s3.DeleteFile(ctx, key)
		}
		return domain.RecipeResponse{}, err
	}

	return s.GetRecipeDetail(ctx, recipe.ID.String(), userID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID string, req domain.UpdateRecipeRequest, userID string) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}

	if recipe.AuthorID == nil || recipe.AuthorID.String() != userID {
		return domain.RecipeResponse{}, domain.ErrNotRecipeAuthor
	}

	if err := validateRecipePayload(req.Tags, req.Ingredients); err != nil {
		return domain.RecipeResponse{}, err
	}
	if req.CookingTime < domain.MinCookingTime || req.CookingTime > domain.MaxCookingTime {
		return domain.RecipeResponse{}, domain.ErrCookingTimeOutOfRange
	}

	tags, rows, err := s.resolveRelations(ctx, req.Tags, req.Ingredients)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	oldImageURL := recipe.ImageURL
	if req.Image != "" {
		imageURL, err := s.uploadImage(ctx, req.Image)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		recipe.ImageURL = imageURL
	}

	recipe.Name = req.Name
	recipe.Text = req.Text
	recipe.CookingTime = req.CookingTime

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, tags, rows); err != nil {
		if req.Image != "" {
			if key := s.s3.GetObjectKeyFromLink(recipe.ImageURL); key != "" {
				_ = s.s3.DeleteFile(ctx, key)
			}
		}
		return domain.RecipeResponse{}, err
	}

	if req.Image != "" && oldImageURL != "" {
		if key := s.s3.GetObjectKeyFromLink(oldImageURL); key != "" {
			_ = s.s3.DeleteFile(ctx, key)
		}
	}

	return s.GetRecipeDetail(ctx, recipeID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID string, userID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID == nil || recipe.AuthorID.String() != userID {
		return domain.ErrNotRecipeAuthor
	}

	if recipe.ImageURL != "" {
		if key := s.s3.GetObjectKeyFromLink(recipe.ImageURL); key != "" {
			_ = s.s3.DeleteFile(ctx, key)
		}
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID string, userID string) (domain.RecipeShort, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShort{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShort{}, err
	}

	// The existence check is a friendly pre-check only; the unique index
	// on (user_id, recipe_id) is the authority under concurrency.
	exists, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if exists {
		return domain.RecipeShort{}, domain.ErrAlreadyFavorited
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeShort{}, domain.ErrParseUUID
	}

	if err := s.recipeRepository.AddFavorite(ctx, userUUID, recipe.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShort{}, domain.ErrAlreadyFavorited
		}
		return domain.RecipeShort{}, err
	}

	return toRecipeShort(recipe), nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID string, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	affected, err := s.recipeRepository.RemoveFavorite(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFavorited
	}
	return nil
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, recipeID string, userID string) (domain.RecipeShort, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeShort{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeShort{}, err
	}

	exists, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return domain.RecipeShort{}, err
	}
	if exists {
		return domain.RecipeShort{}, domain.ErrAlreadyInShoppingCart
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.RecipeShort{}, domain.ErrParseUUID
	}

	if err := s.recipeRepository.AddCartEntry(ctx, userUUID, recipe.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RecipeShort{}, domain.ErrAlreadyInShoppingCart
		}
		return domain.RecipeShort{}, err
	}

	return toRecipeShort(recipe), nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, recipeID string, userID string) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	affected, err := s.recipeRepository.RemoveCartEntry(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotInShoppingCart
	}
	return nil
}

func (s *recipeService) GetShortLink(ctx context.Context, recipeID string) (domain.ShortLinkResponse, error) {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShortLinkResponse{}, domain.ErrRecipeNotFound
		}
		return domain.ShortLinkResponse{}, err
	}

	return domain.ShortLinkResponse{
		ShortLink: fmt.Sprintf("%s/recipes/%s", utils.GetConfig("APP_URL"), recipeID),
	}, nil
}

func (s *recipeService) DownloadShoppingList(ctx context.Context, userID string) (string, []byte, error) {
	hasEntries, err := s.recipeRepository.HasCartEntries(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if !hasEntries {
		return "", nil, domain.ErrEmptyShoppingCart
	}

	items, err := s.recipeRepository.GetShoppingListItems(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	owner, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	content := renderShoppingList(owner, items, time.Now())
	filename := fmt.Sprintf("%s_shopping_list.txt", owner.Username)
	return filename, []byte(content), nil
}

func renderShoppingList(owner *entities.User, items []domain.ShoppingListItem, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list for: %s %s\n\n", owner.FirstName, owner.LastName)
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("02-01-2006"))
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%s) - %d\n", item.Name, item.MeasurementUnit, item.TotalAmount)
	}
	fmt.Fprintf(&b, "\nFoodgram (%d)\n", now.Year())
	return b.String()
}

func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, userID string) domain.RecipeResponse {
	tags := make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, t := range recipe.Tags {
		tags = append(tags, domain.TagResponse{
			ID:    t.ID.String(),
			Name:  t.Name,
			Color: t.Color,
			Slug:  t.Slug,
		})
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, row := range recipe.Ingredients {
		resp := domain.RecipeIngredientResponse{
			ID:     row.IngredientID.String(),
			Amount: row.Amount,
		}
		if row.Ingredient != nil {
			resp.Name = row.Ingredient.Name
			resp.MeasurementUnit = row.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, resp)
	}

	var author domain.UserResponse
	if recipe.Author != nil {
		isSubscribed := false
		if userID != "" && userID != recipe.Author.ID.String() {
			isSubscribed, _ = s.userRepository.IsSubscribed(ctx, userID, recipe.Author.ID.String())
		}
		author = domain.UserResponse{
			Email:        recipe.Author.Email,
			ID:           recipe.Author.ID.String(),
			Username:     recipe.Author.Username,
			FirstName:    recipe.Author.FirstName,
			LastName:     recipe.Author.LastName,
			IsSubscribed: isSubscribed,
			Avatar:       recipe.Author.AvatarURL,
		}
	}

	isFavorited, isInCart := false, false
	if userID != "" {
		isFavorited, _ = s.recipeRepository.IsFavorited(ctx, userID, recipe.ID.String())
		isInCart, _ = s.recipeRepository.IsInCart(ctx, userID, recipe.ID.String())
	}

	return domain.RecipeResponse{
		ID:               recipe.ID.String(),
		Tags:             tags,
		Author:           author,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
	}
}

func toRecipeShort(recipe *entities.Recipe) domain.RecipeShort {
	return domain.RecipeShort{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}
