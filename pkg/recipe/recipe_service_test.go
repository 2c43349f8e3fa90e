package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/goldenlion52rus/foodgram/domain"
	"github.com/goldenlion52rus/foodgram/entities"
)

type fakeRecipeRepo struct {
	recipes   map[string]*entities.Recipe
	favorites map[string]bool
	cart      map[string]bool
	items     []domain.ShoppingListItem
	created   *entities.Recipe
	deleted   []string
	createErr error
	updateErr error
}

func newFakeRecipeRepo() *fakeRecipeRepo {
	return &fakeRecipeRepo{
		recipes:   map[string]*entities.Recipe{},
		favorites: map[string]bool{},
		cart:      map[string]bool{},
	}
}

func pairKey(userID, recipeID string) string { return userID + "|" + recipeID }

func (f *fakeRecipeRepo) CreateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	if f.createErr != nil {
		return f.createErr
	}
	recipe.Tags = tags
	recipe.Ingredients = ingredients
	f.recipes[recipe.ID.String()] = recipe
	f.created = recipe
	return nil
}

func (f *fakeRecipeRepo) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, tags []*entities.Tag, ingredients []*entities.RecipeIngredient) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	recipe.Tags = tags
	recipe.Ingredients = ingredients
	f.recipes[recipe.ID.String()] = recipe
	return nil
}

func (f *fakeRecipeRepo) DeleteRecipe(ctx context.Context, id string) error {
	delete(f.recipes, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRecipeRepo) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// hand out a copy like a real query would, the stored row only
	// changes through CreateRecipe or UpdateRecipe
	clone := *recipe
	return &clone, nil
}

func (f *fakeRecipeRepo) GetRecipes(ctx context.Context, filter domain.RecipeFilter, userID string, page, limit int) ([]*entities.Recipe, int64, error) {
	var out []*entities.Recipe
	for _, r := range f.recipes {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecipeRepo) GetRecipesByAuthor(ctx context.Context, authorID string, limit int) ([]*entities.Recipe, error) {
	var out []*entities.Recipe
	for _, r := range f.recipes {
		if r.AuthorID != nil && r.AuthorID.String() == authorID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecipeRepo) CountRecipesByAuthor(ctx context.Context, authorID string) (int64, error) {
	recipes, _ := f.GetRecipesByAuthor(ctx, authorID, 0)
	return int64(len(recipes)), nil
}

func (f *fakeRecipeRepo) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	f.favorites[pairKey(userID.String(), recipeID.String())] = true
	return nil
}

func (f *fakeRecipeRepo) RemoveFavorite(ctx context.Context, userID, recipeID string) (int64, error) {
	key := pairKey(userID, recipeID)
	if !f.favorites[key] {
		return 0, nil
	}
	delete(f.favorites, key)
	return 1, nil
}

func (f *fakeRecipeRepo) IsFavorited(ctx context.Context, userID, recipeID string) (bool, error) {
	return f.favorites[pairKey(userID, recipeID)], nil
}

func (f *fakeRecipeRepo) AddCartEntry(ctx context.Context, userID, recipeID uuid.UUID) error {
	f.cart[pairKey(userID.String(), recipeID.String())] = true
	return nil
}

func (f *fakeRecipeRepo) RemoveCartEntry(ctx context.Context, userID, recipeID string) (int64, error) {
	key := pairKey(userID, recipeID)
	if !f.cart[key] {
		return 0, nil
	}
	delete(f.cart, key)
	return 1, nil
}

func (f *fakeRecipeRepo) IsInCart(ctx context.Context, userID, recipeID string) (bool, error) {
	return f.cart[pairKey(userID, recipeID)], nil
}

func (f *fakeRecipeRepo) HasCartEntries(ctx context.Context, userID string) (bool, error) {
	for key := range f.cart {
		if strings.HasPrefix(key, userID+"|") {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecipeRepo) GetShoppingListItems(ctx context.Context, userID string) ([]domain.ShoppingListItem, error) {
	return f.items, nil
}

type fakeTagRepo struct {
	tags map[string]*entities.Tag
}

func (f *fakeTagRepo) GetTags(ctx context.Context) ([]*entities.Tag, error) {
	var out []*entities.Tag
	for _, t := range f.tags {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTagRepo) GetTagByID(ctx context.Context, id string) (*entities.Tag, error) {
	t, ok := f.tags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (f *fakeTagRepo) GetTagsByIDs(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	var out []*entities.Tag
	for _, id := range ids {
		if t, ok := f.tags[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeIngredientRepo struct {
	ingredients map[string]*entities.Ingredient
}

func (f *fakeIngredientRepo) GetIngredients(ctx context.Context, namePrefix string) ([]*entities.Ingredient, error) {
	var out []*entities.Ingredient
	for _, i := range f.ingredients {
		out = append(out, i)
	}
	return out, nil
}

func (f *fakeIngredientRepo) GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error) {
	i, ok := f.ingredients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return i, nil
}

func (f *fakeIngredientRepo) GetIngredientsByIDs(ctx context.Context, ids []string) ([]*entities.Ingredient, error) {
	var out []*entities.Ingredient
	for _, id := range ids {
		if i, ok := f.ingredients[id]; ok {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]*entities.User
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *entities.User) error {
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, user *entities.User) error { return nil }

func (f *fakeUserRepo) GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeUserRepo) CreateSubscription(ctx context.Context, userID, authorID uuid.UUID) error {
	return nil
}

func (f *fakeUserRepo) DeleteSubscription(ctx context.Context, userID, authorID string) (int64, error) {
	return 0, nil
}

func (f *fakeUserRepo) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	return false, nil
}

func (f *fakeUserRepo) GetSubscribedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

type fakeS3 struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeS3() *fakeS3 { return &fakeS3{uploads: map[string][]byte{}} }

func (f *fakeS3) UploadBytes(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	f.uploads[objectKey] = data
	return objectKey, nil
}

func (f *fakeS3) DeleteFile(ctx context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func (f *fakeS3) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (f *fakeS3) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

type serviceFixture struct {
	service    RecipeService
	recipeRepo *fakeRecipeRepo
	userRepo   *fakeUserRepo
	s3         *fakeS3
	tagID      string
	ingID      string
	authorID   uuid.UUID
}

func newServiceFixture() *serviceFixture {
	tagID := uuid.New()
	ingID := uuid.New()
	authorID := uuid.New()

	recipeRepo := newFakeRecipeRepo()
	tagRepo := &fakeTagRepo{tags: map[string]*entities.Tag{
		tagID.String(): {ID: tagID, Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	}}
	ingredientRepo := &fakeIngredientRepo{ingredients: map[string]*entities.Ingredient{
		ingID.String(): {ID: ingID, Name: "salt", MeasurementUnit: "g"},
	}}
	userRepo := &fakeUserRepo{users: map[string]*entities.User{
		authorID.String(): {ID: authorID, Username: "chef", FirstName: "Gordon", LastName: "Ramsay"},
	}}
	s3 := newFakeS3()

	return &serviceFixture{
		service:    NewRecipeService(recipeRepo, tagRepo, ingredientRepo, userRepo, s3),
		recipeRepo: recipeRepo,
		userRepo:   userRepo,
		s3:         s3,
		tagID:      tagID.String(),
		ingID:      ingID.String(),
		authorID:   authorID,
	}
}

func (f *serviceFixture) validCreateRequest() domain.CreateRecipeRequest {
	return domain.CreateRecipeRequest{
		Name:        "Scrambled eggs",
		Text:        "Whisk and fry.",
		CookingTime: 10,
		Image:       "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		Ingredients: []domain.IngredientAmountRequest{{ID: f.ingID, Amount: 5}},
		Tags:        []string{f.tagID},
	}
}

func (f *serviceFixture) seedRecipe(t *testing.T) domain.RecipeResponse {
	t.Helper()
	res, err := f.service.CreateRecipe(context.Background(), f.validCreateRequest(), f.authorID.String())
	require.NoError(t, err)
	return res
}

func TestCreateRecipe(t *testing.T) {
	f := newServiceFixture()

	res, err := f.service.CreateRecipe(context.Background(), f.validCreateRequest(), f.authorID.String())
	require.NoError(t, err)

	assert.Equal(t, "Scrambled eggs", res.Name)
	assert.Equal(t, 10, res.CookingTime)
	assert.Len(t, res.Tags, 1)
	assert.Len(t, res.Ingredients, 1)
	assert.Equal(t, "salt", res.Ingredients[0].Name)
	assert.Equal(t, 5, res.Ingredients[0].Amount)
	assert.False(t, res.IsFavorited)

	require.NotNil(t, f.recipeRepo.created)
	assert.True(t, strings.HasPrefix(f.s3.GetObjectKeyFromLink(res.Image), "recipe_images/"))
	assert.Len(t, f.s3.uploads, 1)
}

func TestCreateRecipeValidation(t *testing.T) {
	f := newServiceFixture()
	userID := f.authorID.String()

	cases := []struct {
		name    string
		mutate  func(*domain.CreateRecipeRequest)
		wantErr error
	}{
		{"no ingredients", func(r *domain.CreateRecipeRequest) { r.Ingredients = nil }, domain.ErrEmptyIngredients},
		{"no tags", func(r *domain.CreateRecipeRequest) { r.Tags = nil }, domain.ErrEmptyTags},
		{"duplicate tags", func(r *domain.CreateRecipeRequest) { r.Tags = []string{f.tagID, f.tagID} }, domain.ErrDuplicateTags},
		{"duplicate ingredients", func(r *domain.CreateRecipeRequest) {
			r.Ingredients = append(r.Ingredients, domain.IngredientAmountRequest{ID: f.ingID, Amount: 1})
		}, domain.ErrDuplicateIngredients},
		{"amount below one", func(r *domain.CreateRecipeRequest) { r.Ingredients[0].Amount = 0 }, domain.ErrAmountOutOfRange},
		{"missing image", func(r *domain.CreateRecipeRequest) { r.Image = "" }, domain.ErrMissingImage},
		{"cooking time too low", func(r *domain.CreateRecipeRequest) { r.CookingTime = 0 }, domain.ErrCookingTimeOutOfRange},
		{"cooking time too high", func(r *domain.CreateRecipeRequest) { r.CookingTime = 32001 }, domain.ErrCookingTimeOutOfRange},
		{"unknown tag", func(r *domain.CreateRecipeRequest) { r.Tags = []string{uuid.New().String()} }, domain.ErrTagNotFound},
		{"unknown ingredient", func(r *domain.CreateRecipeRequest) {
			r.Ingredients = []domain.IngredientAmountRequest{{ID: uuid.New().String(), Amount: 1}}
		}, domain.ErrIngredientNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.validCreateRequest()
			tc.mutate(&req)
			_, err := f.service.CreateRecipe(context.Background(), req, userID)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUpdateRecipeAuthorOnly(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)

	req := domain.UpdateRecipeRequest{
		Name:        "Renamed",
		Text:        "Still eggs.",
		CookingTime: 15,
		Ingredients: []domain.IngredientAmountRequest{{ID: f.ingID, Amount: 3}},
		Tags:        []string{f.tagID},
	}

	_, err := f.service.UpdateRecipe(context.Background(), created.ID, req, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	res, err := f.service.UpdateRecipe(context.Background(), created.ID, req, f.authorID.String())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", res.Name)
	assert.Equal(t, 15, res.CookingTime)
	assert.Equal(t, created.Image, res.Image, "omitted image keeps the stored one")
}

func TestUpdateRecipeReplacesImage(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)
	oldKey := f.s3.GetObjectKeyFromLink(created.Image)

	req := domain.UpdateRecipeRequest{
		Name:        created.Name,
		Text:        created.Text,
		CookingTime: created.CookingTime,
		Image:       "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		Ingredients: []domain.IngredientAmountRequest{{ID: f.ingID, Amount: 5}},
		Tags:        []string{f.tagID},
	}

	res, err := f.service.UpdateRecipe(context.Background(), created.ID, req, f.authorID.String())
	require.NoError(t, err)
	assert.NotEqual(t, created.Image, res.Image)
	assert.Contains(t, f.s3.deleted, oldKey)
}

func TestCreateRecipeCleansUpImageOnFailure(t *testing.T) {
	f := newServiceFixture()
	f.recipeRepo.createErr = errors.New("insert failed")

	_, err := f.service.CreateRecipe(context.Background(), f.validCreateRequest(), f.authorID.String())
	require.Error(t, err)

	require.Len(t, f.s3.uploads, 1)
	for key := range f.s3.uploads {
		assert.Contains(t, f.s3.deleted, key, "orphaned image must be removed")
	}
}

func TestUpdateRecipeKeepsStateOnFailure(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)
	f.recipeRepo.updateErr = errors.New("write failed")

	req := domain.UpdateRecipeRequest{
		Name:        "Renamed",
		Text:        "Still eggs.",
		CookingTime: 15,
		Image:       "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		Ingredients: []domain.IngredientAmountRequest{{ID: f.ingID, Amount: 9}},
		Tags:        []string{f.tagID},
	}

	_, err := f.service.UpdateRecipe(context.Background(), created.ID, req, f.authorID.String())
	require.Error(t, err)

	res, err := f.service.GetRecipeDetail(context.Background(), created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, created.Name, res.Name)
	assert.Equal(t, created.CookingTime, res.CookingTime)
	assert.Equal(t, created.Image, res.Image)
	require.Len(t, res.Ingredients, 1)
	assert.Equal(t, 5, res.Ingredients[0].Amount, "prior ingredient set survives the failed update")

	// the replacement image never made it into the recipe
	oldKey := f.s3.GetObjectKeyFromLink(created.Image)
	assert.NotContains(t, f.s3.deleted, oldKey)
	for key := range f.s3.uploads {
		if key != oldKey {
			assert.Contains(t, f.s3.deleted, key)
		}
	}
}

func TestDeleteRecipe(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)

	err := f.service.DeleteRecipe(context.Background(), created.ID, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotRecipeAuthor)

	require.NoError(t, f.service.DeleteRecipe(context.Background(), created.ID, f.authorID.String()))
	assert.Contains(t, f.recipeRepo.deleted, created.ID)
	assert.Len(t, f.s3.deleted, 1)

	err = f.service.DeleteRecipe(context.Background(), created.ID, f.authorID.String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestFavoriteToggle(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)
	userID := uuid.New().String()

	_, err := f.service.AddFavorite(context.Background(), uuid.New().String(), userID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	short, err := f.service.AddFavorite(context.Background(), created.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)
	assert.Equal(t, created.Name, short.Name)

	_, err = f.service.AddFavorite(context.Background(), created.ID, userID)
	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)

	require.NoError(t, f.service.RemoveFavorite(context.Background(), created.ID, userID))

	err = f.service.RemoveFavorite(context.Background(), created.ID, userID)
	assert.ErrorIs(t, err, domain.ErrNotFavorited)
}

func TestShoppingCartToggle(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)
	userID := uuid.New().String()

	short, err := f.service.AddToShoppingCart(context.Background(), created.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, short.ID)

	_, err = f.service.AddToShoppingCart(context.Background(), created.ID, userID)
	assert.ErrorIs(t, err, domain.ErrAlreadyInShoppingCart)

	require.NoError(t, f.service.RemoveFromShoppingCart(context.Background(), created.ID, userID))

	err = f.service.RemoveFromShoppingCart(context.Background(), created.ID, userID)
	assert.ErrorIs(t, err, domain.ErrNotInShoppingCart)
}

func TestGetShortLink(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)

	res, err := f.service.GetShortLink(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.ShortLink, "/recipes/"+created.ID))

	_, err = f.service.GetShortLink(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestDownloadShoppingList(t *testing.T) {
	f := newServiceFixture()
	created := f.seedRecipe(t)
	userID := f.authorID.String()

	_, _, err := f.service.DownloadShoppingList(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrEmptyShoppingCart)

	_, err = f.service.AddToShoppingCart(context.Background(), created.ID, userID)
	require.NoError(t, err)
	f.recipeRepo.items = []domain.ShoppingListItem{
		{Name: "flour", MeasurementUnit: "g", TotalAmount: 200},
		{Name: "salt", MeasurementUnit: "g", TotalAmount: 8},
	}

	filename, content, err := f.service.DownloadShoppingList(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "chef_shopping_list.txt", filename)
	assert.Contains(t, string(content), "- flour (g) - 200")
	assert.Contains(t, string(content), "- salt (g) - 8")
}

func TestRenderShoppingList(t *testing.T) {
	owner := &entities.User{FirstName: "Gordon", LastName: "Ramsay"}
	items := []domain.ShoppingListItem{
		{Name: "flour", MeasurementUnit: "g", TotalAmount: 200},
		{Name: "salt", MeasurementUnit: "g", TotalAmount: 8},
	}
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

	got := renderShoppingList(owner, items, now)

	want := "Shopping list for: Gordon Ramsay\n\n" +
		"Date: 15-01-2026\n\n" +
		"- flour (g) - 200\n" +
		"- salt (g) - 8\n" +
		"\nFoodgram (2026)\n"
	assert.Equal(t, want, got)
}
