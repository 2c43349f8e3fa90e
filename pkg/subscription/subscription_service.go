package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/goldenlion52rus/foodgram/domain"
	"github.com/goldenlion52rus/foodgram/entities"
	"github.com/goldenlion52rus/foodgram/pkg/recipe"
	"github.com/goldenlion52rus/foodgram/pkg/user"
)

type (
	SubscriptionService interface {
		Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (domain.SubscriptionResponse, error)
		Unsubscribe(ctx context.Context, userID, authorID string) error
		GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) ([]domain.SubscriptionResponse, int64, error)
	}

	subscriptionService struct {
		userRepository   user.UserRepository
		recipeRepository recipe.RecipeRepository
	}
)

func NewSubscriptionService(userRepository user.UserRepository, recipeRepository recipe.RecipeRepository) SubscriptionService {
	return &subscriptionService{
		userRepository:   userRepository,
		recipeRepository: recipeRepository,
	}
}

func (s *subscriptionService) Subscribe(ctx context.Context, userID, authorID string, recipesLimit int) (domain.SubscriptionResponse, error) {
	if userID == authorID {
		return domain.SubscriptionResponse{}, domain.ErrSelfSubscription
	}

	author, err := s.userRepository.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SubscriptionResponse{}, domain.ErrUserNotFound
		}
		return domain.SubscriptionResponse{}, err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}
	if subscribed {
		return domain.SubscriptionResponse{}, domain.ErrAlreadySubscribed
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubscriptionResponse{}, domain.ErrParseUUID
	}

	if err := s.userRepository.CreateSubscription(ctx, userUUID, author.ID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.SubscriptionResponse{}, domain.ErrAlreadySubscribed
		}
		return domain.SubscriptionResponse{}, err
	}

	return s.toSubscriptionResponse(ctx, author, recipesLimit)
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID, authorID string) error {
	if _, err := s.userRepository.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	affected, err := s.userRepository.DeleteSubscription(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotSubscribed
	}
	return nil
}

func (s *subscriptionService) GetSubscriptions(ctx context.Context, userID string, page, limit, recipesLimit int) ([]domain.SubscriptionResponse, int64, error) {
	authors, count, err := s.userRepository.GetSubscribedAuthors(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.SubscriptionResponse, 0, len(authors))
	for _, author := range authors {
		resp, err := s.toSubscriptionResponse(ctx, author, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, resp)
	}
	return result, count, nil
}

func (s *subscriptionService) toSubscriptionResponse(ctx context.Context, author *entities.User, recipesLimit int) (domain.SubscriptionResponse, error) {
	recipes, err := s.recipeRepository.GetRecipesByAuthor(ctx, author.ID.String(), recipesLimit)
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}

	recipesCount, err := s.recipeRepository.CountRecipesByAuthor(ctx, author.ID.String())
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}

	shorts := make([]domain.RecipeShort, 0, len(recipes))
	for _, r := range recipes {
		shorts = append(shorts, domain.RecipeShort{
			ID:          r.ID.String(),
			Name:        r.Name,
			Image:       r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}

	return domain.SubscriptionResponse{
		UserResponse: domain.UserResponse{
			Email:        author.Email,
			ID:           author.ID.String(),
			Username:     author.Username,
			FirstName:    author.FirstName,
			LastName:     author.LastName,
			IsSubscribed: true,
			Avatar:       author.AvatarURL,
		},
		Recipes:      shorts,
		RecipesCount: recipesCount,
	}, nil
}
