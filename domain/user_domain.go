package domain

import (
	"errors"
)

var (
	MessageSuccessRegister         = "user registered successfully"
	MessageSuccessLogin            = "login success"
	MessageSuccessGetProfile       = "success get profile"
	MessageSuccessGetUsers         = "success get users"
	MessageSuccessUpdateUser       = "user updated successfully"
	MessageSuccessSetAvatar        = "avatar updated successfully"
	MessageSuccessSubscribe        = "subscribed successfully"
	MessageSuccessGetSubscriptions = "success get subscriptions"
	MessageSuccessForgotPassword   = "password reset email sent"
	MessageSuccessResetPassword    = "password reset successfully"

	MessageFailedRegister         = "failed to register user"
	MessageFailedLogin            = "failed to login"
	MessageFailedGetProfile       = "failed to get profile"
	MessageFailedGetUsers         = "failed to get users"
	MessageFailedUpdateUser       = "failed to update user"
	MessageFailedSetAvatar        = "failed to update avatar"
	MessageFailedDeleteAvatar     = "failed to delete avatar"
	MessageFailedSubscribe        = "failed to subscribe"
	MessageFailedUnsubscribe      = "failed to unsubscribe"
	MessageFailedGetSubscriptions = "failed to get subscriptions"
	MessageFailedForgotPassword   = "failed to send password reset email"
	MessageFailedResetPassword    = "failed to reset password"

	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrCredentialsInvalid = errors.New("wrong email or password")
	ErrSelfSubscription   = errors.New("cannot subscribe to yourself")
	ErrAlreadySubscribed  = errors.New("already subscribed to this author")
	ErrNotSubscribed      = errors.New("not subscribed to this author")
)

type (
	RegisterRequest struct {
		Email     string `json:"email" validate:"required,email,max=254"`
		Username  string `json:"username" validate:"required,max=150,username_charset"`
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		Password  string `json:"password" validate:"required,min=8,max=128"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		AuthToken string `json:"auth_token"`
	}

	UpdateUserRequest struct {
		FirstName string `json:"first_name" validate:"omitempty,max=150"`
		LastName  string `json:"last_name" validate:"omitempty,max=150"`
	}

	SetAvatarRequest struct {
		Avatar string `json:"avatar" validate:"required"`
	}

	AvatarResponse struct {
		Avatar string `json:"avatar"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	ResetPasswordRequest struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
	}

	UserResponse struct {
		Email        string `json:"email"`
		ID           string `json:"id"`
		Username     string `json:"username"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		IsSubscribed bool   `json:"is_subscribed"`
		Avatar       string `json:"avatar,omitempty"`
	}

	// SubscriptionResponse is the author profile enriched with a slice of the
	// author's recipes (optionally truncated by recipes_limit) and the total.
	SubscriptionResponse struct {
		UserResponse
		Recipes      []RecipeShort `json:"recipes"`
		RecipesCount int64         `json:"recipes_count"`
	}
)
