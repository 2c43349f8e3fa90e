package user

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/goldenlion52rus/foodgram/domain"
	"github.com/goldenlion52rus/foodgram/entities"
	"github.com/goldenlion52rus/foodgram/pkg/jwt"
)

type memoryUserRepo struct {
	users         map[string]*entities.User
	subscriptions map[string]bool
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:         map[string]*entities.User{},
		subscriptions: map[string]bool{},
	}
}

func (m *memoryUserRepo) CreateUser(ctx context.Context, user *entities.User) error {
	m.users[user.ID.String()] = user
	return nil
}

func (m *memoryUserRepo) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) UpdateUser(ctx context.Context, user *entities.User) error {
	m.users[user.ID.String()] = user
	return nil
}

func (m *memoryUserRepo) GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error) {
	var out []*entities.User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (m *memoryUserRepo) CreateSubscription(ctx context.Context, userID, authorID uuid.UUID) error {
	m.subscriptions[userID.String()+"|"+authorID.String()] = true
	return nil
}

func (m *memoryUserRepo) DeleteSubscription(ctx context.Context, userID, authorID string) (int64, error) {
	key := userID + "|" + authorID
	if !m.subscriptions[key] {
		return 0, nil
	}
	delete(m.subscriptions, key)
	return 1, nil
}

func (m *memoryUserRepo) IsSubscribed(ctx context.Context, userID, authorID string) (bool, error) {
	return m.subscriptions[userID+"|"+authorID], nil
}

func (m *memoryUserRepo) GetSubscribedAuthors(ctx context.Context, userID string, page, limit int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

type memoryS3 struct {
	uploads map[string][]byte
	deleted []string
}

func newMemoryS3() *memoryS3 { return &memoryS3{uploads: map[string][]byte{}} }

func (m *memoryS3) UploadBytes(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	m.uploads[objectKey] = data
	return objectKey, nil
}

func (m *memoryS3) DeleteFile(ctx context.Context, objectKey string) error {
	m.deleted = append(m.deleted, objectKey)
	return nil
}

func (m *memoryS3) GetPublicLinkKey(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (m *memoryS3) GetObjectKeyFromLink(link string) string {
	return strings.TrimPrefix(link, "https://cdn.test/")
}

func newUserFixture() (UserService, *memoryUserRepo, *memoryS3) {
	repo := newMemoryUserRepo()
	s3 := newMemoryS3()
	return NewUserService(repo, jwt.NewJWTService(), s3), repo, s3
}

func registerRequest() domain.RegisterRequest {
	return domain.RegisterRequest{
		Email:     "chef@example.com",
		Username:  "chef",
		FirstName: "Gordon",
		LastName:  "Ramsay",
		Password:  "verysecret1",
	}
}

func TestRegister(t *testing.T) {
	service, repo, _ := newUserFixture()

	res, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "chef@example.com", res.Email)
	assert.Equal(t, "chef", res.Username)
	assert.False(t, res.IsSubscribed)

	stored, err := repo.GetUserByEmail(context.Background(), "chef@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "verysecret1", stored.Password, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("verysecret1")))
}

func TestRegisterDuplicates(t *testing.T) {
	service, _, _ := newUserFixture()

	_, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	_, err = service.Register(context.Background(), registerRequest())
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	req := registerRequest()
	req.Email = "other@example.com"
	_, err = service.Register(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestLogin(t *testing.T) {
	service, _, _ := newUserFixture()

	_, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	res, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    "chef@example.com",
		Password: "verysecret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AuthToken)

	_, err = service.Login(context.Background(), domain.LoginRequest{
		Email:    "chef@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)

	_, err = service.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "verysecret1",
	})
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestGetProfile(t *testing.T) {
	service, repo, _ := newUserFixture()

	me, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	authorID := uuid.New()
	repo.users[authorID.String()] = &entities.User{ID: authorID, Email: "a@example.com", Username: "author"}
	repo.subscriptions[me.ID+"|"+authorID.String()] = true

	res, err := service.GetProfile(context.Background(), me.ID, me.ID)
	require.NoError(t, err)
	assert.False(t, res.IsSubscribed, "own profile never reads as subscribed")

	res, err = service.GetProfile(context.Background(), authorID.String(), me.ID)
	require.NoError(t, err)
	assert.True(t, res.IsSubscribed)

	res, err = service.GetProfile(context.Background(), authorID.String(), "")
	require.NoError(t, err)
	assert.False(t, res.IsSubscribed, "anonymous requester sees is_subscribed false")

	_, err = service.GetProfile(context.Background(), uuid.New().String(), me.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSetAvatar(t *testing.T) {
	service, repo, s3 := newUserFixture()

	me, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	avatar := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	res, err := service.SetAvatar(context.Background(), domain.SetAvatarRequest{Avatar: avatar}, me.ID)
	require.NoError(t, err)
	assert.Contains(t, res.Avatar, "user_images/")
	assert.Len(t, s3.uploads, 1)

	stored, _ := repo.GetUserByID(context.Background(), me.ID)
	assert.Equal(t, res.Avatar, stored.AvatarURL)

	// replacing the avatar removes the previous object
	oldKey := s3.GetObjectKeyFromLink(res.Avatar)
	_, err = service.SetAvatar(context.Background(), domain.SetAvatarRequest{Avatar: avatar}, me.ID)
	require.NoError(t, err)
	assert.Contains(t, s3.deleted, oldKey)

	_, err = service.SetAvatar(context.Background(), domain.SetAvatarRequest{Avatar: "not-a-data-uri"}, me.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)
}

func TestDeleteAvatar(t *testing.T) {
	service, repo, s3 := newUserFixture()

	me, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	avatar := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	set, err := service.SetAvatar(context.Background(), domain.SetAvatarRequest{Avatar: avatar}, me.ID)
	require.NoError(t, err)

	require.NoError(t, service.DeleteAvatar(context.Background(), me.ID))

	stored, _ := repo.GetUserByID(context.Background(), me.ID)
	assert.Empty(t, stored.AvatarURL)
	assert.Contains(t, s3.deleted, s3.GetObjectKeyFromLink(set.Avatar))
}

func TestResetPassword(t *testing.T) {
	jwtService := jwt.NewJWTService()
	repo := newMemoryUserRepo()
	service := NewUserService(repo, jwtService, newMemoryS3())

	me, err := service.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	token, err := jwtService.GenerateTokenResetPassword(map[string]any{
		"user_id": me.ID,
		"email":   me.Email,
	}, 30*time.Minute)
	require.NoError(t, err)

	require.NoError(t, service.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Token:       token,
		NewPassword: "freshsecret2",
	}))

	_, err = service.Login(context.Background(), domain.LoginRequest{
		Email:    "chef@example.com",
		Password: "freshsecret2",
	})
	assert.NoError(t, err)

	err = service.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Token:       "garbage",
		NewPassword: "freshsecret2",
	})
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
