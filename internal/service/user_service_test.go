package service

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-service/internal/bucketing"
	"user-service/internal/models"
)

type userTestEnv struct {
	svc       *UserService
	users     *fakeUserRepo
	followers *fakeFollowerRepo
	uploader  *fakeUploader
	now       time.Time
}

func newUserTestEnv(t *testing.T) *userTestEnv {
	t.Helper()

	env := &userTestEnv{
		users:     newFakeUserRepo(),
		followers: newFakeFollowerRepo(),
		uploader:  newFakeUploader(),
		now:       time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewUserService(
		env.users,
		env.followers,
		bucketing.NewBucketingManager(newTestConfig()),
		nil,
		nil,
		nil,
		env.uploader,
	)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *userTestEnv) seedUser() *models.User {
	user := &models.User{
		UserID:        uuid.New().String(),
		AccountStatus: models.AccountStatusActive,
		UserType:      models.UserTypeIndividual,
		CreatedAt:     e.now.Add(-time.Hour),
	}
	e.users.add(user)
	return user
}

func selfActor(user *models.User) Actor {
	return Actor{UserID: user.UserID, UserType: user.UserType}
}

func adminActor() Actor {
	return Actor{UserID: uuid.New().String(), UserType: models.UserTypeAdmin}
}

func TestGetProfile(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	got, err := env.svc.GetProfile(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, got.UserID)

	_, err = env.svc.GetProfile(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.svc.GetProfile(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateProfileSelf(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	bio := "hello there"
	updated, err := env.svc.UpdateProfile(context.Background(), selfActor(user), user.UserID, &ProfileUpdateRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello there", updated.Bio)
}

func TestUpdateProfileOtherUserDenied(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()
	other := env.seedUser()

	bio := "nope"
	_, err := env.svc.UpdateProfile(context.Background(), selfActor(other), user.UserID, &ProfileUpdateRequest{Bio: &bio})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateProfileRestrictedFields(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	rank := 5
	_, err := env.svc.UpdateProfile(context.Background(), selfActor(user), user.UserID, &ProfileUpdateRequest{Rank: &rank})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := env.svc.UpdateProfile(context.Background(), adminActor(), user.UserID, &ProfileUpdateRequest{Rank: &rank})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rank)
}

func TestUpdateProfileEmptyRequest(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	_, err := env.svc.UpdateProfile(context.Background(), selfActor(user), user.UserID, &ProfileUpdateRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetAccountStatus(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	err := env.svc.SetAccountStatus(context.Background(), adminActor(), user.UserID, models.AccountStatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusSuspended, env.users.users[user.UserID].AccountStatus)

	err = env.svc.SetAccountStatus(context.Background(), selfActor(user), user.UserID, models.AccountStatusActive)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = env.svc.SetAccountStatus(context.Background(), adminActor(), user.UserID, "X")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddFollower(t *testing.T) {
	env := newUserTestEnv(t)
	target := env.seedUser()
	follower := env.seedUser()

	err := env.svc.AddFollower(context.Background(), target.UserID, follower.UserID)
	require.NoError(t, err)

	assert.Equal(t, 1, env.users.users[target.UserID].FollowerCount)
	assert.Equal(t, 1, env.users.users[follower.UserID].FollowingCount)
}

func TestAddFollowerSelf(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	err := env.svc.AddFollower(context.Background(), user.UserID, user.UserID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddFollowerDuplicate(t *testing.T) {
	env := newUserTestEnv(t)
	target := env.seedUser()
	follower := env.seedUser()

	require.NoError(t, env.svc.AddFollower(context.Background(), target.UserID, follower.UserID))

	err := env.svc.AddFollower(context.Background(), target.UserID, follower.UserID)
	assert.ErrorIs(t, err, ErrAlreadyFollowing)
	// Counters unchanged by the rejected duplicate.
	assert.Equal(t, 1, env.users.users[target.UserID].FollowerCount)
}

func TestAddFollowerUnknownUsers(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	err := env.svc.AddFollower(context.Background(), uuid.New().String(), user.UserID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.svc.AddFollower(context.Background(), user.UserID, uuid.New().String())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListFollowersPagination(t *testing.T) {
	env := newUserTestEnv(t)
	target := env.seedUser()

	for i := 0; i < 25; i++ {
		edge := &models.FollowerEdge{
			UserID:     target.UserID,
			FollowerID: uuid.New().String(),
			CreatedAt:  env.now.Add(time.Duration(i) * time.Second),
		}
		env.followers.edges[target.UserID] = append(env.followers.edges[target.UserID], edge)
	}

	page1, err := env.svc.ListFollowers(context.Background(), target.UserID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page1.Followers, 10)

	page3, err := env.svc.ListFollowers(context.Background(), target.UserID, 3, 10)
	require.NoError(t, err)
	assert.Len(t, page3.Followers, 5)

	// Past the end: empty page, not an error.
	page4, err := env.svc.ListFollowers(context.Background(), target.UserID, 4, 10)
	require.NoError(t, err)
	assert.Empty(t, page4.Followers)

	// No overlap between consecutive pages.
	seen := make(map[string]bool)
	for page := 1; page <= 3; page++ {
		result, err := env.svc.ListFollowers(context.Background(), target.UserID, page, 10)
		require.NoError(t, err)
		for _, edge := range result.Followers {
			assert.False(t, seen[edge.FollowerID], "follower %s appeared twice", edge.FollowerID)
			seen[edge.FollowerID] = true
		}
	}
	assert.Len(t, seen, 25)
}

func TestListFollowersDefaults(t *testing.T) {
	env := newUserTestEnv(t)
	target := env.seedUser()

	result, err := env.svc.ListFollowers(context.Background(), target.UserID, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, result.Page)
	assert.Equal(t, DefaultPageSize, result.Size)
}

func TestUploadProfilePhoto(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()
	photo := []byte("\xff\xd8\xff fake jpeg bytes " + strconv.Itoa(42))

	url, err := env.svc.UploadProfilePhoto(context.Background(), selfActor(user), user.UserID, "image/jpeg", bytes.NewReader(photo))
	require.NoError(t, err)
	assert.Equal(t, url, env.users.users[user.UserID].ProfilePictureURL)
	assert.Equal(t, 1, env.uploader.calls)

	// Same bytes again: dedupe short-circuits before the uploader.
	again, err := env.svc.UploadProfilePhoto(context.Background(), selfActor(user), user.UserID, "image/jpeg", bytes.NewReader(photo))
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.Equal(t, 1, env.uploader.calls)
}

func TestUploadProfilePhotoRejectsOtherTypes(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()

	_, err := env.svc.UploadProfilePhoto(context.Background(), selfActor(user), user.UserID, "image/gif", bytes.NewReader([]byte("GIF89a")))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	assert.Zero(t, env.uploader.calls)
}

func TestUploadProfilePhotoPermission(t *testing.T) {
	env := newUserTestEnv(t)
	user := env.seedUser()
	other := env.seedUser()

	_, err := env.svc.UploadProfilePhoto(context.Background(), selfActor(other), user.UserID, "image/png", bytes.NewReader([]byte("png")))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
