package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db/dbtest"
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
	"github.com/lavish-fashion/lavish-backend/pkg/security"
	"github.com/lavish-fashion/lavish-backend/pkg/types"
)

var testPasswordConfig = config.PasswordConfig{BcryptCost: 4, MinLength: 8}

func newTestService(t *testing.T) (Service, Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, testPasswordConfig)
	require.NoError(t, err)
	return svc, repo, conn
}

func seedUser(t *testing.T, repo Repository, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	require.NoError(t, err)
	user := CreateUserDTO{Email: email, PasswordHash: hash, FirstName: "Ada", LastName: "Lovelace"}.ToModel()
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestRepositoryFindByEmailIsCaseInsensitive(t *testing.T) {
	_, repo, _ := newTestService(t)
	seeded := seedUser(t, repo, "Ada@Example.com", "secret123")

	found, err := repo.FindByEmail(context.Background(), "  ADA@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, "ada@example.com", found.Email)
}

func TestTierRecomputedAfterOrderStats(t *testing.T) {
	_, repo, conn := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, repo, "tier@example.com", "secret123")
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", user.ID).
		Update("total_spent", decimal.NewFromInt(1200)).Error)

	tier, err := repo.RefreshTier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LoyaltyTierSilver, tier)

	require.NoError(t, repo.AddOrderStats(ctx, user.ID, decimal.NewFromInt(4000), 4000))
	tier, err = repo.RefreshTier(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LoyaltyTierGold, tier)

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TotalSpent.Equal(decimal.NewFromInt(5200)))
	assert.Equal(t, 1, reloaded.TotalOrders)
	assert.Equal(t, 4000, reloaded.LoyaltyPoints)
	assert.Equal(t, enums.LoyaltyTierGold, reloaded.LoyaltyTier)
}

func TestProfileDerivesTier(t *testing.T) {
	svc, repo, conn := newTestService(t)
	user := seedUser(t, repo, "profile@example.com", "secret123")
	// stored tier is stale on purpose
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", user.ID).
		Update("total_spent", decimal.NewFromInt(12000)).Error)

	dto, err := svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.LoyaltyTierPlatinum, dto.Tier)
}

func TestProfileNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Profile(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, repo, "update@example.com", "secret123")
	first := " Grace "
	phone := "+1 555 0100"

	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		FirstName:      &first,
		Phone:          &phone,
		DefaultAddress: &types.Address{FirstName: "Grace", LastName: "Hopper", Line1: "1 Navy Way", City: "Arlington", PostalCode: "22201", Country: "us"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", dto.FirstName)
	require.NotNil(t, dto.Phone)
	assert.Equal(t, phone, *dto.Phone)
	require.NotNil(t, dto.DefaultAddress)
	assert.Equal(t, "US", dto.DefaultAddress.Country)

	blank := "   "
	_, err = svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{LastName: &blank})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestChangePassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, repo, "pw@example.com", "secret123")

	err := svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "wrong-one1", NewPassword: "newsecret456"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret123", NewPassword: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret123", NewPassword: "newsecret456"}))
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("newsecret456", reloaded.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetRoleRequiresSuperadmin(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, repo, "role@example.com", "secret123")

	_, err := svc.SetRole(ctx, enums.UserRoleAdmin, user.ID, enums.UserRoleAdmin)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	dto, err := svc.SetRole(ctx, enums.UserRoleSuperAdmin, user.ID, enums.UserRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, dto.Role)
}

func TestSetActive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, repo, "active@example.com", "secret123")

	_, err := svc.SetActive(ctx, user.ID, user.ID, false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	dto, err := svc.SetActive(ctx, uuid.New(), user.ID, false)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
}

func TestAdminListFilters(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, repo, "one@example.com", "secret123")
	staff := seedUser(t, repo, "two@example.com", "secret123")
	require.NoError(t, repo.SetRole(ctx, staff.ID, enums.UserRoleAdmin))

	page, err := svc.AdminList(ctx, AdminListInput{Role: "admin"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, staff.ID, page.Items[0].ID)

	page, err = svc.AdminList(ctx, AdminListInput{Search: "ONE@"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "one@example.com", page.Items[0].Email)

	_, err = svc.AdminList(ctx, AdminListInput{Role: "owner"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
