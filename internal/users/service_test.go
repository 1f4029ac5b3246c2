package users

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chemtech-ke/pharmos-backend/pkg/auth"
	"github.com/chemtech-ke/pharmos-backend/pkg/config"
	"github.com/chemtech-ke/pharmos-backend/pkg/db/models"
	"github.com/chemtech-ke/pharmos-backend/pkg/enums"
	pkgerrors "github.com/chemtech-ke/pharmos-backend/pkg/errors"
	"github.com/chemtech-ke/pharmos-backend/pkg/logger"
)

type fakeSessions struct {
	tokens     map[string]string
	generated  []string
	revoked    []string
	rotateFail bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.tokens[accessID] = token
	f.generated = append(f.generated, accessID)
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if f.rotateFail {
		return "", "", fmt.Errorf("rotate refused")
	}
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", fmt.Errorf("invalid refresh token")
	}
	delete(f.tokens, oldAccessID)
	newID := uuid.NewString()
	newToken := "refresh-" + newID
	f.tokens[newID] = newToken
	return newID, newToken, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	delete(f.tokens, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "pharmos-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func newTestService(t *testing.T) (*Service, *Repository, *fakeSessions) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	repo := NewRepository(conn)
	sessions := newFakeSessions()
	logg := logger.New(logger.Options{ServiceName: "users-test", Output: io.Discard})
	svc, err := NewService(repo, sessions, testJWTConfig(), config.PasswordConfig{}, logg)
	require.NoError(t, err)
	return svc, repo, sessions
}

func register(t *testing.T, svc *Service, email string) *UserDTO {
	t.Helper()
	dto, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Grace",
		LastName:  "Wanjiru",
		Role:      enums.MemberRoleCashier,
	})
	require.NoError(t, err)
	return dto
}

func TestRegisterNormalizesAndRejectsDuplicates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	dto := register(t, svc, "  Grace@Chemist.KE ")
	require.Equal(t, "grace@chemist.ke", dto.Email)
	require.True(t, dto.IsActive)

	stored, err := repo.FindByEmail(ctx, "grace@chemist.ke")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", stored.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{
		Email:     "grace@chemist.ke",
		Password:  "another-pass",
		FirstName: "Grace",
		LastName:  "Wanjiru",
		Role:      enums.MemberRoleCashier,
	})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "not-an-email", Password: "long-enough", FirstName: "A", LastName: "B", Role: enums.MemberRoleCashier},
		{Email: "ok@chemist.ke", Password: "short", FirstName: "A", LastName: "B", Role: enums.MemberRoleCashier},
		{Email: "ok@chemist.ke", Password: "long-enough", FirstName: "", LastName: "B", Role: enums.MemberRoleCashier},
		{Email: "ok@chemist.ke", Password: "long-enough", FirstName: "A", LastName: "B", Role: "owner"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "input %+v", input)
	}
}

func TestLoginIssuesTokenPairAndRecordsLogin(t *testing.T) {
	svc, repo, sessions := newTestService(t)
	ctx := context.Background()
	register(t, svc, "grace@chemist.ke")

	result, err := svc.Login(ctx, "GRACE@chemist.ke", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Len(t, sessions.generated, 1)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.User.ID, claims.UserID)
	require.Equal(t, enums.MemberRoleCashier, claims.Role)
	require.Equal(t, sessions.generated[0], claims.ID)

	stored, err := repo.FindByEmail(ctx, "grace@chemist.ke")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	dto := register(t, svc, "grace@chemist.ke")

	_, err := svc.Login(ctx, "grace@chemist.ke", "wrong-password")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "nobody@chemist.ke", "correct-horse")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, repo.SetActive(ctx, dto.ID, false))
	_, err = svc.Login(ctx, "grace@chemist.ke", "correct-horse")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "grace@chemist.ke")

	login, err := svc.Login(ctx, "grace@chemist.ke", "correct-horse")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.AccessToken, rotated.AccessToken)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	// The old pair is spent.
	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	// The new pair keeps working.
	again, err := svc.Refresh(ctx, rotated.AccessToken, rotated.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, again.AccessToken)
}

func TestRefreshRejectsDisabledAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	dto := register(t, svc, "grace@chemist.ke")

	login, err := svc.Login(ctx, "grace@chemist.ke", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, repo.SetActive(ctx, dto.ID, false))
	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newTestService(t)
	ctx := context.Background()
	register(t, svc, "grace@chemist.ke")

	login, err := svc.Login(ctx, "grace@chemist.ke", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.AccessToken))
	require.Len(t, sessions.revoked, 1)

	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func TestSetActiveUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.SetActive(context.Background(), uuid.New(), false)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
