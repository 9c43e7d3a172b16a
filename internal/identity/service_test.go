package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notjira/internal/config"
	"github.com/spec-kit/notjira/internal/store"
	apperrors "github.com/spec-kit/notjira/pkg/util"
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	t.Cleanup(func() { _ = ms.Close() })
	svc := NewService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, ms, zap.NewNop())
	return svc, ms
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestService_RegisterSignInVerify(t *testing.T) {
	t.Parallel()

	svc, ms := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Dana", "Dana@Example.com", "s3cret-pass", "https://img/d.png")
	require.NoError(t, err)
	require.NotEmpty(t, registered.UID)
	require.Equal(t, "dana@example.com", registered.Email)

	// Registration writes the users/{uid} account record.
	var record map[string]any
	require.NoError(t, ms.Get(ctx, store.CollectionUsers, registered.UID, &record))
	require.Equal(t, "Dana", record["name"])

	signedIn, token, err := svc.SignIn(ctx, "dana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Equal(t, registered.UID, signedIn.UID)
	require.NotEmpty(t, token)

	verified, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, registered.UID, verified.UID)
	require.Equal(t, "Dana", verified.DisplayName)
}

func TestService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@b.com", "longenough", "")
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = svc.Register(ctx, "Dana", "not-an-email", "longenough", "")
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = svc.Register(ctx, "Dana", "a@b.com", "short", "")
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Dana", "dana@example.com", "s3cret-pass", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "dana@example.com", "other-pass-1", "")
	require.Equal(t, "CONFLICT", errCode(t, err))
}

func TestService_SignInRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.SignIn(ctx, "nobody@example.com", "whatever-pass")
	require.Equal(t, "UNAUTHORIZED", errCode(t, err))

	_, err = svc.Register(ctx, "Dana", "dana@example.com", "s3cret-pass", "")
	require.NoError(t, err)

	_, _, err = svc.SignIn(ctx, "dana@example.com", "wrong-pass-1")
	require.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestService_VerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Verify("not.a.jwt")
	require.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestService_StateListeners(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	var states []*Identity
	svc.OnStateChange(func(id *Identity) { states = append(states, id) })

	registered, err := svc.Register(ctx, "Dana", "dana@example.com", "s3cret-pass", "")
	require.NoError(t, err)
	require.Empty(t, states, "registration alone does not open a session")

	_, _, err = svc.SignIn(ctx, "dana@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, registered.UID, states[0].UID)

	svc.SignOut(ctx, registered.UID)
	require.Len(t, states, 2)
	require.Nil(t, states[1])
}

func TestEmailKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "dana@example,com", emailKey("dana@example.com"))
	require.Equal(t, "a,b@c,d,e", emailKey("a.b@c.d.e"))
}
