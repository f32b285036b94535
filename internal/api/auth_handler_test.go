package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/middleware"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
)

func registerBody(email, username string) map[string]interface{} {
	return map[string]interface{}{
		"email":    email,
		"username": username,
		"password": "Secret123",
		"fullName": "Jane Doe",
	}
}

func TestAuthHandler_Register(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/auth/register", registerBody("jane@example.com", "jane"), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	env := decodeData(t, rec, &result)
	assert.True(t, env.Success)
	assert.Equal(t, "Registration successful", env.Message)
	assert.Equal(t, "jane", result.User.Username)
	assert.NotEmpty(t, result.Token)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, result.Token, cookie.Value)

	dup := srv.do(t, http.MethodPost, "/api/auth/register", registerBody("JANE@example.com", "other"), "")
	assert.Equal(t, http.StatusConflict, dup.Code)
	dupEnv := decode(t, dup)
	assert.False(t, dupEnv.Success)
	assert.Equal(t, "Email already registered", dupEnv.Message)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	body := registerBody("not-an-email", "ab")
	body["password"] = "weak"
	rec := srv.do(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decode(t, rec)
	assert.False(t, env.Success)
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["email"])
	assert.True(t, fields["username"])
	assert.True(t, fields["password"])

	admin := registerBody("boss@example.com", "boss")
	admin["role"] = "ADMIN"
	rec = srv.do(t, http.MethodPost, "/api/auth/register", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_LoginAndProfile(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/auth/register", registerBody("me@example.com", "me_user"), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "me_user", "password": "Secret123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &login)

	rec = srv.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "me@example.com", "password": "Wrong123"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "Secret123"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/auth/profile", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/auth/profile", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile domain.User
	decodeData(t, rec, &profile)
	assert.Equal(t, "me@example.com", profile.Email)

	rec = srv.do(t, http.MethodPut, "/api/auth/profile", map[string]string{"bio": "hi"}, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &profile)
	assert.Equal(t, "hi", profile.Bio)

	rec = srv.do(t, http.MethodPut, "/api/auth/change-password",
		map[string]string{"currentPassword": "Nope1234", "newPassword": "Better123"}, login.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_RateLimited(t *testing.T) {
	srv := newTestServer(t, withAuthLimit(2))

	body := map[string]string{"username": "nobody", "password": "Secret123"}
	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := srv.do(t, http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.False(t, decode(t, rec).Success)
}

func TestAuthHandler_Logout(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestAuthHandler_UpdateProfileClearsFields(t *testing.T) {
	srv := newTestServer(t)
	tok, _ := srv.tokenFor(t, "clearme", domain.RoleBuyer)

	rec := srv.do(t, http.MethodPut, "/api/auth/profile", map[string]interface{}{
		"phone":     "0912345678",
		"avatarUrl": "https://cdn.test/me.png",
		"bio":       "hello",
		"address":   "12 Le Loi",
	}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user domain.User
	decodeData(t, rec, &user)
	assert.Equal(t, "0912345678", user.Phone)
	assert.Equal(t, "https://cdn.test/me.png", user.AvatarURL)

	rec = srv.do(t, http.MethodPut, "/api/auth/profile", map[string]interface{}{
		"phone":     "",
		"avatarUrl": "",
		"bio":       "",
		"address":   "",
	}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/auth/profile", nil, tok)
	require.Equal(t, http.StatusOK, rec.Code)
	user = domain.User{}
	decodeData(t, rec, &user)
	assert.Empty(t, user.Phone)
	assert.Empty(t, user.AvatarURL)
	assert.Empty(t, user.Bio)
	assert.Empty(t, user.Address)

	rec = srv.do(t, http.MethodPut, "/api/auth/profile", map[string]interface{}{"phone": "12ab", "avatarUrl": "not a url"}, tok)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	messages := map[string]string{}
	for _, fe := range env.Errors {
		messages[fe.Field] = fe.Message
	}
	assert.Equal(t, "must be 10 or 11 digits", messages["phone"])
	assert.Equal(t, "must be a valid URL", messages["avatarUrl"])
}
