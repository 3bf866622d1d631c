package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/user"
)

func Test_userApi_register(t *testing.T) {
	existing := createUser(t, "taken", "taken@test.cd", user.RoleStudent, true)

	tests := []httpTest{
		{
			name: "empty payload", body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "bad role",
			body: marchallObj(t, user.NewUser{
				Username: "newbie", Email: "newbie@test.cd", FullName: "New Bie", Role: "wizard", Password: "s3cr3tpwd",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "short password",
			body: marchallObj(t, user.NewUser{
				Username: "newbie", Email: "newbie@test.cd", FullName: "New Bie", Role: user.RoleStudent, Password: "nope",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate username",
			body: marchallObj(t, user.NewUser{
				Username: existing.Username, Email: "other@test.cd", FullName: "Copy Cat", Role: user.RoleStudent, Password: "s3cr3tpwd",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "duplicate email",
			body: marchallObj(t, user.NewUser{
				Username: "other", Email: existing.Email, FullName: "Copy Cat", Role: user.RoleStudent, Password: "s3cr3tpwd",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "student registered",
			body: marchallObj(t, user.NewUser{
				Username: "Newbie", Email: "Newbie@Test.cd", FullName: "New Bie", Role: user.RoleStudent, Password: "s3cr3tpwd",
			}),
			wantCode: http.StatusCreated,
			extra:    "newbie", // username is lowercased
		},
		{
			name: "teacher registered",
			body: marchallObj(t, user.NewUser{
				Username: "prof", Email: "prof@test.cd", FullName: "Prof X", Role: user.RoleTeacher, Password: "s3cr3tpwd",
			}),
			wantCode: http.StatusCreated,
			extra:    "prof",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
				require.NoError(t, err)
				assert.True(t, ok, rec.Body.String())
			}
			if uname, ok := tt.extra.(string); ok {
				var usr user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
				assert.Equal(t, uname, usr.Username)
				assert.True(t, usr.IsActive)

				saved, err := usrRepo.GetUserByUsername(uname)
				require.NoError(t, err)
				assert.NoError(t, saved.CheckPassword("s3cr3tpwd"))
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "kimia", "kimia@test.cd", user.RoleStudent, true)
	naughty := createUser(t, "ndog2", "ndog2@test.cd", user.RoleStudent, false)

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "lol", Password: "s3cr3tpwd"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "inactive account",
			body:     marchallObj(t, LoginRequest{Username: naughty.Username, Password: "s3cr3tpwd"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login with username",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "s3cr3tpwd"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login with email",
			body:     marchallObj(t, LoginRequest{Username: usr.Email, Password: "s3cr3tpwd"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
				require.NoError(t, err)
				assert.True(t, ok, rec.Body.String())
				return
			}

			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Token)

			claims := new(Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.Username, claims.Username)
			assert.True(t, claims.IsStudent)

			refreshed, err := usrRepo.GetUserByID(usr.ID)
			require.NoError(t, err)
			assert.False(t, refreshed.LastLogin.IsZero())
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	student := createUser(t, "hero", "hero@test.cd", user.RoleStudent, true)
	naughty := createUser(t, "ndog3", "ndog3@test.cd", user.RoleStudent, false)

	now := time.Now()
	unrefreshableClaims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(student.ID),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Username:     student.Username,
		IsStudent:    true,
		Role:         student.Role,
	}
	unrefreshableToken, err := GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_userApi_search(t *testing.T) {
	usr := createUser(t, "mosala", "mosala@test.cd", user.RoleStudent, true)
	createUser(t, "bokolo", "bokolo@test.cd", user.RoleTeacher, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "search (unknown)", path: "/v1/users?search=zzzzz", token: getToken(t, usr), wantCode: http.StatusOK, extra: 0},
		{name: "search by username", path: "/v1/users?search=mosala", token: getToken(t, usr), wantCode: http.StatusOK, extra: 1},
		{name: "search by full name", path: "/v1/users?search=user+bok", token: getToken(t, usr), wantCode: http.StatusOK, extra: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if want, ok := tt.extra.(int); ok {
				var users []user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
				assert.Len(t, users, want)
			}
		})
	}
}

func Test_userApi_retrieveUpdate(t *testing.T) {
	usr := createUser(t, "selfie", "selfie@test.cd", user.RoleStudent, true)
	other := createUser(t, "other1", "other1@test.cd", user.RoleStudent, true)
	admin := createUser(t, "boss1", "boss1@test.cd", user.RoleAdmin, true)

	path := func(id int) string { return fmt.Sprintf("/v1/users/%d", id) }
	bPtr := func(b bool) *bool { return &b }

	t.Run("retrieve any profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path(other.ID), getToken(t, usr))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, other.Username, got.Username)
	})

	t.Run("retrieve unknown profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path(99999), getToken(t, usr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cannot update someone else", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{FullName: "Hacked"})
		req, rec := newAuthRequest(http.MethodPut, path(other.ID), getToken(t, usr), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("cannot deactivate self", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{IsActive: bPtr(false)})
		req, rec := newAuthRequest(http.MethodPut, path(usr.ID), getToken(t, usr), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("self update", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{FullName: "Famous Selfie", Photo: "photos/selfie.png"})
		req, rec := newAuthRequest(http.MethodPut, path(usr.ID), getToken(t, usr), body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Famous Selfie", got.FullName)
		assert.Equal(t, "photos/selfie.png", got.Photo)
	})

	t.Run("admin deactivates user", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{IsActive: bPtr(false)})
		req, rec := newAuthRequest(http.MethodPut, path(other.ID), getToken(t, admin), body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.False(t, got.IsActive)
	})
}

func Test_userApi_statuses(t *testing.T) {
	usr := createUser(t, "wall", "wall@test.cd", user.RoleStudent, true)
	other := createUser(t, "other2", "other2@test.cd", user.RoleStudent, true)

	path := fmt.Sprintf("/v1/users/%d/statuses", usr.ID)

	t.Run("cannot post on someone else's wall", func(t *testing.T) {
		body := marchallObj(t, user.NewStatus{Text: "gotcha"})
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, other), body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var status user.Status
	t.Run("post status", func(t *testing.T) {
		body := marchallObj(t, user.NewStatus{Text: "Back to school!"})
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, usr), body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "Back to school!", status.Text)
		assert.Equal(t, usr.ID, status.UserID)
	})

	t.Run("anyone reads the wall", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, other))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var statuses []user.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
		require.Len(t, statuses, 1)
		assert.Equal(t, status.ID, statuses[0].ID)
	})

	t.Run("others cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("%s/%d", path, status.ID), getToken(t, other))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("%s/%d", path, status.ID), getToken(t, usr))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		statuses, err := usrSvc.QueryStatuses(usr.ID)
		require.NoError(t, err)
		assert.Empty(t, statuses)
	})
}
