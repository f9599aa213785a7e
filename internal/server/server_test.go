package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookameal/internal/database/dbtest"
	"bookameal/internal/env"
	"bookameal/internal/events"
	"bookameal/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []string        `json:"errors"`
	Kind   string          `json:"kind"`
}

type client struct {
	t      *testing.T
	engine http.Handler
}

func (c client) do(method, path, token string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	var out envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (c client) login(email, password string) string {
	c.t.Helper()
	code, res := c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, code, res.Errors)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(res.Data, &out))
	return out.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func newTestServer(t *testing.T) (*Server, client) {
	t.Helper()
	db := dbtest.Open(t)
	log := logging.Discard()
	srv := New(Deps{
		DB:        db,
		Log:       log,
		Publisher: events.NewLogPublisher(log),
		Config: env.Config{
			TokenDuration:   time.Hour,
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
	})
	require.NoError(t, srv.Users.EnsureAdmin(context.Background(), "root@example.com", "rootpassword"))
	return srv, client{t: t, engine: srv.Engine}
}

func TestOrderFlow(t *testing.T) {
	_, c := newTestServer(t)

	code, _ := c.do(http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, res := c.do(http.MethodPost, "/api/users", "", gin.H{"email": "ada@example.com", "username": "ada", "password": "password1"})
	require.Equal(t, http.StatusCreated, code, res.Errors)

	admin := c.login("root@example.com", "rootpassword")
	code, res = c.do(http.MethodPost, "/api/users", admin, gin.H{"email": "cook@example.com", "username": "cook", "password": "password1", "role": "caterer"})
	require.Equal(t, http.StatusCreated, code, res.Errors)

	cook := c.login("cook@example.com", "password1")
	ada := c.login("ada@example.com", "password1")

	// customers cannot manage meals
	code, res = c.do(http.MethodPost, "/api/meals", ada, gin.H{"name": "Jollof", "price": 5.0})
	assert.Equal(t, http.StatusForbidden, code)

	var mealIDs []int64
	for _, m := range []gin.H{{"name": "Jollof", "price": 5.0}, {"name": "Suya", "price": 7.5}} {
		code, res = c.do(http.MethodPost, "/api/meals", cook, m)
		require.Equal(t, http.StatusCreated, code, res.Errors)
		mealIDs = append(mealIDs, decode[struct {
			ID int64 `json:"id"`
		}](t, res.Data).ID)
	}

	code, res = c.do(http.MethodPut, "/api/menus/2024-06-01", cook, gin.H{"mealIds": mealIDs})
	require.Equal(t, http.StatusOK, code, res.Errors)

	code, res = c.do(http.MethodGet, "/api/notifications", ada, nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		Items []struct {
			ID     int64 `json:"id"`
			IsRead bool  `json:"isRead"`
		} `json:"items"`
		TotalCount int `json:"totalCount"`
	}](t, res.Data)
	require.Equal(t, 1, page.TotalCount)
	assert.False(t, page.Items[0].IsRead)

	code, _ = c.do(http.MethodPost, "/api/notifications/read", ada, gin.H{"ids": []int64{page.Items[0].ID}})
	assert.Equal(t, http.StatusOK, code)

	code, res = c.do(http.MethodPost, "/api/orders", ada, gin.H{"menuDate": "2024-06-01", "mealId": mealIDs[0], "quantity": 2})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	order := decode[struct {
		ID         int64   `json:"id"`
		TotalPrice float64 `json:"totalPrice"`
		Status     string  `json:"status"`
	}](t, res.Data)
	assert.Equal(t, 10.0, order.TotalPrice)
	assert.Equal(t, "pending", order.Status)

	code, res = c.do(http.MethodPost, "/api/orders", ada, gin.H{"menuDate": "2024-06-01", "mealId": mealIDs[1], "quantity": 1})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", res.Kind)

	code, res = c.do(http.MethodGet, "/api/revenue/daily?date=2024-06-01", cook, nil)
	require.Equal(t, http.StatusOK, code)
	day := decode[struct {
		OrderCount int     `json:"orderCount"`
		Revenue    float64 `json:"revenue"`
	}](t, res.Data)
	assert.Equal(t, 1, day.OrderCount)
	assert.Equal(t, 10.0, day.Revenue)

	code, _ = c.do(http.MethodGet, "/api/revenue/daily?date=2024-06-01", ada, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = c.do(http.MethodGet, "/api/orders/mine", ada, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[struct {
		TotalCount int `json:"totalCount"`
	}](t, res.Data).TotalCount)

	code, _ = c.do(http.MethodGet, "/api/orders", ada, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = c.do(http.MethodPost, "/api/orders/"+itoa(order.ID)+"/complete", admin, nil)
	require.Equal(t, http.StatusOK, code, res.Errors)

	// meals with orders cannot be deleted
	code, res = c.do(http.MethodDelete, "/api/meals/"+itoa(mealIDs[0]), cook, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestUnauthenticated(t *testing.T) {
	_, c := newTestServer(t)

	for _, path := range []string{"/api/meals", "/api/orders/mine", "/api/notifications", "/api/revenue/total", "/api/cart"} {
		code, _ := c.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
	}

	code, _ := c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, c := newTestServer(t)
	c.do(http.MethodGet, "/api/status", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookameal_http_requests_total")
}

func TestPasswordChangeSignsOutOldTokens(t *testing.T) {
	_, c := newTestServer(t)

	code, res := c.do(http.MethodPost, "/api/users", "", gin.H{"email": "ada@example.com", "username": "ada", "password": "password1"})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	id := decode[struct {
		ID int64 `json:"id"`
	}](t, res.Data).ID

	old := c.login("ada@example.com", "password1")
	code, _ = c.do(http.MethodGet, "/api/auth/me", old, nil)
	require.Equal(t, http.StatusOK, code)

	code, res = c.do(http.MethodPatch, "/api/users/"+itoa(id), old, gin.H{"password": "password2"})
	require.Equal(t, http.StatusOK, code, res.Errors)

	code, _ = c.do(http.MethodGet, "/api/auth/me", old, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	fresh := c.login("ada@example.com", "password2")
	code, _ = c.do(http.MethodGet, "/api/auth/me", fresh, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPasswordResetEndpoints(t *testing.T) {
	_, c := newTestServer(t)

	code, _ := c.do(http.MethodPost, "/api/users/password-reset", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, code)
	code, _ = c.do(http.MethodPost, "/api/users/password-reset", "", gin.H{"email": "root@example.com"})
	assert.Equal(t, http.StatusAccepted, code)

	code, res := c.do(http.MethodPost, "/api/users/reset-password/bam_nope", "", gin.H{"password": "password2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", res.Kind)
}

func TestCartFlow(t *testing.T) {
	_, c := newTestServer(t)

	admin := c.login("root@example.com", "rootpassword")
	code, res := c.do(http.MethodPost, "/api/users", admin, gin.H{"email": "cook@example.com", "username": "cook", "password": "password1", "role": "caterer"})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	code, res = c.do(http.MethodPost, "/api/users", "", gin.H{"email": "ada@example.com", "username": "ada", "password": "password1"})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	cook := c.login("cook@example.com", "password1")
	ada := c.login("ada@example.com", "password1")

	code, res = c.do(http.MethodPost, "/api/meals", cook, gin.H{"name": "Jollof", "price": 5.0})
	require.Equal(t, http.StatusCreated, code, res.Errors)
	meal := decode[struct {
		ID int64 `json:"id"`
	}](t, res.Data).ID

	type cartBody struct {
		Items []struct {
			MealID   int64 `json:"mealId"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
		Total float64 `json:"total"`
	}

	code, res = c.do(http.MethodGet, "/api/cart", ada, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[cartBody](t, res.Data).Items)

	code, _ = c.do(http.MethodPost, "/api/cart/items", cook, gin.H{"mealId": meal})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodPost, "/api/cart/items", ada, gin.H{"mealId": meal + 100})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodPost, "/api/cart/items", ada, gin.H{"mealId": meal})
	require.Equal(t, http.StatusCreated, code)
	code, res = c.do(http.MethodPost, "/api/cart/items", ada, gin.H{"mealId": meal, "quantity": 2})
	require.Equal(t, http.StatusCreated, code)
	cart := decode[cartBody](t, res.Data)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 15.0, cart.Total)

	code, _ = c.do(http.MethodDelete, "/api/cart/items/"+itoa(meal), ada, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodDelete, "/api/cart/items/"+itoa(meal), ada, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = c.do(http.MethodDelete, "/api/cart", ada, nil)
	assert.Equal(t, http.StatusOK, code)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
