package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// HandlersTestSuite drives the full endpoint stack over an in-memory store.
type HandlersTestSuite struct {
	suite.Suite
	db  *storage.DB
	mux *http.ServeMux
}

// SetupTest runs before each test
func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	h := NewHandlers(db, auth.NewTokenService("test-secret"))
	suite.mux = h.Routes()
}

// TearDownTest runs after each test
func (suite *HandlersTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *HandlersTestSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	suite.mux.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

func (suite *HandlersTestSuite) register(name, email, password string) (token string) {
	w := suite.request("POST", "/api/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, "body: %s", w.Body.String())
	resp := suite.decode(w)
	return resp["token"].(string)
}

func (suite *HandlersTestSuite) TestRegister() {
	w := suite.request("POST", "/api/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	resp := suite.decode(w)
	assert.Equal(suite.T(), "User registered successfully", resp["message"])
	assert.NotEmpty(suite.T(), resp["token"])

	user := resp["user"].(map[string]any)
	assert.Equal(suite.T(), "Alice", user["name"])
	assert.Equal(suite.T(), "alice@example.com", user["email"])
	assert.NotContains(suite.T(), user, "password", "user JSON must not leak the password")
	assert.NotContains(suite.T(), user, "password_hash")
}

func (suite *HandlersTestSuite) TestRegister_MissingFields() {
	for _, body := range []map[string]string{
		{},
		{"name": "Alice"},
		{"name": "Alice", "email": "alice@example.com"},
		{"email": "alice@example.com", "password": "secret"},
	} {
		w := suite.request("POST", "/api/register", "", body)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
		assert.Equal(suite.T(), "Missing required fields", suite.decode(w)["message"])
	}
}

func (suite *HandlersTestSuite) TestRegister_DuplicateEmail() {
	suite.register("Alice", "alice@example.com", "secret")

	// Different name and password, same email.
	w := suite.request("POST", "/api/register", "", map[string]string{
		"name": "Alice Again", "email": "alice@example.com", "password": "other",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "Email already registered", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestLogin() {
	suite.register("Alice", "alice@example.com", "secret")

	w := suite.request("POST", "/api/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	resp := suite.decode(w)
	assert.Equal(suite.T(), "Login successful", resp["message"])
	assert.NotEmpty(suite.T(), resp["token"])
}

func (suite *HandlersTestSuite) TestLogin_InvalidCredentials() {
	suite.register("Alice", "alice@example.com", "secret")

	// Wrong password and unknown email must be indistinguishable.
	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "secret"},
	} {
		w := suite.request("POST", "/api/login", "", body)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
		assert.Equal(suite.T(), "Invalid email or password", suite.decode(w)["message"])
	}
}

func (suite *HandlersTestSuite) TestTransactions_NoToken() {
	w := suite.request("GET", "/api/transactions", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), "No token provided", suite.decode(w)["message"])
}

func (suite *HandlersTestSuite) TestTransactions_InvalidToken() {
	token := suite.register("Alice", "alice@example.com", "secret")

	// Flip a bit in the signature.
	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 0x01

	for _, bad := range []string{"garbage", string(tampered)} {
		w := suite.request("GET", "/api/transactions", bad, nil)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
		assert.Equal(suite.T(), "Invalid token", suite.decode(w)["message"])
	}
}

func (suite *HandlersTestSuite) TestTransactionLifecycle() {
	token := suite.register("alice", "alice@example.com", "secret")

	// Empty listing before any writes.
	w := suite.request("GET", "/api/transactions", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())

	// Add one transaction.
	w = suite.request("POST", "/api/transactions", token, map[string]any{
		"text": "coffee", "amount": 4.5, "type": "Expense", "date": "2024-01-15",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, "body: %s", w.Body.String())
	created := suite.decode(w)
	assert.Equal(suite.T(), "Transaction added successfully", created["message"])

	txn := created["transaction"].(map[string]any)
	assert.Equal(suite.T(), "coffee", txn["text"])
	assert.Equal(suite.T(), 4.5, txn["amount"], "amount must be a JSON number")
	assert.Equal(suite.T(), "Expense", txn["type"])
	assert.Equal(suite.T(), "2024-01-15", txn["date"])
	id := txn["id"].(float64)
	assert.NotZero(suite.T(), id)

	// Listing returns exactly that transaction.
	w = suite.request("GET", "/api/transactions", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(suite.T(), list, 1)
	assert.Equal(suite.T(), "coffee", list[0]["text"])
	assert.Equal(suite.T(), 4.5, list[0]["amount"])
	assert.Equal(suite.T(), id, list[0]["id"])

	// Delete it and confirm the listing is empty again.
	w = suite.request("DELETE", "/api/transactions/"+jsonID(id), token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "Transaction deleted successfully", suite.decode(w)["message"])

	w = suite.request("GET", "/api/transactions", token, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())
}

func (suite *HandlersTestSuite) TestCreateTransaction_Validation() {
	token := suite.register("alice", "alice@example.com", "secret")

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{
			name:    "missing fields named",
			body:    map[string]any{"text": "coffee"},
			message: "Missing required fields: amount, type, date",
		},
		{
			name:    "non-numeric amount",
			body:    map[string]any{"text": "coffee", "amount": "abc", "type": "Expense", "date": "2024-01-15"},
			message: "Amount must be a valid number",
		},
		{
			name:    "bad date",
			body:    map[string]any{"text": "coffee", "amount": 4.5, "type": "Expense", "date": "15/01/2024"},
			message: "Invalid date format. Use YYYY-MM-DD",
		},
		{
			name:    "unknown type",
			body:    map[string]any{"text": "coffee", "amount": 4.5, "type": "Transfer", "date": "2024-01-15"},
			message: "Transaction type must be either Income or Expense",
		},
		{
			name:    "lowercase type rejected",
			body:    map[string]any{"text": "coffee", "amount": 4.5, "type": "expense", "date": "2024-01-15"},
			message: "Transaction type must be either Income or Expense",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.request("POST", "/api/transactions", token, tt.body)
			assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
			assert.Equal(suite.T(), tt.message, suite.decode(w)["message"])
		})
	}
}

func (suite *HandlersTestSuite) TestCreateTransaction_StringAmountAccepted() {
	token := suite.register("alice", "alice@example.com", "secret")

	w := suite.request("POST", "/api/transactions", token, map[string]any{
		"text": "groceries", "amount": "12.50", "type": "Expense", "date": "2024-02-01",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, "body: %s", w.Body.String())

	txn := suite.decode(w)["transaction"].(map[string]any)
	assert.Equal(suite.T(), 12.5, txn["amount"])
}

func (suite *HandlersTestSuite) TestOwnerScoping() {
	aliceToken := suite.register("alice", "alice@example.com", "secret")
	bobToken := suite.register("bob", "bob@example.com", "secret")

	w := suite.request("POST", "/api/transactions", aliceToken, map[string]any{
		"text": "coffee", "amount": 4.5, "type": "Expense", "date": "2024-01-15",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	id := suite.decode(w)["transaction"].(map[string]any)["id"].(float64)

	// Bob never sees Alice's transaction.
	w = suite.request("GET", "/api/transactions", bobToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())

	// Bob cannot delete it either.
	w = suite.request("DELETE", "/api/transactions/"+jsonID(id), bobToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Transaction not found", suite.decode(w)["message"])

	// The row is intact for Alice.
	w = suite.request("GET", "/api/transactions", aliceToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(suite.T(), list, 1)
}

func (suite *HandlersTestSuite) TestListTransactions_FailSoft() {
	token := suite.register("alice", "alice@example.com", "secret")

	// A storage read failure degrades to an empty 200 listing, never an error.
	require.NoError(suite.T(), suite.db.Close())

	w := suite.request("GET", "/api/transactions", token, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), "[]", w.Body.String())
}

func (suite *HandlersTestSuite) TestDeleteTransaction_NotFound() {
	token := suite.register("alice", "alice@example.com", "secret")

	w := suite.request("DELETE", "/api/transactions/9999", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "Transaction not found", suite.decode(w)["message"])

	// A non-numeric id is just another transaction that does not exist.
	w = suite.request("DELETE", "/api/transactions/abc", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func jsonID(id float64) string {
	return strconv.FormatInt(int64(id), 10)
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
