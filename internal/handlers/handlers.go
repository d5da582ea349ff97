package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"finance-tracker/internal/auth"
	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

// Context key type to avoid collisions.
type contextKey string

// UserIDContextKey is the context key for the authenticated user id.
const UserIDContextKey contextKey = "user_id"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db     *storage.DB
	tokens *auth.TokenService
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, tokens *auth.TokenService) *Handlers {
	return &Handlers{db: db, tokens: tokens}
}

// Routes builds the endpoint mux. Register and login are public; everything
// under /api/transactions requires a verified token.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.Handle("GET /api/transactions", h.AuthMiddleware(http.HandlerFunc(h.ListTransactions)))
	mux.Handle("POST /api/transactions", h.AuthMiddleware(http.HandlerFunc(h.CreateTransaction)))
	mux.Handle("DELETE /api/transactions/{id}", h.AuthMiddleware(http.HandlerFunc(h.DeleteTransaction)))
	return mux
}

// UserIDFromContext retrieves the authenticated user id from request context.
func UserIDFromContext(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(UserIDContextKey).(int64)
	return id, ok
}

// AuthMiddleware wraps handlers to require a valid bearer token. The token is
// the raw Authorization header value, not a "Bearer "-prefixed scheme.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, "No token provided")
			return
		}

		userID, err := h.tokens.Verify(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CORS admits cross-origin browser clients and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Register creates a new account and issues a token for it.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Register hash error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "An error occurred during registration")
		return
	}

	user, err := h.db.CreateUser(req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeMessage(w, http.StatusBadRequest, "Email already registered")
			return
		}
		log.Printf("Register error: %v", err)
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("Register token error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "An error occurred during registration")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user,
	})
}

// Login authenticates by email and password and issues a token. A missing
// user and a wrong password get the same response.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		log.Printf("Login token error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

// ListTransactions returns all of the caller's transactions. Read failures
// degrade to an empty list rather than an error, keeping the listing
// endpoint non-fatal.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r)

	transactions, err := h.db.ListTransactions(userID)
	if err != nil {
		log.Printf("ListTransactions error: %v", err)
		writeJSON(w, http.StatusOK, []models.Transaction{})
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

// createTransactionRequest uses pointers so absent fields are
// distinguishable from zero values. Amount is any because clients send it
// as either a JSON number or a string.
type createTransactionRequest struct {
	Text   *string `json:"text"`
	Amount any     `json:"amount"`
	Type   *string `json:"type"`
	Date   *string `json:"date"`
}

type createTransactionResponse struct {
	Message     string              `json:"message"`
	Transaction *models.Transaction `json:"transaction"`
}

// CreateTransaction validates and persists a new transaction for the caller.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r)

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Missing required fields: text, amount, type, date")
		return
	}

	var missing []string
	if req.Text == nil {
		missing = append(missing, "text")
	}
	if req.Amount == nil {
		missing = append(missing, "amount")
	}
	if req.Type == nil {
		missing = append(missing, "type")
	}
	if req.Date == nil {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		writeMessage(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Amount must be a valid number")
		return
	}

	date, err := models.ParseDate(*req.Date)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	typ := models.TransactionType(*req.Type)
	if !typ.Valid() {
		writeMessage(w, http.StatusBadRequest, "Transaction type must be either Income or Expense")
		return
	}

	txn, err := h.db.CreateTransaction(userID, *req.Text, amount, typ, date)
	if err != nil {
		log.Printf("CreateTransaction error: %v", err)
		writeMessage(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred while adding the transaction: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, createTransactionResponse{
		Message:     "Transaction added successfully",
		Transaction: txn,
	})
}

// DeleteTransaction removes the caller's transaction by id. Another owner's
// id is indistinguishable from a nonexistent one.
func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Transaction not found")
		return
	}

	if err := h.db.DeleteTransaction(userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Transaction not found")
			return
		}
		log.Printf("DeleteTransaction error: %v", err)
		writeMessage(w, http.StatusInternalServerError, "An error occurred while deleting the transaction")
		return
	}

	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported amount type %T", v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Response encoding error: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
