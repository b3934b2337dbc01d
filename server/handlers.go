package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"Bside/config"
	"Bside/core/auth"
	"Bside/core/ingest"
	"Bside/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	userRepo    repository.UserRepository
	artistRepo  repository.ArtistRepository
	releaseRepo repository.ReleaseRepository
	trackRepo   repository.TrackRepository
	pipeline    *ingest.Pipeline
	batches     *ingest.Manager
	cfg         *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	userRepo repository.UserRepository,
	artistRepo repository.ArtistRepository,
	releaseRepo repository.ReleaseRepository,
	trackRepo repository.TrackRepository,
	pipeline *ingest.Pipeline,
	batches *ingest.Manager,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:    userRepo,
		artistRepo:  artistRepo,
		releaseRepo: releaseRepo,
		trackRepo:   trackRepo,
		pipeline:    pipeline,
		batches:     batches,
		cfg:         cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", claims.UserID)
		ctx = context.WithValue(ctx, "username", claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value("userID").(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value("username").(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
