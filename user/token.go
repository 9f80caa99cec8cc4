package user

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"yatube/config"
	"yatube/policy"
)

func GenerateJWT(userID int, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})

	return token.SignedString(config.JWTSecret())
}

func parseToken(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return config.JWTSecret(), nil
	})
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errors.New("user_id not found in token")
	}
	username, ok := claims["username"].(string)
	if !ok {
		return 0, "", errors.New("username not found in token")
	}
	return int(userID), username, nil
}

// RequireAuth rejects requests without a valid Bearer token and injects
// the acting identity into the request headers for downstream handlers.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if tokenString == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		userID, username, err := parseToken(tokenString)
		if err != nil {
			log.Printf("[Auth] Invalid token: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set("User-ID", strconv.Itoa(userID))
		r.Header.Set("User-Name", username)
		next(w, r)
	}
}

// FromRequest returns the acting identity injected by RequireAuth.
// Requests that did not pass the middleware yield the anonymous identity.
func FromRequest(r *http.Request) policy.Identity {
	userID, err := strconv.Atoi(r.Header.Get("User-ID"))
	if err != nil {
		return policy.Identity{}
	}
	return policy.Identity{UserID: userID, Username: r.Header.Get("User-Name")}
}
