package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the frontend origin to call the API with credentials.
func CORS(frontendURL string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{frontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie", RequestIDHeader},
		ExposeHeaders:    []string{"Set-Cookie", RequestIDHeader, "X-Consistency-Warning"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
