package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, authH *AuthHandler, sysH *SystemHandler) *gin.Engine {
	r := gin.New()

	// Middlewares básicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/ping", sysH.Ping)
	r.GET("/db-status", sysH.DBStatus)
	r.GET("/test-email", authH.TestEmail)

	r.POST("/check-user", authH.CheckUser)
	r.POST("/send-otp", authH.SendOTP)
	r.POST("/verify-otp", authH.VerifyOTP)
	r.POST("/set-password", authH.SetPassword)
	r.POST("/login", authH.Login)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
