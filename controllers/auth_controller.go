package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthController exchanges the admin key for a short-lived bearer
// token. The key itself is never stored; only its bcrypt hash is
// configured.
type AuthController struct {
	secretKey    []byte
	adminKeyHash []byte
	tokenExpiry  time.Duration
}

func NewAuthController(secretKey, adminKeyHash string, tokenExpiry time.Duration) *AuthController {
	return &AuthController{
		secretKey:    []byte(secretKey),
		adminKeyHash: []byte(adminKeyHash),
		tokenExpiry:  tokenExpiry,
	}
}

type tokenRequest struct {
	AdminKey string `json:"admin_key" binding:"required"`
}

func (ac *AuthController) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "admin_key is required"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(ac.adminKeyHash, []byte(req.AdminKey)); err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid admin key"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ac.tokenExpiry)),
	})

	signed, err := token.SignedString(ac.secretKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to sign token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "bearer",
		"expires_in":   int(ac.tokenExpiry.Seconds()),
	})
}
