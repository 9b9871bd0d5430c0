package controllers

import (
	"net/http"
	"time"

	"reviewflow-backend/services"
	"reviewflow-backend/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Settings     services.SettingsResolver
	JWTSecret    string
	Expiry       time.Duration
	SecureCookie bool
	Log          *utils.Logger
}

type LoginInput struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the shared admin password and issues the session cookie.
func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	stored, ok := ac.Settings.Get(c.Request.Context(), services.KeyAdminPassword)
	if !ok || !utils.CheckPassword(input.Password, stored) {
		ac.Log.Warn("admin login rejected", "ip", utils.ClientIP(c.Request))
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := utils.GenerateSessionToken(ac.JWTSecret, ac.Expiry)
	if err != nil {
		ac.Log.Error("session token failed", "error", err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		utils.SessionCookie,
		token,
		int(ac.Expiry.Seconds()),
		"/",
		"",
		ac.SecureCookie,
		true,
	)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(utils.SessionCookie, "", -1, "/", "", ac.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me answers only behind AuthMiddleware, so reaching it means the session is valid.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "role": "admin"})
}
