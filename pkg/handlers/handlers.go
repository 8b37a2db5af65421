// Package handlers serves the public site, the admin sign-in and the JSON API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

const userKey = "user"

// CurrentUser is the user authenticated by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// apiError answers with the error envelope API clients expect.
func apiError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"errors": []gin.H{{"message": message}}})
}

// apiFailure maps a service error onto a status and error envelope.
func apiFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
	case errors.Is(err, store.ErrDuplicate):
		apiError(c, http.StatusBadRequest, "A document with this value already exists.")
	case errors.Is(err, services.ErrUnauthorized):
		apiError(c, http.StatusForbidden, "You are not allowed to perform this action.")
	case errors.Is(err, services.ErrInvalidCredentials):
		apiError(c, http.StatusUnauthorized, "The email or password provided is incorrect.")
	case errors.Is(err, services.ErrInvalidMedia), errors.Is(err, errInvalidBody),
		errors.Is(err, store.ErrInvalidField), errors.Is(err, store.ErrPageRange):
		apiError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		apiError(c, http.StatusInternalServerError, "Something went wrong.")
	}
}

func setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(services.TokenCookie, token, int(services.TokenTTL.Seconds()), "/", "", c.Request.TLS != nil, true)
}

func clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(services.TokenCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
