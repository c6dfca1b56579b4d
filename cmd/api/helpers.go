package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talkingpet/backend/internal/checkout"
)

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// checkoutError maps the checkout error taxonomy onto HTTP codes. The wrapped
// message carries the detail (product name, requested/available figures).
func checkoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrNotAvailable),
		errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, checkout.ErrInsufficientBalance):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal error")
	}
}
