package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/cart"
	"github.com/talkingpet/backend/internal/catalog"
	"github.com/talkingpet/backend/internal/course"
)

// getCartHandler godoc
// @Summary Get the caller's cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} cart.Cart
// @Router /cart [get]
func getCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := repo.Get(c.Request.Context(), auth.UserID(c))
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

type addCartItemRequest struct {
	Tipo     string `json:"tipo" example:"producto"`
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// addCartItemHandler resolves the price from the catalog; the client never
// sets prices on cart rows.
//
// addCartItemHandler godoc
// @Summary Add a product or course to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body addCartItemRequest true "item"
// @Success 200 {object} cart.Cart
// @Router /cart/items [post]
func addCartItemHandler(repo cart.Repository, catalogRepo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		qty := req.Quantity
		if qty < 1 {
			qty = 1
		}
		ctx := c.Request.Context()
		userID := auth.UserID(c)

		switch req.Tipo {
		case cart.TypeCourse, "course":
			crs, err := catalogRepo.GetCourse(ctx, req.ID)
			if err != nil {
				fail(c, http.StatusNotFound, "course not found")
				return
			}
			if crs.State != catalog.StatePublished {
				fail(c, http.StatusBadRequest, "course is not published")
				return
			}
			if err := repo.AddCourse(ctx, userID, crs.ID, crs.Price); err != nil {
				fail(c, http.StatusInternalServerError, "internal error")
				return
			}
		case cart.TypeProduct, "product", "":
			p, err := catalogRepo.GetProduct(ctx, req.ID)
			if err != nil {
				fail(c, http.StatusNotFound, "product not found")
				return
			}
			if p.State != catalog.StatePublished {
				fail(c, http.StatusBadRequest, "product is not published")
				return
			}
			if err := repo.AddProduct(ctx, userID, p.ID, p.Price, qty); err != nil {
				fail(c, http.StatusInternalServerError, "internal error")
				return
			}
		default:
			fail(c, http.StatusBadRequest, "unknown tipo")
			return
		}

		ct, err := repo.Get(ctx, userID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// updateCartItemHandler godoc
// @Summary Change the quantity of a cart product
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param productId path string true "product id"
// @Param body body updateCartItemRequest true "quantity"
// @Success 200 {object} cart.Cart
// @Router /cart/items/{productId} [put]
func updateCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
			fail(c, http.StatusBadRequest, "quantity must be at least 1")
			return
		}
		userID := auth.UserID(c)
		if err := repo.UpdateQuantity(c.Request.Context(), userID, c.Param("productId"), req.Quantity); err != nil {
			if errors.Is(err, cart.ErrItemNotFound) {
				fail(c, http.StatusNotFound, "item not in cart")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		ct, err := repo.Get(c.Request.Context(), userID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

// removeCartItemHandler godoc
// @Summary Remove one cart row
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "cart item id"
// @Success 200 {object} cart.Cart
// @Router /cart/items/{itemId} [delete]
func removeCartItemHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)
		if err := repo.RemoveItem(c.Request.Context(), userID, c.Param("itemId")); err != nil {
			if errors.Is(err, cart.ErrItemNotFound) {
				fail(c, http.StatusNotFound, "item not in cart")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		ct, err := repo.Get(c.Request.Context(), userID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, ct)
	}
}

// clearCartHandler godoc
// @Summary Empty the cart
// @Tags cart
// @Security BearerAuth
// @Success 204
// @Router /cart [delete]
func clearCartHandler(repo cart.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := repo.Clear(c.Request.Context(), auth.UserID(c)); err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// enrollCourseHandler godoc
// @Summary Enroll directly in a published course (idempotent)
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path string true "course id"
// @Success 201 {object} course.Enrollment
// @Router /courses/{id}/enroll [post]
func enrollCourseHandler(repo course.Repository, catalogRepo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		crs, err := catalogRepo.GetCourse(c.Request.Context(), c.Param("id"))
		if err != nil {
			fail(c, http.StatusNotFound, "course not found")
			return
		}
		if crs.State != catalog.StatePublished {
			fail(c, http.StatusBadRequest, "course is not published")
			return
		}
		e := &course.Enrollment{
			ID:            uuid.NewString(),
			UserID:        auth.UserID(c),
			CourseID:      crs.ID,
			TitleSnapshot: crs.Title,
			PriceSnapshot: crs.Price,
		}
		// Upsert: enrolling twice keeps the original row and its progress.
		if err := repo.Upsert(c.Request.Context(), e); err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// listEnrollmentsHandler godoc
// @Summary The caller's course enrollments
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Success 200 {array} course.Enrollment
// @Router /enrollments [get]
func listEnrollmentsHandler(repo course.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListByUser(c.Request.Context(), auth.UserID(c))
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}
