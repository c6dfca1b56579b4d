package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkingpet/backend/internal/auth"
	"github.com/talkingpet/backend/internal/catalog"
)

// listProductsHandler godoc
// @Summary List products
// @Tags catalog
// @Produce json
// @Param q query string false "search by name"
// @Param limit query int false "page size" default(20)
// @Param offset query int false "offset" default(0)
// @Success 200 {array} catalog.Product
// @Router /products [get]
func listProductsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		// Staff see drafts too; customers only published entries.
		onlyPublished := auth.Role(c) == "" || auth.Role(c) == auth.RoleCustomer
		items, err := repo.ListProducts(c.Request.Context(), catalog.Query{
			Q:             c.Query("q"),
			OnlyPublished: onlyPublished,
			Limit:         limit,
			Offset:        offset,
		})
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// getProductHandler godoc
// @Summary Get one product
// @Tags catalog
// @Produce json
// @Param id path string true "product id"
// @Success 200 {object} catalog.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func getProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fail(c, http.StatusNotFound, "product not found")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// createProductHandler godoc
// @Summary Create a product (admin)
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body catalog.CreateProductRequest true "product data"
// @Success 201 {object} catalog.Product
// @Router /products [post]
func createProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload: "+err.Error())
			return
		}
		if req.Name == "" || req.Price == "" {
			fail(c, http.StatusBadRequest, "name and price are required")
			return
		}
		state := req.State
		if state == "" {
			state = catalog.StateDraft
		}
		p := &catalog.Product{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Category:    req.Category,
			State:       state,
			ImageURL:    req.ImageURL,
		}
		if err := repo.CreateProduct(c.Request.Context(), p); err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// updateProductHandler godoc
// @Summary Update a product (admin)
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "product id"
// @Param body body catalog.UpdateProductRequest true "fields to change"
// @Success 200 {object} catalog.Product
// @Router /products/{id} [put]
func updateProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fail(c, http.StatusNotFound, "product not found")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		var req catalog.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid payload")
			return
		}
		if req.Name != "" {
			p.Name = req.Name
		}
		if req.Description != "" {
			p.Description = req.Description
		}
		updatePrice := req.Price != ""
		if updatePrice {
			p.Price = req.Price
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				fail(c, http.StatusBadRequest, "stock cannot be negative")
				return
			}
			p.Stock = *req.Stock
		}
		if req.State != "" {
			if req.State != catalog.StateDraft && req.State != catalog.StatePublished {
				fail(c, http.StatusBadRequest, "unknown state")
				return
			}
			p.State = req.State
		}
		if req.ImageURL != "" {
			p.ImageURL = req.ImageURL
		}
		if err := repo.UpdateProduct(c.Request.Context(), p, updatePrice); err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// listServicesHandler godoc
// @Summary List grooming, veterinary and training services
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.Service
// @Router /services [get]
func listServicesHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.ListServices(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// listCoursesHandler godoc
// @Summary List published training courses
// @Tags catalog
// @Produce json
// @Success 200 {array} catalog.Course
// @Router /courses [get]
func listCoursesHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		onlyPublished := auth.Role(c) != auth.RoleAdmin
		items, err := repo.ListCourses(c.Request.Context(), onlyPublished)
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// getCourseHandler godoc
// @Summary Get one course
// @Tags catalog
// @Produce json
// @Param id path string true "course id"
// @Success 200 {object} catalog.Course
// @Failure 404 {object} map[string]string
// @Router /courses/{id} [get]
func getCourseHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		course, err := repo.GetCourse(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				fail(c, http.StatusNotFound, "course not found")
				return
			}
			fail(c, http.StatusInternalServerError, "internal error")
			return
		}
		c.JSON(http.StatusOK, course)
	}
}
