package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

// SweetHandler handles HTTP requests for catalog and stock operations.
type SweetHandler struct {
	service ports.InventoryService
}

func NewSweetHandler(service ports.InventoryService) *SweetHandler {
	return &SweetHandler{service: service}
}

// List handles GET /sweets.
//
// @Summary      List all sweets
// @Tags         sweets
// @Produce      json
// @Success      200  {array}   sweetResponse
// @Failure      500  {object}  errorResponse
// @Router       /sweets [get]
func (h *SweetHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetList(items))
}

// Search handles GET /sweets/search.
//
// @Summary      Search sweets
// @Tags         sweets
// @Produce      json
// @Param        name       query     string  false  "Case-insensitive name fragment"
// @Param        category   query     string  false  "Case-insensitive category fragment"
// @Param        min_price  query     number  false  "Inclusive lower price bound"
// @Param        max_price  query     number  false  "Inclusive upper price bound"
// @Success      200        {array}   sweetResponse
// @Failure      400        {object}  errorResponse
// @Router       /sweets/search [get]
func (h *SweetHandler) Search(c echo.Context) error {
	minPrice, err := priceParam(c, "min_price")
	if err != nil {
		return err
	}
	maxPrice, err := priceParam(c, "max_price")
	if err != nil {
		return err
	}

	items, err := h.service.Search(c.Request().Context(), ports.SearchItemsInput{
		Name:     c.QueryParam("name"),
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetList(items))
}

// Create handles POST /sweets.
//
// @Summary      Add a sweet to the catalog
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createSweetRequest  true  "Sweet details"
// @Success      201   {object}  sweetResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /sweets [post]
func (h *SweetHandler) Create(c echo.Context) error {
	var req createSweetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	item, err := h.service.Create(c.Request().Context(), toCreateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSweetResponse(*item))
}

// Update handles PUT /sweets/:id. Only the supplied fields change.
//
// @Summary      Update a sweet
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Sweet ID"
// @Param        body  body      updateSweetRequest  true  "Fields to change"
// @Success      200   {object}  sweetResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /sweets/{id} [put]
func (h *SweetHandler) Update(c echo.Context) error {
	var req updateSweetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	item, err := h.service.Update(c.Request().Context(), c.Param("id"), toUpdateInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSweetResponse(*item))
}

// Delete handles DELETE /sweets/:id.
//
// @Summary      Delete a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sweet ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /sweets/{id} [delete]
func (h *SweetHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Sweet deleted successfully"})
}

// Purchase handles POST /sweets/:id/purchase.
//
// @Summary      Purchase one unit of a sweet
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sweet ID"
// @Success      200  {object}  stockResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /sweets/{id}/purchase [post]
func (h *SweetHandler) Purchase(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	qty, err := h.service.Purchase(c.Request().Context(), c.Param("id"), user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stockResponse{Message: "Purchase successful", NewQuantity: qty})
}

// Restock handles POST /sweets/:id/restock. The amount comes from the
// "quantity" query parameter or, failing that, the JSON body.
//
// @Summary      Restock a sweet
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id        path      string          true   "Sweet ID"
// @Param        quantity  query     int             false  "Units to add"
// @Param        body      body      restockRequest  false  "Units to add"
// @Success      200       {object}  stockResponse
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /sweets/{id}/restock [post]
func (h *SweetHandler) Restock(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	amount, err := restockAmount(c)
	if err != nil {
		return err
	}

	qty, err := h.service.Restock(c.Request().Context(), c.Param("id"), amount, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stockResponse{Message: "Restock successful", NewQuantity: qty})
}

func restockAmount(c echo.Context) (int, error) {
	if raw := strings.TrimSpace(c.QueryParam("quantity")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, domain.NewValidationError("quantity", "quantity must be an integer")
		}
		return n, nil
	}

	var req restockRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}
	if req.Quantity == nil {
		return 0, domain.NewValidationError("quantity", "quantity is required")
	}
	return *req.Quantity, nil
}

func priceParam(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewValidationError(name, "%s must be a number", name)
	}
	return &v, nil
}
