package handlers

import (
	"food-delivery/client/models"

	"github.com/gofiber/fiber/v2"
)

type CartResponse struct {
	Items       []models.OrderItem `json:"items"`
	Subtotal    string             `json:"subtotal"`
	DeliveryFee string             `json:"deliveryFee"`
	Total       string             `json:"total"`
}

type AddToCartRequest struct {
	MenuItemID string `json:"menuItemId"`
}

type SetQtyRequest struct {
	Qty int `json:"qty"`
}

func (s *Server) cartResponse(c *fiber.Ctx) error {
	d, err := s.sess.Customer()
	if err != nil {
		return err
	}
	items := d.Cart()
	fee := d.DeliveryFee()
	subtotal := models.ItemsSubtotal(items)
	return c.JSON(CartResponse{
		Items:       items,
		Subtotal:    subtotal.StringFixed(2),
		DeliveryFee: fee.StringFixed(2),
		Total:       subtotal.Add(fee).StringFixed(2),
	})
}

func (s *Server) getCart(c *fiber.Ctx) error {
	return s.cartResponse(c)
}

// addToCart adds one unit of a menu item. Name and price come from the
// backend menu, never from the request.
func (s *Server) addToCart(c *fiber.Ctx) error {
	var req AddToCartRequest
	if err := c.BodyParser(&req); err != nil || req.MenuItemID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "menuItemId is required")
	}
	d, err := s.sess.Customer()
	if err != nil {
		return err
	}
	menu, err := d.Menu(c.UserContext())
	if err != nil {
		return err
	}
	for _, item := range menu {
		if item.ID == req.MenuItemID {
			d.AddToCart(item)
			return s.cartResponse(c)
		}
	}
	return fiber.NewError(fiber.StatusNotFound, "menu item not found")
}

func (s *Server) setCartQty(c *fiber.Ctx) error {
	var req SetQtyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	d, err := s.sess.Customer()
	if err != nil {
		return err
	}
	d.SetQty(c.Params("id"), req.Qty)
	return s.cartResponse(c)
}

func (s *Server) removeFromCart(c *fiber.Ctx) error {
	d, err := s.sess.Customer()
	if err != nil {
		return err
	}
	d.SetQty(c.Params("id"), 0)
	return s.cartResponse(c)
}

// getMenu godoc
// @Summary Menu with categories, optionally filtered
// @Tags menu
// @Produce json
// @Param category query string false "Category, or all"
// @Success 200 {object} map[string]interface{}
// @Router /menu [get]
func (s *Server) getMenu(c *fiber.Ctx) error {
	var (
		menu []models.MenuItem
		err  error
	)
	if a, aerr := s.sess.Admin(); aerr == nil {
		menu, err = a.Menu(c.UserContext())
	} else {
		d, cerr := s.sess.Customer()
		if cerr != nil {
			return cerr
		}
		menu, err = d.Menu(c.UserContext())
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"categories": models.Categories(menu),
		"items":      models.FilterByCategory(menu, c.Query("category")),
	})
}
