package handlers

import (
	"time"

	"food-delivery/client/models"
	"food-delivery/client/views"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
)

// OrderResponse is an order as the local dashboard renders it. ShortRef,
// RiderID and Rated are filled from the order's methods of the same name.
type OrderResponse struct {
	ID           string             `json:"id"`
	ShortRef     string             `json:"shortRef"`
	Status       models.OrderStatus `json:"status"`
	Customer     *models.PartyRef   `json:"customer,omitempty"`
	Rider        *models.PartyRef   `json:"rider,omitempty"`
	RiderID      string             `json:"riderId,omitempty"`
	Items        []models.OrderItem `json:"items"`
	Pickup       models.Location    `json:"pickup"`
	Dropoff      models.Location    `json:"dropoff"`
	TotalAmount  models.Amount      `json:"totalAmount"`
	Notes        string             `json:"notes,omitempty"`
	CancelReason string             `json:"cancelReason,omitempty"`
	Rating       *models.Rating     `json:"rating,omitempty"`
	Rated        bool               `json:"rated"`
	CreatedAt    time.Time          `json:"createdAt"`
	DeliveredAt  *time.Time         `json:"deliveredAt,omitempty"`

	Actions     []models.Action `json:"actions,omitempty"`
	CanRate     bool            `json:"canRate"`
	RatingLabel string          `json:"ratingLabel,omitempty"`
}

type ViewResponse struct {
	Role          models.Role                `json:"role"`
	Tabs          map[string][]OrderResponse `json:"tabs"`
	TodayEarnings string                     `json:"todayEarnings,omitempty"`
	TotalEarnings string                     `json:"totalEarnings,omitempty"`
	Rating        string                     `json:"rating"`
	RatingCount   int                        `json:"ratingCount"`
}

type PlaceOrderRequest struct {
	Pickup  string `json:"pickup"`
	Dropoff string `json:"dropoff"`
	Notes   string `json:"notes"`
}

type ActionRequest struct {
	Reason string `json:"reason"`
}

type RateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Server) orderResponse(o models.Order) (OrderResponse, error) {
	var resp OrderResponse
	if err := copier.Copy(&resp, &o); err != nil {
		return OrderResponse{}, err
	}
	user := s.sess.User()
	resp.Actions = views.Actions(o, user)
	resp.CanRate = views.CanRate(o, user)
	resp.RatingLabel = views.RatingLabel(o, user.Role)
	return resp, nil
}

func (s *Server) orderResponses(orders []models.Order) ([]OrderResponse, error) {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp, err := s.orderResponse(o)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// getView godoc
// @Summary Role dashboard tabs and aggregates
// @Tags views
// @Produce json
// @Success 200 {object} ViewResponse
// @Router /views [get]
func (s *Server) getView(c *fiber.Ctx) error {
	v := s.sess.View(s.now())
	resp := ViewResponse{
		Role:        v.Role,
		Tabs:        make(map[string][]OrderResponse),
		Rating:      v.Rating.String(),
		RatingCount: v.Rating.Count,
	}
	for tab, orders := range v.Partition() {
		models.SortOrders(orders)
		rendered, err := s.orderResponses(orders)
		if err != nil {
			return err
		}
		resp.Tabs[tab] = rendered
	}
	if v.Role == models.RoleRider {
		resp.TodayEarnings = v.TodayEarnings.StringFixed(2)
		resp.TotalEarnings = v.TotalEarnings.StringFixed(2)
	}
	return c.JSON(resp)
}

// getOrders godoc
// @Summary Reconciled order collection, newest first
// @Tags orders
// @Produce json
// @Success 200 {array} OrderResponse
// @Router /orders [get]
func (s *Server) getOrders(c *fiber.Ctx) error {
	orders := s.sess.Engine().Snapshot()
	models.SortOrders(orders)
	resp, err := s.orderResponses(orders)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) getOrder(c *fiber.Ctx) error {
	o, ok := s.sess.Engine().Order(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	}
	resp, err := s.orderResponse(o)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// placeOrder godoc
// @Summary Submit the cart as a new order
// @Tags orders
// @Accept json
// @Produce json
// @Param order body PlaceOrderRequest true "Delivery details"
// @Success 201 {object} OrderResponse
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (s *Server) placeOrder(c *fiber.Ctx) error {
	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	d, err := s.sess.Customer()
	if err != nil {
		return err
	}
	o, err := d.PlaceOrder(c.UserContext(), req.Pickup, req.Dropoff, req.Notes)
	if err != nil {
		return err
	}
	resp, err := s.orderResponse(o)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// actOnOrder godoc
// @Summary Accept, pick up, deliver or cancel an order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param action path string true "accept, pickup, deliver or cancel"
// @Success 200 {object} OrderResponse
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/{action} [post]
func (s *Server) actOnOrder(c *fiber.Ctx) error {
	action, err := models.ParseAction(c.Params("action"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	var req ActionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	o, err := s.sess.Act(c.UserContext(), c.Params("id"), action, req.Reason)
	if err != nil {
		return err
	}
	resp, err := s.orderResponse(o)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) rateOrder(c *fiber.Ctx) error {
	var req RateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	o, err := s.sess.Rate(c.UserContext(), c.Params("id"), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	resp, err := s.orderResponse(o)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
