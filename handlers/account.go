package handlers

import (
	"time"

	"food-delivery/client/models"

	"github.com/gofiber/fiber/v2"
)

type SessionResponse struct {
	User      models.User `json:"user"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

func (s *Server) getSession(c *fiber.Ctx) error {
	resp := SessionResponse{User: s.sess.User()}
	if exp := s.sess.Claims().ExpiresAt; !exp.IsZero() {
		resp.ExpiresAt = &exp
	}
	return c.JSON(resp)
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.sess.Close()
	s.closePushClients()
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getStats(c *fiber.Ctx) error {
	d, err := s.sess.Admin()
	if err != nil {
		return err
	}
	stats, err := d.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) getUsers(c *fiber.Ctx) error {
	d, err := s.sess.Admin()
	if err != nil {
		return err
	}
	users, err := d.Users(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (s *Server) createMenuItem(c *fiber.Ctx) error {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	d, err := s.sess.Admin()
	if err != nil {
		return err
	}
	created, err := d.CreateMenuItem(c.UserContext(), item)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) deleteMenuItem(c *fiber.Ctx) error {
	d, err := s.sess.Admin()
	if err != nil {
		return err
	}
	if err := d.DeleteMenuItem(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
