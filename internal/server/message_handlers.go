package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
)

type createMessageRequest struct {
	Text string `json:"text" form:"text"`
}

// HomeTimeline handles GET /
// @Summary Home timeline
// @Description Messages from followed users, newest first. Anonymous callers get an empty list.
// @Tags timeline
// @Produce json
// @Param limit query int false "Maximum messages"
// @Success 200 {object} object{anonymous=bool,messages=[]models.Message,liked_message_ids=[]int}
// @Router / [get]
func (s *Server) HomeTimeline(c *fiber.Ctx) error {
	who := middleware.CurrentIdentity(c)
	if who.IsAnonymous() {
		return c.JSON(fiber.Map{"anonymous": true, "messages": []models.Message{}})
	}

	tl, err := s.timelines.HomeTimeline(c.UserContext(), who, c.QueryInt("limit", 0))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"anonymous":         false,
		"messages":          tl.Messages,
		"liked_message_ids": tl.LikedMessageIDs,
	})
}

// ComposeMessage handles GET /messages/new
// @Summary Message form settings
// @Tags messages
// @Produce json
// @Success 200 {object} object{max_length=int}
// @Security BearerAuth
// @Router /messages/new [get]
func (s *Server) ComposeMessage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"max_length": s.messages.MaxLength()})
}

// CreateMessage handles POST /messages/new
// @Summary Post a message
// @Tags messages
// @Accept json
// @Produce json
// @Param request body createMessageRequest true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /messages/new [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.messages.Post(c.UserContext(), middleware.CurrentIdentity(c), req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	s.publishMessagePosted(c.UserContext(), msg)
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetMessage handles GET /messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	msg, err := s.messages.Get(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(msg)
}

// DeleteMessage handles POST /messages/:id/delete
// @Summary Delete one of your messages
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /messages/{id}/delete [post]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.messages.Delete(c.UserContext(), middleware.CurrentIdentity(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}
