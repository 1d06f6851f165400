package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateProfileRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	ImageURL        string `json:"image_url" form:"image_url"`
	HeaderImageURL  string `json:"header_image_url" form:"header_image_url"`
	Bio             string `json:"bio" form:"bio"`
	Location        string `json:"location" form:"location"`
	ConfirmPassword string `json:"confirm_password" form:"password"`
}

// ListUsers handles GET /users and its GET /community alias.
// @Summary List users
// @Description Lists users, optionally filtered by a username substring
// @Tags users
// @Produce json
// @Param q query string false "Username search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.User
// @Router /users [get]
// @Router /community [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	users, err := s.users.ListUsers(c.UserContext(), c.Query("q"), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /users/:id
// @Summary Get a user's profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.users.Profile(c.UserContext(), id, middleware.CurrentIdentity(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetFollowing handles GET /users/:id/following
// @Summary Users someone follows
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Security BearerAuth
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	users, err := s.follows.Following(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// GetFollowers handles GET /users/:id/followers
// @Summary Users following someone
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.User
// @Security BearerAuth
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	users, err := s.follows.Followers(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// GetLikes handles GET /users/:id/likes
// @Summary Messages a user liked
// @Tags likes
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Message
// @Security BearerAuth
// @Router /users/{id}/likes [get]
func (s *Server) GetLikes(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	limit := c.QueryInt("limit", s.timelines.Limit())
	if limit <= 0 || limit > s.timelines.Limit() {
		limit = s.timelines.Limit()
	}
	msgs, err := s.likes.ListLikedBy(c.UserContext(), id, limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return c.JSON(msgs)
}

// Follow handles POST /users/follow/:id
// @Summary Follow a user
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user_id=int,following=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/follow/{id} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	who := middleware.CurrentIdentity(c)

	created, err := s.follows.Follow(c.UserContext(), who, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if created {
		s.publishNewFollower(c.UserContext(), who.UserID, id)
	}
	return c.JSON(fiber.Map{"user_id": id, "following": true})
}

// StopFollowing handles POST /users/stop-following/:id
// @Summary Stop following a user
// @Tags follows
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{user_id=int,following=bool}
// @Security BearerAuth
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.follows.Unfollow(c.UserContext(), middleware.CurrentIdentity(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user_id": id, "following": false})
}

// GetMyProfile handles GET /users/profile
// @Summary Current user's editable profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /users/profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.users.GetUser(c.UserContext(), middleware.CurrentIdentity(c).UserID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles POST /users/profile
// @Summary Update the current user's profile
// @Description Requires the current password as confirm_password
// @Tags users
// @Accept json
// @Produce json
// @Param request body updateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/profile [post]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.UpdateProfile(c.UserContext(), middleware.CurrentIdentity(c), service.UpdateProfileInput{
		Username:        req.Username,
		Email:           req.Email,
		ImageURL:        req.ImageURL,
		HeaderImageURL:  req.HeaderImageURL,
		Bio:             req.Bio,
		Location:        req.Location,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}

// DeleteAccount handles POST /users/delete
// @Summary Delete the current account
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Security BearerAuth
// @Router /users/delete [post]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.users.DeleteAccount(c.UserContext(), middleware.CurrentIdentity(c)); err != nil {
		return respondServiceError(c, err)
	}
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"message": "Account deleted"})
}

// AddLike handles POST /users/add_like/:id. It toggles: a second call unlikes.
// @Summary Toggle a like
// @Tags likes
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message_id=int,state=string,liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /users/add_like/{id} [post]
func (s *Server) AddLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	who := middleware.CurrentIdentity(c)

	state, err := s.likes.ToggleLike(c.UserContext(), who, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if state == models.LikeStateLiked {
		s.publishMessageLiked(c.UserContext(), who.UserID, id)
	}
	return c.JSON(likeResponse(id, state))
}

// RemoveLike handles POST /users/remove_like/:id
// @Summary Remove a like
// @Tags likes
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{message_id=int,state=string,liked=bool}
// @Security BearerAuth
// @Router /users/remove_like/{id} [post]
func (s *Server) RemoveLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	state, err := s.likes.Unlike(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(likeResponse(id, state))
}

func likeResponse(messageID uint, state models.LikeState) fiber.Map {
	return fiber.Map{
		"message_id": messageID,
		"state":      state,
		"liked":      state == models.LikeStateLiked,
	}
}
