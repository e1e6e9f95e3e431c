package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// accountView is the account as its owner sees it. The password field is
// always sent empty.
type accountView struct {
	*models.User
	Password string `json:"password"`
}

// Register handles POST /api/users/register
// @Summary Register an account
// @Description JSON or multipart with an optional pfp image. Responds with a token string.
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Success 200 {string} string "token"
// @Failure 400 {object} object{errors=[]models.FieldError}
// @Failure 429 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return badBody(c)
		}
		req.Input.Email, _ = formValue(form, "email")
		req.Input.Password, _ = formValue(form, "password")
		req.Input.DisplayName, _ = formValue(form, "displayName")

		upload, _, errs, err := readUpload(form, "pfp", s.uploadLimit())
		if err != nil {
			return respondServiceError(c, err)
		}
		req.Pfp, req.Errors = upload, errs
	} else if len(c.Body()) > 0 {
		if err := c.BodyParser(&req.Input); err != nil {
			return badBody(c)
		}
	}

	token, err := s.accountService.Register(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(token)
}

// Login handles POST /api/users/login
// @Summary Log in
// @Tags users
// @Accept json
// @Produce json
// @Param request body validation.LoginInput true "Credentials"
// @Success 200 {string} string "token"
// @Failure 400 {object} object{errors=[]models.FieldError}
// @Failure 429 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var in validation.LoginInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}

	token, err := s.accountService.Login(c.UserContext(), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(token)
}

// GetAccount handles GET /api/users
// @Summary The caller's account
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) GetAccount(c *fiber.Ctx) error {
	account, err := middleware.MustAccount(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("Login required"))
	}
	return c.JSON(accountView{User: account})
}

// UpdateAccount handles PUT /api/users
// @Summary Update the caller's profile
// @Description Multipart or JSON. newPassword needs oldPassword; pfp=null removes the picture.
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 400 {object} object{errors=[]models.FieldError}
// @Router /users [put]
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	var req service.ProfileRequest

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return badBody(c)
		}
		if v, ok := formValue(form, "displayName"); ok {
			req.Input.DisplayName = &v
		}
		req.Input.NewPassword, _ = formValue(form, "newPassword")
		req.Input.OldPassword, _ = formValue(form, "oldPassword")

		upload, remove, errs, err := readUpload(form, "pfp", s.uploadLimit())
		if err != nil {
			return respondServiceError(c, err)
		}
		req.Pfp, req.Input.ClearPfp, req.Errors = upload, remove, errs
	} else if len(c.Body()) > 0 {
		if err := c.BodyParser(&req.Input); err != nil {
			return badBody(c)
		}
		req.Input.ClearPfp = jsonNull(c.Body(), "pfp")
	}

	account, err := s.accountService.UpdateProfile(c.UserContext(), middleware.IdentityFrom(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(accountView{User: account})
}

// GetUser handles GET /api/users/:userId
// @Summary Public account profile
// @Tags users
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{userId} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	userID, err := parseID(c, "userId")
	if err != nil {
		return nil
	}

	account, err := s.accountService.Resolve(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(publicProfile(account))
}

// publicProfile strips what only the owner may see.
func publicProfile(u *models.User) fiber.Map {
	return fiber.Map{
		"id":          u.ID,
		"displayName": u.DisplayName,
		"role":        u.Role,
		"pfpId":       u.PfpID,
		"pfpUrl":      u.PfpURL,
		"createdAt":   u.CreatedAt,
	}
}
