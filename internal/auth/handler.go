package auth

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sales-analytics-backend/internal/audit"
	"sales-analytics-backend/internal/logger"
	"sales-analytics-backend/internal/models"
	"sales-analytics-backend/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type UserResponse struct {
	ID       uint            `json:"id"`
	Username string          `json:"username"`
	FullName string          `json:"fullName"`
	Role     models.UserRole `json:"role"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, FullName: u.FullName, Role: u.Role}
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// validationMessage turns the first failed rule into a readable message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "max":
		if field == "username" {
			return "username must be 3 to 50 characters"
		}
		return "password must be 6 to 100 characters"
	case "username":
		return "username may only contain letters, digits and underscores"
	}
	return field + " is invalid"
}

// LoginLimiter allows 5 login attempts per IP in 15 minutes.
func LoginLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        5,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many login attempts. Try again in 15 minutes.")
		},
	})
}

// POST /api/auth/login
func LoginHandler(svc *Service, secret string, ttl time.Duration, trail *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		body.Username = strings.TrimSpace(body.Username)

		if err := validate.Struct(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
		}

		user, err := svc.Authenticate(c.UserContext(), body.Username, body.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}
		if err != nil {
			logger.FromContext(c.UserContext()).Error().Err(err).Msg("login failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Login failed")
		}

		token, err := GenerateToken(secret, user, ttl)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token could not be created")
		}

		trail.Record(c.UserContext(), audit.LogOptions{
			UserID:      user.ID,
			UserName:    user.Username,
			EntityType:  "user",
			EntityID:    strconv.FormatUint(uint64(user.ID), 10),
			Action:      models.AuditActionLogin,
			Description: "Signed in as " + string(user.Role),
		})

		c.Cookie(&fiber.Cookie{
			Name:     TokenCookieName,
			Value:    token,
			Expires:  time.Now().Add(ttl),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
		})

		return c.JSON(fiber.Map{
			"token": token,
			"user":  newUserResponse(user),
		})
	}
}

// GET /api/auth/verify
func VerifyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := CurrentUser(c)
		user, err := svc.User(c.UserContext(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "User not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "User could not be loaded")
		}
		return c.JSON(fiber.Map{"user": newUserResponse(user)})
	}
}

// POST /api/auth/logout
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.ClearCookie(TokenCookieName)
		return c.JSON(fiber.Map{"success": true})
	}
}
